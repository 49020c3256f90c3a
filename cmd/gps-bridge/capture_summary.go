package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gps-bridge/internal/capture"
	"gps-bridge/internal/coords"
)

type captureSummary struct {
	Segments    int
	Lines       int
	XLines      int
	YLines      int
	Ready       int // lines after which both values were known
	MaxDuration time.Duration
	Last        coords.Coordinate
	HasLast     bool
}

func summarizeCapture(records []capture.Record, parser *coords.Parser) captureSummary {
	s := captureSummary{}
	if len(records) == 0 {
		return s
	}

	tr := coords.NewTracker(parser)
	origin := time.Duration(0)
	hasLines := false
	segments := 0

	for _, r := range records {
		if r.Start {
			segments++
			origin = r.At
			continue
		}
		hasLines = true

		s.Lines++
		at := r.At - origin
		if at < 0 {
			at = 0
		}
		if at > s.MaxDuration {
			s.MaxDuration = at
		}

		u, ready := tr.Apply(r.Line)
		if u.SetX {
			s.XLines++
		}
		if u.SetY {
			s.YLines++
		}
		if ready {
			s.Ready++
		}
	}
	if segments == 0 && hasLines {
		segments = 1
	}
	s.Segments = segments
	s.Last, s.HasLast = tr.Coordinate()

	return s
}

// printCaptureSummary reads a capture file and writes its summary to w, using
// parser to recognise coordinate lines.
func printCaptureSummary(w io.Writer, path string, parser *coords.Parser) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	recs, err := capture.ReadFile(path)
	if err != nil {
		return err
	}

	s := summarizeCapture(recs, parser)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "lines: %d\n", s.Lines)
	fmt.Fprintf(w, "x_lines: %d\n", s.XLines)
	fmt.Fprintf(w, "y_lines: %d\n", s.YLines)
	fmt.Fprintf(w, "ready_lines: %d\n", s.Ready)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	if s.HasLast {
		fmt.Fprintf(w, "last_coordinate: %s\n", s.Last)
	}
	return nil
}
