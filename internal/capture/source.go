package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Source plays back captured device lines with their original spacing.
//
// Each record becomes available once its offset from playback start has
// elapsed. START markers begin a new segment that continues right after the
// previous one. Once every line has been read, Available and ReadLine return
// io.EOF.
type Source struct {
	lines []string
	due   []time.Duration

	now   func() time.Time
	start time.Time
	next  int

	mu     sync.Mutex
	closed bool
}

var ErrClosed = errors.New("capture source is closed")

// NewSource prepares records for playback. speed scales the timing: 2 plays
// twice as fast. now may be nil to use the wall clock.
func NewSource(records []Record, speed float64, now func() time.Time) (*Source, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("speed must be > 0")
	}
	if now == nil {
		now = time.Now
	}

	s := &Source{now: now}
	var origin, segBase, last time.Duration
	for _, r := range records {
		if r.Start {
			segBase = last
			origin = r.At
			continue
		}
		at := r.At - origin
		if at < 0 {
			at = 0
		}
		due := segBase + at
		if due < last {
			due = last
		}
		last = due
		s.lines = append(s.lines, r.Line)
		s.due = append(s.due, time.Duration(float64(due)/speed))
	}
	if len(s.lines) == 0 {
		return nil, errors.New("no records")
	}
	s.start = now()
	return s, nil
}

func (s *Source) Available() (bool, error) {
	if s.isClosed() {
		return false, ErrClosed
	}
	if s.next >= len(s.lines) {
		return false, io.EOF
	}
	return s.now().Sub(s.start) >= s.due[s.next], nil
}

// ReadLine returns the next captured line whether or not it is due yet.
func (s *Source) ReadLine() (string, error) {
	if s.isClosed() {
		return "", ErrClosed
	}
	if s.next >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.next]
	s.next++
	return line, nil
}

func (s *Source) Len() int { return len(s.lines) }

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Source) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
