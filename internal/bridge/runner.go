package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gps-bridge/internal/coords"
)

const (
	// TriggerOnUpdate sends when both fields are known and the line just
	// read set at least one of them.
	TriggerOnUpdate = "on_update"
	// TriggerEveryLine sends for every line read once both fields are known,
	// including lines that matched nothing.
	TriggerEveryLine = "every_line"
)

// LineSource is a polled line producer such as a serial port or a capture
// file. Available must not block.
type LineSource interface {
	Available() (bool, error)
	ReadLine() (string, error)
}

type Sender interface {
	Send(c coords.Coordinate) error
}

type LineRecorder interface {
	WriteLine(now time.Time, line string) error
}

type Config struct {
	PollInterval time.Duration
	SettleDelay  time.Duration
	Trigger      string
	LogRawLines  bool
}

type Stats struct {
	Lines           int
	CoordinateLines int
	Sends           int
	SendErrors      int
	LastSent        coords.Coordinate
	HasSent         bool
}

// Runner polls a LineSource, feeds a Tracker and types the coordinate once
// both values are known.
type Runner struct {
	cfg      Config
	src      LineSource
	tracker  *coords.Tracker
	sender   Sender
	recorder LineRecorder

	logf  func(format string, args ...any)
	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time

	stats Stats
}

func New(cfg Config, src LineSource, tracker *coords.Tracker, sender Sender) (*Runner, error) {
	if src == nil {
		return nil, fmt.Errorf("line source is nil")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is nil")
	}
	if tracker == nil {
		tracker = coords.NewTracker(nil)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	switch cfg.Trigger {
	case "":
		cfg.Trigger = TriggerOnUpdate
	case TriggerOnUpdate, TriggerEveryLine:
	default:
		return nil, fmt.Errorf("unknown trigger %q", cfg.Trigger)
	}

	return &Runner{
		cfg:     cfg,
		src:     src,
		tracker: tracker,
		sender:  sender,
		logf:    log.Printf,
		sleep:   sleepCtx,
		now:     time.Now,
	}, nil
}

// SetRecorder makes the runner copy every line it reads to rec.
func (r *Runner) SetRecorder(rec LineRecorder) {
	r.recorder = rec
}

func (r *Runner) Stats() Stats {
	return r.stats
}

// Run loops until ctx is done or the source fails. Cancellation and source
// exhaustion (io.EOF) return nil; any other read error ends the loop and is
// returned.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := r.step(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				r.logf("line source exhausted")
				return nil
			}
			return err
		}
		if !r.sleep(ctx, r.cfg.PollInterval) {
			return nil
		}
	}
}

func (r *Runner) step(ctx context.Context) error {
	ok, err := r.src.Available()
	if err != nil {
		return fmt.Errorf("source check failed: %w", err)
	}
	if !ok {
		return nil
	}

	line, err := r.src.ReadLine()
	if err != nil {
		return fmt.Errorf("source read failed: %w", err)
	}
	r.stats.Lines++
	if r.cfg.LogRawLines {
		r.logf("device: %s", line)
	}
	if r.recorder != nil {
		if err := r.recorder.WriteLine(r.now(), line); err != nil {
			r.logf("capture write failed: %v", err)
		}
	}

	u, ready := r.tracker.Apply(line)
	if u.SetX {
		r.logf("parsed x=%d", u.X)
	}
	if u.SetY {
		r.logf("parsed y=%d", u.Y)
	}
	if u.Changed() {
		r.stats.CoordinateLines++
	}

	if !ready || !r.shouldSend(u) {
		return nil
	}
	// Let trailing chatter from the device finish before taking the keyboard.
	if !r.sleep(ctx, r.cfg.SettleDelay) {
		return nil
	}

	c, _ := r.tracker.Coordinate()
	r.logf("sending coordinates text=%s", c)
	if err := r.sender.Send(c); err != nil {
		r.stats.SendErrors++
		r.logf("inject failed: %v", err)
		return nil
	}
	r.stats.Sends++
	r.stats.LastSent = c
	r.stats.HasSent = true
	return nil
}

func (r *Runner) shouldSend(u coords.Update) bool {
	if r.cfg.Trigger == TriggerEveryLine {
		return true
	}
	return u.Changed()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
