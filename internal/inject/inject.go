// Package inject types coordinates into whichever application currently has
// keyboard focus.
package inject

import (
	"fmt"
	"log"
	"strings"

	"gps-bridge/internal/coords"
)

// Keyboard is the minimal input-automation capability the bridge needs.
type Keyboard interface {
	KeyTap(key string) error
	TypeStr(text string) error
}

// Injector sends the confirm key, the coordinate text, then the confirm key
// again. The first key is expected to open the map program's goto box.
type Injector struct {
	kb  Keyboard
	key string
}

func NewInjector(kb Keyboard, key string) (*Injector, error) {
	if kb == nil {
		return nil, fmt.Errorf("keyboard is nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "enter"
	}
	return &Injector{kb: kb, key: key}, nil
}

// Send types c. It stops at the first failing step; there is no way to tell
// whether the focused application actually received the input.
func (i *Injector) Send(c coords.Coordinate) error {
	text := c.String()
	if err := i.kb.KeyTap(i.key); err != nil {
		return fmt.Errorf("key %s: %w", i.key, err)
	}
	if err := i.kb.TypeStr(text); err != nil {
		return fmt.Errorf("type %q: %w", text, err)
	}
	if err := i.kb.KeyTap(i.key); err != nil {
		return fmt.Errorf("key %s: %w", i.key, err)
	}
	return nil
}

// New builds a keyboard for the named backend ("robotgo" or "dryrun").
func New(backend string) (Keyboard, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "robotgo":
		kb, err := NewRobotgo()
		if err != nil {
			return nil, err
		}
		return kb, nil
	case "dryrun":
		return NewDryRun(), nil
	default:
		return nil, fmt.Errorf("unknown inject backend %q", backend)
	}
}

// DryRun logs each event instead of generating OS input.
type DryRun struct {
	logf func(format string, args ...any)
}

func NewDryRun() *DryRun {
	return &DryRun{logf: log.Printf}
}

func (d *DryRun) KeyTap(key string) error {
	d.logf("dry-run key=%s", key)
	return nil
}

func (d *DryRun) TypeStr(text string) error {
	d.logf("dry-run type=%q", text)
	return nil
}
