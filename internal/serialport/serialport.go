package serialport

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Lines from the microcontroller are short; anything longer is returned in
// pieces rather than buffered without bound.
const maxLineBytes = 4096

// ErrClosed is returned by reads on a closed Source.
var ErrClosed = errors.New("serial source is closed")

// errNoQueueDepth is returned by ports that cannot report how many bytes the
// OS has queued.
var errNoQueueDepth = errors.New("input queue depth not supported")

type Config struct {
	// Device is a path (/dev/ttyACM0), a port name (COM3), or "auto".
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// ConnectionError reports that the serial device could not be opened.
type ConnectionError struct {
	Device string
	Baud   int
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("serial open failed device=%s baud=%d: %v", e.Device, e.Baud, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// port is the platform serial handle.
type port interface {
	// read blocks for at most the configured timeout and returns 0, nil when
	// it elapses with no data.
	read(p []byte) (int, error)
	inWaiting() (int, error)
	Close() error
}

// Source yields newline-terminated text lines from a serial device.
//
// It is not safe for concurrent reads; Close may be called from any goroutine.
type Source struct {
	device  string
	baud    int
	timeout time.Duration

	port    port
	buf     []byte
	pending []byte

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
	closeErr  error
}

func Open(cfg Config) (*Source, error) {
	baud := cfg.Baud
	if baud == 0 {
		baud = 9600
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = 1 * time.Second
	}

	device, err := resolveDevice(cfg.Device)
	if err != nil {
		return nil, &ConnectionError{Device: cfg.Device, Baud: baud, Err: err}
	}

	p, err := openPort(device, baud, timeout)
	if err != nil {
		return nil, &ConnectionError{Device: device, Baud: baud, Err: err}
	}
	return newSource(p, device, baud, timeout), nil
}

func newSource(p port, device string, baud int, timeout time.Duration) *Source {
	return &Source{
		device:  device,
		baud:    baud,
		timeout: timeout,
		port:    p,
		buf:     make([]byte, 256),
	}
}

func (s *Source) Device() string { return s.device }
func (s *Source) Baud() int      { return s.baud }

// Available reports whether any input is waiting. It does not block on ports
// that expose the OS input queue; on the others it waits for at most one read
// timeout and buffers whatever arrived.
func (s *Source) Available() (bool, error) {
	if s.isClosed() {
		return false, ErrClosed
	}
	if len(s.pending) > 0 {
		return true, nil
	}
	n, err := s.port.inWaiting()
	if errors.Is(err, errNoQueueDepth) {
		return s.fill()
	}
	if err != nil {
		return false, fmt.Errorf("serial in_waiting device=%s: %w", s.device, err)
	}
	return n > 0, nil
}

// ReadLine returns the next line with surrounding whitespace trimmed.
//
// If no newline arrives before the read timeout, whatever was received so far
// is returned (possibly ""). Invalid UTF-8 bytes are replaced with U+FFFD.
func (s *Source) ReadLine() (string, error) {
	if s.isClosed() {
		return "", ErrClosed
	}
	deadline := time.Now().Add(s.timeout)
	for {
		if line, ok := s.nextLine(); ok {
			return line, nil
		}

		n, err := s.port.read(s.buf)
		if n > 0 {
			s.pending = append(s.pending, s.buf[:n]...)
		}
		if err != nil {
			if s.isClosed() {
				return "", ErrClosed
			}
			return "", fmt.Errorf("serial read device=%s: %w", s.device, err)
		}
		if n == 0 || !time.Now().Before(deadline) {
			if line, ok := s.nextLine(); ok {
				return line, nil
			}
			return s.take(len(s.pending)), nil
		}
	}
}

// fill performs one timed read into the pending buffer.
func (s *Source) fill() (bool, error) {
	n, err := s.port.read(s.buf)
	if n > 0 {
		s.pending = append(s.pending, s.buf[:n]...)
	}
	if err != nil {
		if s.isClosed() {
			return false, ErrClosed
		}
		return false, fmt.Errorf("serial read device=%s: %w", s.device, err)
	}
	return len(s.pending) > 0, nil
}

// nextLine pops one complete (or over-long) line from the pending buffer.
func (s *Source) nextLine() (string, bool) {
	if i := bytes.IndexByte(s.pending, '\n'); i >= 0 && i < maxLineBytes {
		return s.take(i + 1), true
	}
	if len(s.pending) >= maxLineBytes {
		return s.take(splitPoint(s.pending)), true
	}
	return "", false
}

// splitPoint picks where to cut an over-long line, backing off so a multi-byte
// character is not split across the two halves.
func splitPoint(b []byte) int {
	cut := maxLineBytes
	if len(b) <= cut {
		return cut
	}
	for i := cut; i > maxLineBytes-utf8.UTFMax && i > 0; i-- {
		if utf8.RuneStart(b[i]) {
			return i
		}
	}
	return cut
}

func (s *Source) take(n int) string {
	line := decodeLine(s.pending[:n])
	rest := copy(s.pending, s.pending[n:])
	s.pending = s.pending[:rest]
	return line
}

// Close releases the device. Only the first call has any effect.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}

func (s *Source) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// decodeLine converts raw bytes to text, substituting U+FFFD for each byte
// that is not part of a valid UTF-8 sequence.
func decodeLine(raw []byte) string {
	if utf8.Valid(raw) {
		return strings.TrimSpace(string(raw))
	}
	var b strings.Builder
	b.Grow(len(raw) + 8)
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size <= 1 {
			b.WriteRune(utf8.RuneError)
			raw = raw[1:]
			continue
		}
		b.Write(raw[:size])
		raw = raw[size:]
	}
	return strings.TrimSpace(b.String())
}
