//go:build !linux

package serialport

import (
	"time"

	"go.bug.st/serial"
)

type bugstPort struct {
	p serial.Port
}

func openPort(path string, baud int, timeout time.Duration) (port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(timeout); err != nil {
		_ = p.Close()
		return nil, err
	}
	return &bugstPort{p: p}, nil
}

func (b *bugstPort) read(p []byte) (int, error) {
	return b.p.Read(p)
}

// go.bug.st/serial does not expose the OS input queue.
func (b *bugstPort) inWaiting() (int, error) {
	return 0, errNoQueueDepth
}

func (b *bugstPort) Close() error {
	return b.p.Close()
}
