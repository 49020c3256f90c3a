//go:build cgo

package inject

import (
	"github.com/go-vgo/robotgo"
)

// Robotgo drives the real OS input queue. On Linux this needs an X11 session.
type Robotgo struct{}

func NewRobotgo() (*Robotgo, error) {
	return &Robotgo{}, nil
}

func (Robotgo) KeyTap(key string) error {
	return robotgo.KeyTap(key)
}

func (Robotgo) TypeStr(text string) error {
	robotgo.TypeStr(text)
	return nil
}
