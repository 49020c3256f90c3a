//go:build !cgo

package inject

import "fmt"

type Robotgo struct{}

func NewRobotgo() (*Robotgo, error) {
	return nil, fmt.Errorf("robotgo input injection requires a cgo build")
}

func (Robotgo) KeyTap(key string) error {
	return fmt.Errorf("robotgo input injection requires a cgo build")
}

func (Robotgo) TypeStr(text string) error {
	return fmt.Errorf("robotgo input injection requires a cgo build")
}
