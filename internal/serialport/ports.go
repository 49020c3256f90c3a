package serialport

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial"
)

// ListPorts returns the serial ports the OS currently reports, sorted.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	sort.Strings(ports)
	return ports, nil
}

var listPorts = ListPorts

func resolveDevice(device string) (string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return "", fmt.Errorf("device is empty")
	}
	if !strings.EqualFold(device, "auto") {
		return device, nil
	}

	ports, err := listPorts()
	if err != nil {
		return "", fmt.Errorf("auto-detect failed: %w", err)
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("auto-detect failed: no serial ports found")
	}
	return ports[0], nil
}
