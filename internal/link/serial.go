package link

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the controller side of the link.
	DefaultBaudRate = 115200

	// readTimeout bounds how long Pump waits before re-checking cancellation.
	readTimeout = 100 * time.Millisecond
)

// OpenSerial opens the command link serial port in 8N1 mode.
func OpenSerial(port string, baudRate int) (serial.Port, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", port, err)
	}
	return p, nil
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
