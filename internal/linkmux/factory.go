package linkmux

import (
	"go.bug.st/serial"
)

// OpenPort opens a real serial port at the given path with the provided
// options. The result satisfies SerialPorter and is handed to New.
func OpenPort(path string, opts PortOptions) (serial.Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	return serial.Open(path, mode)
}
