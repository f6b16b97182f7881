package handstream

import (
	"fmt"
	"io"
	"os"

	"go.bug.st/serial"
)

// NewRealMux opens the serial device at path and returns a Mux over it.
func NewRealMux(path string, opts PortOptions) (*Mux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}

	return NewMux[serial.Port](port), nil
}

// NewReplayMux returns a Mux that replays a recorded JSON-lines stream.
func NewReplayMux(r io.ReadCloser) *Mux[io.ReadCloser] {
	return NewMux(r)
}

// OpenReplayFile opens a JSON-lines recording for replay.
func OpenReplayFile(path string) (*Mux[io.ReadCloser], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	return NewReplayMux(f), nil
}
