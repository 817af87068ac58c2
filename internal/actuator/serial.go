package actuator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"go.bug.st/serial"

	"github.com/ironsheep/markerctl/internal/timeutil"
)

// TestByte is written by Serial.Test. The controller firmware blinks its
// status LED when it sees it.
const TestByte = 't'

// PortOptions describes the serial connection parameters.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`

	// Settle is how long to wait after opening before the first write.
	// Boards that reset on open need a couple of seconds.
	Settle time.Duration `json:"settle"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 9600
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	if parity == "" {
		parity = "N"
	}

	switch parity {
	case "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	if opts.Settle < 0 {
		opts.Settle = 0
	}

	opts.Parity = parity
	return opts, nil
}

// SerialMode converts the port options into the serial.Mode structure
// required by go.bug.st/serial when opening a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}

	return mode, nil
}

// Serial writes action codes as ASCII bytes to a microcontroller.
type Serial struct {
	log logs.Log

	mu   sync.Mutex
	port io.WriteCloser
}

// NewSerial wraps an already open port.
func NewSerial(port io.WriteCloser, log logs.Log) *Serial {
	return &Serial{port: port, log: log}
}

// OpenSerial opens the port at path and waits opts.Settle before returning.
func OpenSerial(ctx context.Context, path string, opts PortOptions, log logs.Log) (*Serial, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", path, err)
	}
	log.Infof("actuator: serial %s open at %d %d%s%d", path, opts.BaudRate, opts.DataBits, opts.Parity, opts.StopBits)

	if err := timeutil.Sleep(ctx, timeutil.RealClock{}, opts.Settle); err != nil {
		port.Close()
		return nil, err
	}
	return NewSerial(port, log), nil
}

func (s *Serial) write(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return errors.New("serial port closed")
	}
	n, err := s.port.Write(b)
	if err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if n != len(b) {
		return fmt.Errorf("serial write: short write (%d of %d bytes)", n, len(b))
	}
	return nil
}

// Fire writes code to the port.
func (s *Serial) Fire(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("%w: empty code", ErrUnsupportedCode)
	}
	if err := s.write([]byte(code)); err != nil {
		return err
	}
	s.log.Infof("actuator: sent %q", code)
	return nil
}

// Test writes TestByte.
func (s *Serial) Test(ctx context.Context) error {
	return s.write([]byte{TestByte})
}

// Close closes the port. Further writes fail.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
