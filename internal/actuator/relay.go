package actuator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyclopcam/logs"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/ironsheep/markerctl/internal/timeutil"
)

// ErrBusy is returned when a relay sequence is already running.
var ErrBusy = errors.New("relay sequence already running")

// Pin is the part of a GPIO output the relay bank needs.
type Pin interface {
	Out(l gpio.Level) error
}

// RelayCodes maps action codes to the data bits on relays 2 to 4. Relay 1
// is the strobe.
var RelayCodes = map[string][3]bool{
	"A": {false, false, true},
	"B": {false, true, false},
	"C": {false, true, true},
	"D": {true, false, false},
}

// RelayOptions configure a RelayBank. Zero values select the defaults.
type RelayOptions struct {
	// InverseLogic drives a pin Low to switch its relay on.
	InverseLogic bool

	// Settle is the time between presenting the data bits and raising
	// the strobe. Default 1s.
	Settle time.Duration

	// Hold is how long the strobe stays up. Default 7s.
	Hold time.Duration

	// Blink is the LED on and off time in the test sequence. Default 1s.
	Blink time.Duration

	Clock timeutil.Clock
}

func (o RelayOptions) withDefaults() RelayOptions {
	if o.Settle <= 0 {
		o.Settle = time.Second
	}
	if o.Hold <= 0 {
		o.Hold = 7 * time.Second
	}
	if o.Blink <= 0 {
		o.Blink = time.Second
	}
	if o.Clock == nil {
		o.Clock = timeutil.RealClock{}
	}
	return o
}

// RelayBank drives four relays: a strobe on relay 1 and a 3-bit action code
// on relays 2 to 4. Each Fire starts one sequence in the background:
//
//	strobe off, data bits set -> settle -> strobe on -> hold -> all off
//
// Only one sequence runs at a time.
type RelayBank struct {
	log  logs.Log
	opts RelayOptions
	pins [4]Pin
	led  Pin

	mu      sync.Mutex // serializes pin writes
	busy    atomic.Bool
	running sync.WaitGroup
}

// NewRelayBank returns a bank driving pins, with all relays switched off.
// led may be nil.
func NewRelayBank(pins [4]Pin, led Pin, opts RelayOptions, log logs.Log) (*RelayBank, error) {
	for i, p := range pins {
		if p == nil {
			return nil, fmt.Errorf("relay %d has no pin", i+1)
		}
	}
	b := &RelayBank{log: log, opts: opts.withDefaults(), pins: pins, led: led}
	if err := b.allOff(); err != nil {
		return nil, err
	}
	return b, nil
}

// OpenRelayBank initializes the host GPIO drivers and looks up the relay
// pins by name (for example "GPIO17"). ledName may be empty.
func OpenRelayBank(names []string, ledName string, opts RelayOptions, log logs.Log) (*RelayBank, error) {
	if len(names) != 4 {
		return nil, fmt.Errorf("relay bank needs 4 pins, got %d", len(names))
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing gpio: %w", err)
	}

	var pins [4]Pin
	for i, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", name)
		}
		pins[i] = p
	}

	var led Pin
	if ledName != "" {
		p := gpioreg.ByName(ledName)
		if p == nil {
			return nil, fmt.Errorf("gpio pin %q not found", ledName)
		}
		led = p
	}

	log.Infof("actuator: relay bank on %v (inverse logic %v)", names, opts.InverseLogic)
	return NewRelayBank(pins, led, opts, log)
}

func (b *RelayBank) level(on bool) gpio.Level {
	if b.opts.InverseLogic {
		return gpio.Level(!on)
	}
	return gpio.Level(on)
}

func (b *RelayBank) set(i int, on bool) error {
	if err := b.pins[i].Out(b.level(on)); err != nil {
		return fmt.Errorf("relay %d: %w", i+1, err)
	}
	return nil
}

func (b *RelayBank) setAll(states [4]bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, on := range states {
		if err := b.set(i, on); err != nil {
			return err
		}
	}
	return nil
}

func (b *RelayBank) allOff() error {
	return b.setAll([4]bool{})
}

// Busy reports whether a sequence is running.
func (b *RelayBank) Busy() bool {
	return b.busy.Load()
}

// Fire starts the sequence for code and returns once the data bits are
// presented. The rest of the sequence runs in the background; cancelling
// ctx cuts it short with all relays off.
func (b *RelayBank) Fire(ctx context.Context, code string) error {
	bits, ok := RelayCodes[code]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedCode, code)
	}
	if !b.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}

	if err := b.setAll([4]bool{false, bits[0], bits[1], bits[2]}); err != nil {
		b.allOff()
		b.busy.Store(false)
		return err
	}
	b.log.Infof("actuator: %s encoded as %s", code, bitString(bits))

	b.running.Add(1)
	go func() {
		defer b.running.Done()
		defer b.busy.Store(false)
		if err := b.strobe(ctx, bits); err != nil {
			b.log.Errorf("actuator: %s sequence: %v", code, err)
		}
		if err := b.allOff(); err != nil {
			b.log.Errorf("actuator: switching relays off: %v", err)
		}
	}()
	return nil
}

func (b *RelayBank) strobe(ctx context.Context, bits [3]bool) error {
	if err := timeutil.Sleep(ctx, b.opts.Clock, b.opts.Settle); err != nil {
		return err
	}
	if err := b.setAll([4]bool{true, bits[0], bits[1], bits[2]}); err != nil {
		return err
	}
	return timeutil.Sleep(ctx, b.opts.Clock, b.opts.Hold)
}

func bitString(bits [3]bool) string {
	out := make([]byte, 3)
	for i, on := range bits {
		out[i] = '0'
		if on {
			out[i] = '1'
		}
	}
	return string(out)
}

// Test blinks the LED three times. It is a no-op without an LED pin.
func (b *RelayBank) Test(ctx context.Context) error {
	if b.led == nil {
		b.log.Infof("actuator: no test LED configured")
		return nil
	}
	for i := 0; i < 3; i++ {
		if err := b.led.Out(gpio.High); err != nil {
			return fmt.Errorf("test led: %w", err)
		}
		if err := timeutil.Sleep(ctx, b.opts.Clock, b.opts.Blink); err != nil {
			b.led.Out(gpio.Low)
			return err
		}
		if err := b.led.Out(gpio.Low); err != nil {
			return fmt.Errorf("test led: %w", err)
		}
		if err := timeutil.Sleep(ctx, b.opts.Clock, b.opts.Blink); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until any running sequence has finished.
func (b *RelayBank) Wait() {
	b.running.Wait()
}

// Close waits for a running sequence and switches every relay off.
func (b *RelayBank) Close() error {
	b.Wait()
	if b.led != nil {
		b.led.Out(gpio.Low)
	}
	return b.allOff()
}
