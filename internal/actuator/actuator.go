// Package actuator drives the hardware that receives action codes: a serial
// controller, a GPIO relay bank, or a log-only stand-in for dry runs.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/markerctl/internal/dispatch"
)

// ErrUnsupportedCode is returned for an action code the actuator cannot
// encode.
var ErrUnsupportedCode = errors.New("unsupported action code")

// Actuator receives action codes.
type Actuator interface {
	// Fire performs the action for code.
	Fire(ctx context.Context, code string) error

	// Test runs the actuator's self-test signal.
	Test(ctx context.Context) error

	// Close releases the hardware, leaving outputs off.
	Close() error
}

// Actions builds a dispatcher registry that fires each code on act.
func Actions(act Actuator, codes []string) dispatch.Registry {
	reg := make(dispatch.Registry, len(codes))
	for _, code := range codes {
		reg[code] = func(ctx context.Context) error {
			return act.Fire(ctx, code)
		}
	}
	return reg
}

// Kind names an actuator implementation on the command line.
type Kind string

const (
	KindSerial Kind = "serial"
	KindRelay  Kind = "relay"
	KindLog    Kind = "log"
)

// ParseKind validates an actuator name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSerial, KindRelay, KindLog:
		return k, nil
	default:
		return "", fmt.Errorf("unknown actuator %q: expected serial, relay or log", s)
	}
}
