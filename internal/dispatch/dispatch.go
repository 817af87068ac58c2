// Package dispatch gates action codes through a per-code cooldown before
// handing them to an actuator.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/markerctl/internal/timeutil"
)

// ErrUnknownAction is returned for a code with no registered action.
var ErrUnknownAction = errors.New("unknown action code")

// Action performs the side effect for one action code.
type Action func(ctx context.Context) error

// Registry maps action codes to their actions.
type Registry map[string]Action

// Codes returns the registered codes, sorted.
func (r Registry) Codes() []string {
	codes := make([]string, 0, len(r))
	for c := range r {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Outcome describes what happened to one dispatch request.
type Outcome string

const (
	Dispatched Outcome = "dispatched"
	Suppressed Outcome = "suppressed"
	Failed     Outcome = "failed"
	Unknown    Outcome = "unknown"
)

// Result reports a single dispatch request.
type Result struct {
	Code    string    `json:"code"`
	Outcome Outcome   `json:"outcome"`
	At      time.Time `json:"at"`

	// Remaining is the cooldown left when the request was suppressed.
	Remaining time.Duration `json:"remaining,omitempty"`

	// Err is ErrUnknownAction or the actuator's error.
	Err error `json:"-"`
}

// Error returns the error text, or "" when there was none.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Recorder persists dispatch results. Failures to record are logged and
// otherwise ignored.
type Recorder interface {
	RecordDispatch(ctx context.Context, r Result) error
}

// Dispatcher owns the cooldown table. It is safe for concurrent use, though
// the pipeline only calls it from one goroutine at a time.
type Dispatcher struct {
	log   logs.Log
	clock timeutil.Clock

	mu        sync.Mutex
	actions   Registry
	cooldown  time.Duration
	overrides map[string]time.Duration
	last      map[string]time.Time
	recorder  Recorder
}

// Options configure a Dispatcher. Zero values select the real clock and no
// recorder.
type Options struct {
	Clock    timeutil.Clock
	Recorder Recorder
}

// New returns a Dispatcher with the given actions and default cooldown.
func New(log logs.Log, actions Registry, cooldown time.Duration, opts Options) *Dispatcher {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if actions == nil {
		actions = Registry{}
	}
	return &Dispatcher{
		log:       log,
		clock:     clock,
		actions:   actions,
		cooldown:  cooldown,
		overrides: map[string]time.Duration{},
		last:      map[string]time.Time{},
		recorder:  opts.Recorder,
	}
}

// Replace swaps the action registry. Cooldown history is kept.
func (d *Dispatcher) Replace(actions Registry) {
	if actions == nil {
		actions = Registry{}
	}
	d.mu.Lock()
	d.actions = actions
	d.mu.Unlock()
}

// SetCooldowns sets the default cooldown and the per-code overrides.
func (d *Dispatcher) SetCooldowns(def time.Duration, overrides map[string]time.Duration) {
	o := make(map[string]time.Duration, len(overrides))
	for k, v := range overrides {
		o[k] = v
	}
	d.mu.Lock()
	d.cooldown = def
	d.overrides = o
	d.mu.Unlock()
}

func (d *Dispatcher) cooldownFor(code string) time.Duration {
	if c, ok := d.overrides[code]; ok {
		return c
	}
	return d.cooldown
}

// Remaining returns how long code stays in cooldown, or 0.
func (d *Dispatcher) Remaining(code string) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remainingLocked(code, d.clock.Now())
}

func (d *Dispatcher) remainingLocked(code string, now time.Time) time.Duration {
	last, ok := d.last[code]
	if !ok {
		return 0
	}
	left := d.cooldownFor(code) - now.Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

// LastDispatch returns the time code was last dispatched.
func (d *Dispatcher) LastDispatch(code string) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.last[code]
	return t, ok
}

// Reset clears the cooldown table.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.last = map[string]time.Time{}
	d.mu.Unlock()
}

// Dispatch runs the action for code unless it is still cooling down. The
// cooldown timestamp is written before the action runs, so a failing
// actuator still consumes its cooldown.
func (d *Dispatcher) Dispatch(ctx context.Context, code string) Result {
	d.mu.Lock()
	now := d.clock.Now()
	res := Result{Code: code, At: now}

	action, ok := d.actions[code]
	switch {
	case !ok:
		res.Outcome = Unknown
		res.Err = fmt.Errorf("%w: %q", ErrUnknownAction, code)
	default:
		if left := d.remainingLocked(code, now); left > 0 {
			res.Outcome = Suppressed
			res.Remaining = left
		} else {
			d.last[code] = now
		}
	}
	recorder := d.recorder
	d.mu.Unlock()

	if res.Outcome == "" {
		if err := action(ctx); err != nil {
			res.Outcome = Failed
			res.Err = err
		} else {
			res.Outcome = Dispatched
		}
	}

	switch res.Outcome {
	case Dispatched:
		d.log.Infof("dispatch: %s", code)
	case Suppressed:
		d.log.Debugf("dispatch: %s suppressed, %v cooldown left", code, res.Remaining.Round(time.Millisecond))
	case Failed:
		d.log.Errorf("dispatch: %s failed: %v", code, res.Err)
	case Unknown:
		d.log.Warnf("dispatch: %v", res.Err)
	}

	if recorder != nil {
		if err := recorder.RecordDispatch(ctx, res); err != nil {
			d.log.Warnf("dispatch: recording %s: %v", code, err)
		}
	}
	return res
}
