// Package pipeline owns one run of the marker decision pipeline: the
// detection stages, the stabilizer and the dispatcher, plus the
// configuration snapshot they read.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/markerctl/internal/config"
	"github.com/ironsheep/markerctl/internal/detection"
	"github.com/ironsheep/markerctl/internal/dispatch"
	"github.com/ironsheep/markerctl/internal/stabilize"
)

// ErrNoFrame is returned by Process for a nil or empty frame.
var ErrNoFrame = errors.New("no frame")

// Snapshot is an immutable set of configuration. It is replaced as a whole,
// never edited in place.
type Snapshot struct {
	Profiles config.Profiles
	Mapping  config.ActionMapping
	Tuning   config.Tuning
}

// FrameResult is everything Process produced for one frame.
type FrameResult struct {
	Seq uint64 `json:"seq"`

	// Codes are the detected codes before stabilization.
	Codes      []string              `json:"codes"`
	Detections []detection.Detection `json:"detections"`
	Rejected   int                   `json:"rejected"`

	// Label is the frame's primary code, or "" for none.
	Label string `json:"label"`

	// Stabilized is the code the stabilizer emitted, if any.
	Stabilized string `json:"stabilized,omitempty"`

	// Dispatch is set when Stabilized is.
	Dispatch *dispatch.Result `json:"dispatch,omitempty"`

	// Annotated is nil when annotation is off.
	Annotated *image.NRGBA `json:"-"`

	// Masks is set when debug masks are on.
	Masks []detection.ColorMask `json:"-"`

	Elapsed time.Duration `json:"elapsed"`
}

// Options configure a Pipeline.
type Options struct {
	// Actions rebuilds the dispatcher registry when the mapping changes.
	// Nil leaves the registry alone.
	Actions func(codes []string) dispatch.Registry
}

// Pipeline processes one frame at a time. Process, Trigger and Reset
// serialize on a single mutex; configuration setters may be called from any
// goroutine and take effect at the next frame boundary.
type Pipeline struct {
	log  logs.Log
	opts Options
	disp *dispatch.Dispatcher

	// setMu serializes the read-modify-store of the setters.
	setMu sync.Mutex
	cfg   atomic.Pointer[Snapshot]

	mu      sync.Mutex
	stab    *stabilize.Stabilizer
	applied *Snapshot
	seq     uint64
	last    *FrameResult
}

// New validates snap and returns a pipeline that dispatches through disp.
func New(log logs.Log, snap Snapshot, disp *dispatch.Dispatcher, opts Options) (*Pipeline, error) {
	if err := validate(snap); err != nil {
		return nil, err
	}
	stab, err := stabilize.New(snap.Tuning.WindowSize, snap.Tuning.StableCount)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{log: log, opts: opts, disp: disp, stab: stab}
	p.store(snap)
	return p, nil
}

func validate(snap Snapshot) error {
	if err := snap.Tuning.Validate(); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}
	for _, prof := range snap.Profiles {
		if err := prof.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) store(snap Snapshot) {
	snap.Tuning = snap.Tuning.Clone()
	p.cfg.Store(&snap)
}

// Snapshot returns the current configuration.
func (p *Pipeline) Snapshot() Snapshot {
	return *p.cfg.Load()
}

// SetProfiles replaces the color profiles.
func (p *Pipeline) SetProfiles(ps config.Profiles) error {
	p.setMu.Lock()
	defer p.setMu.Unlock()
	snap := p.Snapshot()
	snap.Profiles = ps
	if err := validate(snap); err != nil {
		return err
	}
	p.store(snap)
	p.log.Infof("pipeline: %d color profiles active", len(ps))
	return nil
}

// SetMapping replaces the action mapping.
func (p *Pipeline) SetMapping(m config.ActionMapping) error {
	p.setMu.Lock()
	defer p.setMu.Unlock()
	snap := p.Snapshot()
	snap.Mapping = m
	p.store(snap)
	if p.opts.Actions != nil {
		p.disp.Replace(p.opts.Actions(m.Codes()))
	}
	p.log.Infof("pipeline: mapping now covers codes %v", m.Codes())
	return nil
}

// SetTuning replaces the tuning. Stabilizer and cooldown changes apply at
// the next frame.
func (p *Pipeline) SetTuning(t config.Tuning) error {
	p.setMu.Lock()
	defer p.setMu.Unlock()
	snap := p.Snapshot()
	snap.Tuning = t
	if err := validate(snap); err != nil {
		return err
	}
	p.store(snap)
	return nil
}

// begin loads the snapshot for one frame and applies any stateful changes
// it carries. Callers hold p.mu.
func (p *Pipeline) begin() *Snapshot {
	snap := p.cfg.Load()
	if snap == p.applied {
		return snap
	}
	t := snap.Tuning
	if err := p.stab.Resize(t.WindowSize, t.StableCount); err != nil {
		// Validated on the way in.
		p.log.Errorf("pipeline: resizing stabilizer: %v", err)
	}
	overrides := make(map[string]time.Duration, len(t.Cooldowns))
	for code := range t.Cooldowns {
		overrides[code] = t.CooldownFor(code)
	}
	p.disp.SetCooldowns(t.Cooldown.Std(), overrides)
	p.applied = snap
	return snap
}

// Detect runs the detection stages on frame with the current configuration.
// It does not touch the stabilizer or the dispatcher.
func (p *Pipeline) Detect(frame image.Image) (*detection.Result, error) {
	if empty(frame) {
		return nil, ErrNoFrame
	}
	snap := p.cfg.Load()
	return detection.Detect(frame, snap.Profiles, snap.Mapping, snap.Tuning, p.log), nil
}

func empty(frame image.Image) bool {
	return frame == nil || frame.Bounds().Empty()
}

// Process runs one frame through every stage and dispatches a stabilized
// code, if any. Actuator failures are reported in the result, not as an
// error.
func (p *Pipeline) Process(ctx context.Context, frame image.Image) (*FrameResult, error) {
	if empty(frame) {
		return nil, ErrNoFrame
	}
	start := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	snap := p.begin()
	det := detection.Detect(frame, snap.Profiles, snap.Mapping, snap.Tuning, p.log)

	p.seq++
	res := &FrameResult{
		Seq:        p.seq,
		Codes:      det.Codes(),
		Detections: det.Detections,
		Rejected:   det.Rejected,
	}
	if primary, ok := detection.Primary(det.Detections); ok {
		res.Label = primary.Code
	}

	if code, ok := p.stab.Update(res.Label); ok {
		res.Stabilized = code
		d := p.disp.Dispatch(ctx, code)
		res.Dispatch = &d
	}

	if snap.Tuning.Annotate {
		res.Annotated = detection.Annotate(frame, det.Detections)
	}
	if snap.Tuning.DebugMasks {
		res.Masks = det.Masks
	}

	res.Elapsed = time.Since(start)
	p.last = res
	return res, nil
}

// Trigger dispatches code directly, still subject to its cooldown.
func (p *Pipeline) Trigger(ctx context.Context, code string) dispatch.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.begin()
	return p.disp.Dispatch(ctx, code)
}

// Reset clears the stabilizer and the cooldown table.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stab.Reset()
	p.disp.Reset()
	p.log.Infof("pipeline: state reset")
}

// Status is a point-in-time view of the pipeline state.
type Status struct {
	Frames      uint64            `json:"frames"`
	History     []string          `json:"history"`
	WindowSize  int               `json:"window_size"`
	StableCount int               `json:"stable_count"`
	LastEmitted string            `json:"last_emitted"`
	Cooldowns   map[string]string `json:"cooldowns_remaining"`

	// LastDispatch holds the last dispatch time of every code that has one.
	LastDispatch map[string]time.Time `json:"last_dispatch,omitempty"`

	LastFrame *FrameResult `json:"last_frame,omitempty"`
}

// Status reports the frame count, stabilizer window and remaining cooldowns.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, c := p.stab.Window()
	st := Status{
		Frames:      p.seq,
		History:     p.stab.History(),
		WindowSize:  w,
		StableCount: c,
		LastEmitted: p.stab.LastEmitted(),
		Cooldowns:   map[string]string{},
		LastFrame:   p.last,
	}
	for _, code := range p.cfg.Load().Mapping.Codes() {
		if left := p.disp.Remaining(code); left > 0 {
			st.Cooldowns[code] = left.Round(time.Millisecond).String()
		}
		if at, ok := p.disp.LastDispatch(code); ok {
			if st.LastDispatch == nil {
				st.LastDispatch = map[string]time.Time{}
			}
			st.LastDispatch[code] = at
		}
	}
	return st
}
