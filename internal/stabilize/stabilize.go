// Package stabilize turns a noisy per-frame label stream into discrete
// trigger events using a sliding majority vote.
//
// A Stabilizer is not safe for concurrent use; the pipeline serializes
// access to it.
package stabilize

import (
	"fmt"

	"github.com/bmharper/ringbuffer"
)

// None is the label recorded for a frame with no detection.
const None = ""

// Stabilizer keeps the last WindowSize per-frame labels and emits a label
// once it holds a majority of at least StableCount entries.
type Stabilizer struct {
	window      int
	stableCount int
	history     ringbuffer.RingP[string]
	lastEmitted string
}

// New returns a Stabilizer with an empty history.
func New(window, stableCount int) (*Stabilizer, error) {
	if err := check(window, stableCount); err != nil {
		return nil, err
	}
	return &Stabilizer{
		window:      window,
		stableCount: stableCount,
		history:     newHistory(window),
	}, nil
}

// newHistory allocates a ring that can hold window labels. RingP needs a
// power-of-two size and holds one less than it.
func newHistory(window int) ringbuffer.RingP[string] {
	size := 2
	for size < window+1 {
		size <<= 1
	}
	return ringbuffer.NewRingP[string](size)
}

func check(window, stableCount int) error {
	if window < 1 {
		return fmt.Errorf("window size must be at least 1, got %d", window)
	}
	if stableCount < 1 || stableCount > window {
		return fmt.Errorf("stable count must be in [1, %d], got %d", window, stableCount)
	}
	return nil
}

// Update records the label for one frame and reports whether it produced a
// trigger. A label is emitted when it is the majority of the window, appears
// at least StableCount times, is not None and differs from the last emitted
// label. Ties between labels go to the one seen most recently.
func (s *Stabilizer) Update(label string) (string, bool) {
	s.history.Add(label)
	for s.history.Len() > s.window {
		s.history.Next()
	}

	top, count := s.majority()
	if top == None || count < s.stableCount || top == s.lastEmitted {
		return None, false
	}
	s.lastEmitted = top
	return top, true
}

// majority scans from newest to oldest so the first label to reach the best
// count wins ties.
func (s *Stabilizer) majority() (string, int) {
	counts := make(map[string]int, s.history.Len())
	for i := 0; i < s.history.Len(); i++ {
		counts[s.history.Peek(i)]++
	}

	best, bestCount := None, 0
	for i := s.history.Len() - 1; i >= 0; i-- {
		l := s.history.Peek(i)
		if c := counts[l]; c > bestCount {
			best, bestCount = l, c
		}
	}
	return best, bestCount
}

// LastEmitted returns the most recently emitted label, or None.
func (s *Stabilizer) LastEmitted() string {
	return s.lastEmitted
}

// History returns the window contents, oldest first.
func (s *Stabilizer) History() []string {
	out := make([]string, s.history.Len())
	for i := range out {
		out[i] = s.history.Peek(i)
	}
	return out
}

// Window returns the configured window size and stable count.
func (s *Stabilizer) Window() (window, stableCount int) {
	return s.window, s.stableCount
}

// Resize changes the window at runtime. The most recent entries that still
// fit are kept; the last emitted label is unchanged.
func (s *Stabilizer) Resize(window, stableCount int) error {
	if err := check(window, stableCount); err != nil {
		return err
	}
	if window == s.window && stableCount == s.stableCount {
		return nil
	}
	old := s.History()
	if len(old) > window {
		old = old[len(old)-window:]
	}
	s.history = newHistory(window)
	for _, l := range old {
		s.history.Add(l)
	}
	s.window, s.stableCount = window, stableCount
	return nil
}

// Reset clears the history and the last emitted label, so the next stable
// label fires again.
func (s *Stabilizer) Reset() {
	s.history = newHistory(s.window)
	s.lastEmitted = None
}
