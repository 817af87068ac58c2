// Package capture provides frame sources: replayed image files, a repeated
// still, or a live webcam.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/markerctl/internal/imaging"
	"github.com/ironsheep/markerctl/internal/timeutil"
)

// ErrNoWebcam is returned when the binary was built without the gocv tag.
var ErrNoWebcam = errors.New("webcam support requires building with -tags gocv")

// Source yields frames. Next returns io.EOF when the source is exhausted.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// Options control pacing for file-backed sources.
type Options struct {
	// Interval is the minimum time between frames. Zero means as fast as
	// the consumer asks.
	Interval time.Duration

	// Loop restarts a directory from the first file instead of returning
	// io.EOF.
	Loop bool

	Clock timeutil.Clock
}

func (o Options) clock() timeutil.Clock {
	if o.Clock == nil {
		return timeutil.RealClock{}
	}
	return o.Clock
}

// pacer enforces Options.Interval.
type pacer struct {
	opts Options
	last time.Time
}

func (p *pacer) wait(ctx context.Context) error {
	c := p.opts.clock()
	if p.opts.Interval > 0 && !p.last.IsZero() {
		if err := timeutil.Sleep(ctx, c, p.opts.Interval-c.Since(p.last)); err != nil {
			return err
		}
	}
	p.last = c.Now()
	return ctx.Err()
}

// DirSource replays the frame files in a directory in name order.
type DirSource struct {
	files []string
	next  int
	pace  pacer
}

// OpenDir lists the frame files in dir. It fails if there are none.
func OpenDir(dir string, opts Options) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imaging.IsFrameFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no frame files in %s", dir)
	}
	sort.Strings(files)
	return &DirSource{files: files, pace: pacer{opts: opts}}, nil
}

// Files returns the frame files in replay order.
func (s *DirSource) Files() []string {
	return s.files
}

func (s *DirSource) Next(ctx context.Context) (image.Image, error) {
	if s.next >= len(s.files) {
		if !s.pace.opts.Loop {
			return nil, io.EOF
		}
		s.next = 0
	}
	if err := s.pace.wait(ctx); err != nil {
		return nil, err
	}
	path := s.files[s.next]
	s.next++
	img, err := imaging.LoadFrame(path)
	if err != nil {
		return nil, fmt.Errorf("frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (s *DirSource) Close() error { return nil }

// FileSource yields the same still image forever.
type FileSource struct {
	img  image.Image
	pace pacer
}

// OpenFile loads the image at path once.
func OpenFile(path string, opts Options) (*FileSource, error) {
	img, err := imaging.LoadFrame(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{img: img, pace: pacer{opts: opts}}, nil
}

// NewStill wraps an in-memory image.
func NewStill(img image.Image, opts Options) *FileSource {
	return &FileSource{img: img, pace: pacer{opts: opts}}
}

func (s *FileSource) Next(ctx context.Context) (image.Image, error) {
	if err := s.pace.wait(ctx); err != nil {
		return nil, err
	}
	return s.img, nil
}

func (s *FileSource) Close() error { return nil }

// Open picks a source from a --source argument: "webcam:N" opens camera N,
// a directory replays its frames, anything else is treated as a still.
func Open(arg string, opts Options) (Source, error) {
	if rest, ok := strings.CutPrefix(arg, "webcam:"); ok {
		id, err := strconv.Atoi(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid webcam id %q", rest)
		}
		w, err := OpenWebcam(id)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	info, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("frame source: %w", err)
	}
	if info.IsDir() {
		d, err := OpenDir(arg, opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	f, err := OpenFile(arg, opts)
	if err != nil {
		return nil, err
	}
	return f, nil
}
