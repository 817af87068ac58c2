package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/markerctl/internal/timeutil"
)

// writeFrame saves a solid w x h PNG.
func writeFrame(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func frameDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "002.png"), 20, 10)
	writeFrame(t, filepath.Join(dir, "001.png"), 10, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))
	return dir
}

func TestDirSource_NameOrderAndEOF(t *testing.T) {
	src, err := OpenDir(frameDir(t), Options{})
	require.NoError(t, err)
	defer src.Close()
	ctx := context.Background()

	require.Len(t, src.Files(), 2)

	first, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, first.Bounds().Dx())

	second, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, second.Bounds().Dx())

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDirSource_Loop(t *testing.T) {
	src, err := OpenDir(frameDir(t), Options{Loop: true})
	require.NoError(t, err)
	ctx := context.Background()

	widths := []int{}
	for i := 0; i < 5; i++ {
		img, err := src.Next(ctx)
		require.NoError(t, err)
		widths = append(widths, img.Bounds().Dx())
	}
	assert.Equal(t, []int{10, 20, 10, 20, 10}, widths)
}

func TestOpenDir_Empty(t *testing.T) {
	_, err := OpenDir(t.TempDir(), Options{})
	assert.Error(t, err)
}

func TestFileSource_Paced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "still.png")
	writeFrame(t, path, 8, 8)

	clock := timeutil.NewMockClock(time.Unix(0, 0))
	src, err := OpenFile(path, Options{Interval: 100 * time.Millisecond, Clock: clock})
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		img, err := src.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, 8, img.Bounds().Dx())
	}
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, clock.Sleeps())
}

func TestFileSource_Cancelled(t *testing.T) {
	src := NewStill(image.NewRGBA(image.Rect(0, 0, 4, 4)), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	dir := frameDir(t)

	src, err := Open(dir, Options{})
	require.NoError(t, err)
	assert.IsType(t, &DirSource{}, src)

	src, err = Open(filepath.Join(dir, "001.png"), Options{})
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)

	_, err = Open(filepath.Join(dir, "missing.png"), Options{})
	assert.Error(t, err)

	_, err = Open("webcam:x", Options{})
	assert.Error(t, err)
}

func TestOpen_WebcamWithoutTag(t *testing.T) {
	_, err := Open("webcam:0", Options{})
	if err == nil {
		t.Skip("built with webcam support")
	}
	if !errors.Is(err, ErrNoWebcam) {
		t.Skipf("webcam unavailable: %v", err)
	}
}
