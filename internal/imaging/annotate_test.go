package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestNewCanvas_CopiesSource(t *testing.T) {
	src := createInMemoryImage(20, 20, color.RGBA{10, 20, 30, 255}).(*image.RGBA)
	c := NewCanvas(src)

	c.DrawBox(image.Rect(0, 0, 20, 20), BoxColor, 2)

	if got := src.RGBAAt(0, 0); got != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("source modified: got %v", got)
	}
	if got := c.NRGBAAt(0, 0); got != BoxColor {
		t.Errorf("canvas corner: got %v, want %v", got, BoxColor)
	}
}

func TestDrawBox(t *testing.T) {
	c := NewCanvas(createInMemoryImage(50, 50, color.Black))
	c.DrawBox(image.Rect(10, 10, 30, 30), BoxColor, 2)

	tests := []struct {
		name  string
		x, y  int
		boxed bool
	}{
		{"top edge", 20, 10, true},
		{"top edge inner row", 20, 11, true},
		{"bottom edge", 20, 29, true},
		{"left edge", 10, 20, true},
		{"right edge", 29, 20, true},
		{"interior", 20, 20, false},
		{"outside", 5, 5, false},
		{"below box", 20, 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.NRGBAAt(tt.x, tt.y) == BoxColor
			if got != tt.boxed {
				t.Errorf("pixel (%d,%d) boxed: got %v, want %v", tt.x, tt.y, got, tt.boxed)
			}
		})
	}
}

func TestDrawBox_Clipped(t *testing.T) {
	c := NewCanvas(createInMemoryImage(20, 20, color.Black))
	// Should not panic.
	c.DrawBox(image.Rect(-10, -10, 40, 40), BoxColor, 3)
	c.DrawBox(image.Rect(100, 100, 120, 120), BoxColor, 1)
}

func TestDrawLabel(t *testing.T) {
	c := NewCanvas(createInMemoryImage(100, 40, color.Black))
	c.DrawLabel(5, 20, "Red Square: 0.93", LabelColor, LabelBackColor)

	white := 0
	for y := 0; y < 40; y++ {
		for x := 0; x < 100; x++ {
			if c.NRGBAAt(x, y) == LabelColor {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("no label pixels were drawn")
	}
}

func TestDrawLabel_TopEdge(t *testing.T) {
	c := NewCanvas(createInMemoryImage(60, 30, color.Black))
	// A baseline above the canvas is pushed down into view.
	c.DrawLabel(0, -5, "A", LabelColor, LabelBackColor)

	drawn := false
	for y := 0; y < 30 && !drawn; y++ {
		for x := 0; x < 10; x++ {
			if c.NRGBAAt(x, y) == LabelColor {
				drawn = true
				break
			}
		}
	}
	if !drawn {
		t.Error("label at top edge was not drawn")
	}
}

func TestDrawLabel_EmptyString(t *testing.T) {
	c := NewCanvas(createInMemoryImage(20, 20, color.Black))
	// Should not panic.
	c.DrawLabel(2, 15, "", LabelColor, LabelBackColor)
}
