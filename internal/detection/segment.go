package detection

import (
	"image"

	"github.com/ironsheep/markerctl/internal/config"
	"github.com/ironsheep/markerctl/internal/imaging"
)

// ColorMask is the cleaned binary mask for one color profile.
type ColorMask struct {
	Color string
	Mask  *imaging.Mask
}

// Segment converts a frame to HSV once and produces one cleaned mask per
// profile, in profile order.
//
// Profiles are assumed valid (config rejects bad ones at load time), so
// segmentation never fails.
func Segment(img image.Image, profiles config.Profiles, t config.Tuning) []ColorMask {
	hsv := imaging.ToHSV(img)
	masks := make([]ColorMask, 0, len(profiles))
	for _, p := range profiles {
		masks = append(masks, ColorMask{
			Color: p.Name,
			Mask:  SegmentHSV(hsv, p, t),
		})
	}
	return masks
}

// SegmentHSV thresholds an HSV frame against one profile, closes small gaps
// and removes components below the minimum area.
func SegmentHSV(hsv *imaging.HSVImage, p config.ColorProfile, t config.Tuning) *imaging.Mask {
	m := imaging.InRange(hsv, p.Lower.Array(), p.Upper.Array())
	m = imaging.Close(m, imaging.KernelRadius(t.KernelSize))
	return imaging.RemoveSmallComponents(m, t.MinComponentArea)
}

// UnionMask merges every color mask into one, for debug views. It returns
// nil when masks is empty.
func UnionMask(masks []ColorMask) *imaging.Mask {
	if len(masks) == 0 {
		return nil
	}
	out := masks[0].Mask.Clone()
	for _, cm := range masks[1:] {
		out.Or(cm.Mask)
	}
	return out
}
