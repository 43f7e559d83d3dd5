package shorts

import (
	"fmt"
	"math"
)

// Output frame of every short (9:16)
const (
	TargetWidth  = 576
	TargetHeight = 1024
	TargetFPS    = 30

	// VisualWidthRatio is the share of the frame width a segment visual occupies
	VisualWidthRatio = 0.7
)

// Crop is a centered source rectangle [X1,X2)x[Y1,Y2) that is stretched to Width x Height
type Crop struct {
	X1, Y1 int
	X2, Y2 int

	Width  int
	Height int
}

// CropWidth is the width of the source rectangle
func (c Crop) CropWidth() int { return c.X2 - c.X1 }

// CropHeight is the height of the source rectangle
func (c Crop) CropHeight() int { return c.Y2 - c.Y1 }

// IsFullFrame reports whether the crop keeps the whole source frame of srcW x srcH
func (c Crop) IsFullFrame(srcW, srcH int) bool {
	return c.X1 == 0 && c.Y1 == 0 && c.X2 == srcW && c.Y2 == srcH
}

// ResolveCrop computes the largest centered rectangle of the source with the target
// aspect ratio. The rectangle is then scaled to exactly dstW x dstH.
func ResolveCrop(srcW, srcH, dstW, dstH int) (Crop, error) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return Crop{}, fmt.Errorf("crop %dx%d to %dx%d: %w", srcW, srcH, dstW, dstH, ErrInvalidDimensions)
	}

	w, h := srcW, srcH
	// srcW/srcH > dstW/dstH, compared without division
	if srcW*dstH > srcH*dstW {
		w = int(math.Round(float64(srcH) * float64(dstW) / float64(dstH)))
	} else {
		h = int(math.Round(float64(srcW) * float64(dstH) / float64(dstW)))
	}
	w = clamp(w, 1, srcW)
	h = clamp(h, 1, srcH)

	x1 := (srcW - w) / 2
	y1 := (srcH - h) / 2

	return Crop{
		X1:     x1,
		Y1:     y1,
		X2:     x1 + w,
		Y2:     y1 + h,
		Width:  dstW,
		Height: dstH,
	}, nil
}

// VisualSize returns the overlay size of a visual of srcW x srcH: a fixed share of the
// frame width with the height following the source aspect, rounded down to an even value.
func VisualSize(srcW, srcH, frameWidth int, ratio float64) (int, int, error) {
	if srcW <= 0 || srcH <= 0 || frameWidth <= 0 || ratio <= 0 {
		return 0, 0, fmt.Errorf("visual %dx%d: %w", srcW, srcH, ErrInvalidDimensions)
	}
	w := int(ratio * float64(frameWidth))
	h := int(float64(w) * float64(srcH) / float64(srcW))
	h -= h % 2
	if h < 2 {
		h = 2
	}
	return w, h, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
