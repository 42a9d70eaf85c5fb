package canvas

import (
	"errors"
	"fmt"
)

// Angle is a clockwise rotation in degrees.
type Angle int

const (
	Rotate0   Angle = 0
	Rotate90  Angle = 90
	Rotate180 Angle = 180
	Rotate270 Angle = 270
)

var ErrUnsupportedAngle = errors.New("canvas: unsupported rotation angle")

// ParseAngle converts degrees into an Angle accepted by Rotate.
func ParseAngle(deg int) (Angle, error) {
	switch a := Angle(deg); a {
	case Rotate90, Rotate180, Rotate270:
		return a, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedAngle, deg)
}

// Swaps reports whether a rotation by a exchanges width and height.
func (a Angle) Swaps() bool {
	return a == Rotate90 || a == Rotate270
}

// Rotate returns a new canvas holding src rotated by a. Only 90, 180 and 270
// are accepted. For 90 and 270 the destination is src.Height() wide, which
// therefore must be a multiple of 8.
//
//	90:  (x, y) -> (y, w-1-x)
//	180: (x, y) -> (w-1-x, h-1-y)
//	270: (x, y) -> (h-1-y, x)
func Rotate(src *Canvas, a Angle) (*Canvas, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidArgument)
	}
	w, h := src.width, src.height

	var dst *Canvas
	var err error
	switch a {
	case Rotate90, Rotate270:
		dst, err = New(h, w)
	case Rotate180:
		dst, err = New(w, h)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedAngle, int(a))
	}
	if err != nil {
		return nil, fmt.Errorf("rotate %d: %w", int(a), err)
	}

	// dst starts White, so only ink needs writing.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src.get(x, y) != Black {
				continue
			}
			switch a {
			case Rotate90:
				dst.set(y, w-1-x, Black)
			case Rotate180:
				dst.set(w-1-x, h-1-y, Black)
			case Rotate270:
				dst.set(h-1-y, x, Black)
			}
		}
	}
	return dst, nil
}
