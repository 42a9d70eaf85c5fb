// Package canvas implements the 1-bit drawing surface used to compose panel
// frames, together with rotation, 8x8 text and raw asset blitting.
//
// Pixels are packed row-major, most significant bit first: pixel (x, y) is bit
// 7-(x%8) of byte y*(width/8)+x/8. A cleared bit is ink (Black), a set bit is
// blank paper (White). This is the byte layout the SSD1680 family expects in
// its RAM, so a canvas of the physical panel size can be sent as-is.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Color is a 1-bit pixel value.
type Color uint8

const (
	Black Color = 0
	White Color = 1
)

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

var (
	ErrOutOfBounds     = errors.New("canvas: coordinate out of bounds")
	ErrInvalidArgument = errors.New("canvas: invalid argument")
)

// Canvas is a byte-packed monochrome surface. The zero value is not usable;
// construct with New or FromBytes.
type Canvas struct {
	width  int
	height int
	stride int
	bits   []byte
}

// New allocates a width×height canvas filled with White. width must be a
// positive multiple of 8.
func New(width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 || width%8 != 0 {
		return nil, fmt.Errorf("%w: size %dx%d (width must be a positive multiple of 8)", ErrInvalidArgument, width, height)
	}
	c := &Canvas{
		width:  width,
		height: height,
		stride: width / 8,
		bits:   make([]byte, width/8*height),
	}
	c.Fill(White)
	return c, nil
}

// FromBytes wraps an existing packed buffer. The slice is copied.
func FromBytes(width, height int, b []byte) (*Canvas, error) {
	if width <= 0 || height <= 0 || width%8 != 0 {
		return nil, fmt.Errorf("%w: size %dx%d (width must be a positive multiple of 8)", ErrInvalidArgument, width, height)
	}
	if want := width / 8 * height; len(b) != want {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d, want %d", ErrInvalidArgument, len(b), width, height, want)
	}
	c := &Canvas{
		width:  width,
		height: height,
		stride: width / 8,
		bits:   make([]byte, len(b)),
	}
	copy(c.bits, b)
	return c, nil
}

func (c *Canvas) Width() int  { return c.width }
func (c *Canvas) Height() int { return c.height }

// Bytes returns the packed pixel buffer. The slice aliases the canvas.
func (c *Canvas) Bytes() []byte { return c.bits }

// Clone returns a deep copy.
func (c *Canvas) Clone() *Canvas {
	n := *c
	n.bits = append([]byte(nil), c.bits...)
	return &n
}

func (c *Canvas) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

// Pixel returns the color at (x, y).
func (c *Canvas) Pixel(x, y int) (Color, error) {
	if !c.inBounds(x, y) {
		return 0, fmt.Errorf("%w: (%d,%d) on %dx%d", ErrOutOfBounds, x, y, c.width, c.height)
	}
	return c.get(x, y), nil
}

// SetPixel writes col at (x, y). Any non-Black color is treated as White.
func (c *Canvas) SetPixel(x, y int, col Color) error {
	if !c.inBounds(x, y) {
		return fmt.Errorf("%w: (%d,%d) on %dx%d", ErrOutOfBounds, x, y, c.width, c.height)
	}
	c.set(x, y, col)
	return nil
}

// get and set skip bounds checks; callers validate the whole region first.
func (c *Canvas) get(x, y int) Color {
	if c.bits[y*c.stride+x>>3]&(0x80>>(x&7)) != 0 {
		return White
	}
	return Black
}

func (c *Canvas) set(x, y int, col Color) {
	i := y*c.stride + x>>3
	mask := byte(0x80 >> (x & 7))
	if col == Black {
		c.bits[i] &^= mask
	} else {
		c.bits[i] |= mask
	}
}

// Fill sets every pixel to col.
func (c *Canvas) Fill(col Color) {
	v := byte(0xFF)
	if col == Black {
		v = 0x00
	}
	for i := range c.bits {
		c.bits[i] = v
	}
}

// FillRect paints the rectangle at (x, y) of size w×h, clipped to the canvas.
func (c *Canvas) FillRect(x, y, w, h int, col Color) {
	r := image.Rect(x, y, x+w, y+h).Intersect(image.Rect(0, 0, c.width, c.height))
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			c.set(px, py, col)
		}
	}
}

// Blit copies every pixel of src onto c with its top-left corner at (dx, dy).
// The copy is opaque and per-pixel, so dx need not be byte aligned. The whole
// destination rectangle must fit inside c; nothing is written otherwise.
func (c *Canvas) Blit(src *Canvas, dx, dy int) error {
	if src == nil {
		return fmt.Errorf("%w: nil source", ErrInvalidArgument)
	}
	if dx < 0 || dy < 0 || dx+src.width > c.width || dy+src.height > c.height {
		return fmt.Errorf("%w: %dx%d at (%d,%d) on %dx%d", ErrOutOfBounds, src.width, src.height, dx, dy, c.width, c.height)
	}
	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			c.set(dx+x, dy+y, src.get(x, y))
		}
	}
	return nil
}

// ColorModel, Bounds and At make the canvas an image.Image so it can be
// encoded or fed to image/draw.
func (c *Canvas) ColorModel() color.Model { return color.GrayModel }

func (c *Canvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.width, c.height) }

func (c *Canvas) At(x, y int) color.Color {
	if !c.inBounds(x, y) || c.get(x, y) == White {
		return color.Gray{Y: 0xFF}
	}
	return color.Gray{Y: 0}
}
