// Package convert turns ordinary images into the raw frame formats the
// panel and the asset loader read.
package convert

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/MaxHalford/halfgone"
	"github.com/disintegration/imaging"
)

// Dither selects how gray is reduced to black and white.
type Dither int

const (
	FloydSteinberg Dither = iota
	Threshold
)

// MonoSize is the byte length of a w×h 1bpp frame.
func MonoSize(w, h int) int { return w / 8 * h }

// Gray4Size is the byte length of a w×h 2bpp frame.
func Gray4Size(w, h int) int { return w / 4 * h }

// PackMono converts img into a w×h 1bpp buffer:
//
//   - img is resized to w×h when its size differs (Lanczos resampling)
//   - pixels are reduced to black and white with d
//   - packing is y-major, MSB first:
//     byteIndex = y*(w/8) + (x >> 3)
//     mask      = 0x80 >> (x & 7)
//   - a cleared bit is ink, a set bit is paper
func PackMono(img image.Image, w, h int, d Dither) ([]byte, error) {
	gray, err := grayAt(img, w, h)
	if err != nil {
		return nil, err
	}
	var bw *image.Gray
	switch d {
	case FloydSteinberg:
		bw = halfgone.FloydSteinbergDitherer{}.Apply(gray)
	case Threshold:
		bw = halfgone.ThresholdDitherer{Threshold: 127}.Apply(gray)
	default:
		return nil, fmt.Errorf("convert: unknown dither %d", int(d))
	}

	stride := w / 8
	buf := make([]byte, MonoSize(w, h))
	for i := range buf {
		buf[i] = 0xFF
	}
	for y := 0; y < h; y++ {
		row := bw.Pix[y*bw.Stride : y*bw.Stride+w]
		for x, v := range row {
			if v >= 128 {
				continue
			}
			buf[y*stride+(x>>3)] &^= byte(0x80 >> (x & 7))
		}
	}
	return buf, nil
}

// PackGray4 quantises img to four levels (0 black .. 3 white) and packs
// four pixels per byte, the leftmost in the low bits.
func PackGray4(img image.Image, w, h int) ([]byte, error) {
	if w%4 != 0 {
		return nil, fmt.Errorf("convert: width %d is not a multiple of 4", w)
	}
	gray, err := grayAt(img, w, h)
	if err != nil {
		return nil, err
	}

	stride := w / 4
	buf := make([]byte, Gray4Size(w, h))
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+w]
		for x, v := range row {
			level := v >> 6
			buf[y*stride+(x>>2)] |= level << (2 * (x & 3))
		}
	}
	return buf, nil
}

// Letterbox scales img to fit inside w×h keeping its aspect ratio and
// centres it on white.
func Letterbox(img image.Image, w, h int) image.Image {
	fit := imaging.Fit(img, w, h, imaging.Lanczos)
	return imaging.PasteCenter(imaging.New(w, h, color.White), fit)
}

// grayAt renders img as a w×h gray image over white.
func grayAt(img image.Image, w, h int) (*image.Gray, error) {
	if img == nil {
		return nil, fmt.Errorf("convert: nil image")
	}
	if w <= 0 || h <= 0 || w%8 != 0 {
		return nil, fmt.Errorf("convert: invalid size %dx%d", w, h)
	}

	bounds := image.Rect(0, 0, w, h)
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)

	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(gray, bounds, img, b.Min, draw.Over)
		return gray, nil
	}
	draw.Draw(gray, bounds, imaging.Resize(img, w, h, imaging.Lanczos), image.Point{}, draw.Over)
	return gray, nil
}
