// Command img2bin converts a PNG, JPEG or BMP image into a raw frame for the
// clock's asset directory.
//
//	img2bin -w 128 -h 128 photo.jpg custom/photo.bin
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"

	"piclock/internal/canvas"
	"piclock/internal/convert"
	appLog "piclock/internal/log"
)

func main() {
	var (
		width     = flag.Int("w", 128, "Output width in pixels (multiple of 8)")
		height    = flag.Int("h", 128, "Output height in pixels")
		gray4     = flag.Bool("gray4", false, "Write a 2-bit 4-level frame instead of 1-bit")
		threshold = flag.Bool("threshold", false, "Threshold at mid-gray instead of Floyd-Steinberg dithering")
		fit       = flag.Bool("fit", false, "Keep the aspect ratio and pad with white instead of stretching")
		preview   = flag.String("preview", "", "Also write a PNG of the converted frame")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] input output.bin\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), flag.Arg(1), options{
		width:     *width,
		height:    *height,
		gray4:     *gray4,
		threshold: *threshold,
		fit:       *fit,
		preview:   *preview,
	}); err != nil {
		appLog.Error("conversion failed", err, "input", flag.Arg(0))
		os.Exit(1)
	}
}

type options struct {
	width, height int
	gray4         bool
	threshold     bool
	fit           bool
	preview       string
}

func run(in, out string, o options) error {
	img, err := decode(in)
	if err != nil {
		return err
	}
	if o.fit {
		img = convert.Letterbox(img, o.width, o.height)
	}

	var buf []byte
	if o.gray4 {
		buf, err = convert.PackGray4(img, o.width, o.height)
	} else {
		d := convert.FloydSteinberg
		if o.threshold {
			d = convert.Threshold
		}
		buf, err = convert.PackMono(img, o.width, o.height, d)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(out, buf, 0o644); err != nil {
		return err
	}
	appLog.Info("frame written", "output", out, "bytes", len(buf), "width", o.width, "height", o.height, "gray4", o.gray4)

	if o.preview != "" && !o.gray4 {
		return writePreview(o.preview, buf, o.width, o.height)
	}
	return nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	appLog.Debug("image decoded", "input", path, "format", format, "bounds", img.Bounds())
	return img, nil
}

// writePreview renders a 1-bit frame back to PNG.
func writePreview(path string, buf []byte, w, h int) error {
	img, err := canvas.FromBytes(w, h, buf)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
