// Package clock composes the clock pages and decides when and how the
// display is refreshed.
package clock

import (
	"io/fs"

	"piclock/internal/canvas"
	"piclock/internal/render"
)

// Image slot on the right of the landscape canvas.
const (
	ImageX    = 168
	ImageY    = 0
	ImageSize = 128
)

// TimeImagePage draws the date and time on the left and img, when set, in
// the image slot.
func TimeImagePage(date, clock string, fsys fs.FS, img string) render.Drawer {
	return render.DrawerFunc(func(c *canvas.Canvas) error {
		if err := canvas.DrawScaledText(c, date, 3, 20, 4, canvas.Black); err != nil {
			return err
		}
		if err := canvas.DrawScaledText(c, clock, 3, 70, 4, canvas.Black); err != nil {
			return err
		}
		if img == "" {
			return nil
		}
		return canvas.DrawImage(c, fsys, img, ImageSize, ImageSize, ImageX, ImageY)
	})
}

// BirthdayPage is the time page squeezed up to make room for a greeting.
func BirthdayPage(date, clock string, fsys fs.FS, img string) render.Drawer {
	return render.DrawerFunc(func(c *canvas.Canvas) error {
		for _, t := range []struct {
			s     string
			x, y  int
			scale int
		}{
			{date, 3, 10, 4},
			{clock, 3, 44, 4},
			{"Happy", 15, 80, 2},
			{"Birthday!", 15, 100, 2},
		} {
			if err := canvas.DrawScaledText(c, t.s, t.x, t.y, t.scale, canvas.Black); err != nil {
				return err
			}
		}
		if img == "" {
			return canvas.DrawScaledText(c, "No image", 200, 60, 1, canvas.Black)
		}
		return canvas.DrawImage(c, fsys, img, ImageSize, ImageSize, ImageX, ImageY)
	})
}
