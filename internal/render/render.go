// Package render is the frame pipeline: allocate a logical canvas, let a
// Drawer compose it, rotate it to the panel's orientation and refresh.
package render

import (
	"errors"
	"fmt"
	"time"

	"piclock/internal/canvas"
	appLog "piclock/internal/log"
)

// Drawer composes one frame onto c. Returning an error for which
// canvas.IsSoftError is true skips only that element; any other error
// aborts the frame before the panel is touched.
type Drawer interface {
	Draw(c *canvas.Canvas) error
}

// DrawerFunc adapts a function to Drawer.
type DrawerFunc func(c *canvas.Canvas) error

func (f DrawerFunc) Draw(c *canvas.Canvas) error { return f(c) }

// Panel is the subset of epd.Dev the pipeline needs.
type Panel interface {
	Init() error
	DisplayFull(buf []byte) error
	DisplayPartial(buf []byte) error
}

// Renderer pushes frames to a panel of a fixed physical size.
type Renderer struct {
	panel  Panel
	width  int
	height int
}

// New returns a Renderer for a panel whose RAM is width×height pixels.
func New(p Panel, width, height int) *Renderer {
	return &Renderer{panel: p, width: width, height: height}
}

// LogicalSize is the canvas size a Drawer sees when the panel is mounted at
// angle.
func (r *Renderer) LogicalSize(angle canvas.Angle) (w, h int, err error) {
	switch angle {
	case canvas.Rotate90, canvas.Rotate270:
		return r.height, r.width, nil
	case canvas.Rotate180:
		return r.width, r.height, nil
	}
	return 0, 0, fmt.Errorf("%w: %d", canvas.ErrUnsupportedAngle, int(angle))
}

// Render draws a frame and shows it with a partial or full refresh. The
// panel is re-initialised every time, since it may have been put to sleep
// since the last frame. It returns the logical canvas that was drawn.
func (r *Renderer) Render(d Drawer, angle canvas.Angle, partial bool) (*canvas.Canvas, error) {
	if d == nil {
		return nil, errors.New("render: nil drawer")
	}
	w, h, err := r.LogicalSize(angle)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	c, err := canvas.New(w, h)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	if err := d.Draw(c); err != nil {
		if !canvas.IsSoftError(err) {
			return nil, fmt.Errorf("render: draw: %w", err)
		}
		appLog.Warn("frame drawn with missing elements", "err", err)
	}

	frame, err := canvas.Rotate(c, angle)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	start := time.Now()
	if err := r.panel.Init(); err != nil {
		return c, fmt.Errorf("render: %w", err)
	}
	if partial {
		err = r.panel.DisplayPartial(frame.Bytes())
	} else {
		err = r.panel.DisplayFull(frame.Bytes())
	}
	if err != nil {
		return c, fmt.Errorf("render: %w", err)
	}
	appLog.Info("frame displayed", "angle", int(angle), "partial", partial, "took", time.Since(start).Round(time.Millisecond))
	return c, nil
}
