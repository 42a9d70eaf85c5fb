// Package device serialises all panel and touch access through one
// goroutine. Callers submit frames with Render and read gestures from
// Events; only Run touches the hardware.
package device

import (
	"context"
	"errors"
	"sync"
	"time"

	"piclock/internal/canvas"
	appLog "piclock/internal/log"
	"piclock/internal/render"
	"piclock/internal/touch"
)

// Scanner is the touch source polled by Run.
type Scanner interface {
	Poll() (touch.Point, bool, error)
}

// Opts tunes the owner loop.
type Opts struct {
	// PollInterval is the touch polling period.
	PollInterval time.Duration
	// EventBuffer is the Events channel capacity; events are dropped when
	// it is full.
	EventBuffer int
	// Now stamps touch samples; defaults to time.Now.
	Now func() time.Time
}

// Status is a point-in-time summary for diagnostics.
type Status struct {
	Running    bool      `json:"running"`
	Frames     int       `json:"frames"`
	LastRender time.Time `json:"last_render"`
	LastError  string    `json:"last_error,omitempty"`
	Touches    int       `json:"touches"`
}

type job struct {
	drawer  render.Drawer
	angle   canvas.Angle
	partial bool
	done    chan error
}

// Device owns a panel and an optional touch scanner.
type Device struct {
	renderer   *render.Renderer
	panel      render.Panel
	scanner    Scanner
	classifier *touch.Classifier
	opts       Opts

	jobs   chan job
	events chan touch.Event

	mu      sync.RWMutex
	running bool
	last    *canvas.Canvas
	status  Status
}

// New wires a device. scanner may be nil to disable touch; classifier
// defaults to touch.NewClassifier(0, 0).
func New(panel render.Panel, width, height int, scanner Scanner, classifier *touch.Classifier, opts Opts) *Device {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 20 * time.Millisecond
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 16
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if classifier == nil {
		classifier = touch.NewClassifier(0, 0)
	}
	return &Device{
		renderer:   render.New(panel, width, height),
		panel:      panel,
		scanner:    scanner,
		classifier: classifier,
		opts:       opts,
		jobs:       make(chan job),
		events:     make(chan touch.Event, opts.EventBuffer),
	}
}

// Events delivers classified gestures. The channel is never closed.
func (d *Device) Events() <-chan touch.Event { return d.events }

// Render asks Run to draw and display a frame and waits for the result.
func (d *Device) Render(ctx context.Context, drawer render.Drawer, angle canvas.Angle, partial bool) error {
	j := job{drawer: drawer, angle: angle, partial: partial, done: make(chan error, 1)}
	select {
	case d.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the last logical frame, or nil.
func (d *Device) Snapshot() *canvas.Canvas {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.last == nil {
		return nil
	}
	return d.last.Clone()
}

func (d *Device) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := d.status
	s.Running = d.running
	return s
}

// Run serves render requests and polls touch until ctx is done, then puts
// the panel to sleep when it supports it.
func (d *Device) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("device: already running")
	}
	d.running = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	var tick <-chan time.Time
	if d.scanner != nil {
		t := time.NewTicker(d.opts.PollInterval)
		defer t.Stop()
		tick = t.C
	}

	appLog.Info("device loop started", "touch", d.scanner != nil, "poll", d.opts.PollInterval)
	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return nil
		case j := <-d.jobs:
			j.done <- d.render(j)
		case <-tick:
			d.pollTouch()
		}
	}
}

func (d *Device) render(j job) error {
	c, err := d.renderer.Render(j.drawer, j.angle, j.partial)

	d.mu.Lock()
	defer d.mu.Unlock()
	if c != nil {
		d.last = c
	}
	if err != nil {
		d.status.LastError = err.Error()
		return err
	}
	d.status.Frames++
	d.status.LastRender = d.opts.Now()
	d.status.LastError = ""
	return nil
}

func (d *Device) pollTouch() {
	p, ok, err := d.scanner.Poll()
	if err != nil {
		appLog.Error("touch poll failed", err)
		return
	}
	var s *touch.Sample
	if ok {
		s = &touch.Sample{X: p.X, Y: p.Y, At: d.opts.Now()}
	}
	ev, ok := d.classifier.Classify(s)
	if !ok {
		return
	}

	d.mu.Lock()
	d.status.Touches++
	d.mu.Unlock()

	select {
	case d.events <- ev:
		appLog.Debug("touch event", "event", ev)
	default:
		appLog.Warn("touch event dropped", "event", ev)
	}
}

func (d *Device) shutdown() {
	s, ok := d.panel.(interface{ Sleep() error })
	if !ok {
		return
	}
	if err := s.Sleep(); err != nil {
		appLog.Error("panel sleep failed", err)
		return
	}
	appLog.Info("panel asleep")
}
