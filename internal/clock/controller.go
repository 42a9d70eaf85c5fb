package clock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"piclock/internal/canvas"
	appLog "piclock/internal/log"
	"piclock/internal/render"
	"piclock/internal/touch"
)

// Renderer is the device owner's render entry point.
type Renderer interface {
	Render(ctx context.Context, d render.Drawer, angle canvas.Angle, partial bool) error
}

// Opts configures a Controller.
type Opts struct {
	Angle    canvas.Angle
	Location *time.Location
	// Birthday is the MMDD on which the birthday page is shown; empty
	// disables it.
	Birthday string
	// FullRefreshEvery is the number of partial refreshes allowed between
	// full ones. Zero makes every refresh full.
	FullRefreshEvery int

	Now  func() time.Time
	Rand *rand.Rand
}

// Controller picks the page, the image and the refresh mode for every
// redraw. Its methods may be called from several goroutines.
type Controller struct {
	r    Renderer
	lib  *Library
	opts Opts

	mu          sync.Mutex
	needFull    bool
	partials    int
	lastDay     string
	imageOffset int
	eventDate   string
	eventImages []string
	eventOffset int
}

func NewController(r Renderer, lib *Library, opts Opts) *Controller {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.FullRefreshEvery < 0 {
		opts.FullRefreshEvery = 0
	}
	return &Controller{r: r, lib: lib, opts: opts, needFull: true}
}

// Tick redraws the clock; it is what the schedule runs every minute.
func (c *Controller) Tick(ctx context.Context) error {
	return c.Refresh(ctx, false)
}

// Refresh redraws now. full forces a full refresh.
func (c *Controller) Refresh(ctx context.Context, full bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redraw(ctx, full)
}

// HandleEvent reacts to a gesture: a tap on the image slot shows the next
// image. Other events are ignored.
func (c *Controller) HandleEvent(ctx context.Context, ev touch.Event) error {
	if ev.Kind != touch.Tap || ev.X <= ImageX {
		appLog.Debug("touch event ignored", "event", ev)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.eventImages); n > 0 {
		c.eventOffset = (c.eventOffset + 1) % n
		appLog.Info("event image changed", "offset", c.eventOffset)
	} else {
		c.imageOffset++
		appLog.Info("image changed", "offset", c.imageOffset)
	}
	return c.redraw(ctx, false)
}

func (c *Controller) redraw(ctx context.Context, full bool) error {
	now := c.opts.Now().In(c.opts.Location)
	mmdd := now.Format("0102")

	if mmdd != c.eventDate {
		c.eventDate = mmdd
		c.eventImages = c.lib.Events(mmdd, c.opts.Rand)
		c.eventOffset = 0
		if len(c.eventImages) > 0 {
			appLog.Info("date event found", "date", mmdd, "images", len(c.eventImages))
		}
	}

	date, clk := now.Format("01/02"), now.Format("15:04")
	var d render.Drawer
	if c.opts.Birthday != "" && c.opts.Birthday == mmdd {
		d = BirthdayPage(date, clk, c.lib.FS(), pick(c.lib.List(birthdayDir), 0, now))
	} else {
		img := pick(c.eventImages, c.eventOffset, now)
		if img == "" {
			img = pick(c.lib.List(customDir), c.imageOffset, now)
		}
		d = TimeImagePage(date, clk, c.lib.FS(), img)
	}

	partial := c.nextPartial(mmdd, full)
	if err := c.r.Render(ctx, d, c.opts.Angle, partial); err != nil {
		// The panel state is unknown after a failure.
		c.needFull = true
		return fmt.Errorf("clock: %w", err)
	}
	return nil
}

// nextPartial decides the refresh mode and advances the counters. A new
// day, a forced or first refresh, or FullRefreshEvery partials in a row give
// a full refresh.
func (c *Controller) nextPartial(day string, force bool) bool {
	partial := !force && !c.needFull && day == c.lastDay && c.partials < c.opts.FullRefreshEvery
	if partial {
		c.partials++
	} else {
		c.partials = 0
	}
	c.needFull = false
	c.lastDay = day
	return partial
}
