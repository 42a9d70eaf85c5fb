// Package epd drives the Waveshare Pico CapTouch 2.9" e-paper panel (SSD1680
// controller, 128x296) over SPI using periph.io.
//
// The Dev type is a small state machine: Init brings the panel from reset to
// Ready, the Display* calls refresh it and Sleep parks it in deep sleep until
// the next Init. Every blocking step waits on the busy line with a bounded
// timeout.
package epd

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	appLog "piclock/internal/log"
)

var (
	ErrHardwareTimeout = errors.New("epd: busy line timeout")
	ErrBus             = errors.New("epd: bus error")
	ErrBufferSize      = errors.New("epd: wrong buffer size")
	ErrNotReady        = errors.New("epd: panel not ready")
)

// State is the controller lifecycle state.
type State int

const (
	Uninitialized State = iota
	Ready
	Refreshing
	Asleep
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Refreshing:
		return "refreshing"
	case Asleep:
		return "asleep"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Opts describes the panel geometry and timing.
type Opts struct {
	Width  int
	Height int

	// Partial selects the waveform used by DisplayPartial.
	Partial Waveform

	// BusyTimeout bounds each busy-wait; zero waits forever.
	BusyTimeout time.Duration
	BusyPoll    time.Duration

	Speed physic.Frequency
}

func (o *Opts) bufferSize() int { return o.Width / 8 * o.Height }

// EPD2in9 is the 2.9" panel on the Pico CapTouch board.
var EPD2in9 = Opts{
	Width:       128,
	Height:      296,
	Partial:     PartialFast,
	BusyTimeout: 10 * time.Second,
	BusyPoll:    10 * time.Millisecond,
	Speed:       4 * physic.MegaHertz,
}

// Pins are the GPIO lines wired to the panel. CS may be nil when the SPI
// driver toggles chip select itself. TouchRST is optional; when set, Sleep
// also holds the touch controller in reset.
type Pins struct {
	DC       gpio.PinOut
	CS       gpio.PinOut
	RST      gpio.PinOut
	Busy     gpio.PinIn
	TouchRST gpio.PinOut
}

// defaultMaxTx matches the spidev default bufsiz.
const defaultMaxTx = 4096

// Dev is an open handle to the panel. It is not safe for concurrent use.
type Dev struct {
	c conn.Conn

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn
	trst gpio.PinOut

	opts  Opts
	maxTx int
	sleep func(time.Duration)

	state    State
	waveform Waveform
}

// New connects to the panel on p. Input pins must already be configured; New
// sends no traffic.
func New(p spi.Port, pins Pins, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &EPD2in9
	}
	o := *opts
	if o.Width <= 0 || o.Height <= 0 || o.Width%8 != 0 {
		return nil, fmt.Errorf("epd: invalid panel size %dx%d", o.Width, o.Height)
	}
	if pins.DC == nil || pins.RST == nil || pins.Busy == nil {
		return nil, errors.New("epd: dc, rst and busy pins are required")
	}
	if o.BusyPoll <= 0 {
		o.BusyPoll = EPD2in9.BusyPoll
	}
	if o.BusyTimeout < 0 {
		o.BusyTimeout = 0
	}
	if o.Speed <= 0 {
		o.Speed = EPD2in9.Speed
	}
	switch o.Partial {
	case WaveformOTP:
		o.Partial = PartialFast
	case PartialFast, PartialSlow:
	default:
		return nil, fmt.Errorf("epd: %s is not a partial waveform", o.Partial)
	}

	c, err := p.Connect(o.Speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: spi connect: %w", ErrBus, err)
	}

	maxTx := defaultMaxTx
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		maxTx = l.MaxTxSize()
	}

	return &Dev{
		c:     c,
		dc:    pins.DC,
		cs:    pins.CS,
		rst:   pins.RST,
		busy:  pins.Busy,
		trst:  pins.TouchRST,
		opts:  o,
		maxTx: maxTx,
		sleep: time.Sleep,
	}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("epd.Dev{%s, Width: %d, Height: %d}", d.c, d.opts.Width, d.opts.Height)
}

func (d *Dev) State() State { return d.state }

// Waveform reports the LUT currently loaded.
func (d *Dev) Waveform() Waveform { return d.waveform }

// Size returns the physical panel size in pixels.
func (d *Dev) Size() (width, height int) { return d.opts.Width, d.opts.Height }

// BufferSize is the length of a 1-bit frame.
func (d *Dev) BufferSize() int { return d.opts.bufferSize() }

// Gray4BufferSize is the length of a 2-bit frame for DisplayGray4.
func (d *Dev) Gray4BufferSize() int { return d.opts.bufferSize() * 2 }

func (d *Dev) run(seq func(controller)) error {
	eh := &errorHandler{d: d}
	seq(eh)
	return eh.err
}

// fail drops the panel back to Uninitialized; a fresh Init is required.
func (d *Dev) fail(op string, err error) error {
	d.state = Uninitialized
	appLog.Error("epd "+op+" failed", err)
	return fmt.Errorf("epd: %s: %w", op, err)
}

func (d *Dev) checkBuffer(buf []byte, want int) error {
	if len(buf) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(buf), want)
	}
	return nil
}

// Init resets the panel and configures it for 1-bit refreshes. It may be
// called from any state and leaves the panel Ready.
func (d *Dev) Init() error {
	start := time.Now()
	if err := d.run(func(c controller) { initDisplay(c, &d.opts) }); err != nil {
		return d.fail("init", err)
	}
	d.state = Ready
	d.waveform = WaveformOTP
	appLog.Debug("epd init", "took", time.Since(start))
	return nil
}

// InitGray4 resets the panel and loads the 4-level waveform for DisplayGray4.
func (d *Dev) InitGray4() error {
	if err := d.run(func(c controller) { initGray4(c, &d.opts) }); err != nil {
		return d.fail("init gray4", err)
	}
	d.state = Ready
	d.waveform = Gray4
	return nil
}

func (d *Dev) requireMono() error {
	if d.state != Ready {
		return fmt.Errorf("%w: state %s", ErrNotReady, d.state)
	}
	if d.waveform == Gray4 {
		return fmt.Errorf("%w: panel is in gray4 mode", ErrNotReady)
	}
	return nil
}

func (d *Dev) refresh(op string, wf Waveform, seq func(controller)) error {
	start := time.Now()
	d.state = Refreshing
	if err := d.run(seq); err != nil {
		return d.fail(op, err)
	}
	d.state = Ready
	d.waveform = wf
	appLog.Debug("epd refresh", "mode", op, "took", time.Since(start))
	return nil
}

// DisplayFull shows buf with a full (flashing) refresh, writing both RAM
// banks so the next partial refresh has a correct base image.
func (d *Dev) DisplayFull(buf []byte) error {
	if err := d.checkBuffer(buf, d.BufferSize()); err != nil {
		return err
	}
	if err := d.requireMono(); err != nil {
		return err
	}
	return d.refresh("full", WaveformOTP, func(c controller) { displayFull(c, buf) })
}

// Display shows buf with a full refresh writing only the new-image bank.
func (d *Dev) Display(buf []byte) error {
	if err := d.checkBuffer(buf, d.BufferSize()); err != nil {
		return err
	}
	if err := d.requireMono(); err != nil {
		return err
	}
	return d.refresh("single", WaveformOTP, func(c controller) { displaySingle(c, buf) })
}

// DisplayPartial shows buf using the configured partial waveform.
func (d *Dev) DisplayPartial(buf []byte) error {
	if err := d.checkBuffer(buf, d.BufferSize()); err != nil {
		return err
	}
	if err := d.requireMono(); err != nil {
		return err
	}
	lut, _ := d.opts.Partial.LUT()
	return d.refresh("partial", d.opts.Partial, func(c controller) { displayPartial(c, &d.opts, lut, buf) })
}

// Clear fills the new-image bank with color (0x00 black, 0xFF white) and
// runs a full refresh.
func (d *Dev) Clear(color byte) error {
	if err := d.requireMono(); err != nil {
		return err
	}
	return d.refresh("clear", WaveformOTP, func(c controller) { clearDisplay(c, &d.opts, color) })
}

// DisplayGray4 shows a 2-bit frame: four pixels per byte, the leftmost in the
// low bits, 0 black, 1 dark gray, 2 light gray, 3 white. InitGray4 must have
// been called.
func (d *Dev) DisplayGray4(buf []byte) error {
	if err := d.checkBuffer(buf, d.Gray4BufferSize()); err != nil {
		return err
	}
	if d.state != Ready || d.waveform != Gray4 {
		return fmt.Errorf("%w: gray4 needs InitGray4 (state %s, waveform %s)", ErrNotReady, d.state, d.waveform)
	}
	bw, red := splitGray4(buf)
	return d.refresh("gray4", Gray4, func(c controller) { displayGray4(c, bw, red) })
}

// Sleep puts the panel into deep sleep and releases the reset lines. Only
// Init leaves Asleep. Calling Sleep while asleep is a no-op.
func (d *Dev) Sleep() error {
	if d.state == Asleep {
		return nil
	}
	eh := &errorHandler{d: d}
	deepSleep(eh)
	eh.rstOut(gpio.Low)
	eh.out("touch rst", d.trst, gpio.Low)
	if eh.err != nil {
		return d.fail("sleep", eh.err)
	}
	d.state = Asleep
	appLog.Debug("epd asleep")
	return nil
}
