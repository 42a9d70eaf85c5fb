// Package touch polls the ICNT86 capacitive touch controller and turns its
// samples into tap and drag events.
package touch

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"

	appLog "piclock/internal/log"
)

// ICNT86 registers. Addresses are 16-bit, sent high byte first.
const (
	regVersion uint16 = 0x000A
	regStatus  uint16 = 0x1001
	regPoints  uint16 = 0x1002
)

const (
	// DefaultAddr is the ICNT86 7-bit I²C address.
	DefaultAddr = 0x48

	pointSize = 7
	maxPoints = 5
)

var ErrBus = errors.New("touch: bus error")

// Point is a contact in display coordinates.
type Point struct {
	X, Y int
}

// Opts configures a Scanner.
type Opts struct {
	Addr uint16

	// PanelWidth and PanelHeight are the physical panel size the sensor is
	// mounted over; they drive the axis swap and mirroring.
	PanelWidth  int
	PanelHeight int

	ResetPulse time.Duration
}

// DefaultOpts matches the Pico CapTouch 2.9" board.
var DefaultOpts = Opts{
	Addr:        DefaultAddr,
	PanelWidth:  128,
	PanelHeight: 296,
	ResetPulse:  100 * time.Millisecond,
}

// Scanner reads contacts from the controller. It is not safe for concurrent
// use.
type Scanner struct {
	dev  *i2c.Dev
	rst  gpio.PinOut
	irq  gpio.PinIn
	opts Opts

	sleep func(time.Duration)
}

// New returns a Scanner on bus. rst may be nil when the reset line is not
// wired; irq is required and must already be configured as an input.
func New(bus i2c.Bus, rst gpio.PinOut, irq gpio.PinIn, opts *Opts) (*Scanner, error) {
	if bus == nil || irq == nil {
		return nil, errors.New("touch: bus and interrupt pin are required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Addr == 0 {
		o.Addr = DefaultAddr
	}
	if o.PanelWidth <= 0 || o.PanelHeight <= 0 {
		o.PanelWidth, o.PanelHeight = DefaultOpts.PanelWidth, DefaultOpts.PanelHeight
	}
	if o.ResetPulse <= 0 {
		o.ResetPulse = DefaultOpts.ResetPulse
	}
	return &Scanner{
		dev:   &i2c.Dev{Bus: bus, Addr: o.Addr},
		rst:   rst,
		irq:   irq,
		opts:  o,
		sleep: time.Sleep,
	}, nil
}

func (s *Scanner) String() string {
	return fmt.Sprintf("touch.Scanner{%s}", s.dev)
}

func (s *Scanner) read(reg uint16, n int) ([]byte, error) {
	w := []byte{byte(reg >> 8), byte(reg & 0xFF)}
	r := make([]byte, n)
	if err := s.dev.Tx(w, r); err != nil {
		return nil, fmt.Errorf("%w: read 0x%04X: %w", ErrBus, reg, err)
	}
	return r, nil
}

func (s *Scanner) write(reg uint16, b byte) error {
	w := []byte{byte(reg >> 8), byte(reg & 0xFF), b}
	if err := s.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("%w: write 0x%04X: %w", ErrBus, reg, err)
	}
	return nil
}

func (s *Scanner) clearStatus() error {
	return s.write(regStatus, 0x00)
}

// Init pulses the reset line (when wired) and reads the firmware version.
func (s *Scanner) Init() error {
	if s.rst != nil {
		for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
			if err := s.rst.Out(l); err != nil {
				return fmt.Errorf("%w: reset: %w", ErrBus, err)
			}
			s.sleep(s.opts.ResetPulse)
		}
	}
	v, err := s.Version()
	if err != nil {
		return err
	}
	appLog.Info("touch controller ready", "addr", fmt.Sprintf("0x%02X", s.opts.Addr), "version", fmt.Sprintf("% X", v))
	return nil
}

// Version returns the 4 version bytes.
func (s *Scanner) Version() ([]byte, error) {
	return s.read(regVersion, 4)
}

// Poll returns the first contact if the controller has one pending. A
// released interrupt line means no contact and costs no bus traffic. A
// reported count of zero or above five is noise: the status register is
// cleared and no contact is returned.
func (s *Scanner) Poll() (Point, bool, error) {
	if s.irq.Read() == gpio.High {
		return Point{}, false, nil
	}

	status, err := s.read(regStatus, 1)
	if err != nil {
		return Point{}, false, err
	}
	count := int(status[0])
	if count == 0 {
		if err := s.clearStatus(); err != nil {
			return Point{}, false, err
		}
		s.sleep(time.Millisecond)
		return Point{}, false, nil
	}
	if count > maxPoints {
		appLog.Debug("touch count out of range", "count", count)
		return Point{}, false, s.clearStatus()
	}

	data, err := s.read(regPoints, count*pointSize)
	if err != nil {
		return Point{}, false, err
	}
	if err := s.clearStatus(); err != nil {
		return Point{}, false, err
	}

	// Point layout: id, x lo, x hi, y lo, y hi, pressure, track id.
	sx := int(data[1]) | int(data[2])<<8
	sy := int(data[3]) | int(data[4])<<8
	p := Point{
		X: s.opts.PanelHeight - sx,
		Y: s.opts.PanelWidth - 1 - sy,
	}
	if p.X < 0 || p.Y < 0 || p.X >= s.opts.PanelHeight || p.Y >= s.opts.PanelWidth {
		appLog.Debug("touch point off panel", "sx", sx, "sy", sy)
		return Point{}, false, nil
	}
	return p, true, nil
}
