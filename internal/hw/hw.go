// Package hw opens the panel and touch controller described by the config
// through the periph registries.
package hw

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"piclock/internal/config"
	"piclock/internal/epd"
	appLog "piclock/internal/log"
	"piclock/internal/touch"
)

// Board is the opened hardware. Touch is nil when disabled in config.
type Board struct {
	Panel *epd.Dev
	Touch *touch.Scanner

	port spi.PortCloser
	bus  i2c.BusCloser
}

// Open initialises the periph host drivers and opens the board.
func Open(cfg *config.Config) (*Board, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("hw: periph host init failed: %w", err)
	}
	appLog.Debug("periph host initialised", "loaded", len(state.Loaded), "failed", len(state.Failed))
	return openBoard(cfg)
}

func openBoard(cfg *config.Config) (*Board, error) {
	if cfg == nil {
		return nil, errors.New("hw: nil config")
	}
	pc := cfg.Panel

	dc, err := pinOut(pc.DC, gpio.Low)
	if err != nil {
		return nil, err
	}
	var cs gpio.PinOut
	if pc.CS != "" {
		if cs, err = pinOut(pc.CS, gpio.High); err != nil {
			return nil, err
		}
	}
	rst, err := pinOut(pc.RST, gpio.High)
	if err != nil {
		return nil, err
	}
	busy, err := pinIn(pc.Busy, gpio.Float)
	if err != nil {
		return nil, err
	}

	b := &Board{}
	var trst gpio.PinOut
	var tint gpio.PinIn
	if cfg.Touch.Enabled {
		if cfg.Touch.RST != "" {
			if trst, err = pinOut(cfg.Touch.RST, gpio.High); err != nil {
				return nil, err
			}
		}
		if tint, err = pinIn(cfg.Touch.INT, gpio.PullUp); err != nil {
			return nil, err
		}
	}

	b.port, err = spireg.Open(pc.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("hw: failed to open SPI port %q: %w", pc.SPIPort, err)
	}

	wf, err := epd.ParseWaveform(pc.PartialWaveform)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("hw: %w", err)
	}
	opts := epd.EPD2in9
	opts.Partial = wf
	opts.BusyTimeout = pc.BusyTimeout
	opts.BusyPoll = pc.BusyPoll
	if pc.SPIHz > 0 {
		opts.Speed = physic.Frequency(pc.SPIHz) * physic.Hertz
	}
	b.Panel, err = epd.New(b.port, epd.Pins{DC: dc, CS: cs, RST: rst, Busy: busy, TouchRST: trst}, &opts)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("hw: %w", err)
	}

	if cfg.Touch.Enabled {
		b.bus, err = i2creg.Open(cfg.Touch.I2CBus)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("hw: failed to open I2C bus %q: %w", cfg.Touch.I2CBus, err)
		}
		topts := touch.DefaultOpts
		topts.Addr = cfg.Touch.Addr
		topts.PanelWidth, topts.PanelHeight = opts.Width, opts.Height
		b.Touch, err = touch.New(b.bus, trst, tint, &topts)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("hw: %w", err)
		}
	}

	appLog.Info("hardware opened", "panel", b.Panel, "touch", cfg.Touch.Enabled)
	return b, nil
}

// Close releases the SPI port and I2C bus.
func (b *Board) Close() error {
	var errs []error
	if b.bus != nil {
		errs = append(errs, b.bus.Close())
		b.bus = nil
	}
	if b.port != nil {
		errs = append(errs, b.port.Close())
		b.port = nil
	}
	return errors.Join(errs...)
}

func pinOut(name string, l gpio.Level) (gpio.PinOut, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if err := p.Out(l); err != nil {
		return nil, fmt.Errorf("hw: gpio %s Out failed: %w", name, err)
	}
	return p, nil
}

func pinIn(name string, pull gpio.Pull) (gpio.PinIn, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	if err := p.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("hw: gpio %s In failed: %w", name, err)
	}
	return p, nil
}

func lookup(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, errors.New("hw: empty gpio name")
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("hw: gpio %s not found", name)
	}
	return p, nil
}
