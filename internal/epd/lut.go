package epd

import "fmt"

// LUT is a full waveform table: 153 bytes of phase timing followed by the
// end option, gate voltage, three source voltages and VCOM.
type LUT [159]byte

const lutWaveformLen = 153

func (l *LUT) waveform() []byte { return l[:lutWaveformLen] }
func (l *LUT) endOpt() byte     { return l[153] }
func (l *LUT) gate() byte       { return l[154] }
func (l *LUT) source() []byte   { return l[155:158] }
func (l *LUT) vcom() byte       { return l[158] }

// Waveform identifies the LUT currently driving the panel.
type Waveform int

const (
	// WaveformOTP is the factory full-refresh waveform selected by 0xF7.
	WaveformOTP Waveform = iota
	// PartialFast is the quick partial-refresh table.
	PartialFast
	// PartialSlow differs from PartialFast only in a longer settle phase,
	// trading speed for less ghosting.
	PartialSlow
	// Gray4 drives the 2-bit four level mode.
	Gray4
)

func (w Waveform) String() string {
	switch w {
	case WaveformOTP:
		return "otp"
	case PartialFast:
		return "partial-fast"
	case PartialSlow:
		return "partial-slow"
	case Gray4:
		return "gray4"
	default:
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
}

// ParseWaveform maps the config names "fast" and "slow" to partial waveforms.
func ParseWaveform(s string) (Waveform, error) {
	switch s {
	case "fast", "":
		return PartialFast, nil
	case "slow":
		return PartialSlow, nil
	}
	return 0, fmt.Errorf("epd: unknown partial waveform %q", s)
}

// LUT returns the table for w. WaveformOTP has no RAM table.
func (w Waveform) LUT() (*LUT, bool) {
	switch w {
	case PartialFast:
		return &lutPartialFast, true
	case PartialSlow:
		return &lutPartialSlow, true
	case Gray4:
		return &lutGray4, true
	}
	return nil, false
}

var lutPartialFast = LUT{
	0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x80, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x40, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x0A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x22, 0x22, 0x22, 0x22, 0x22, 0x22, 0x00, 0x00, 0x00,

	0x22, 0x17, 0x41, 0xB0, 0x32, 0x36,
}

var lutPartialSlow = LUT{
	0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x80, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x40, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x0A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02,
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x22, 0x22, 0x22, 0x22, 0x22, 0x22, 0x00, 0x00, 0x00,

	0x22, 0x17, 0x41, 0xB0, 0x32, 0x36,
}

var lutGray4 = LUT{
	0x00, 0x60, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x20, 0x60, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x28, 0x60, 0x14, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x2A, 0x60, 0x15, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x90, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x00, 0x02, 0x00, 0x05, 0x14, 0x00, 0x00,
	0x1E, 0x1E, 0x00, 0x00, 0x00, 0x00, 0x01,
	0x00, 0x02, 0x00, 0x05, 0x14, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,

	0x24, 0x22, 0x22, 0x22, 0x23, 0x32, 0x00, 0x00, 0x00,

	0x22, 0x17, 0x41, 0xAE, 0x32, 0x28,
}
