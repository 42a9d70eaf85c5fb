package epd

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// errorHandler drives the real bus and keeps the first error; once set, every
// further call is a no-op so a sequence can be written without checks.
type errorHandler struct {
	d   *Dev
	err error
}

func (eh *errorHandler) out(name string, p gpio.PinOut, l gpio.Level) {
	if eh.err != nil || p == nil {
		return
	}
	if err := p.Out(l); err != nil {
		eh.err = fmt.Errorf("%w: %s out %s: %w", ErrBus, name, l, err)
	}
}

func (eh *errorHandler) rstOut(l gpio.Level) { eh.out("rst", eh.d.rst, l) }
func (eh *errorHandler) dcOut(l gpio.Level)  { eh.out("dc", eh.d.dc, l) }
func (eh *errorHandler) csOut(l gpio.Level)  { eh.out("cs", eh.d.cs, l) }

// cTx writes w in chunks no larger than the connection's transfer limit.
func (eh *errorHandler) cTx(w []byte) {
	for len(w) > 0 && eh.err == nil {
		n := len(w)
		if n > eh.d.maxTx {
			n = eh.d.maxTx
		}
		if err := eh.d.c.Tx(w[:n], nil); err != nil {
			eh.err = fmt.Errorf("%w: spi tx: %w", ErrBus, err)
			return
		}
		w = w[n:]
	}
}

func (eh *errorHandler) delay(d time.Duration) {
	if eh.err != nil || d <= 0 {
		return
	}
	eh.d.sleep(d)
}

func (eh *errorHandler) reset(pulse, settle time.Duration) {
	eh.rstOut(gpio.High)
	eh.delay(settle)
	eh.rstOut(gpio.Low)
	eh.delay(pulse)
	eh.rstOut(gpio.High)
	eh.delay(settle)
}

// waitUntilIdle polls busy (high while the panel works). Time is counted in
// poll intervals, so the bound is approximate.
func (eh *errorHandler) waitUntilIdle() {
	if eh.err != nil {
		return
	}
	timeout := eh.d.opts.BusyTimeout
	poll := eh.d.opts.BusyPoll
	var waited time.Duration
	for eh.d.busy.Read() == gpio.High {
		if timeout > 0 && waited >= timeout {
			eh.err = fmt.Errorf("%w: busy for %v", ErrHardwareTimeout, waited)
			return
		}
		eh.d.sleep(poll)
		waited += poll
	}
}

func (eh *errorHandler) sendCommand(cmd byte) {
	if eh.err != nil {
		return
	}
	eh.dcOut(gpio.Low)
	eh.csOut(gpio.Low)
	eh.cTx([]byte{cmd})
	eh.csOut(gpio.High)
}

func (eh *errorHandler) sendData(data []byte) {
	if eh.err != nil {
		return
	}
	eh.dcOut(gpio.High)
	eh.csOut(gpio.Low)
	eh.cTx(data)
	eh.csOut(gpio.High)
}
