package epd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
)

type testRig struct {
	port *spitest.Record
	dc   *gpiotest.Pin
	cs   *gpiotest.Pin
	rst  *gpiotest.Pin
	busy *gpiotest.Pin
	trst *gpiotest.Pin
	dev  *Dev
}

func newRig(t *testing.T, opts Opts) *testRig {
	t.Helper()
	r := &testRig{
		port: &spitest.Record{},
		dc:   &gpiotest.Pin{N: "dc"},
		cs:   &gpiotest.Pin{N: "cs", L: gpio.High},
		rst:  &gpiotest.Pin{N: "rst"},
		busy: &gpiotest.Pin{N: "busy", L: gpio.Low},
		trst: &gpiotest.Pin{N: "trst", L: gpio.High},
	}
	dev, err := New(r.port, Pins{DC: r.dc, CS: r.cs, RST: r.rst, Busy: r.busy, TouchRST: r.trst}, &opts)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	dev.sleep = func(time.Duration) {}
	r.dev = dev
	return r
}

func (r *testRig) written() [][]byte {
	var out [][]byte
	for _, op := range r.port.Ops {
		out = append(out, op.W)
	}
	return out
}

func TestNew(t *testing.T) {
	r := newRig(t, EPD2in9)
	if got := r.dev.State(); got != Uninitialized {
		t.Errorf("State() = %s, want uninitialized", got)
	}
	if got := r.dev.BufferSize(); got != 4736 {
		t.Errorf("BufferSize() = %d, want 4736", got)
	}
	if len(r.port.Ops) != 0 {
		t.Errorf("New() sent %d transfers", len(r.port.Ops))
	}

	if _, err := New(&spitest.Record{}, Pins{}, &EPD2in9); err == nil {
		t.Error("New() without pins must fail")
	}
	bad := EPD2in9
	bad.Width = 100
	if _, err := New(&spitest.Record{}, Pins{DC: r.dc, RST: r.rst, Busy: r.busy}, &bad); err == nil {
		t.Error("New() with unaligned width must fail")
	}
	bad = EPD2in9
	bad.Partial = Gray4
	if _, err := New(&spitest.Record{}, Pins{DC: r.dc, RST: r.rst, Busy: r.busy}, &bad); err == nil {
		t.Error("New() with gray4 partial waveform must fail")
	}
}

func TestInitWire(t *testing.T) {
	r := newRig(t, EPD2in9)

	if err := r.dev.Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if got := r.dev.State(); got != Ready {
		t.Errorf("State() = %s, want ready", got)
	}

	want := [][]byte{
		{swReset},
		{driverOutputControl}, {0x27, 0x01, 0x00},
		{dataEntryModeSetting}, {0x03},
		{setRAMXAddressStartEndPosition}, {0x00, 0x0F},
		{setRAMYAddressStartEndPosition}, {0x00, 0x00, 0x27, 0x01},
		{displayUpdateControl1}, {0x00, 0x80},
		{setRAMXAddressCounter}, {0x00},
		{setRAMYAddressCounter}, {0x00, 0x00},
	}
	if diff := cmp.Diff(r.written(), want); diff != "" {
		t.Errorf("SPI traffic (-got +want):\n%s", diff)
	}
	if r.rst.L != gpio.High {
		t.Error("reset line left asserted")
	}
	if r.cs.L != gpio.High {
		t.Error("chip select left asserted")
	}
}

func TestDisplayBeforeInit(t *testing.T) {
	r := newRig(t, EPD2in9)
	buf := make([]byte, r.dev.BufferSize())

	for name, fn := range map[string]func([]byte) error{
		"full":    r.dev.DisplayFull,
		"partial": r.dev.DisplayPartial,
		"single":  r.dev.Display,
	} {
		if err := fn(buf); !errors.Is(err, ErrNotReady) {
			t.Errorf("%s: err = %v, want ErrNotReady", name, err)
		}
	}
	if err := r.dev.DisplayGray4(make([]byte, r.dev.Gray4BufferSize())); !errors.Is(err, ErrNotReady) {
		t.Errorf("gray4: err = %v, want ErrNotReady", err)
	}
	if len(r.port.Ops) != 0 {
		t.Errorf("sent %d transfers before Init", len(r.port.Ops))
	}
}

func TestBufferSizeCheckedBeforeTraffic(t *testing.T) {
	r := newRig(t, EPD2in9)
	if err := r.dev.Init(); err != nil {
		t.Fatal(err)
	}
	before := len(r.port.Ops)

	for _, n := range []int{0, 4735, 4737, 9472} {
		buf := make([]byte, n)
		if err := r.dev.DisplayFull(buf); !errors.Is(err, ErrBufferSize) {
			t.Errorf("DisplayFull(%d bytes) err = %v", n, err)
		}
		if err := r.dev.DisplayPartial(buf); !errors.Is(err, ErrBufferSize) {
			t.Errorf("DisplayPartial(%d bytes) err = %v", n, err)
		}
	}
	if got := len(r.port.Ops); got != before {
		t.Errorf("%d transfers emitted for rejected buffers", got-before)
	}
	if got := r.dev.State(); got != Ready {
		t.Errorf("State() = %s, want ready", got)
	}
}

func TestDisplayFullChunked(t *testing.T) {
	r := newRig(t, EPD2in9)
	r.dev.maxTx = 1000
	if err := r.dev.Init(); err != nil {
		t.Fatal(err)
	}
	r.port.Ops = nil

	buf := bytes.Repeat([]byte{0x55}, r.dev.BufferSize())
	if err := r.dev.DisplayFull(buf); err != nil {
		t.Fatal(err)
	}

	var sizes []int
	for _, op := range r.port.Ops {
		sizes = append(sizes, len(op.W))
	}
	plane := []int{1000, 1000, 1000, 1000, 736}
	want := append(append(append([]int{1}, plane...), 1), plane...)
	want = append(want, 1, 1, 1)
	if diff := cmp.Diff(sizes, want); diff != "" {
		t.Errorf("transfer sizes (-got +want):\n%s", diff)
	}
	if got := r.dev.Waveform(); got != WaveformOTP {
		t.Errorf("Waveform() = %s", got)
	}
}

func TestDisplayPartialWaveform(t *testing.T) {
	opts := EPD2in9
	opts.Partial = PartialSlow
	r := newRig(t, opts)
	if err := r.dev.Init(); err != nil {
		t.Fatal(err)
	}
	r.port.Ops = nil

	if err := r.dev.DisplayPartial(make([]byte, r.dev.BufferSize())); err != nil {
		t.Fatal(err)
	}
	ops := r.written()
	if diff := cmp.Diff(ops[:2], [][]byte{{writeLutRegister}, lutPartialSlow[:153]}); diff != "" {
		t.Errorf("LUT upload (-got +want):\n%s", diff)
	}
	if got := r.dev.Waveform(); got != PartialSlow {
		t.Errorf("Waveform() = %s, want partial-slow", got)
	}
	if got := r.dev.State(); got != Ready {
		t.Errorf("State() = %s, want ready", got)
	}
}

func TestBusyTimeout(t *testing.T) {
	opts := EPD2in9
	opts.BusyTimeout = 50 * time.Millisecond
	opts.BusyPoll = 10 * time.Millisecond
	r := newRig(t, opts)
	r.busy.L = gpio.High

	polls := 0
	r.dev.sleep = func(d time.Duration) {
		if d == opts.BusyPoll {
			polls++
		}
	}

	err := r.dev.Init()
	if !errors.Is(err, ErrHardwareTimeout) {
		t.Fatalf("Init() err = %v, want ErrHardwareTimeout", err)
	}
	if polls != 5 {
		t.Errorf("polled %d times, want 5", polls)
	}
	if got := r.dev.State(); got != Uninitialized {
		t.Errorf("State() = %s, want uninitialized", got)
	}
	// Nothing after the first busy-wait may be sent.
	if len(r.port.Ops) != 0 {
		t.Errorf("sent %d transfers after timeout", len(r.port.Ops))
	}

	// Recovers once the panel answers.
	r.busy.L = gpio.Low
	if err := r.dev.Init(); err != nil {
		t.Fatalf("Init() after recovery: %v", err)
	}
}

type failingPin struct {
	gpiotest.Pin
}

func (*failingPin) Out(gpio.Level) error {
	return errors.New("line stuck")
}

func TestBusError(t *testing.T) {
	r := newRig(t, EPD2in9)
	dc := &failingPin{Pin: gpiotest.Pin{N: "dc"}}
	dev, err := New(&spitest.Record{}, Pins{DC: dc, RST: r.rst, Busy: r.busy}, &EPD2in9)
	if err != nil {
		t.Fatal(err)
	}
	dev.sleep = func(time.Duration) {}

	if err := dev.Init(); !errors.Is(err, ErrBus) {
		t.Errorf("Init() err = %v, want ErrBus", err)
	}
	if got := dev.State(); got != Uninitialized {
		t.Errorf("State() = %s", got)
	}
}

func TestSleep(t *testing.T) {
	r := newRig(t, EPD2in9)
	if err := r.dev.Init(); err != nil {
		t.Fatal(err)
	}
	r.port.Ops = nil

	if err := r.dev.Sleep(); err != nil {
		t.Fatal(err)
	}
	want := []conntest.IO{{W: []byte{deepSleepMode}}, {W: []byte{0x01}}}
	if diff := cmp.Diff(r.port.Ops, want, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("SPI traffic (-got +want):\n%s", diff)
	}
	if r.rst.L != gpio.Low || r.trst.L != gpio.Low {
		t.Errorf("reset lines rst=%s trst=%s, want both low", r.rst.L, r.trst.L)
	}
	if got := r.dev.State(); got != Asleep {
		t.Errorf("State() = %s, want asleep", got)
	}

	if err := r.dev.DisplayFull(make([]byte, r.dev.BufferSize())); !errors.Is(err, ErrNotReady) {
		t.Errorf("DisplayFull while asleep err = %v", err)
	}
	if err := r.dev.Sleep(); err != nil || len(r.port.Ops) != 2 {
		t.Errorf("second Sleep() = %v with %d transfers", err, len(r.port.Ops))
	}
	if err := r.dev.Init(); err != nil {
		t.Fatalf("Init() from sleep: %v", err)
	}
}

func TestGray4Mode(t *testing.T) {
	r := newRig(t, EPD2in9)
	r.dev.maxTx = 1 << 16
	if err := r.dev.InitGray4(); err != nil {
		t.Fatal(err)
	}
	if err := r.dev.DisplayFull(make([]byte, r.dev.BufferSize())); !errors.Is(err, ErrNotReady) {
		t.Errorf("DisplayFull in gray4 mode err = %v", err)
	}
	if err := r.dev.DisplayGray4(make([]byte, r.dev.BufferSize())); !errors.Is(err, ErrBufferSize) {
		t.Errorf("DisplayGray4 short buffer err = %v", err)
	}
	r.port.Ops = nil
	if err := r.dev.DisplayGray4(bytes.Repeat([]byte{0xFF}, r.dev.Gray4BufferSize())); err != nil {
		t.Fatal(err)
	}
	ops := r.written()
	if len(ops) != 7 || ops[0][0] != writeRAMBW || ops[2][0] != writeRAMRed {
		t.Fatalf("unexpected gray4 traffic: %d transfers", len(ops))
	}
	if !bytes.Equal(ops[1], make([]byte, 4736)) {
		t.Error("white frame must clear the bw plane")
	}
}
