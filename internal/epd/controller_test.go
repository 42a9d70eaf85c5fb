package epd

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type record struct {
	op   string // "wait", "reset <pulse>", "delay <d>" or empty for a command
	cmd  byte
	data []byte
}

type fakeController []record

func (r *fakeController) reset(pulse, _ time.Duration) {
	*r = append(*r, record{op: fmt.Sprint("reset ", pulse)})
}

func (r *fakeController) sendCommand(cmd byte) {
	*r = append(*r, record{cmd: cmd})
}

func (r *fakeController) sendData(data []byte) {
	cur := &(*r)[len(*r)-1]
	cur.data = append(cur.data, data...)
}

func (r *fakeController) waitUntilIdle() {
	*r = append(*r, record{op: "wait"})
}

func (r *fakeController) delay(d time.Duration) {
	*r = append(*r, record{op: fmt.Sprint("delay ", d)})
}

var (
	wait       = record{op: "wait"}
	fullReset  = record{op: "reset " + resetPulse.String()}
	shortReset = record{op: "reset " + partialResetPulse.String()}
)

func diffRecords(got fakeController, want []record) string {
	return cmp.Diff([]record(got), want, cmpopts.EquateEmpty(), cmp.AllowUnexported(record{}))
}

func TestInitDisplay(t *testing.T) {
	var got fakeController
	opts := EPD2in9

	initDisplay(&got, &opts)

	want := []record{
		fullReset,
		wait,
		{cmd: swReset},
		wait,
		{cmd: driverOutputControl, data: []byte{0x27, 0x01, 0x00}},
		{cmd: dataEntryModeSetting, data: []byte{0x03}},
		{cmd: setRAMXAddressStartEndPosition, data: []byte{0x00, 0x0F}},
		{cmd: setRAMYAddressStartEndPosition, data: []byte{0x00, 0x00, 0x27, 0x01}},
		{cmd: displayUpdateControl1, data: []byte{0x00, 0x80}},
		{cmd: setRAMXAddressCounter, data: []byte{0x00}},
		{cmd: setRAMYAddressCounter, data: []byte{0x00, 0x00}},
		wait,
		wait,
	}
	if diff := diffRecords(got, want); diff != "" {
		t.Errorf("initDisplay() difference (-got +want):\n%s", diff)
	}
}

func TestInitGray4(t *testing.T) {
	var got fakeController
	opts := EPD2in9

	initGray4(&got, &opts)

	want := []record{
		fullReset,
		wait,
		{cmd: swReset},
		wait,
		{cmd: driverOutputControl, data: []byte{0x27, 0x01, 0x00}},
		{cmd: dataEntryModeSetting, data: []byte{0x03}},
		{cmd: setRAMXAddressStartEndPosition, data: []byte{0x01, 0x10}},
		{cmd: setRAMYAddressStartEndPosition, data: []byte{0x00, 0x00, 0x27, 0x01}},
		{cmd: borderWaveformControl, data: []byte{0x04}},
		{cmd: setRAMXAddressCounter, data: []byte{0x01}},
		{cmd: setRAMYAddressCounter, data: []byte{0x00, 0x00}},
		wait,
		wait,
		{cmd: writeLutRegister, data: lutGray4[:153]},
		wait,
		{cmd: endOption, data: []byte{0x22}},
		{cmd: gateDrivingVoltageControl, data: []byte{0x17}},
		{cmd: sourceDrivingVoltageControl, data: []byte{0x41, 0xAE, 0x32}},
		{cmd: writeVcomRegister, data: []byte{0x28}},
	}
	if diff := diffRecords(got, want); diff != "" {
		t.Errorf("initGray4() difference (-got +want):\n%s", diff)
	}
}

func TestDisplayFull(t *testing.T) {
	var got fakeController
	buf := bytes.Repeat([]byte{0xA5}, 16)

	displayFull(&got, buf)

	want := []record{
		{cmd: writeRAMBW, data: buf},
		{cmd: writeRAMRed, data: buf},
		{cmd: displayUpdateControl2, data: []byte{0xF7}},
		{cmd: masterActivation},
		wait,
	}
	if diff := diffRecords(got, want); diff != "" {
		t.Errorf("displayFull() difference (-got +want):\n%s", diff)
	}
}

func TestDisplayPartial(t *testing.T) {
	for _, tc := range []struct {
		name string
		lut  *LUT
	}{
		{"fast", &lutPartialFast},
		{"slow", &lutPartialSlow},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got fakeController
			opts := EPD2in9
			buf := bytes.Repeat([]byte{0x3C}, 16)

			displayPartial(&got, &opts, tc.lut, buf)

			want := []record{
				shortReset,
				{cmd: writeLutRegister, data: tc.lut[:153]},
				wait,
				{cmd: writeOTPSelection, data: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00}},
				{cmd: borderWaveformControl, data: []byte{0x80}},
				{cmd: displayUpdateControl2, data: []byte{0xC0}},
				{cmd: masterActivation},
				wait,
				{cmd: setRAMXAddressStartEndPosition, data: []byte{0x00, 0x0F}},
				{cmd: setRAMYAddressStartEndPosition, data: []byte{0x00, 0x00, 0x27, 0x01}},
				{cmd: setRAMXAddressCounter, data: []byte{0x00}},
				{cmd: setRAMYAddressCounter, data: []byte{0x00, 0x00}},
				wait,
				{cmd: writeRAMBW, data: buf},
				{cmd: displayUpdateControl2, data: []byte{0x0F}},
				{cmd: masterActivation},
				wait,
			}
			if diff := diffRecords(got, want); diff != "" {
				t.Errorf("displayPartial() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestDisplayGray4AndClear(t *testing.T) {
	var got fakeController
	opts := Opts{Width: 8, Height: 2}

	displayGray4(&got, []byte{1}, []byte{2})
	clearDisplay(&got, &opts, 0xFF)

	want := []record{
		{cmd: writeRAMBW, data: []byte{1}},
		{cmd: writeRAMRed, data: []byte{2}},
		{cmd: displayUpdateControl2, data: []byte{0xC7}},
		{cmd: masterActivation},
		wait,
		{cmd: writeRAMBW, data: []byte{0xFF, 0xFF}},
		{cmd: displayUpdateControl2, data: []byte{0xF7}},
		{cmd: masterActivation},
		wait,
	}
	if diff := diffRecords(got, want); diff != "" {
		t.Errorf("difference (-got +want):\n%s", diff)
	}
}

func TestDeepSleep(t *testing.T) {
	var got fakeController

	deepSleep(&got)

	want := []record{
		{cmd: deepSleepMode, data: []byte{0x01}},
		{op: "delay 2s"},
	}
	if diff := diffRecords(got, want); diff != "" {
		t.Errorf("deepSleep() difference (-got +want):\n%s", diff)
	}
}

func TestLUTTables(t *testing.T) {
	// The slow table only lengthens one settle phase.
	var diffs []int
	for i := range lutPartialFast {
		if lutPartialFast[i] != lutPartialSlow[i] {
			diffs = append(diffs, i)
		}
	}
	if diff := cmp.Diff([]int{66}, diffs); diff != "" {
		t.Errorf("fast/slow differ at (-want +got):\n%s", diff)
	}

	for _, w := range []Waveform{PartialFast, PartialSlow, Gray4} {
		if _, ok := w.LUT(); !ok {
			t.Errorf("%s has no LUT", w)
		}
	}
	if _, ok := WaveformOTP.LUT(); ok {
		t.Error("OTP waveform must not have a RAM table")
	}
}

func TestParseWaveform(t *testing.T) {
	for in, want := range map[string]Waveform{"fast": PartialFast, "": PartialFast, "slow": PartialSlow} {
		got, err := ParseWaveform(in)
		if err != nil || got != want {
			t.Errorf("ParseWaveform(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseWaveform("gray4"); err == nil {
		t.Error("expected error")
	}
}

func TestSplitGray4(t *testing.T) {
	// First byte holds levels 0,1,2,3 (low bits first), second is all black.
	bw, red := splitGray4([]byte{0xE4, 0x00})
	if diff := cmp.Diff([]byte{0xCF}, bw); diff != "" {
		t.Errorf("bw plane (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{0xAF}, red); diff != "" {
		t.Errorf("red plane (-want +got):\n%s", diff)
	}

	bw, red = splitGray4(bytes.Repeat([]byte{0xFF}, 4))
	if diff := cmp.Diff([]byte{0, 0}, bw); diff != "" {
		t.Errorf("white bw plane (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{0, 0}, red); diff != "" {
		t.Errorf("white red plane (-want +got):\n%s", diff)
	}
}
