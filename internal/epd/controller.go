package epd

import (
	"bytes"
	"time"
)

// controller is the bus surface the command sequences are written against.
// The real implementation is errorHandler; tests record the traffic.
type controller interface {
	reset(pulse, settle time.Duration)
	sendCommand(byte)
	sendData([]byte)
	waitUntilIdle()
	delay(time.Duration)
}

const (
	resetPulse        = 2 * time.Millisecond
	resetSettle       = 50 * time.Millisecond
	partialResetPulse = 200 * time.Microsecond
	deepSleepSettle   = 2 * time.Second
)

func setWindow(ctrl controller, x0, y0, x1, y1 int) {
	// X is addressed in bytes; the low three bits are ignored by the panel.
	ctrl.sendCommand(setRAMXAddressStartEndPosition)
	ctrl.sendData([]byte{byte(x0 >> 3), byte(x1 >> 3)})

	ctrl.sendCommand(setRAMYAddressStartEndPosition)
	ctrl.sendData([]byte{byte(y0), byte(y0 >> 8), byte(y1), byte(y1 >> 8)})
}

func setCursor(ctrl controller, x, y int) {
	ctrl.sendCommand(setRAMXAddressCounter)
	ctrl.sendData([]byte{byte(x >> 3)})

	ctrl.sendCommand(setRAMYAddressCounter)
	ctrl.sendData([]byte{byte(y), byte(y >> 8)})

	ctrl.waitUntilIdle()
}

// initPanel runs the common power-up prefix: hardware reset, software reset,
// gate count and data entry mode (X then Y increment).
func initPanel(ctrl controller, opts *Opts) {
	ctrl.reset(resetPulse, resetSettle)

	ctrl.waitUntilIdle()
	ctrl.sendCommand(swReset)
	ctrl.waitUntilIdle()

	gates := opts.Height - 1
	ctrl.sendCommand(driverOutputControl)
	ctrl.sendData([]byte{byte(gates), byte(gates >> 8), 0x00})

	ctrl.sendCommand(dataEntryModeSetting)
	ctrl.sendData([]byte{0x03})
}

func initDisplay(ctrl controller, opts *Opts) {
	initPanel(ctrl, opts)

	setWindow(ctrl, 0, 0, opts.Width-1, opts.Height-1)

	// Normal RAM content, source output S8..S167.
	ctrl.sendCommand(displayUpdateControl1)
	ctrl.sendData([]byte{0x00, 0x80})

	setCursor(ctrl, 0, 0)
	ctrl.waitUntilIdle()
}

func initGray4(ctrl controller, opts *Opts) {
	initPanel(ctrl, opts)

	setWindow(ctrl, 8, 0, opts.Width, opts.Height-1)

	ctrl.sendCommand(borderWaveformControl)
	ctrl.sendData([]byte{0x04})

	setCursor(ctrl, 8, 0)
	ctrl.waitUntilIdle()

	loadLUT(ctrl, &lutGray4, true)
}

// loadLUT uploads the 153 waveform bytes. With voltages set it also programs
// the end option, gate, source and VCOM levels carried in the table tail.
func loadLUT(ctrl controller, lut *LUT, voltages bool) {
	ctrl.sendCommand(writeLutRegister)
	ctrl.sendData(lut.waveform())
	ctrl.waitUntilIdle()

	if !voltages {
		return
	}

	ctrl.sendCommand(endOption)
	ctrl.sendData([]byte{lut.endOpt()})

	ctrl.sendCommand(gateDrivingVoltageControl)
	ctrl.sendData([]byte{lut.gate()})

	ctrl.sendCommand(sourceDrivingVoltageControl)
	ctrl.sendData(lut.source())

	ctrl.sendCommand(writeVcomRegister)
	ctrl.sendData([]byte{lut.vcom()})
}

func writeRAM(ctrl controller, cmd byte, data []byte) {
	ctrl.sendCommand(cmd)
	ctrl.sendData(data)
}

func turnOnDisplay(ctrl controller, sequence byte) {
	ctrl.sendCommand(displayUpdateControl2)
	ctrl.sendData([]byte{sequence})
	ctrl.sendCommand(masterActivation)
	ctrl.waitUntilIdle()
}

// displayFull writes both RAM banks so the controller sees no stale "old"
// image, then runs the OTP full refresh.
func displayFull(ctrl controller, buf []byte) {
	writeRAM(ctrl, writeRAMBW, buf)
	writeRAM(ctrl, writeRAMRed, buf)
	turnOnDisplay(ctrl, updateFull)
}

func displaySingle(ctrl controller, buf []byte) {
	writeRAM(ctrl, writeRAMBW, buf)
	turnOnDisplay(ctrl, updateFull)
}

func displayPartial(ctrl controller, opts *Opts, lut *LUT, buf []byte) {
	ctrl.reset(partialResetPulse, 0)

	loadLUT(ctrl, lut, false)

	ctrl.sendCommand(writeOTPSelection)
	ctrl.sendData([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00})

	ctrl.sendCommand(borderWaveformControl)
	ctrl.sendData([]byte{0x80})

	turnOnDisplay(ctrl, updatePowerOn)

	setWindow(ctrl, 0, 0, opts.Width-1, opts.Height-1)
	setCursor(ctrl, 0, 0)

	writeRAM(ctrl, writeRAMBW, buf)
	turnOnDisplay(ctrl, updatePartial)
}

func displayGray4(ctrl controller, bw, red []byte) {
	writeRAM(ctrl, writeRAMBW, bw)
	writeRAM(ctrl, writeRAMRed, red)
	turnOnDisplay(ctrl, updateGray4)
}

func clearDisplay(ctrl controller, opts *Opts, color byte) {
	writeRAM(ctrl, writeRAMBW, bytes.Repeat([]byte{color}, opts.bufferSize()))
	turnOnDisplay(ctrl, updateFull)
}

func deepSleep(ctrl controller) {
	ctrl.sendCommand(deepSleepMode)
	ctrl.sendData([]byte{deepSleepMode1})
	ctrl.delay(deepSleepSettle)
}
