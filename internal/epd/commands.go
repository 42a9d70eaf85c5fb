package epd

// SSD1680 commands used by the 2.9" panel.
const (
	driverOutputControl            byte = 0x01
	gateDrivingVoltageControl      byte = 0x03
	sourceDrivingVoltageControl    byte = 0x04
	deepSleepMode                  byte = 0x10
	dataEntryModeSetting           byte = 0x11
	swReset                        byte = 0x12
	masterActivation               byte = 0x20
	displayUpdateControl1          byte = 0x21
	displayUpdateControl2          byte = 0x22
	writeRAMBW                     byte = 0x24
	writeRAMRed                    byte = 0x26
	writeVcomRegister              byte = 0x2C
	writeLutRegister               byte = 0x32
	writeOTPSelection              byte = 0x37
	borderWaveformControl          byte = 0x3C
	endOption                      byte = 0x3F
	setRAMXAddressStartEndPosition byte = 0x44
	setRAMYAddressStartEndPosition byte = 0x45
	setRAMXAddressCounter          byte = 0x4E
	setRAMYAddressCounter          byte = 0x4F
)

// Display update control 2 sequences.
const (
	updateFull     byte = 0xF7 // clock, analog, load OTP LUT, display, power off
	updatePartial  byte = 0x0F // display with the LUT already in RAM
	updateGray4    byte = 0xC7
	updatePowerOn  byte = 0xC0
	deepSleepMode1 byte = 0x01
)
