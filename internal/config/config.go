package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the preview server.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// PanelConfig describes how the e-paper panel is wired.
type PanelConfig struct {
	// SPIPort is the periph spireg name, e.g. "SPI0.0". Empty selects the
	// first registered port.
	SPIPort string `yaml:"spi_port" json:"spi_port"`
	SPIHz   int64  `yaml:"spi_hz" json:"spi_hz"`

	DC string `yaml:"dc_pin" json:"dc_pin"`
	// CS left empty lets the SPI driver assert chip select.
	CS   string `yaml:"cs_pin" json:"cs_pin"`
	RST  string `yaml:"rst_pin" json:"rst_pin"`
	Busy string `yaml:"busy_pin" json:"busy_pin"`

	// BusyTimeout bounds every busy-wait. Zero waits forever.
	BusyTimeout time.Duration `yaml:"busy_timeout" json:"busy_timeout"`
	BusyPoll    time.Duration `yaml:"busy_poll" json:"busy_poll"`

	// PartialWaveform selects the partial-refresh LUT: "fast" or "slow".
	PartialWaveform string `yaml:"partial_waveform" json:"partial_waveform"`
}

// TouchConfig describes the capacitive touch controller.
type TouchConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	I2CBus  string `yaml:"i2c_bus" json:"i2c_bus"`
	Addr    uint16 `yaml:"addr" json:"addr"`
	RST     string `yaml:"rst_pin" json:"rst_pin"`
	INT     string `yaml:"int_pin" json:"int_pin"`

	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	DeadZone     int           `yaml:"dead_zone" json:"dead_zone"`
	TapTimeout   time.Duration `yaml:"tap_timeout" json:"tap_timeout"`
}

// BirthdayConfig enables the birthday page on a given month/day.
type BirthdayConfig struct {
	Month int `yaml:"month" json:"month"`
	Day   int `yaml:"day" json:"day"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the preview server. Empty
	// disables it.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for the clock page (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string for clock redraws.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Rotation is the logical orientation in degrees: 90, 180 or 270.
	Rotation int `yaml:"rotation" json:"rotation"`

	// AssetsDir holds the raw 1-bit image assets shown next to the clock.
	AssetsDir string `yaml:"assets_dir" json:"assets_dir"`

	// FullRefreshEvery forces a full refresh after this many partial ones.
	FullRefreshEvery int `yaml:"full_refresh_every" json:"full_refresh_every"`

	Birthday *BirthdayConfig `yaml:"birthday,omitempty" json:"birthday,omitempty"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Panel PanelConfig `yaml:"panel" json:"panel"`
	Touch TouchConfig `yaml:"touch" json:"touch"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration matching the
// Waveshare Pico CapTouch 2.9" HAT wiring.
func DefaultConfig() *Config {
	return &Config{
		Listen:           "127.0.0.1:8080",
		Timezone:         "Asia/Seoul",
		RefreshCron:      "* * * * *",
		Rotation:         90,
		AssetsDir:        "assets",
		FullRefreshEvery: 1,
		LogLevel:         "info",
		Panel: PanelConfig{
			SPIHz:           4_000_000,
			DC:              "GPIO25",
			CS:              "GPIO8",
			RST:             "GPIO17",
			Busy:            "GPIO24",
			BusyTimeout:     10 * time.Second,
			BusyPoll:        10 * time.Millisecond,
			PartialWaveform: "fast",
		},
		Touch: TouchConfig{
			Enabled:      true,
			Addr:         0x48,
			RST:          "GPIO22",
			INT:          "GPIO27",
			PollInterval: 20 * time.Millisecond,
			DeadZone:     5,
			TapTimeout:   200 * time.Millisecond,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	switch c.Rotation {
	case 90, 180, 270:
	default:
		c.Rotation = d.Rotation
	}
	if c.AssetsDir == "" {
		c.AssetsDir = d.AssetsDir
	}
	if c.FullRefreshEvery < 0 {
		c.FullRefreshEvery = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}

	p := &c.Panel
	if p.SPIHz <= 0 {
		p.SPIHz = d.Panel.SPIHz
	}
	if p.DC == "" {
		p.DC = d.Panel.DC
	}
	if p.RST == "" {
		p.RST = d.Panel.RST
	}
	if p.Busy == "" {
		p.Busy = d.Panel.Busy
	}
	if p.BusyTimeout < 0 {
		p.BusyTimeout = 0
	}
	if p.BusyPoll <= 0 {
		p.BusyPoll = d.Panel.BusyPoll
	}
	switch p.PartialWaveform {
	case "fast", "slow":
	default:
		p.PartialWaveform = d.Panel.PartialWaveform
	}

	t := &c.Touch
	if t.Addr == 0 {
		t.Addr = d.Touch.Addr
	}
	if t.RST == "" {
		t.RST = d.Touch.RST
	}
	if t.INT == "" {
		t.INT = d.Touch.INT
	}
	if t.PollInterval <= 0 {
		t.PollInterval = d.Touch.PollInterval
	}
	if t.DeadZone <= 0 {
		t.DeadZone = d.Touch.DeadZone
	}
	if t.TapTimeout <= 0 {
		t.TapTimeout = d.Touch.TapTimeout
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	if b := c.Birthday; b != nil {
		if b.Month < 1 || b.Month > 12 || b.Day < 1 || b.Day > 31 {
			return fmt.Errorf("config: birthday %02d-%02d out of range", b.Month, b.Day)
		}
	}
	if c.Touch.Addr > 0x7F {
		return fmt.Errorf("config: touch addr 0x%x is not a 7-bit address", c.Touch.Addr)
	}
	return nil
}

// Load reads the YAML config at path. Keys the file omits keep their
// DefaultConfig values, so an explicit zero (busy_timeout: 0, for example)
// is distinguishable from an absent key. A missing file is replaced by the
// defaults, written with 0600 permissions.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg := DefaultConfig()
		return cfg, Save(path, cfg)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save normalizes cfg and replaces path with it through a temp file in the
// same directory.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".piclock-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
