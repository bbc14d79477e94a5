// Package config holds the YAML configuration shared by the tracker and
// station binaries. Everything here is fixed at startup; nothing is
// renegotiated at runtime.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/gnss"
)

type Config struct {
	GNSS    GNSSConfig    `yaml:"gnss"`
	Radio   RadioConfig   `yaml:"radio"`
	Station StationConfig `yaml:"station"`
	Outputs OutputsConfig `yaml:"outputs"`
	Web     WebConfig     `yaml:"web"`
}

type GNSSConfig struct {
	Source         string         `yaml:"source"`
	Device         string         `yaml:"device"`
	Baud           int            `yaml:"baud"`
	I2CBus         string         `yaml:"i2c_bus"`
	I2CAddr        uint16         `yaml:"i2c_addr"`
	SampleInterval time.Duration  `yaml:"sample_interval"`
	Sim            gnss.SimConfig `yaml:"sim"`
}

type RadioConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	Address   uint16 `yaml:"address"`
	Peer      uint16 `yaml:"peer"`
	NetworkID int    `yaml:"network_id"`
	BandHz    int    `yaml:"band_hz"`

	SpreadingFactor int `yaml:"spreading_factor"`
	Bandwidth       int `yaml:"bandwidth"`
	CodingRate      int `yaml:"coding_rate"`
	Preamble        int `yaml:"preamble"`
	PowerDbm        int `yaml:"power_dbm"`

	SettleDelay     time.Duration `yaml:"settle_delay"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`

	// ResetLine is a GPIO line name ("GPIO17") wired to the modem's NRST
	// pin. Empty disables the startup reset pulse.
	ResetLine string `yaml:"reset_line"`
}

type StationConfig struct {
	// Input selects the line source: "serial" (the radio port), "tcp"
	// (a ser2net-style bridge), or "replay" (a linelog capture).
	Input   string        `yaml:"input"`
	TCPAddr string        `yaml:"tcp_addr"`
	Replay  ReplayConfig  `yaml:"replay"`
	Capture CaptureConfig `yaml:"capture"`

	// Display switches stdout from raw CSV rows to the human-readable
	// rendering. Sinks and storage always get raw integers either way.
	Display bool `yaml:"display"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type CaptureConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type OutputsConfig struct {
	UDP    UDPConfig    `yaml:"udp"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type MQTTConfig struct {
	Enable   bool   `yaml:"enable"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

type SQLiteConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

// Default is the benchside configuration used when no file is given:
// tracker address 1 transmitting to station address 2 on the 915 MHz band.
func Default() Config {
	var cfg Config
	_ = DefaultAndValidate(&cfg)
	return cfg
}

// Load reads and validates the file at path. A missing file is the caller's
// call to make (bench runs fall back to Default); a present-but-invalid
// file is always an error.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills unset fields with defaults and rejects
// contradictions. Safe to call more than once.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// GNSS.
	cfg.GNSS.Source = strings.ToLower(strings.TrimSpace(cfg.GNSS.Source))
	if cfg.GNSS.Source == "" {
		cfg.GNSS.Source = "serial"
	}
	switch cfg.GNSS.Source {
	case "serial", "i2c", "sim":
	default:
		return fmt.Errorf("gnss.source must be serial, i2c or sim (got %q)", cfg.GNSS.Source)
	}
	if cfg.GNSS.Device == "" {
		cfg.GNSS.Device = "/dev/ttyAMA0"
	}
	if cfg.GNSS.Baud == 0 {
		cfg.GNSS.Baud = 9600
	}
	if cfg.GNSS.I2CBus == "" {
		cfg.GNSS.I2CBus = "1"
	}
	if cfg.GNSS.I2CAddr == 0 {
		cfg.GNSS.I2CAddr = 0x42
	}
	if cfg.GNSS.SampleInterval <= 0 {
		cfg.GNSS.SampleInterval = 2 * time.Second
	}

	// Radio.
	if cfg.Radio.Device == "" {
		cfg.Radio.Device = "/dev/ttyUSB0"
	}
	if cfg.Radio.Baud == 0 {
		cfg.Radio.Baud = 115200
	}
	if cfg.Radio.Address == 0 {
		cfg.Radio.Address = 1
	}
	if cfg.Radio.Peer == 0 {
		cfg.Radio.Peer = 2
	}
	if cfg.Radio.Address == cfg.Radio.Peer {
		return fmt.Errorf("radio.address and radio.peer must differ (both %d)", cfg.Radio.Address)
	}
	if cfg.Radio.NetworkID == 0 {
		cfg.Radio.NetworkID = 18
	}
	if cfg.Radio.BandHz == 0 {
		cfg.Radio.BandHz = 915000000
	}
	if cfg.Radio.BandHz < 433000000 || cfg.Radio.BandHz > 915000000 {
		return fmt.Errorf("radio.band_hz %d outside modem range 433000000..915000000", cfg.Radio.BandHz)
	}
	if cfg.Radio.SpreadingFactor == 0 {
		cfg.Radio.SpreadingFactor = 9
	}
	if cfg.Radio.SpreadingFactor < 7 || cfg.Radio.SpreadingFactor > 12 {
		return fmt.Errorf("radio.spreading_factor %d outside 7..12", cfg.Radio.SpreadingFactor)
	}
	if cfg.Radio.Bandwidth == 0 {
		cfg.Radio.Bandwidth = 7
	}
	if cfg.Radio.Bandwidth < 0 || cfg.Radio.Bandwidth > 9 {
		return fmt.Errorf("radio.bandwidth %d outside 0..9", cfg.Radio.Bandwidth)
	}
	if cfg.Radio.CodingRate == 0 {
		cfg.Radio.CodingRate = 1
	}
	if cfg.Radio.CodingRate < 1 || cfg.Radio.CodingRate > 4 {
		return fmt.Errorf("radio.coding_rate %d outside 1..4", cfg.Radio.CodingRate)
	}
	if cfg.Radio.Preamble == 0 {
		cfg.Radio.Preamble = 4
	}
	if cfg.Radio.Preamble < 4 || cfg.Radio.Preamble > 7 {
		return fmt.Errorf("radio.preamble %d outside 4..7", cfg.Radio.Preamble)
	}
	if cfg.Radio.PowerDbm == 0 {
		cfg.Radio.PowerDbm = 15
	}
	if cfg.Radio.PowerDbm < 0 || cfg.Radio.PowerDbm > 15 {
		return fmt.Errorf("radio.power_dbm %d outside 0..15", cfg.Radio.PowerDbm)
	}
	if cfg.Radio.SettleDelay <= 0 {
		cfg.Radio.SettleDelay = 100 * time.Millisecond
	}
	if cfg.Radio.ResponseTimeout <= 0 {
		cfg.Radio.ResponseTimeout = 1 * time.Second
	}

	// Station.
	cfg.Station.Input = strings.ToLower(strings.TrimSpace(cfg.Station.Input))
	if cfg.Station.Input == "" {
		cfg.Station.Input = "serial"
	}
	switch cfg.Station.Input {
	case "serial":
	case "tcp":
		if cfg.Station.TCPAddr == "" {
			return fmt.Errorf("station.tcp_addr is required when station.input is tcp")
		}
	case "replay":
		if cfg.Station.Replay.Path == "" {
			return fmt.Errorf("station.replay.path is required when station.input is replay")
		}
	default:
		return fmt.Errorf("station.input must be serial, tcp or replay (got %q)", cfg.Station.Input)
	}
	if cfg.Station.Replay.Speed == 0 {
		cfg.Station.Replay.Speed = 1
	}
	if cfg.Station.Replay.Speed < 0 {
		return fmt.Errorf("station.replay.speed must be > 0")
	}
	if cfg.Station.Capture.Enable {
		if cfg.Station.Capture.Path == "" {
			return fmt.Errorf("station.capture.path is required when station.capture.enable is true")
		}
		if cfg.Station.Input == "replay" {
			return fmt.Errorf("station.capture cannot be used with station.input=replay")
		}
	}

	// Outputs.
	if cfg.Outputs.UDP.Enable && cfg.Outputs.UDP.Dest == "" {
		return fmt.Errorf("outputs.udp.dest is required when outputs.udp.enable is true")
	}
	if cfg.Outputs.MQTT.Enable {
		if cfg.Outputs.MQTT.Broker == "" {
			return fmt.Errorf("outputs.mqtt.broker is required when outputs.mqtt.enable is true")
		}
		if cfg.Outputs.MQTT.Topic == "" {
			cfg.Outputs.MQTT.Topic = "telemetry/position"
		}
		if cfg.Outputs.MQTT.ClientID == "" {
			cfg.Outputs.MQTT.ClientID = "lora-station"
		}
	}
	if cfg.Outputs.SQLite.Enable && cfg.Outputs.SQLite.Path == "" {
		return fmt.Errorf("outputs.sqlite.path is required when outputs.sqlite.enable is true")
	}

	// Web.
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}

	return nil
}
