package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// TriggerOnUpdate (the default) types the coordinate only when the line
	// just read set x or y. Lines that match neither marker never cause a
	// send, even once both values are known.
	TriggerOnUpdate = "on_update"
	// TriggerEveryLine types the coordinate for every line read once both
	// values are known, including lines that carry neither marker.
	TriggerEveryLine = "every_line"

	BackendRobotgo = "robotgo"
	BackendDryRun  = "dryrun"

	// DeviceAuto resolves to the first serial port reported by the OS.
	DeviceAuto = "auto"
)

type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Loop    LoopConfig    `yaml:"loop"`
	Parser  ParserConfig  `yaml:"parser"`
	Inject  InjectConfig  `yaml:"inject"`
	Log     LogConfig     `yaml:"log"`
	Capture CaptureConfig `yaml:"capture"`
}

type SerialConfig struct {
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type LoopConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	Trigger      string        `yaml:"trigger"`
}

type ParserConfig struct {
	XLabel string `yaml:"x_label"`
	YLabel string `yaml:"y_label"`
}

type InjectConfig struct {
	Backend string `yaml:"backend"`
	Key     string `yaml:"key"`
}

type LogConfig struct {
	// RawLines is a pointer so an explicit false survives defaulting.
	RawLines *bool `yaml:"raw_lines"`
}

type CaptureConfig struct {
	RecordPath string `yaml:"record_path"`
}

// Default returns the built-in configuration used when no file is given.
func Default() Config {
	cfg := newConfig()
	if err := cfg.applyDefaults(); err != nil {
		// Defaults always validate.
		panic(err)
	}
	return cfg
}

// newConfig pre-fills the durations where zero is a meaningful user value, so
// decoding only overwrites keys present in the file.
func newConfig() Config {
	return Config{
		Loop: LoopConfig{
			PollInterval: 100 * time.Millisecond,
			SettleDelay:  500 * time.Millisecond,
		},
	}
}

func defaultDevice() string {
	if runtime.GOOS == "windows" {
		return "COM3"
	}
	return "/dev/ttyACM0"
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := newConfig()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "not found in type") {
			return Config{}, fmt.Errorf("config contains unknown fields: %s", unknownFieldDetail(err))
		}
		return Config{}, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// unknownFieldDetail strips yaml's "yaml: unmarshal errors:\n  line N: " prefix.
func unknownFieldDetail(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": field "); i >= 0 {
		return strings.TrimSpace(msg[i+2:])
	}
	return msg
}

func (cfg *Config) applyDefaults() error {
	cfg.Serial.Device = strings.TrimSpace(cfg.Serial.Device)
	if cfg.Serial.Device == "" {
		cfg.Serial.Device = defaultDevice()
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 9600
	}
	if cfg.Serial.Baud < 0 {
		return fmt.Errorf("serial.baud must be > 0")
	}
	if cfg.Serial.ReadTimeout == 0 {
		cfg.Serial.ReadTimeout = 1 * time.Second
	}
	if cfg.Serial.ReadTimeout < 0 {
		return fmt.Errorf("serial.read_timeout must be > 0")
	}

	if cfg.Loop.PollInterval <= 0 {
		return fmt.Errorf("loop.poll_interval must be > 0")
	}
	// Zero disables the settle delay.
	if cfg.Loop.SettleDelay < 0 {
		return fmt.Errorf("loop.settle_delay must be >= 0")
	}
	cfg.Loop.Trigger = strings.ToLower(strings.TrimSpace(cfg.Loop.Trigger))
	switch cfg.Loop.Trigger {
	case "":
		cfg.Loop.Trigger = TriggerOnUpdate
	case TriggerOnUpdate, TriggerEveryLine:
	default:
		return fmt.Errorf("loop.trigger must be one of %s, %s", TriggerOnUpdate, TriggerEveryLine)
	}

	if cfg.Parser.XLabel == "" && cfg.Parser.YLabel == "" {
		cfg.Parser.XLabel = "startx="
		cfg.Parser.YLabel = "starty="
	}
	if cfg.Parser.XLabel == "" {
		return fmt.Errorf("parser.x_label is required")
	}
	if cfg.Parser.YLabel == "" {
		return fmt.Errorf("parser.y_label is required")
	}
	if cfg.Parser.XLabel == cfg.Parser.YLabel {
		return fmt.Errorf("parser labels must differ")
	}

	cfg.Inject.Backend = strings.ToLower(strings.TrimSpace(cfg.Inject.Backend))
	switch cfg.Inject.Backend {
	case "":
		cfg.Inject.Backend = BackendRobotgo
	case BackendRobotgo, BackendDryRun:
	default:
		return fmt.Errorf("inject.backend must be one of %s, %s", BackendRobotgo, BackendDryRun)
	}
	if strings.TrimSpace(cfg.Inject.Key) == "" {
		cfg.Inject.Key = "enter"
	}

	if cfg.Log.RawLines == nil {
		v := true
		cfg.Log.RawLines = &v
	}

	cfg.Capture.RecordPath = strings.TrimSpace(cfg.Capture.RecordPath)
	return nil
}

// LogRawLines reports whether device lines are echoed to the log.
func (cfg Config) LogRawLines() bool {
	return cfg.Log.RawLines == nil || *cfg.Log.RawLines
}
