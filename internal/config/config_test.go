package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestDefault_MatchesBuiltInConstants(t *testing.T) {
	cfg := Default()
	if cfg.Serial.Device == "" {
		t.Fatalf("expected default device")
	}
	if cfg.Serial.Baud != 9600 {
		t.Fatalf("baud=%d want 9600", cfg.Serial.Baud)
	}
	if cfg.Serial.ReadTimeout != 1*time.Second {
		t.Fatalf("read_timeout=%s want 1s", cfg.Serial.ReadTimeout)
	}
	if cfg.Loop.PollInterval != 100*time.Millisecond {
		t.Fatalf("poll_interval=%s want 100ms", cfg.Loop.PollInterval)
	}
	if cfg.Loop.SettleDelay != 500*time.Millisecond {
		t.Fatalf("settle_delay=%s want 500ms", cfg.Loop.SettleDelay)
	}
	if cfg.Loop.Trigger != TriggerOnUpdate {
		t.Fatalf("trigger=%q want %q", cfg.Loop.Trigger, TriggerOnUpdate)
	}
	if cfg.Parser.XLabel != "startx=" || cfg.Parser.YLabel != "starty=" {
		t.Fatalf("labels=%q/%q", cfg.Parser.XLabel, cfg.Parser.YLabel)
	}
	if cfg.Inject.Backend != BackendRobotgo || cfg.Inject.Key != "enter" {
		t.Fatalf("inject=%+v", cfg.Inject)
	}
	if !cfg.LogRawLines() {
		t.Fatalf("expected raw line logging by default")
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Serial.Baud != 9600 || cfg.Loop.Trigger != TriggerOnUpdate {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_OverridesApplied(t *testing.T) {
	path := writeTempConfig(t, `serial:
  device: /dev/ttyUSB1
  baud: 115200
  read_timeout: 250ms
loop:
  poll_interval: 20ms
  settle_delay: 1s
  trigger: EVERY_LINE
parser:
  x_label: "lat="
  y_label: "lon="
inject:
  backend: dryrun
log:
  raw_lines: false
capture:
  record_path: " ./cap.log "
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Serial.Device != "/dev/ttyUSB1" || cfg.Serial.Baud != 115200 || cfg.Serial.ReadTimeout != 250*time.Millisecond {
		t.Fatalf("serial=%+v", cfg.Serial)
	}
	if cfg.Loop.PollInterval != 20*time.Millisecond || cfg.Loop.SettleDelay != time.Second {
		t.Fatalf("loop=%+v", cfg.Loop)
	}
	if cfg.Loop.Trigger != TriggerEveryLine {
		t.Fatalf("trigger=%q", cfg.Loop.Trigger)
	}
	if cfg.Parser.XLabel != "lat=" || cfg.Parser.YLabel != "lon=" {
		t.Fatalf("parser=%+v", cfg.Parser)
	}
	if cfg.Inject.Backend != BackendDryRun {
		t.Fatalf("backend=%q", cfg.Inject.Backend)
	}
	if cfg.LogRawLines() {
		t.Fatalf("expected raw_lines=false to survive defaults")
	}
	if cfg.Capture.RecordPath != "./cap.log" {
		t.Fatalf("record_path=%q", cfg.Capture.RecordPath)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "NegativeBaud",
			body: "serial:\n  baud: -1\n",
			want: "serial.baud must be > 0",
		},
		{
			name: "NegativeReadTimeout",
			body: "serial:\n  read_timeout: -1s\n",
			want: "serial.read_timeout must be > 0",
		},
		{
			name: "NegativeSettle",
			body: "loop:\n  settle_delay: -5ms\n",
			want: "loop.settle_delay must be >= 0",
		},
		{
			name: "ZeroPollInterval",
			body: "loop:\n  poll_interval: 0s\n",
			want: "loop.poll_interval must be > 0",
		},
		{
			name: "BadTrigger",
			body: "loop:\n  trigger: sometimes\n",
			want: "loop.trigger must be one of on_update, every_line",
		},
		{
			name: "MissingXLabel",
			body: "parser:\n  y_label: \"y=\"\n",
			want: "parser.x_label is required",
		},
		{
			name: "MissingYLabel",
			body: "parser:\n  x_label: \"x=\"\n",
			want: "parser.y_label is required",
		},
		{
			name: "SameLabels",
			body: "parser:\n  x_label: \"v=\"\n  y_label: \"v=\"\n",
			want: "parser labels must differ",
		},
		{
			name: "BadBackend",
			body: "inject:\n  backend: xdotool\n",
			want: "inject.backend must be one of robotgo, dryrun",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.body)
			_, err := Load(path)
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_ZeroSettleDelayDisablesSettle(t *testing.T) {
	path := writeTempConfig(t, "loop:\n  settle_delay: 0s\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Loop.SettleDelay != 0 {
		t.Fatalf("settle_delay=%s want 0", cfg.Loop.SettleDelay)
	}
	if cfg.Loop.PollInterval != 100*time.Millisecond {
		t.Fatalf("poll_interval=%s want default 100ms", cfg.Loop.PollInterval)
	}
}

func TestLoad_PartialLoopKeepsOtherDefaults(t *testing.T) {
	path := writeTempConfig(t, "loop:\n  trigger: every_line\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Loop.SettleDelay != 500*time.Millisecond || cfg.Loop.PollInterval != 100*time.Millisecond {
		t.Fatalf("loop=%+v", cfg.Loop)
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "serial:\n  device: COM4\n  parity: even\n")
	_, err := Load(path)
	requireErrEq(t, err, "config contains unknown fields: field parity not found in type config.SerialConfig")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("expected error")
	}
}
