package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gps-bridge/internal/bridge"
	"gps-bridge/internal/capture"
	"gps-bridge/internal/config"
	"gps-bridge/internal/coords"
	"gps-bridge/internal/inject"
	"gps-bridge/internal/serialport"
)

type options struct {
	configPath string
	device     string
	baud       int
	dryRun     bool
	replayPath string
	listPorts  bool
	summarize  string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to YAML config (optional)")
	flag.StringVar(&opts.device, "device", "", "Serial device, overrides config ('auto' picks the first port)")
	flag.IntVar(&opts.baud, "baud", 0, "Serial baud rate, overrides config")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Log keystrokes instead of sending them")
	flag.StringVar(&opts.replayPath, "replay", "", "Read device lines from a capture file instead of the serial port")
	flag.BoolVar(&opts.listPorts, "list", false, "List serial ports and exit")
	flag.StringVar(&opts.summarize, "summarize", "", "Print a summary of a capture file and exit")
	flag.Parse()

	if opts.listPorts {
		if err := printPorts(); err != nil {
			log.Fatalf("list ports failed: %v", err)
		}
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if opts.summarize != "" {
		parser, err := coords.NewParser(cfg.Parser.XLabel, cfg.Parser.YLabel)
		if err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
		if err := printCaptureSummary(os.Stdout, opts.summarize, parser); err != nil {
			log.Fatalf("summarize failed: %v", err)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, opts.replayPath); err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
	}
	if d := strings.TrimSpace(opts.device); d != "" {
		cfg.Serial.Device = d
	}
	if opts.baud < 0 {
		return config.Config{}, fmt.Errorf("-baud must be > 0")
	}
	if opts.baud > 0 {
		cfg.Serial.Baud = opts.baud
	}
	if opts.dryRun {
		cfg.Inject.Backend = config.BackendDryRun
	}
	return cfg, nil
}

// lineSource is what run needs from the serial port or a capture replay.
type lineSource interface {
	bridge.LineSource
	Close() error
}

func run(ctx context.Context, cfg config.Config, replayPath string) error {
	log.Printf("gps-bridge starting: microcontroller coordinates to map program")
	log.Printf("press Ctrl+C to exit")

	parser, err := coords.NewParser(cfg.Parser.XLabel, cfg.Parser.YLabel)
	if err != nil {
		return err
	}
	kb, err := inject.New(cfg.Inject.Backend)
	if err != nil {
		return err
	}
	injector, err := inject.NewInjector(kb, cfg.Inject.Key)
	if err != nil {
		return err
	}

	src, err := openSource(cfg, replayPath)
	if err != nil {
		var ce *serialport.ConnectionError
		if errors.As(err, &ce) {
			log.Printf("failed to connect to device, exiting")
		}
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Printf("%s close failed: %v", sourceKind(src), err)
			return
		}
		log.Printf("%s connection closed", sourceKind(src))
	}()

	runner, err := bridge.New(bridge.Config{
		PollInterval: cfg.Loop.PollInterval,
		SettleDelay:  cfg.Loop.SettleDelay,
		Trigger:      cfg.Loop.Trigger,
		LogRawLines:  cfg.LogRawLines(),
	}, src, coords.NewTracker(parser), injector)
	if err != nil {
		return err
	}

	if cfg.Capture.RecordPath != "" {
		w, err := capture.CreateWriter(cfg.Capture.RecordPath, time.Now())
		if err != nil {
			return fmt.Errorf("capture open failed: %w", err)
		}
		defer w.Close()
		runner.SetRecorder(w)
		log.Printf("recording device lines path=%s", cfg.Capture.RecordPath)
	}

	err = runner.Run(ctx)
	st := runner.Stats()
	log.Printf("lines=%d coordinate_lines=%d sends=%d send_errors=%d", st.Lines, st.CoordinateLines, st.Sends, st.SendErrors)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		log.Printf("terminated by user")
	}
	return nil
}

// sourceKind names the input for shutdown logging.
func sourceKind(src lineSource) string {
	if _, ok := src.(*capture.Source); ok {
		return "replay"
	}
	return "serial"
}

func openSource(cfg config.Config, replayPath string) (lineSource, error) {
	if replayPath != "" {
		recs, err := capture.ReadFile(replayPath)
		if err != nil {
			return nil, fmt.Errorf("replay load failed: %w", err)
		}
		src, err := capture.NewSource(recs, 1, nil)
		if err != nil {
			return nil, fmt.Errorf("replay load failed: %w", err)
		}
		log.Printf("replaying capture path=%s lines=%d", replayPath, src.Len())
		return src, nil
	}

	src, err := serialport.Open(serialport.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("serial connected device=%s baud=%d", src.Device(), src.Baud())
	return src, nil
}

func printPorts() error {
	ports, err := serialport.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}
