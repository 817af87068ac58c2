package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/markerctl/internal/actuator"
	"github.com/ironsheep/markerctl/internal/capture"
	"github.com/ironsheep/markerctl/internal/config"
	"github.com/ironsheep/markerctl/internal/dispatch"
	"github.com/ironsheep/markerctl/internal/journal"
	"github.com/ironsheep/markerctl/internal/logging"
	"github.com/ironsheep/markerctl/internal/pipeline"
	"github.com/ironsheep/markerctl/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

type flags struct {
	source      *string
	interval    *int
	loop        *bool
	colors      *string
	mapping     *string
	tuning      *string
	actuator    *string
	serialPort  *string
	baud        *int
	relayPins   *string
	ledPin      *string
	relayActive *string
	journal     *string
	mcp         *bool
	headless    *bool
	preview     *string
	watch       *bool
	version     *bool
}

// Relay boards switch on with the pin driven low unless --relay-active high.
const (
	relayActiveLow  = "low"
	relayActiveHigh = "high"
)

func newParser() (*argparse.Parser, flags) {
	parser := argparse.NewParser("markerctl", "Detect colored shape markers and fire coded actions")
	f := flags{
		source:      parser.String("s", "source", &argparse.Options{Help: "Frame source: a directory of frames, an image file, or webcam:N", Default: ""}),
		interval:    parser.Int("", "interval", &argparse.Options{Help: "Minimum milliseconds between frames from a file source; frames that arrive faster than they are processed are dropped", Default: 100}),
		loop:        parser.Flag("", "loop", &argparse.Options{Help: "Replay a frame directory forever", Default: false}),
		colors:      parser.String("", "colors", &argparse.Options{Help: "Color profiles file", Default: "colors.json"}),
		mapping:     parser.String("", "mapping", &argparse.Options{Help: "Color/shape to action code mapping file", Default: "mapping.json"}),
		tuning:      parser.String("", "tuning", &argparse.Options{Help: "Tuning file", Default: "tuning.json"}),
		actuator:    parser.String("a", "actuator", &argparse.Options{Help: "Actuator: serial, relay or log", Default: "log"}),
		serialPort:  parser.String("", "serial-port", &argparse.Options{Help: "Serial device for the serial actuator", Default: "/dev/ttyUSB0"}),
		baud:        parser.Int("", "baud", &argparse.Options{Help: "Serial baud rate", Default: 9600}),
		relayPins:   parser.String("", "relay-pins", &argparse.Options{Help: "Comma-separated GPIO names for the strobe and three data relays", Default: "GPIO17,GPIO27,GPIO22,GPIO23"}),
		ledPin:      parser.String("", "led-pin", &argparse.Options{Help: "GPIO name of the test LED", Default: ""}),
		relayActive: parser.Selector("", "relay-active", []string{relayActiveLow, relayActiveHigh}, &argparse.Options{Help: "Pin level that switches a relay on: low or high", Default: relayActiveLow}),
		journal:     parser.String("", "journal", &argparse.Options{Help: "SQLite file recording every dispatch", Default: ""}),
		mcp:         parser.Flag("", "mcp", &argparse.Options{Help: "Serve MCP control tools on stdin/stdout", Default: false}),
		headless:    parser.Flag("", "headless", &argparse.Options{Help: "Do not annotate frames or log per-frame results", Default: false}),
		preview:     parser.String("", "preview", &argparse.Options{Help: "Write the latest annotated frame to this image file", Default: ""}),
		watch:       parser.Flag("", "watch", &argparse.Options{Help: "Reload configuration files when they change", Default: false}),
		version:     parser.Flag("v", "version", &argparse.Options{Help: "Print version information", Default: false}),
	}
	return parser, f
}

func main() {
	parser, f := newParser()
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if *f.version {
		fmt.Printf("markerctl %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}
	if *f.source == "" && !*f.mcp {
		fmt.Print(parser.Usage("nothing to do: give --source, --mcp or both"))
		os.Exit(1)
	}

	log := newLog(*f.mcp)
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, f, log); err != nil {
		log.Criticalf("%v", err)
		os.Exit(1)
	}
}

// inverseLogic reports whether relays are active-low.
func (f flags) inverseLogic() bool {
	return *f.relayActive == relayActiveLow
}

// newLog returns the process logger. In MCP mode stdout carries the
// protocol, so logs go to stderr.
func newLog(mcp bool) logs.Log {
	var base logs.Log
	if mcp {
		base = &logs.Logger{Output: os.Stderr}
	} else {
		l, err := logs.NewLog()
		if err != nil {
			base = &logs.Logger{Output: os.Stderr}
		} else {
			base = l
		}
	}
	return logging.NewFilter(base, logging.LevelFromEnv())
}

func run(ctx context.Context, f flags, log logs.Log) error {
	snap, err := loadSnapshot(f, log)
	if err != nil {
		return err
	}

	act, err := openActuator(ctx, f, log)
	if err != nil {
		return err
	}
	defer act.Close()

	dopts := dispatch.Options{}
	var jrnl *journal.Journal
	if *f.journal != "" {
		jrnl, err = journal.Open(*f.journal)
		if err != nil {
			return err
		}
		defer jrnl.Close()
		dopts.Recorder = jrnl
		log.Infof("journal: %s, run %s", *f.journal, jrnl.RunID())
	}

	actions := func(codes []string) dispatch.Registry {
		return actuator.Actions(act, codes)
	}
	disp := dispatch.New(log, actions(snap.Mapping.Codes()), snap.Tuning.Cooldown.Std(), dopts)
	pipe, err := pipeline.New(log, snap, disp, pipeline.Options{Actions: actions})
	if err != nil {
		return err
	}

	if *f.watch {
		if err := startWatcher(ctx, f, pipe, log); err != nil {
			return err
		}
	}

	errs := make(chan error, 2)
	running := 0

	if *f.source != "" {
		src, err := capture.Open(*f.source, capture.Options{
			Interval: time.Duration(*f.interval) * time.Millisecond,
			Loop:     *f.loop,
		})
		if err != nil {
			return err
		}
		defer src.Close()

		runner := &pipeline.Runner{Pipeline: pipe, Log: log, OnResult: frameReporter(f, log)}
		running++
		go func() {
			err := runner.Run(ctx, src)
			if errors.Is(err, context.Canceled) {
				err = nil
			} else if err == nil {
				log.Infof("source %s finished", *f.source)
			}
			errs <- err
		}()
	}

	if *f.mcp {
		srv := server.New(log, pipe, server.Options{
			Version: Version,
			Files: server.Files{
				Colors:  *f.colors,
				Mapping: *f.mapping,
				Tuning:  *f.tuning,
			},
			Journal:  jrnl,
			Actuator: act,
			Headless: *f.headless,
		})
		running++
		go func() {
			errs <- srv.Run(ctx, os.Stdin, os.Stdout)
		}()
	}

	// The MCP server keeps the process alive after a finite source ends.
	for ; running > 0; running-- {
		select {
		case err := <-errs:
			if err != nil {
				return err
			}
			if !*f.mcp {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

func frameReporter(f flags, log logs.Log) func(*pipeline.FrameResult) {
	return func(fr *pipeline.FrameResult) {
		if !*f.headless && len(fr.Codes) > 0 {
			log.Infof("frame %d: %v (%v)", fr.Seq, fr.Codes, fr.Elapsed.Round(time.Millisecond))
		}
		if *f.preview != "" && fr.Annotated != nil {
			if err := imaging.Save(fr.Annotated, *f.preview); err != nil {
				log.Warnf("preview: %v", err)
			}
		}
	}
}

func loadSnapshot(f flags, log logs.Log) (pipeline.Snapshot, error) {
	profiles, err := loadProfiles(*f.colors, log)
	if err != nil {
		return pipeline.Snapshot{}, err
	}
	mapping, err := loadMapping(*f.mapping, log)
	if err != nil {
		return pipeline.Snapshot{}, err
	}
	tuning, err := loadTuning(*f.tuning, *f.headless, log)
	if err != nil {
		return pipeline.Snapshot{}, err
	}
	return pipeline.Snapshot{Profiles: profiles, Mapping: mapping, Tuning: tuning}, nil
}

func loadProfiles(path string, log logs.Log) (config.Profiles, error) {
	ps, err := config.LoadProfiles(path, log)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warnf("config: %s not found, using default colors", path)
		return config.DefaultProfiles(), nil
	}
	return ps, err
}

func loadMapping(path string, log logs.Log) (config.ActionMapping, error) {
	m, err := config.LoadMapping(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warnf("config: %s not found, using default mapping", path)
		return config.DefaultMapping(), nil
	}
	return m, err
}

func loadTuning(path string, headless bool, log logs.Log) (config.Tuning, error) {
	t, err := config.LoadTuning(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Infof("config: %s not found, using default tuning", path)
		t, err = config.DefaultTuning(), nil
	}
	if headless {
		t.Annotate = false
	}
	return t, err
}

// startWatcher reloads each configuration file into the pipeline when it
// changes. A file that fails to load leaves the running configuration alone.
func startWatcher(ctx context.Context, f flags, pipe *pipeline.Pipeline, log logs.Log) error {
	w, err := config.NewWatcher(log, 0)
	if err != nil {
		return err
	}

	reload := func(what string, apply func() error) func() {
		return func() {
			if err := apply(); err != nil {
				log.Warnf("config: reloading %s: %v", what, err)
				return
			}
			log.Infof("config: reloaded %s", what)
		}
	}

	adds := []struct {
		path string
		fn   func()
	}{
		{*f.colors, reload("colors", func() error {
			ps, err := config.LoadProfiles(*f.colors, log)
			if err != nil {
				return err
			}
			return pipe.SetProfiles(ps)
		})},
		{*f.mapping, reload("mapping", func() error {
			m, err := config.LoadMapping(*f.mapping)
			if err != nil {
				return err
			}
			return pipe.SetMapping(m)
		})},
		{*f.tuning, reload("tuning", func() error {
			t, err := config.LoadTuning(*f.tuning)
			if err != nil {
				return err
			}
			if *f.headless {
				t.Annotate = false
			}
			return pipe.SetTuning(t)
		})},
	}
	for _, a := range adds {
		if err := w.Add(a.path, a.fn); err != nil {
			w.Close()
			return err
		}
	}

	go func() {
		defer w.Close()
		if err := w.Run(ctx); err != nil {
			log.Errorf("config: watcher: %v", err)
		}
	}()
	return nil
}

func openActuator(ctx context.Context, f flags, log logs.Log) (actuator.Actuator, error) {
	kind, err := actuator.ParseKind(*f.actuator)
	if err != nil {
		return nil, err
	}

	switch kind {
	case actuator.KindSerial:
		s, err := actuator.OpenSerial(ctx, *f.serialPort, actuator.PortOptions{
			BaudRate: *f.baud,
			Settle:   2 * time.Second,
		}, log)
		if err != nil {
			return nil, err
		}
		return s, nil

	case actuator.KindRelay:
		var names []string
		for _, n := range strings.Split(*f.relayPins, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		b, err := actuator.OpenRelayBank(names, *f.ledPin, actuator.RelayOptions{InverseLogic: f.inverseLogic()}, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return actuator.NewLogger(log), nil
}
