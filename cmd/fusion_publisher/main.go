package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/surgisim/fusion/internal/api"
	"github.com/surgisim/fusion/internal/config"
	"github.com/surgisim/fusion/internal/control"
	"github.com/surgisim/fusion/internal/dispatcher"
	"github.com/surgisim/fusion/internal/engine"
	"github.com/surgisim/fusion/internal/logging"
	"github.com/surgisim/fusion/internal/meshload"
	"github.com/surgisim/fusion/internal/monitor"
	intOtel "github.com/surgisim/fusion/internal/otel"
	"github.com/surgisim/fusion/internal/publisher"
	"github.com/surgisim/fusion/internal/recorder"
	"github.com/surgisim/fusion/internal/scene"
	"github.com/surgisim/fusion/internal/transport"
)

// BuildDate can be set at build time via ldflags.
var (
	CurrentVersion = "0.0.1"
	BuildDate      = "unknown"

	AppName = "fusion_publisher"
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	LogFile     *os.File

	SessionStartTime = time.Now()

	// Services
	framePublisher  *publisher.Publisher
	outbound        transport.Publisher
	eventDispatcher *dispatcher.Dispatcher
	recorderBackend recorder.Backend
	monitorService  *monitor.Service
	apiClient       *api.Client
)

type options struct {
	configDir string
	logLevel  string
	backend   string
	frames    int
	transport string
	url       string
	recorder  string
	session   string
	version   bool
}

func parseFlags(args []string) (*pflag.FlagSet, options, error) {
	var o options
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.StringVarP(&o.configDir, "config", "c", ".", "directory containing "+config.FileName)
	fs.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVarP(&o.backend, "backend", "b", "headless", "render backend: headless, window, terminal")
	fs.IntVarP(&o.frames, "frames", "n", 600, "frames to run with the headless backend, 0 runs until interrupted")
	fs.StringVarP(&o.transport, "transport", "t", "websocket", "telemetry transport: websocket, bus")
	fs.StringVar(&o.url, "url", "ws://localhost:5000/ws", "relay websocket URL")
	fs.StringVarP(&o.recorder, "recorder", "r", "none", "recorder: none, memory, sqlite, postgres, influx")
	fs.StringVarP(&o.session, "session", "s", "fusion", "recording session name")
	fs.BoolVarP(&o.version, "version", "v", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, o, err
	}
	return fs, o, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs, opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Printf("%s %s (%s)\n", AppName, CurrentVersion, BuildDate)
		return nil
	}

	bootstrapLogging(logging.Options{Level: opts.logLevel}, os.Stderr)

	if err := config.Load(opts.configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", opts.configDir)
	}
	if err := config.BindFlags(fs); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine()
	if err != nil {
		return err
	}

	if err := initLogging(eng); err != nil {
		return err
	}
	defer closeLogging()

	Logger.Info("Starting up", "version", CurrentVersion, "buildDate", BuildDate)

	if err := initTransport(ctx); err != nil {
		return err
	}
	defer closeTransport()

	if err := attachPublisher(eng); err != nil {
		return err
	}

	if err := initRecorder(ctx); err != nil {
		Logger.Error("Recorder disabled", "error", err)
	}
	defer closeRecorder(ctx)
	attachRecorder()

	initMonitor(eng)
	defer closeMonitor()

	return runRender(ctx, eng)
}

// bootstrapLogging installs stdout logging until the config is loaded.
// Setup errors go to errOut since no logger is available yet.
func bootstrapLogging(opts logging.Options, errOut io.Writer) {
	SlogManager = logging.NewSlogManager()
	if err := SlogManager.Setup(opts); err != nil {
		fmt.Fprintf(errOut, "setup logging: %v\n", err)
	}
	Logger = SlogManager.Logger()
}

// buildEngine creates the scene and controller. The publisher is attached
// after the transport is up.
func buildEngine() (*engineHandle, error) {
	setup, err := config.GetSceneConfig()
	if err != nil {
		return nil, fmt.Errorf("scene config: %w", err)
	}
	tcfg, err := config.GetTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("telemetry config: %w", err)
	}
	keymap, err := config.GetKeymap()
	if err != nil {
		return nil, err
	}

	return &engineHandle{
		setup:     setup,
		telemetry: tcfg,
		keymap:    keymap,
		control:   control.New(config.GetControlConfig()),
	}, nil
}

func initLogging(h *engineHandle) error {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		os.Rename(LogFilePath, LogFilePath+".old")
	}
	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		otelPath := filepath.Join(logsDir, fmt.Sprintf("%s.otel.%s.jsonl", AppName, SessionStartTime.Format("20060102_150405")))
		otelFile, err := os.Create(otelPath)
		if err != nil {
			Logger.Warn("Failed to create OTel log file, OTel disabled", "error", err)
			otelCfg.Enabled = false
		} else {
			otelCfg.LogWriter = otelFile
		}
	}
	OTelProvider, err = intOtel.New(otelCfg)
	if err != nil {
		Logger.Warn("Failed to initialize OTel provider", "error", err)
		OTelProvider, _ = intOtel.New(intOtel.Config{})
	}

	var graylog string
	if config.GetBool("graylog.enabled") {
		graylog = config.GetString("graylog.address")
	}

	logOpts := logging.Options{
		Level:          config.GetString("logLevel"),
		Provider:       OTelProvider.LoggerProvider(),
		GraylogAddress: graylog,
		Context:        logging.FrameContext(&h.frames),
	}
	switch {
	case LogFile != nil:
		logOpts.File = LogFile
	case config.GetRenderConfig().Backend == "terminal":
		// the terminal backend owns stdout
		logOpts.File = io.Discard
	}
	if err := SlogManager.Setup(logOpts); err != nil {
		SlogManager.Logger().Warn("Graylog output disabled", "error", err)
	}
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)
	return nil
}

func closeLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	Logger.Info("Shutting down")
	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "flush logs: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "otel shutdown: %v\n", err)
		}
	}
	if err := SlogManager.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close logging: %v\n", err)
	}
	if LogFile != nil {
		LogFile.Close()
	}
}

func attachPublisher(h *engineHandle) error {
	var err error
	framePublisher, err = publisher.New(outbound, Logger.With("component", "publisher"))
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}

	eventDispatcher, err = dispatcher.New(Logger.With("component", "dispatcher"))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	s := scene.Build(h.setup, func(path string) meshload.Set {
		return meshload.LoadOrEmpty(Logger, path)
	})
	rcfg := config.GetRenderConfig()
	var step time.Duration
	if rcfg.FPS > 0 {
		step = time.Second / time.Duration(rcfg.FPS)
	}

	h.engine, err = engine.New(engine.Dependencies{
		Scene:         s,
		Controller:    h.control,
		Publisher:     framePublisher,
		Recorder:      eventDispatcher,
		Telemetry:     h.telemetry.Options,
		Logger:        Logger.With("component", "engine"),
		FrameInterval: step,
		Counter:       &h.frames,
	})
	return err
}

func initMonitor(h *engineHandle) {
	mcfg := config.GetMonitorConfig()
	if !mcfg.Enabled {
		return
	}

	deps := monitor.Dependencies{
		Logger:     Logger.With("component", "monitor"),
		StatusFile: mcfg.StatusFile,
		Interval:   mcfg.Interval,
		Frame:      h.engine.Counter().Load,
		Publisher:  framePublisher,
		Dispatcher: eventDispatcher,
	}
	if ts, ok := outbound.(monitor.TransportStats); ok {
		deps.Transport = ts
	}
	if dc, ok := recorderBackend.(monitor.DropCounter); ok {
		deps.Recorder = dc
	}

	monitorService = monitor.NewService(deps)
	if err := monitorService.Start(); err != nil {
		Logger.Error("Failed to start status monitor", "error", err)
		monitorService = nil
	}
}

func closeMonitor() {
	if monitorService != nil {
		monitorService.Stop()
	}
}
