package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/surgisim/fusion/internal/api"
	"github.com/surgisim/fusion/internal/config"
	"github.com/surgisim/fusion/internal/database"
	"github.com/surgisim/fusion/internal/dispatcher"
	"github.com/surgisim/fusion/internal/influx"
	"github.com/surgisim/fusion/internal/logging"
	"github.com/surgisim/fusion/internal/recorder"
	"github.com/surgisim/fusion/internal/recorder/influxstore"
	"github.com/surgisim/fusion/internal/recorder/memory"
	"github.com/surgisim/fusion/internal/recorder/sqlstore"
)

func initRecorder(ctx context.Context) error {
	rcfg := config.GetRecorderConfig()

	backend, err := createRecorderBackend(rcfg)
	if err != nil {
		return err
	}
	if backend == nil {
		Logger.Info("Recording disabled")
		return nil
	}
	if err := backend.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize %s recorder: %w", rcfg.Type, err)
	}
	recorderBackend = backend
	Logger.Info("Recorder initialized", "type", rcfg.Type, "session", rcfg.SessionName)
	return nil
}

func createRecorderBackend(rcfg config.RecorderConfig) (recorder.Backend, error) {
	switch rcfg.Type {
	case "", "none":
		return nil, nil

	case "memory":
		return memory.New(rcfg.Memory), nil

	case "sqlite", "postgres":
		dbLog := logging.NewStorageLogger(storageLogWriter(), config.GetString("logLevel"), "database")
		return sqlstore.New(sqlstore.Config{
			SessionName:   rcfg.SessionName,
			FlushInterval: rcfg.FlushInterval,
			DumpInterval:  rcfg.DumpInterval,
		}, database.NewManager(dbLog, rcfg.DB), Logger.With("component", "sqlstore")), nil

	case "influx":
		influxLog := logging.Sampled(logging.NewStorageLogger(storageLogWriter(), config.GetString("logLevel"), "influx"))
		return influxstore.New(influx.NewManager(influxLog, rcfg.Influx, rcfg.InfluxBackup), rcfg.SessionName), nil

	default:
		return nil, fmt.Errorf("unknown recorder %q", rcfg.Type)
	}
}

// storageLogWriter sends storage manager logs to the session log file.
func storageLogWriter() io.Writer {
	switch {
	case LogFile != nil:
		return LogFile
	case config.GetRenderConfig().Backend == "terminal":
		return io.Discard
	}
	return nil
}

// attachRecorder routes published frames to the backend through a buffered
// dispatcher queue so slow storage never holds up a frame. Backend errors
// are logged and counted by the dispatcher.
func attachRecorder() {
	if recorderBackend == nil {
		return
	}
	rcfg := config.GetRecorderConfig()
	eventDispatcher.Register(recorder.EventKind, recorder.Handler(recorderBackend),
		dispatcher.Buffered(rcfg.Buffer), dispatcher.Logged())
}

func closeRecorder(ctx context.Context) {
	if eventDispatcher != nil {
		eventDispatcher.Close()
	}
	if recorderBackend == nil {
		return
	}
	if err := recorderBackend.Close(); err != nil {
		Logger.Error("Failed to close recorder", "error", err)
	}

	mem, ok := recorderBackend.(*memory.Backend)
	if !ok {
		return
	}
	path := mem.GetExportedFilePath()
	if path == "" {
		return
	}
	Logger.Info("Session exported", "path", path)

	rcfg := config.GetRecorderConfig()
	if !rcfg.Upload {
		return
	}
	if apiClient == nil {
		acfg := config.GetAPIConfig()
		apiClient = api.New(acfg.ServerURL, acfg.APIKey)
	}
	samples := mem.Samples()
	meta := api.UploadMetadata{
		SessionName: rcfg.SessionName,
		Topic:       config.GetString("telemetry.topic"),
		Frames:      uint64(len(samples)),
	}
	if len(samples) > 1 {
		meta.Duration = samples[len(samples)-1].Time.Sub(samples[0].Time)
	}

	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
	defer cancel()
	if err := apiClient.Upload(uploadCtx, path, meta); err != nil {
		Logger.Error("Failed to upload session", "path", path, "error", err)
		return
	}
	Logger.Info("Session uploaded", "path", path)
}
