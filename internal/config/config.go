package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "fusion_publisher.cfg.json"

// setDefaults registers every known key.
func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("render.backend", "headless")
	viper.SetDefault("render.frames", 600)
	viper.SetDefault("render.fps", 60)
	viper.SetDefault("render.width", 1280)
	viper.SetDefault("render.height", 720)

	viper.SetDefault("scene.modelsDir", ".")
	viper.SetDefault("scene.pivot", []float64{-100, 49, -9})
	viper.SetDefault("scene.target", []float64{-34, 24, -30})

	viper.SetDefault("control.positionStep", 0.4)
	viper.SetDefault("control.rotationStep", 1.0)
	viper.SetDefault("control.targetStep", 0.5)
	viper.SetDefault("control.insertSpeed", 40.0)
	viper.SetDefault("control.cameraSpeed", 20.0)

	viper.SetDefault("telemetry.topic", "fusion")
	viper.SetDefault("telemetry.mirrorX", false)
	viper.SetDefault("telemetry.swapRongeurXY", false)

	viper.SetDefault("transport.type", "websocket")
	viper.SetDefault("transport.websocket.url", "ws://localhost:5000/ws")
	viper.SetDefault("transport.websocket.secret", "")
	viper.SetDefault("transport.websocket.buffer", 10000)
	viper.SetDefault("transport.websocket.retry", "1s")
	viper.SetDefault("transport.bus.buffer", 64)

	viper.SetDefault("recorder.type", "none")
	viper.SetDefault("recorder.sessionName", "fusion")
	viper.SetDefault("recorder.buffer", 1024)
	viper.SetDefault("recorder.memory.outputDir", "./recordings")
	viper.SetDefault("recorder.memory.compressOutput", true)
	viper.SetDefault("recorder.memory.maxFrames", 0)
	viper.SetDefault("recorder.memory.upload", false)
	viper.SetDefault("recorder.sqlite.path", "./recordings/fusion.db")
	viper.SetDefault("recorder.sqlite.dumpInterval", "3m")
	viper.SetDefault("recorder.flushInterval", "500ms")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "fusion")

	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "fusion-metrics")
	viper.SetDefault("influx.retentionDays", 90)
	viper.SetDefault("influx.backupPath", "./recordings/influx_backup.log.gz")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.interval", "1s")
	viper.SetDefault("monitor.statusFile", "./status.txt")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "fusion-publisher")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "1m")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// LoadDefaults registers defaults without reading a file.
func LoadDefaults() {
	setDefaults()
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level": "logLevel",
	"backend":   "render.backend",
	"frames":    "render.frames",
	"transport": "transport.type",
	"url":       "transport.websocket.url",
	"recorder":  "recorder.type",
	"session":   "recorder.sessionName",
}

// BindFlags binds the flags of fs that have a configuration key. Flags
// override the file when set.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
