package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/viper"

	"github.com/surgisim/fusion/internal/control"
	"github.com/surgisim/fusion/internal/database"
	"github.com/surgisim/fusion/internal/influx"
	"github.com/surgisim/fusion/internal/input"
	"github.com/surgisim/fusion/internal/otel"
	"github.com/surgisim/fusion/internal/recorder/memory"
	"github.com/surgisim/fusion/internal/scene"
	"github.com/surgisim/fusion/internal/telemetry"
	"github.com/surgisim/fusion/internal/transport/websocket"
)

// InstrumentConfig is one entry of scene.instruments.
type InstrumentConfig struct {
	Role     string    `json:"role" mapstructure:"role"`
	Name     string    `json:"name" mapstructure:"name"`
	Model    string    `json:"model" mapstructure:"model"`
	Position []float64 `json:"position" mapstructure:"position"`
	Scale    float64   `json:"scale" mapstructure:"scale"`
}

// CameraConfig is scene.camera.
type CameraConfig struct {
	Position []float64 `json:"position" mapstructure:"position"`
	Yaw      float64   `json:"yaw" mapstructure:"yaw"`
	Pitch    float64   `json:"pitch" mapstructure:"pitch"`
	FOV      float64   `json:"fov" mapstructure:"fov"`
}

// KeyBinding is one entry of keymap.
type KeyBinding struct {
	Key  string   `json:"key" mapstructure:"key"`
	Bind []string `json:"bind" mapstructure:"bind"`
}

// RenderConfig selects the render backend.
type RenderConfig struct {
	Backend string
	Frames  int
	FPS     int
	Width   int
	Height  int
}

// TelemetryConfig holds the topic and frame build options.
type TelemetryConfig struct {
	Topic   string
	Options telemetry.BuildOptions
}

// TransportConfig selects and configures the pub/sub transport.
type TransportConfig struct {
	Type      string
	WebSocket websocket.Config
	BusBuffer int
}

// RecorderConfig configures the optional telemetry recorder.
type RecorderConfig struct {
	Type          string
	SessionName   string
	Buffer        int
	FlushInterval time.Duration
	Memory        memory.Config
	Upload        bool
	DumpInterval  time.Duration
	DB            database.Config
	Influx        influx.Config
	InfluxBackup  string
}

// MonitorConfig configures the status file writer.
type MonitorConfig struct {
	Enabled    bool
	Interval   time.Duration
	StatusFile string
}

// APIConfig addresses the relay web API.
type APIConfig struct {
	ServerURL string
	APIKey    string
}

func vec3(key string) (mgl64.Vec3, error) {
	var v []float64
	if err := viper.UnmarshalKey(key, &v); err != nil {
		return mgl64.Vec3{}, fmt.Errorf("%s: %w", key, err)
	}
	return toVec3(key, v)
}

func toVec3(key string, v []float64) (mgl64.Vec3, error) {
	if len(v) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%s: want 3 components, got %d", key, len(v))
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

// GetSceneConfig returns the startup scene. Instruments and camera replace
// the defaults only when configured.
func GetSceneConfig() (scene.Setup, error) {
	setup := scene.DefaultSetup()
	modelsDir := viper.GetString("scene.modelsDir")

	var err error
	if setup.Pivot, err = vec3("scene.pivot"); err != nil {
		return setup, err
	}
	if setup.Target, err = vec3("scene.target"); err != nil {
		return setup, err
	}

	if viper.IsSet("scene.camera") {
		var cc CameraConfig
		if err := viper.UnmarshalKey("scene.camera", &cc); err != nil {
			return setup, fmt.Errorf("scene.camera: %w", err)
		}
		pos, err := toVec3("scene.camera.position", cc.Position)
		if err != nil {
			return setup, err
		}
		setup.Camera = scene.Camera{Name: "main", Position: pos, Yaw: cc.Yaw, Pitch: cc.Pitch, FOV: cc.FOV}
	}

	if viper.IsSet("scene.instruments") {
		var list []InstrumentConfig
		if err := viper.UnmarshalKey("scene.instruments", &list); err != nil {
			return setup, fmt.Errorf("scene.instruments: %w", err)
		}
		setup.Instruments = setup.Instruments[:0]
		for i, ic := range list {
			role, err := scene.ParseRole(ic.Role)
			if err != nil {
				return setup, fmt.Errorf("scene.instruments[%d]: %w", i, err)
			}
			pos, err := toVec3(fmt.Sprintf("scene.instruments[%d].position", i), ic.Position)
			if err != nil {
				return setup, err
			}
			name := ic.Name
			if name == "" {
				name = string(role)
			}
			setup.Instruments = append(setup.Instruments, scene.InstrumentSetup{
				Role:      role,
				Name:      name,
				ModelPath: ic.Model,
				Position:  pos,
				Scale:     ic.Scale,
			})
		}
	}

	for i := range setup.Instruments {
		p := setup.Instruments[i].ModelPath
		if p != "" && !filepath.IsAbs(p) {
			setup.Instruments[i].ModelPath = filepath.Join(modelsDir, p)
		}
	}
	return setup, nil
}

// GetControlConfig returns the jog magnitudes.
func GetControlConfig() control.Config {
	return control.Config{
		PositionStep: viper.GetFloat64("control.positionStep"),
		RotationStep: viper.GetFloat64("control.rotationStep"),
		TargetStep:   viper.GetFloat64("control.targetStep"),
		InsertSpeed:  viper.GetFloat64("control.insertSpeed"),
		CameraSpeed:  viper.GetFloat64("control.cameraSpeed"),
	}
}

// GetTelemetryConfig returns the topic and frame constants. Constants not
// present in telemetry.constants keep their stock values.
func GetTelemetryConfig() (TelemetryConfig, error) {
	c := telemetry.DefaultConstants()
	if viper.IsSet("telemetry.constants") {
		if err := viper.UnmarshalKey("telemetry.constants", &c); err != nil {
			return TelemetryConfig{}, fmt.Errorf("telemetry.constants: %w", err)
		}
	}
	return TelemetryConfig{
		Topic: viper.GetString("telemetry.topic"),
		Options: telemetry.BuildOptions{
			Constants:     c,
			MirrorX:       viper.GetBool("telemetry.mirrorX"),
			SwapRongeurXY: viper.GetBool("telemetry.swapRongeurXY"),
		},
	}, nil
}

// GetTransportConfig returns the transport selection.
func GetTransportConfig() TransportConfig {
	return TransportConfig{
		Type: viper.GetString("transport.type"),
		WebSocket: websocket.Config{
			URL:    viper.GetString("transport.websocket.url"),
			Secret: viper.GetString("transport.websocket.secret"),
			Topic:  viper.GetString("telemetry.topic"),
			Buffer: viper.GetInt("transport.websocket.buffer"),
			Retry:  viper.GetDuration("transport.websocket.retry"),
		},
		BusBuffer: viper.GetInt("transport.bus.buffer"),
	}
}

// GetRecorderConfig returns the recorder selection and every backend's settings.
func GetRecorderConfig() RecorderConfig {
	session := viper.GetString("recorder.sessionName")
	driver := viper.GetString("recorder.type")
	return RecorderConfig{
		Type:          driver,
		SessionName:   session,
		Buffer:        viper.GetInt("recorder.buffer"),
		FlushInterval: viper.GetDuration("recorder.flushInterval"),
		Memory: memory.Config{
			OutputDir:      viper.GetString("recorder.memory.outputDir"),
			CompressOutput: viper.GetBool("recorder.memory.compressOutput"),
			SessionName:    session,
			MaxFrames:      viper.GetInt("recorder.memory.maxFrames"),
		},
		Upload:       viper.GetBool("recorder.memory.upload"),
		DumpInterval: viper.GetDuration("recorder.sqlite.dumpInterval"),
		DB: database.Config{
			Driver:         driver,
			Host:           viper.GetString("db.host"),
			Port:           viper.GetString("db.port"),
			Username:       viper.GetString("db.username"),
			Password:       viper.GetString("db.password"),
			Database:       viper.GetString("db.database"),
			MemoryName:     session,
			SqliteFilePath: viper.GetString("recorder.sqlite.path"),
		},
		Influx: influx.Config{
			Protocol:      viper.GetString("influx.protocol"),
			Host:          viper.GetString("influx.host"),
			Port:          viper.GetString("influx.port"),
			Token:         viper.GetString("influx.token"),
			Org:           viper.GetString("influx.org"),
			RetentionDays: viper.GetInt("influx.retentionDays"),
		},
		InfluxBackup: viper.GetString("influx.backupPath"),
	}
}

// GetRenderConfig returns the render backend selection.
func GetRenderConfig() RenderConfig {
	return RenderConfig{
		Backend: viper.GetString("render.backend"),
		Frames:  viper.GetInt("render.frames"),
		FPS:     viper.GetInt("render.fps"),
		Width:   viper.GetInt("render.width"),
		Height:  viper.GetInt("render.height"),
	}
}

// GetMonitorConfig returns the status monitor settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:    viper.GetBool("monitor.enabled"),
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}

// GetAPIConfig returns the relay API address.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}

// GetOTelConfig returns OTel settings. LogWriter is left for the caller.
func GetOTelConfig() otel.Config {
	return otel.Config{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}

// GetKeymap returns the stock keymap with keymap entries applied.
func GetKeymap() (input.Keymap, error) {
	km := input.DefaultKeymap()
	if !viper.IsSet("keymap") {
		return km, nil
	}

	var bindings []KeyBinding
	if err := viper.UnmarshalKey("keymap", &bindings); err != nil {
		return nil, fmt.Errorf("keymap: %w", err)
	}
	overrides := make(map[string][]string, len(bindings))
	for _, b := range bindings {
		overrides[b.Key] = b.Bind
	}
	if err := km.Override(overrides); err != nil {
		return nil, err
	}
	return km, nil
}
