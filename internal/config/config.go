package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	STT         STTConfig       `yaml:"stt"`
	Session     SessionConfig   `yaml:"session"`
	Export      ExportConfig    `yaml:"export"`
	Display     DisplayConfig   `yaml:"display"`
	Controls    ControlsConfig  `yaml:"controls"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type STTConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Mode           string `yaml:"mode"` // mock, exec, nats
	Command        string `yaml:"command"`
	Language       string `yaml:"language"`
	SessionID      string `yaml:"session_id"`
	MockIntervalMS int    `yaml:"mock_interval_ms"`
	MockPhrase     string `yaml:"mock_phrase"`
}

type SessionConfig struct {
	TimestampLayout string        `yaml:"timestamp_layout"`
	Restart         RestartConfig `yaml:"restart"`
}

// RestartConfig controls the delay between provider restarts while recording.
// With Backoff disabled the provider is restarted immediately every time.
type RestartConfig struct {
	Backoff    bool    `yaml:"backoff"`
	InitialMS  int     `yaml:"initial_ms"`
	MaxMS      int     `yaml:"max_ms"`
	Multiplier float64 `yaml:"multiplier"`
}

type ExportConfig struct {
	Directory string `yaml:"directory"`
}

type DisplayConfig struct {
	ANSI   bool `yaml:"ansi"`
	Notify bool `yaml:"notify"`
}

type ControlsConfig struct {
	Stdin bool `yaml:"stdin"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-scribe",
		Environment: "development",
		HTTP: HTTPConfig{
			Enabled: true,
			Bind:    "127.0.0.1",
			Port:    8081,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       false,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		STT: STTConfig{
			Enabled:        true,
			Mode:           "mock",
			Language:       "en-US",
			MockIntervalMS: 3000,
			MockPhrase:     "testing one two three",
		},
		Session: SessionConfig{
			TimestampLayout: "1/2/2006, 3:04:05 PM",
			Restart: RestartConfig{
				Backoff:    false,
				InitialMS:  250,
				MaxMS:      10000,
				Multiplier: 2.0,
			},
		},
		Export: ExportConfig{
			Directory: ".",
		},
		Display: DisplayConfig{
			ANSI:   true,
			Notify: false,
		},
		Controls: ControlsConfig{
			Stdin: true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LOQA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LOQA_RUNTIME_ENVIRONMENT")
	overrideBool(&cfg.HTTP.Enabled, "LOQA_HTTP_ENABLED")
	overrideString(&cfg.HTTP.Bind, "LOQA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LOQA_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "LOQA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOQA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOQA_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "LOQA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LOQA_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "LOQA_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "LOQA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LOQA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LOQA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LOQA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LOQA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LOQA_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.STT.Enabled, "LOQA_STT_ENABLED")
	overrideString(&cfg.STT.Mode, "LOQA_STT_MODE")
	overrideString(&cfg.STT.Command, "LOQA_STT_COMMAND")
	overrideString(&cfg.STT.Language, "LOQA_STT_LANGUAGE")
	overrideString(&cfg.STT.SessionID, "LOQA_STT_SESSION_ID")
	overrideInt(&cfg.STT.MockIntervalMS, "LOQA_STT_MOCK_INTERVAL_MS")
	overrideString(&cfg.STT.MockPhrase, "LOQA_STT_MOCK_PHRASE")
	overrideString(&cfg.Session.TimestampLayout, "LOQA_SESSION_TIMESTAMP_LAYOUT")
	overrideBool(&cfg.Session.Restart.Backoff, "LOQA_SESSION_RESTART_BACKOFF")
	overrideInt(&cfg.Session.Restart.InitialMS, "LOQA_SESSION_RESTART_INITIAL_MS")
	overrideInt(&cfg.Session.Restart.MaxMS, "LOQA_SESSION_RESTART_MAX_MS")
	overrideFloat(&cfg.Session.Restart.Multiplier, "LOQA_SESSION_RESTART_MULTIPLIER")
	overrideString(&cfg.Export.Directory, "LOQA_EXPORT_DIRECTORY")
	overrideBool(&cfg.Display.ANSI, "LOQA_DISPLAY_ANSI")
	overrideBool(&cfg.Display.Notify, "LOQA_DISPLAY_NOTIFY")
	overrideBool(&cfg.Controls.Stdin, "LOQA_CONTROLS_STDIN")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

// Validate reports the first invalid setting in cfg.
func Validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Enabled && (cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535) {
		return errors.New("http.port must be between 1 and 65535")
	}
	if _, err := ParseLogLevel(cfg.Telemetry.LogLevel); err != nil {
		return err
	}
	if cfg.STT.Enabled {
		switch cfg.STT.Mode {
		case "mock", "exec", "nats":
		default:
			return errors.New("stt.mode must be one of mock|exec|nats")
		}
		if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
			return errors.New("stt.command must be set when mode=exec")
		}
		if cfg.STT.MockIntervalMS < 0 {
			return errors.New("stt.mock_interval_ms must be >= 0")
		}
		if cfg.STT.Mode == "nats" {
			if cfg.Bus.Embedded {
				if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
					return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
				}
			} else if len(cfg.Bus.Servers) == 0 {
				return errors.New("bus.servers must not be empty when embedded mode is disabled")
			}
		}
	}
	if strings.TrimSpace(cfg.Session.TimestampLayout) == "" {
		return errors.New("session.timestamp_layout must not be empty")
	}
	if cfg.Session.Restart.Backoff {
		if cfg.Session.Restart.InitialMS <= 0 {
			return errors.New("session.restart.initial_ms must be positive when backoff is enabled")
		}
		if cfg.Session.Restart.MaxMS < cfg.Session.Restart.InitialMS {
			return errors.New("session.restart.max_ms must be >= initial_ms")
		}
		if cfg.Session.Restart.Multiplier < 1 {
			return errors.New("session.restart.multiplier must be >= 1")
		}
	}
	if cfg.Export.Directory == "" {
		return errors.New("export.directory must not be empty")
	}
	return nil
}
