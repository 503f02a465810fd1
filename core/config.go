package scheme

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds daemon settings. Values come from an optional YAML file and
// are then overridden by STEPSCHEME_* environment variables.
type Config struct {
	Socket     string   `yaml:"socket"`
	HTTPAddr   string   `yaml:"http_addr"` // empty disables the HTTP frontend
	Transcript string   `yaml:"transcript"`
	TraceDB    string   `yaml:"trace_db"`
	MaxTraces  int      `yaml:"max_traces"`
	MaxSteps   int      `yaml:"max_steps"`
	Prelude    []string `yaml:"prelude"`
}

func DefaultConfig() Config {
	return Config{
		Socket:    "/tmp/stepscheme.sock",
		MaxTraces: 1000,
	}
}

// ConfigError aggregates every problem found while validating a Config.
type ConfigError struct {
	Issues []string
}

func (e *ConfigError) Error() string {
	return "config: " + strings.Join(e.Issues, "; ")
}

// LoadConfig reads path (if non-empty) over the defaults. An empty file is
// not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from the environment using lookup (os.LookupEnv in
// production).
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var issues []string
	if v, ok := lookup("STEPSCHEME_SOCK"); ok && v != "" {
		cfg.Socket = v
	}
	if v, ok := lookup("STEPSCHEME_HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := lookup("STEPSCHEME_TRANSCRIPT"); ok {
		cfg.Transcript = v
	}
	if v, ok := lookup("STEPSCHEME_TRACE_DB"); ok {
		cfg.TraceDB = v
	}
	if v, ok := lookup("STEPSCHEME_MAX_STEPS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			issues = append(issues, fmt.Sprintf("STEPSCHEME_MAX_STEPS: %q is not an integer", v))
		} else {
			cfg.MaxSteps = n
		}
	}
	if len(issues) > 0 {
		return &ConfigError{Issues: issues}
	}
	return nil
}

func (cfg Config) Validate() error {
	var issues []string
	if cfg.Socket == "" {
		issues = append(issues, "socket must not be empty")
	}
	if cfg.MaxTraces < 0 {
		issues = append(issues, "max_traces must be >= 0")
	}
	if cfg.MaxSteps < 0 {
		issues = append(issues, "max_steps must be >= 0")
	}
	for _, p := range cfg.Prelude {
		if _, err := os.Stat(p); err != nil {
			issues = append(issues, fmt.Sprintf("prelude %s: %v", p, err))
		}
	}
	if len(issues) > 0 {
		return &ConfigError{Issues: issues}
	}
	return nil
}

// SessionOptions translates cfg into Session options.
func (cfg Config) SessionOptions() []Option {
	opts := []Option{WithMaxSteps(cfg.MaxSteps)}
	if cfg.Transcript != "" {
		opts = append(opts, WithTranscript(cfg.Transcript))
	}
	if len(cfg.Prelude) > 0 {
		opts = append(opts, WithPrelude(cfg.Prelude...))
	}
	return opts
}

// OpenTraceStore returns a SQLite store when TraceDB is set, else an
// in-memory one.
func (cfg Config) OpenTraceStore() (TraceStore, error) {
	if cfg.TraceDB == "" {
		return NewMemoryTraceStore(cfg.MaxTraces), nil
	}
	return OpenSQLiteTraceStore(cfg.TraceDB, cfg.MaxTraces)
}
