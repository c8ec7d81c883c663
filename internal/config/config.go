package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/checkerr"
	"github.com/danielpatrickdp/thermal-check/go-checker/internal/telemetry"
)

var validate = validator.New()

// #region defaults
// Default returns the configuration used when no file is given: the built-in
// check types and local endpoints.
func Default() *File {
	return &File{
		DBPath:    "thermcheck.db",
		LogLevel:  "info",
		Predictor: PredictorConfig{Addr: "localhost:50061", Timeout: 60 * time.Second},
		Telemetry: telemetry.DefaultConfig(),
		Checks:    Builtin(),
	}
}

// #endregion defaults

// #region load
// Parse decodes and validates YAML. Omitted sections keep their defaults,
// except checks: a file that lists checks replaces the built-in ones.
func Parse(data []byte) (*File, error) {
	f := Default()
	f.Checks = nil
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, &checkerr.ConfigurationError{Subject: "config", Message: "parse yaml", Cause: err}
	}
	if len(f.Checks) == 0 {
		f.Checks = Builtin()
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads path, applies environment overrides and validates. An empty
// path yields Default with overrides applied.
func Load(path string) (*File, error) {
	var f *File
	if path == "" {
		f = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &checkerr.ConfigurationError{Subject: path, Message: "read file", Cause: err}
		}
		f, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	f.ApplyEnv()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// ApplyEnv overrides endpoints from the environment.
func (f *File) ApplyEnv() {
	f.DBPath = envOr("THERMCHECK_DB", f.DBPath)
	f.LogLevel = envOr("THERMCHECK_LOG_LEVEL", f.LogLevel)
	f.Predictor.Addr = envOr("PREDICTOR_ADDR", f.Predictor.Addr)
	f.Telemetry.URL = envOr("INFLUXDB_URL", f.Telemetry.URL)
	f.Telemetry.Token = envOr("INFLUXDB_TOKEN", f.Telemetry.Token)
	f.Telemetry.Org = envOr("INFLUXDB_ORG", f.Telemetry.Org)
	f.Telemetry.Bucket = envOr("INFLUXDB_BUCKET", f.Telemetry.Bucket)
}

// Validate runs the struct-tag checks and rejects duplicate check names.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return &checkerr.ConfigurationError{Subject: "config", Message: "invalid", Cause: err}
	}
	seen := make(map[string]bool, len(f.Checks))
	for _, c := range f.Checks {
		if seen[c.Name] {
			return checkerr.Configf(c.Name, "check declared twice")
		}
		seen[c.Name] = true
	}
	return nil
}

// Check returns the named check declaration.
func (f *File) Check(name string) (CheckConfig, bool) {
	for _, c := range f.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckConfig{}, false
}

// #endregion load

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
