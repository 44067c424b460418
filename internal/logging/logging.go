package logging

import (
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Reports go to stdout, so logs stay on stderr.
var baseConfig = []byte(`{
  "level": "info",
  "encoding": "json",
  "outputPaths": ["stderr"],
  "errorOutputPaths": ["stderr"],
  "encoderConfig": {
    "messageKey": "message",
    "levelKey": "level",
    "timeKey": "ts",
    "levelEncoder": "lowercase",
    "timeEncoder": "iso8601"
  }
}`)

// New builds a JSON logger at the given level ("debug", "info", "warn", ...).
func New(level string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if err := json.Unmarshal(baseConfig, &cfg); err != nil {
		return nil, fmt.Errorf("parsing logger config: %w", err)
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Sugar(), nil
}

// NewTestLogger returns a logger that records entries for assertions.
func NewTestLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zap.DebugLevel)
	return zap.New(core).Sugar(), recorded
}
