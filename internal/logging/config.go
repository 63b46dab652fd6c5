package logging

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/relieflab/reliefd/internal/observability"
)

const (
	EnvLogLevel   = "RELIEFD_LOG_LEVEL"
	EnvLogNoColor = "RELIEFD_LOG_NOCOLOR"
)

// Config selects the log destination and verbosity.
type Config struct {
	App     string
	Path    string // empty logs to standard output
	Level   zerolog.Level
	NoColor bool
}

func DefaultConfig() Config {
	return Config{
		App:   "reliefd",
		Level: zerolog.InfoLevel,
	}
}

// Destination owns an optional log file handle. Close is idempotent and
// never touches standard output.
type Destination struct {
	file *os.File
	once sync.Once
}

// Close releases the log file handle if one was opened. Safe to call more
// than once; later calls are no-ops and close errors are swallowed after
// being reported where output is still possible.
func (d *Destination) Close() error {
	var err error
	d.once.Do(func() {
		if d.file == nil {
			return
		}
		if cerr := d.file.Close(); cerr != nil {
			// The file is already gone as a log target; stderr is all that is left.
			os.Stderr.WriteString("reliefd: log file close error: " + cerr.Error() + "\n")
			err = cerr
		}
	})
	return err
}

// Open configures the process-wide logger for the requested destination.
//
// When the configured log file cannot be opened the logger falls back to
// standard output and records a warning there.
func Open(cfg Config) (zerolog.Logger, *Destination) {
	applyEnvOverrides(&cfg)
	zerolog.SetGlobalLevel(cfg.Level)

	dest := &Destination{}
	out, noColor := os.Stdout, cfg.NoColor
	var openErr error

	if cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			openErr = err
		} else {
			dest.file = f
			out = f
			noColor = true
		}
	}

	logger := observability.InitLogger(cfg.App, out, noColor)
	if openErr != nil {
		logger.Warn().Str("path", cfg.Path).Err(openErr).Msg("log file open failed, falling back to stdout")
	}
	return logger, dest
}

// ConfigureCLI installs a warn-level stderr logger for command line runs so
// diagnostics never mix with printed results.
func ConfigureCLI() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	observability.InitLogger("reliefctl", os.Stderr, true)
}

// ConfigureTests installs a debug-level stdout logger for test runs.
func ConfigureTests() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	observability.InitLogger("reliefd-test", os.Stdout, true)
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
