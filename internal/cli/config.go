package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/floorplan/internal/engine"
)

// Config keys.
const (
	cfgKeyHistoryLimit = "history_limit"
	cfgKeyJournal      = "journal"
	cfgKeyLogLevel     = "log_level"

	defaultLogLevel = "warn"
)

// loadConfig reads the YAML config file at path. An empty path yields the
// defaults only; a path that cannot be read is an error.
func loadConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyHistoryLimit, engine.DefaultHistoryLimit)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if v.GetInt(cfgKeyHistoryLimit) < 0 {
		return nil, fmt.Errorf("read config: %s must not be negative", cfgKeyHistoryLimit)
	}
	if _, err := parseLevel(v.GetString(cfgKeyLogLevel)); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// config returns the loaded config, falling back to defaults when the root
// pre-run did not happen (commands built directly in tests).
func (o *RootOptions) config() *viper.Viper {
	if o.Config == nil {
		v, _ := loadConfig("")
		o.Config = v
	}
	return o.Config
}

// logger builds the stderr text logger. --verbose forces debug.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(o.config().GetString(cfgKeyLogLevel))
	if err != nil {
		level = slog.LevelWarn
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid %s %q", cfgKeyLogLevel, s)
	}
	return level, nil
}
