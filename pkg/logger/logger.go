package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config controls handler selection and verbosity. Env picks the handler
// (prod = JSON, dev = text, test = errors only); Level overrides the
// env-derived default when set.
type Config struct {
	Env       string
	Level     string
	AddSource bool
	Output    io.Writer
}

// Logger is a thin wrapper around slog.Logger
type Logger struct {
	*slog.Logger
}

func New(config Config) (*Logger, error) {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	handler, err := createHandler(config)
	if err != nil {
		return nil, err
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return &Logger{Logger: logger}, nil
}

func createHandler(config Config) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(config.Env, config.Level),
		AddSource: config.AddSource,
	}

	switch strings.ToLower(config.Env) {
	case "prod":
		return slog.NewJSONHandler(config.Output, opts), nil

	case "dev":
		textOpts := *opts
		textOpts.ReplaceAttr = devReplacer
		return slog.NewTextHandler(config.Output, &textOpts), nil

	case "test":
		return slog.NewTextHandler(config.Output, opts), nil

	default:
		return nil, fmt.Errorf("unknown environment: %s (use 'dev', 'prod', or 'test')", config.Env)
	}
}

func parseLogLevel(env, explicitLevel string) slog.Level {
	if explicitLevel != "" {
		switch strings.ToLower(explicitLevel) {
		case "debug":
			return slog.LevelDebug
		case "info":
			return slog.LevelInfo
		case "warn":
			return slog.LevelWarn
		case "error":
			return slog.LevelError
		}
	}

	switch strings.ToLower(env) {
	case "dev":
		return slog.LevelDebug
	case "prod":
		return slog.LevelInfo
	case "test":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// devReplacer shortens timestamps and source paths for readable dev logs
func devReplacer(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format("15:04:05.000"))
		}
	}

	if a.Key == slog.SourceKey {
		if source, ok := a.Value.Any().(*slog.Source); ok && source != nil {
			source.File = filepath.Base(source.File)
		}
	}

	return a
}
