// Package log configures the process-wide slog logger and tags every record
// with the owning component.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Standard component names used across the binaries.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
)

// Logger is a slog.Logger whose records carry a component attribute. The tag
// is baked in via With once at construction; the promoted logging methods add
// nothing on top.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// New creates a logger with the given configuration. A nil Handler gets a
// text handler on stdout.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.Level,
		})
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	base := slog.New(handler)
	return &Logger{
		Logger:    base.With("component", component),
		base:      base,
		component: component,
	}
}

// FromEnv builds a logger whose level comes from LOG_LEVEL (debug, info,
// warn, error; default info).
func FromEnv(component string) *Logger {
	return New(Config{
		Level:     parseLevel(os.Getenv("LOG_LEVEL")),
		Component: component,
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a logger tagged with a different component name. The
// new tag replaces the old one; it is never stacked.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.base.With("component", component),
		base:      l.base,
		component: component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs the logger as the process default so package-level slog
// calls carry the same handler.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
