// Package logger provides the structured logger shared by every component.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls level, encoding and destination of log output.
type LoggingConfig struct {
	Level      string
	Format     string
	Output     string
	FilePrefix string
}

// Logger wraps a logrus entry so component fields travel with every line.
type Logger struct {
	*logrus.Entry
}

// New builds a logger from cfg. Unknown levels fall back to info and unknown
// outputs fall back to stdout.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()
	base.SetLevel(parseLevel(cfg.Level))

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	out, err := openOutput(cfg.Output, cfg.FilePrefix)
	if err != nil {
		base.SetOutput(os.Stdout)
		base.WithError(err).Warn("falling back to stdout for logs")
	} else {
		base.SetOutput(out)
	}

	return &Logger{Entry: logrus.NewEntry(base)}
}

// NewDefault returns an info level text logger tagged with component.
func NewDefault(component string) *Logger {
	return New(LoggingConfig{Level: "info", Format: "text", Output: "stdout"}).Named(component)
}

// Named returns a child logger tagged with component.
func (l *Logger) Named(component string) *Logger {
	if component == "" {
		return l
	}
	return &Logger{Entry: l.Entry.WithField("component", component)}
}

func parseLevel(raw string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(raw))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func openOutput(output, prefix string) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "file":
		if prefix == "" {
			prefix = "calcstore"
		}
		f, err := os.OpenFile(prefix+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported log output %q", output)
	}
}
