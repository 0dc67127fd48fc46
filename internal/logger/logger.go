// Package logger builds the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config controls level, output format and the static service field.
type Config struct {
	Level   string
	Format  string
	Output  io.Writer
	Service string
}

// New returns a logrus logger configured from cfg. Empty fields fall back
// to info level, JSON output and stdout.
func New(cfg Config) *logrus.Logger {
	l := logrus.New()
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	l.SetOutput(cfg.Output)

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, FormatText) {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Service != "" {
		l.AddHook(serviceHook(cfg.Service))
	}
	return l
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type serviceHook string

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["service"]; !ok {
		e.Data["service"] = string(h)
	}
	return nil
}
