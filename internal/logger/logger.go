// Package logger wraps logrus with the field conventions used across the daemon.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Log is a logrus entry carrying the fields added with With.
type Log struct {
	*logrus.Entry
}

// Fields are a representation of formatted log fields.
type Fields map[string]interface{}

// New creates a logger writing to stdout at the given level
// (trace, debug, info, warn, error, fatal, panic).
func New(level string) (*Log, error) {
	return NewWithOutput(level, os.Stdout)
}

// NewWithOutput creates a logger writing to w.
func NewWithOutput(level string, w io.Writer) (*Log, error) {
	log := logrus.New()
	log.SetOutput(w)
	log.Formatter = &logrus.TextFormatter{
		TimestampFormat:  "2006-01-02 15:04:05.0000",
		DisableColors:    true,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logger: invalid level %q: %w", level, err)
	}
	log.SetLevel(lvl)

	return &Log{Entry: logrus.NewEntry(log)}, nil
}

// With will add the fields to the formatted log entry.
func (l *Log) With(fields Fields) *Log {
	return &Log{Entry: l.WithFields(logrus.Fields(fields))}
}

// Module returns a logger tagged with the component name.
func (l *Log) Module(name string) *Log {
	return l.With(Fields{"module": name})
}

// GetLevel returns the current level name.
func (l *Log) GetLevel() string {
	return l.Logger.Level.String()
}

// Discard returns a logger that drops everything. Useful for tests.
func Discard() *Log {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Log{Entry: logrus.NewEntry(log)}
}
