// Package logging writes the append-only event log.
//
// Every event is a single line prefixed with a local timestamp, e.g.
//
//	[2025-03-01 06:00:02] Phrase found - registration still closed
//
// The file is opened with O_APPEND and each line is handed to the kernel in
// one write, so several lookout processes may share the same log file.
package logging

import (
	"fmt"
	"io"
	"os"

	gologging "github.com/op/go-logging"
)

// Format is the go-logging format applied to every backend
const Format = "[%{time:2006-01-02 15:04:05}] %{message}"

// Logger is a thin wrapper around a go-logging logger with an optional
// message prefix and an owned log file.
type Logger struct {
	log    *gologging.Logger
	prefix string
	file   *os.File
}

// New creates a logger that appends to the file at path and mirrors every
// line to console. An empty path disables the file and a nil console
// disables mirroring.
func New(module, path string, console io.Writer) (*Logger, error) {
	var writers []io.Writer
	var file *os.File

	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}
	if console != nil {
		writers = append(writers, console)
	}

	l := NewWriter(module, writers...)
	l.file = file
	return l, nil
}

// NewWriter creates a logger writing to the given writers
func NewWriter(module string, writers ...io.Writer) *Logger {
	formatter := gologging.MustStringFormatter(Format)

	backends := make([]gologging.Backend, 0, len(writers))
	for _, w := range writers {
		backend := gologging.NewLogBackend(w, "", 0)
		backends = append(backends, gologging.NewBackendFormatter(backend, formatter))
	}
	if len(backends) == 0 {
		backends = append(backends, gologging.NewLogBackend(io.Discard, "", 0))
	}

	log := gologging.MustGetLogger(module)
	log.SetBackend(gologging.MultiLogger(backends...))

	return &Logger{log: log}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewWriter("discard")
}

// WithPrefix returns a logger that prepends prefix to every message.
// The returned logger shares the backends and file of l.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		log:    l.log,
		prefix: l.prefix + prefix + " ",
	}
}

// Infof logs an informational event
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log.Info(l.prefix + fmt.Sprintf(format, args...))
}

// Warnf logs an event that needs attention
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log.Warning(l.prefix + fmt.Sprintf(format, args...))
}

// Errorf logs a failure
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log.Error(l.prefix + fmt.Sprintf(format, args...))
}

// Close closes the underlying log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
