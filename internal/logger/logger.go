// Package logger provides verbose logging for the qa-extract CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to help users follow the extraction pipeline.
// Errors are always printed. An optional rotating log file receives
// the same lines.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/kataras/golog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation settings.
const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	logFile *lumberjack.Logger

	glog = newGolog()
)

var levelLabels = map[golog.Level]string{
	golog.DebugLevel: "DEBUG",
	golog.InfoLevel:  "INFO",
	golog.WarnLevel:  "WARN",
	golog.ErrorLevel: "ERROR",
}

func newGolog() *golog.Logger {
	l := golog.New()
	l.SetLevel("error")
	l.SetTimeFormat("")
	l.Handle(func(entry *golog.Log) bool {
		label, ok := levelLabels[entry.Level]
		if !ok {
			label = "LOG"
		}
		fmt.Fprintf(sink(), "[%s] %s\n", label, entry.Message)
		return true
	})
	return l
}

// sink returns the writer log lines go to.
func sink() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	if logFile != nil {
		return io.MultiWriter(output, logFile)
	}
	return output
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	verbose = v
	mu.Unlock()

	if v {
		glog.SetLevel("debug")
	} else {
		glog.SetLevel("error")
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// SetLogFile mirrors log lines into a size-rotated file at path.
// An empty path disables the file sink.
func SetLogFile(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		if err := logFile.Close(); err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
		logFile = nil
	}
	if path == "" {
		return nil
	}

	logFile = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
	}
	return nil
}

// Close flushes and closes the log file, if any.
func Close() error {
	return SetLogFile("")
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	glog.Debugf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	if IsVerbose() {
		fmt.Fprintf(sink(), "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	glog.Infof(format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	glog.Warnf(format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	glog.Errorf(format, args...)
}
