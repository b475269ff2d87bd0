// Package logger provides the leveled logger shared by the batch framework and the foot-traffic job.
// It wraps the standard `log` package and drops messages below the configured level.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
// Smaller numbers are more verbose.
type LogLevel int32

const (
	// LevelTrace is used for very chatty diagnostics (per-row decisions, raw API paging).
	LevelTrace LogLevel = iota
	// LevelDebug is used for detailed debugging information.
	LevelDebug
	// LevelInfo is used for general run progress.
	LevelInfo
	// LevelWarn is used for recoverable problems such as a dropped row or an unreadable attachment.
	LevelWarn
	// LevelError is used for failures that end a step.
	LevelError
	// LevelFatal is used right before the process exits.
	LevelFatal
	// LevelSilent suppresses everything except Fatalf.
	LevelSilent
)

var levelNames = map[string]LogLevel{
	"TRACE":  LevelTrace,
	"DEBUG":  LevelDebug,
	"INFO":   LevelInfo,
	"WARN":   LevelWarn,
	"ERROR":  LevelError,
	"FATAL":  LevelFatal,
	"SILENT": LevelSilent,
}

// logLevel is the current global level, stored atomically so tests and fx hooks may change it concurrently.
var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
}

// SetLogLevel sets the global log level.
// Valid values are "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL" and "SILENT" (case-insensitive).
// An unknown value falls back to INFO and prints a notice.
func SetLogLevel(level string) {
	lvl, ok := levelNames[strings.ToUpper(strings.TrimSpace(level))]
	if !ok {
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		lvl = LevelInfo
	}
	logLevel.Store(int32(lvl))
}

// GetLogLevel returns the current global level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func enabled(lvl LogLevel) bool {
	return GetLogLevel() <= lvl
}

// Tracef formats and outputs a TRACE level log message.
func Tracef(format string, v ...interface{}) {
	if enabled(LevelTrace) {
		log.Printf("[TRACE] "+format, v...)
	}
}

// Debugf formats and outputs a DEBUG level log message.
//
// format: A format string in the same format as `fmt.Printf`.
// v: Arguments to pass to the format string.
func Debugf(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
//
// format: A format string in the same format as `fmt.Printf`.
// v: Arguments to pass to the format string.
func Infof(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if enabled(LevelError) {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
// It ignores the configured level.
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
