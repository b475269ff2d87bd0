package logger_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

func captureLogs(t *testing.T, level string, emit func()) string {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetLogLevel(level)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLogLevel("INFO")
	})
	emit()
	return buf.String()
}

func TestSetLogLevel_FiltersBelowThreshold(t *testing.T) {
	out := captureLogs(t, "WARN", func() {
		logger.Debugf("debug %d", 1)
		logger.Infof("info %d", 2)
		logger.Warnf("warn %d", 3)
		logger.Errorf("error %d", 4)
	})

	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "[WARN] warn 3")
	assert.Contains(t, out, "[ERROR] error 4")
}

func TestSetLogLevel_TraceEmitsEverything(t *testing.T) {
	out := captureLogs(t, "trace", func() {
		logger.Tracef("row %s", "dropped")
		logger.Debugf("detail")
	})

	assert.Contains(t, out, "[TRACE] row dropped")
	assert.Contains(t, out, "[DEBUG] detail")
	assert.Equal(t, logger.LevelTrace, logger.GetLogLevel())
}

func TestSetLogLevel_SilentSuppressesErrors(t *testing.T) {
	out := captureLogs(t, "SILENT", func() {
		logger.Errorf("should not appear")
	})
	assert.Empty(t, out)
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	logger.SetLogLevel("ERROR")
	logger.SetLogLevel("LOUD")
	assert.Equal(t, logger.LevelInfo, logger.GetLogLevel())
}
