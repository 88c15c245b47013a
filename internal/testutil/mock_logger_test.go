package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	assert.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildLoggersShareRecorder(t *testing.T) {
	logger := testutil.NewMockLogger()

	child := logger.Named("csvcatalog").With(logging.String("path", "/tmp/x"))
	child.Warn("catalog file missing")
	child.Warn("catalog file missing")

	assert.Equal(t, 2, logger.CountLevel("warn"))
	assert.True(t, logger.HasMessage("warn", "catalog file missing"))
}
