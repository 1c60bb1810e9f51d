package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimer_StopLogsDuration(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	timer := NewTimer("sync_all", log)
	time.Sleep(time.Millisecond)
	d := timer.Stop()

	assert.GreaterOrEqual(t, d, time.Millisecond)
	assert.Contains(t, buf.String(), `"operation":"sync_all"`)
}

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	done := OperationTimer("ledger_backup", log)
	done()

	assert.Contains(t, buf.String(), `"operation":"ledger_backup"`)
}

func TestLogDuration_SlowThresholds(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)

	logDuration(log, "slow", 45*time.Second)
	assert.Contains(t, buf.String(), "Slow operation detected")

	buf.Reset()
	logDuration(log, "sluggish", 15*time.Second)
	assert.Contains(t, buf.String(), "longer than expected")

	buf.Reset()
	logDuration(log, "fast", time.Second)
	assert.Empty(t, buf.String())
}
