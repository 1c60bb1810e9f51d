package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Slow operation thresholds
const (
	slowWarnThreshold = 30 * time.Second
	slowInfoThreshold = 10 * time.Second
)

// Timer measures how long an operation took and logs it
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
}

// NewTimer starts a timer for the named operation
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
	}
}

// Stop logs the elapsed time and returns it
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	logDuration(t.log, t.name, duration)
	return duration
}

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	defer utils.OperationTimer("ledger_backup", log)()
func OperationTimer(operation string, log zerolog.Logger) func() {
	t := NewTimer(operation, log)
	return func() {
		t.Stop()
	}
}

func logDuration(log zerolog.Logger, operation string, duration time.Duration) {
	log.Debug().
		Str("operation", operation).
		Dur("duration_ms", duration).
		Msg("Performance measurement")

	switch {
	case duration > slowWarnThreshold:
		log.Warn().
			Str("operation", operation).
			Dur("duration", duration).
			Msg("Slow operation detected (>30s)")
	case duration > slowInfoThreshold:
		log.Info().
			Str("operation", operation).
			Dur("duration", duration).
			Msg("Operation took longer than expected (>10s)")
	}
}
