package events

// ProgressReporter emits sync-progress events for long running batches
type ProgressReporter struct {
	eventManager *Manager
	module       string
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter(em *Manager, module string) *ProgressReporter {
	return &ProgressReporter{
		eventManager: em,
		module:       module,
	}
}

// Report emits a progress event carrying the batch position and a message
func (pr *ProgressReporter) Report(current, total int, message string) {
	if pr.eventManager == nil {
		return
	}

	pr.eventManager.Emit(SyncProgress, pr.module, map[string]interface{}{
		"message": message,
		"current": current,
		"total":   total,
	})
}
