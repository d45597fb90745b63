package pipeline

import "time"

// runStage executes one unit of pipeline work, timing it and wrapping the
// outcome into a StageResult. The returned error is the work's own error,
// passed through so the orchestrator can apply its short-circuit policy;
// the runner itself never decides whether a failure is fatal.
func runStage(name string, work func() (map[string]any, error)) (StageResult, error) {
	started := time.Now().UTC()
	data, err := work()
	completed := time.Now().UTC()
	duration := completed.Sub(started).Milliseconds()

	result := StageResult{
		Stage:       name,
		StartedAt:   &started,
		CompletedAt: &completed,
		DurationMS:  &duration,
	}
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		return result, err
	}
	result.Status = StatusCompleted
	result.Data = data
	return result, nil
}

// skippedStage records a stage that never ran.
func skippedStage(name, reason string) StageResult {
	return StageResult{
		Stage:  name,
		Status: StatusSkipped,
		Data:   map[string]any{"reason": reason},
	}
}
