package checkpoint

// PartialResult carries enough state that a resumed task skips already
// finished sub-steps instead of restarting from scratch. LastStep -1 means
// no sub-step has completed yet (unknown progress).
type PartialResult struct {
	TaskID    string `json:"task_id"`
	LastStep  int    `json:"last_step"`  // Index of the last completed sub-step, -1 for none
	StepCount int    `json:"step_count"` // Total sub-steps in the task, if known
	Output    string `json:"output"`     // Accumulated partial output
}

// Done reports whether all known sub-steps have completed.
func (p *PartialResult) Done() bool {
	return p.StepCount > 0 && p.LastStep >= p.StepCount-1
}

// NextStep returns the index the task should resume from; 0 when no
// progress was recorded.
func (p *PartialResult) NextStep() int {
	if p.LastStep < 0 {
		return 0
	}
	return p.LastStep + 1
}

// ShouldSkip reports whether the given sub-step index was already finished
// in a previous attempt. With LastStep -1 nothing is skipped.
func (p *PartialResult) ShouldSkip(step int) bool {
	return step <= p.LastStep
}
