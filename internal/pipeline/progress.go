package pipeline

import "github.com/jonathan/blog-agent/internal/pipeline/steps"

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Percent  int    `json:"percent"`
	Message  string `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// tracker emits progress for one run and rejects a step whose dependencies
// have not run yet. Steps run one at a time, so a step is recorded as soon as
// it starts.
type tracker struct {
	cb        ProgressCallback
	completed map[string]bool
}

func newTracker(cb ProgressCallback) *tracker {
	return &tracker{cb: cb, completed: make(map[string]bool, len(steps.Order))}
}

// start validates and reports step.
func (t *tracker) start(step, message string) error {
	if err := steps.ValidateDependencies(t.completed, step); err != nil {
		return err
	}
	t.completed[step] = true
	if t.cb == nil {
		return nil
	}
	def := steps.StepRegistry[step]
	t.cb(ProgressEvent{
		Step:     step,
		Category: def.Category,
		Percent:  def.Percent,
		Message:  message,
	})
	return nil
}
