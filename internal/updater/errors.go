package updater

import (
	"fmt"

	"github.com/voltra/chargerfw/internal/device"
)

// StepError reports the step that aborted an update.
type StepError struct {
	// Step is the failed operation, e.g. "Main board firmware upload"
	Step string
	// Outcome is set when the device answered with a non-200 status
	Outcome *device.Outcome
	Err     error
}

// Error formats as "<Step> failed: <status>" for device answers and
// "<Step> failed: <cause>" otherwise.
func (e *StepError) Error() string {
	if e.Outcome != nil {
		return fmt.Sprintf("%s failed: %d", e.Step, e.Outcome.Status)
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error
func (e *StepError) Unwrap() error {
	return e.Err
}

func outcomeError(step, ip string, outcome *device.Outcome) *StepError {
	return &StepError{
		Step:    step,
		Outcome: outcome,
		Err:     device.NewProtocolError(outcome.Status, ip, fmt.Sprintf("%s returned %s", step, outcome)),
	}
}
