package updater

import (
	"fmt"
	"time"
)

// StepStatus is the state of a step as reported to a StepFunc
type StepStatus int

const (
	StepRunning StepStatus = iota
	StepComplete
	StepFailed
	// StepSkipped marks a best-effort step that did not succeed
	StepSkipped
)

// String returns a lowercase name for the status
func (s StepStatus) String() string {
	switch s {
	case StepRunning:
		return "running"
	case StepComplete:
		return "complete"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("StepStatus(%d)", int(s))
	}
}

// Step describes progress on one step of the update.
type Step struct {
	Index  int // 1-based
	Total  int
	Name   string
	Status StepStatus
	Note   string
	Err    error
}

// StepFunc receives step transitions. It is called synchronously from Run.
type StepFunc func(Step)

// TotalSteps is the number of steps in a full update
const TotalSteps = 10

// Step names, in execution order.
const (
	StepFetchInfo    = "Read device info"
	StepUploadMain   = "Upload main board firmware"
	StepWaitMain     = "Wait for main board to process firmware"
	StepRebootMain   = "Reboot main board"
	StepWaitSignal   = "Wait for reboot signal to settle"
	StepUploadRear   = "Upload rear board firmware"
	StepWaitRear     = "Wait for rear board to process firmware"
	StepRebootRear   = "Reboot rear board"
	StepWaitRearBoot = "Wait for rear board to restart"
	StepFetchNewInfo = "Read updated device info"
)

// StepNames lists the step names in execution order
var StepNames = []string{
	StepFetchInfo,
	StepUploadMain,
	StepWaitMain,
	StepRebootMain,
	StepWaitSignal,
	StepUploadRear,
	StepWaitRear,
	StepRebootRear,
	StepWaitRearBoot,
	StepFetchNewInfo,
}

// Sleeper blocks for a fixed duration.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleepFunc adapts a function to Sleeper
type SleepFunc func(time.Duration)

// Sleep calls f(d)
func (f SleepFunc) Sleep(d time.Duration) { f(d) }

// RealSleeper sleeps on the wall clock
var RealSleeper Sleeper = SleepFunc(time.Sleep)

func formatWait(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
