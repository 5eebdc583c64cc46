// Package calibration derives the four-step calibration progress view from
// the latest device-reported calibration event. The progression is a pure
// projection, never a stored state, so dismissing the calibration view is a
// plain Reset.
package calibration

import "pressurebench/internal/protocol"

// StepState is the display state of one handshake step.
type StepState string

const (
	StepPending  StepState = "pending"
	StepActive   StepState = "active"
	StepComplete StepState = "complete"
)

// StepCount is the fixed number of handshake steps:
// initialize & tare, capture zero, capture known mass, verification.
const StepCount = 4

var stepLabels = [StepCount]string{
	"Initialize & Tare",
	"Capture Zero",
	"Capture Known Mass",
	"Verification",
}

// Labels returns the display labels for the four steps.
func Labels() [StepCount]string {
	return stepLabels
}

// Steps maps the latest reported status onto the four step states. An empty
// status (nothing reported since the last reset) leaves every step pending.
func Steps(latest protocol.CalibrationStatus) [StepCount]StepState {
	rank := statusRank(latest)
	var out [StepCount]StepState
	for i := range out {
		stepRank := i + 1
		switch {
		case rank >= stepRank:
			out[i] = StepComplete
		case rank == stepRank-1 && rank > 0:
			out[i] = StepActive
		default:
			out[i] = StepPending
		}
	}
	return out
}

// Finished reports whether the sequence has produced a usable reference unit.
func Finished(latest protocol.CalibrationStatus) bool {
	return latest == protocol.StatusComplete || latest == protocol.StatusVerified
}

func statusRank(s protocol.CalibrationStatus) int {
	switch s {
	case protocol.StatusStarted:
		return 1
	case protocol.StatusTared:
		return 2
	case protocol.StatusComplete:
		return 3
	case protocol.StatusVerified:
		return 4
	default:
		return 0
	}
}

// Tracker remembers the latest calibration event between resets.
type Tracker struct {
	latest *protocol.CalibrationEvent
}

// Observe records a new calibration event as the latest one.
func (t *Tracker) Observe(ev protocol.CalibrationEvent) {
	t.latest = &ev
}

// Reset clears the history; all steps go back to pending.
func (t *Tracker) Reset() {
	t.latest = nil
}

// Latest returns the most recent event since the last reset, or nil.
func (t *Tracker) Latest() *protocol.CalibrationEvent {
	return t.latest
}

// Steps projects the current step states.
func (t *Tracker) Steps() [StepCount]StepState {
	if t.latest == nil {
		return Steps("")
	}
	return Steps(t.latest.Status)
}

// Finished reports whether the tracked sequence has finished.
func (t *Tracker) Finished() bool {
	return t.latest != nil && Finished(t.latest.Status)
}
