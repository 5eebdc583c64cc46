package protocol

import "time"

// CalibrationStatus is the device-reported progress of the calibration
// handshake, in the order the firmware walks through it.
type CalibrationStatus string

const (
	StatusStarted  CalibrationStatus = "started"
	StatusTared    CalibrationStatus = "tared"
	StatusComplete CalibrationStatus = "complete"
	StatusVerified CalibrationStatus = "verified"
)

// Event is one typed result of interpreting a device line. Concrete types:
// ReadingEvent, CalibrationEvent, RawLine.
type Event interface {
	event()
}

// ReadingEvent is a snapshot measurement captured on the device.
type ReadingEvent struct {
	Grams  float64
	Stress float64
	At     time.Time
}

// CalibrationEvent reports calibration handshake progress. ReferenceUnit and
// VerificationGrams are nil when the device printed no parsable number.
type CalibrationEvent struct {
	Status            CalibrationStatus
	ReferenceUnit     *float64
	VerificationGrams *float64
	At                time.Time
}

// RawLine is emitted for every line, matched or not, for the log view.
type RawLine struct {
	Text string
	At   time.Time
}

func (ReadingEvent) event()     {}
func (CalibrationEvent) event() {}
func (RawLine) event()          {}
