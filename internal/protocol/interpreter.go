// Package protocol turns the measurement device's free-form text lines into
// typed events. Every line is accepted; unmatched lines surface only as a
// RawLine for the log view.
package protocol

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	snapshotRegex     = regexp.MustCompile(`SNAPSHOT:\s*([\d.]+)\s*g,\s*([\d.]+)\s*g/mm`)
	refUnitRegex      = regexp.MustCompile(`NEW REFERENCE_UNIT:\s*([\d.]+)`)
	verificationRegex = regexp.MustCompile(`Verification reading:\s*([\d.]+)`)
)

const (
	calibrationMarker  = "CALIBRATION"
	tareMarker         = "Tare done"
	refUnitMarker      = "NEW REFERENCE_UNIT"
	verificationMarker = "Verification reading"
)

// Interpret classifies one trimmed device line. Rules are evaluated
// independently, so a line can yield more than one event; the trailing
// RawLine is always present. The timestamp is the wall clock of receipt,
// never parsed from the line.
func Interpret(line string, at time.Time) []Event {
	line = strings.TrimSpace(line)
	out := make([]Event, 0, 2)

	if m := snapshotRegex.FindStringSubmatch(line); m != nil {
		grams, gOK := parseDecimal(m[1])
		stress, sOK := parseDecimal(m[2])
		if gOK && sOK {
			out = append(out, ReadingEvent{Grams: grams, Stress: stress, At: at})
		}
	}

	if strings.Contains(line, calibrationMarker) {
		out = append(out, CalibrationEvent{Status: StatusStarted, At: at})
	}
	if strings.Contains(line, tareMarker) {
		out = append(out, CalibrationEvent{Status: StatusTared, At: at})
	}
	if strings.Contains(line, refUnitMarker) {
		out = append(out, CalibrationEvent{
			Status:        StatusComplete,
			ReferenceUnit: matchDecimal(refUnitRegex, line),
			At:            at,
		})
	}
	if strings.Contains(line, verificationMarker) {
		out = append(out, CalibrationEvent{
			Status:            StatusVerified,
			VerificationGrams: matchDecimal(verificationRegex, line),
			At:                at,
		})
	}

	return append(out, RawLine{Text: line, At: at})
}

func parseDecimal(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// matchDecimal returns nil when the marker's number is missing or does not
// parse; the caller still emits the event.
func matchDecimal(re *regexp.Regexp, line string) *float64 {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	v, ok := parseDecimal(m[1])
	if !ok {
		return nil
	}
	return &v
}
