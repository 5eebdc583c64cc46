package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Reading is one slot of a session's reading set. Grams is the raw mass;
// Stress is grams per square millimeter of wire cross-section, fixed by the
// session's wire diameter at capture time.
type Reading struct {
	Slot      int     `json:"slot"`
	Timestamp string  `json:"timestamp"`
	Grams     float64 `json:"grams"`
	Stress    float64 `json:"stress"`
}

var readingHeader = []string{"slot", "timestamp", "grams", "stress_g_mm2"}

// readReadingsFile parses a session CSV. Rows that no longer parse are
// skipped rather than failing the whole file.
func readReadingsFile(path string) ([]Reading, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeReadings(b)
}

func decodeReadings(b []byte) ([]Reading, error) {
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse reading csv: %w", err)
	}

	out := make([]Reading, 0, 8)
	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			continue
		}
		slot, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		grams, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		stress, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			continue
		}
		out = append(out, Reading{Slot: slot, Timestamp: row[1], Grams: grams, Stress: stress})
	}
	return out, nil
}

// writeReadingsFile rewrites the whole reading collection, header included.
func writeReadingsFile(path string, readings []Reading) error {
	return writeFileAtomic(path, encodeReadings(readings))
}

func encodeReadings(readings []Reading) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(readingHeader)
	for _, rd := range readings {
		_ = w.Write([]string{
			strconv.Itoa(rd.Slot),
			rd.Timestamp,
			strconv.FormatFloat(rd.Grams, 'f', 2, 64),
			strconv.FormatFloat(rd.Stress, 'f', 3, 64),
		})
	}
	w.Flush()
	return buf.Bytes()
}
