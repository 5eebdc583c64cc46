package store

import "testing"

func TestDecodeReadingsSkipsMalformedRows(t *testing.T) {
	csv := "slot,timestamp,grams,stress_g_mm2\n" +
		"1,2026-03-02T10:00:01.000Z,12.50,32.480\n" +
		"x,2026-03-02T10:00:02.000Z,1.00,1.000\n" +
		"3,2026-03-02T10:00:03.000Z,not-a-number,1.000\n" +
		"4,2026-03-02T10:00:04.000Z,9.00,23.390\n"

	readings, err := decodeReadings([]byte(csv))
	if err != nil {
		t.Fatalf("decodeReadings error: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("reading count mismatch: got=%d want=2", len(readings))
	}
	if readings[0].Slot != 1 || readings[1].Slot != 4 {
		t.Fatalf("surviving slots mismatch: %+v", readings)
	}
	if readings[0].Grams != 12.5 || readings[0].Stress != 32.48 {
		t.Fatalf("values mismatch: %+v", readings[0])
	}
}
