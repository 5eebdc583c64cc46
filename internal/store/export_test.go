package store

import (
	"strings"
	"testing"
)

func TestExportSessionPayload(t *testing.T) {
	s := newTestStore(t)
	u, _ := s.CreateUser("Alice Smith", "")
	bp, _ := s.CreateBodyPart(u.ID, "Left Forearm", "")
	sess, err := s.CreateSession(u.ID, bp.ID, "post-op check", 0.7, 41)
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	if err := s.AddReading(u.ID, bp.ID, sess.ID, 1, 12.5, 32.48); err != nil {
		t.Fatalf("AddReading error: %v", err)
	}

	payload, err := s.ExportSession(u.ID, bp.ID, sess.ID)
	if err != nil {
		t.Fatalf("ExportSession error: %v", err)
	}
	text := string(payload)

	for _, want := range []string{
		"# Patient: Alice Smith\n",
		"# Body Part: Left Forearm\n",
		"# Session: " + sess.ID + "\n",
		"# Notes: post-op check\n",
		"# Wire Diameter: 0.7mm\n",
		"# Created: " + sess.Created + "\n",
		"slot,timestamp,grams,stress_g_mm2\n",
		"1,", // first data row
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("payload missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(text, "12.50") || !strings.Contains(text, "32.480") {
		t.Fatalf("reading row formats missing:\n%s", text)
	}

	// Header block precedes the tabular block.
	if strings.Index(text, "# Created:") > strings.Index(text, "slot,timestamp") {
		t.Fatalf("header block must precede csv block:\n%s", text)
	}
}

func TestExportMissingSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	u, _ := s.CreateUser("Alice", "")
	bp, _ := s.CreateBodyPart(u.ID, "Forearm", "")
	if _, err := s.ExportSession(u.ID, bp.ID, "2026-01-01T00-00-00-000Z"); !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestExportFileName(t *testing.T) {
	s := newTestStore(t)
	u, _ := s.CreateUser("Alice Smith", "")
	bp, _ := s.CreateBodyPart(u.ID, "Left Forearm", "")
	sess, err := s.CreateSession(u.ID, bp.ID, "", 0.7, 41)
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}

	got := s.ExportFileName(u.ID, bp.ID, sess.ID)
	want := "pressure_Alice_Smith_Left_Forearm_" + sess.ID + ".csv"
	if got != want {
		t.Fatalf("file name mismatch: got=%q want=%q", got, want)
	}
}
