package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

// Original firmware defaults: 0.7 mm round wire, 41 g calibration mass.
const (
	DefaultWireDiameterMM  = 0.7
	DefaultCalibrationMass = 41.0
)

// SlotCount is the fixed size of a complete reading set.
const SlotCount = 5

// SessionMeta is the persisted session metadata. WireDiameter fixes the
// stress factor for the session's whole lifetime; later global settings
// never change it.
type SessionMeta struct {
	Created         string  `json:"created"`
	Notes           string  `json:"notes"`
	WireDiameter    float64 `json:"wireDiameter"`
	CalibrationMass float64 `json:"calibrationMass"`
}

// WireArea returns the wire cross-section in mm².
func (m SessionMeta) WireArea() float64 {
	r := m.WireDiameter / 2
	return math.Pi * r * r
}

// Stress converts a mass reading to g/mm² using the session's fixed factor.
func (m SessionMeta) Stress(grams float64) float64 {
	area := m.WireArea()
	if area <= 0 {
		return 0
	}
	return grams / area
}

// Session is one measurement session including its reading set.
type Session struct {
	ID string `json:"id"`
	SessionMeta
	Readings []Reading `json:"readings"`
}

// Complete reports whether the session has all five reading slots filled.
func (s Session) Complete() bool {
	return len(s.Readings) == SlotCount
}

// SessionSummary is one row of the session list for a region.
type SessionSummary struct {
	ID              string  `json:"id"`
	Created         string  `json:"created"`
	Notes           string  `json:"notes"`
	WireDiameter    float64 `json:"wireDiameter"`
	CalibrationMass float64 `json:"calibrationMass"`
	ReadingCount    int     `json:"readingsCount"`
}

// ListSessions returns the region's sessions sorted by creation time, most
// recent first. A missing region yields an empty list.
func (s *Store) ListSessions(userID, bodyPartID string) ([]SessionSummary, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(bodyPartID) == "" {
		return nil, nil
	}
	dir := s.bodyPartDir(userID, bodyPartID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read body part dir: %w", err)
	}

	out := make([]SessionSummary, 0, len(entries))
	for _, e := range entries {
		sessionID, ok := sessionIDFromMetaFile(e.Name())
		if !ok {
			continue
		}
		meta, err := s.readSessionMeta(userID, bodyPartID, sessionID)
		if err != nil {
			meta = SessionMeta{}
		}
		count := 0
		if readings, err := readReadingsFile(s.sessionCSVPath(userID, bodyPartID, sessionID)); err == nil {
			count = len(readings)
		}
		out = append(out, SessionSummary{
			ID:              sessionID,
			Created:         meta.Created,
			Notes:           meta.Notes,
			WireDiameter:    meta.WireDiameter,
			CalibrationMass: meta.CalibrationMass,
			ReadingCount:    count,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return createdTime(out[i].Created).After(createdTime(out[j].Created))
	})
	return out, nil
}

// CreateSession writes the session metadata and an empty reading file (header
// row only). Zero or negative diameter/mass fall back to the defaults.
func (s *Store) CreateSession(userID, bodyPartID, notes string, wireDiameter, calibrationMass float64) (Session, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(bodyPartID) == "" {
		return Session{}, invalid("user and body part are required")
	}
	if wireDiameter <= 0 {
		wireDiameter = DefaultWireDiameterMM
	}
	if calibrationMass <= 0 {
		calibrationMass = DefaultCalibrationMass
	}

	now := s.now()
	sessionID := sessionIDFor(now)
	meta := SessionMeta{
		Created:         formatCreated(now),
		Notes:           notes,
		WireDiameter:    wireDiameter,
		CalibrationMass: calibrationMass,
	}
	if err := s.writeSessionMeta(userID, bodyPartID, sessionID, meta); err != nil {
		return Session{}, err
	}
	if err := writeReadingsFile(s.sessionCSVPath(userID, bodyPartID, sessionID), nil); err != nil {
		return Session{}, err
	}
	return Session{ID: sessionID, SessionMeta: meta, Readings: []Reading{}}, nil
}

// GetSession returns the session metadata plus its reading collection.
func (s *Store) GetSession(userID, bodyPartID, sessionID string) (Session, error) {
	meta, err := s.readSessionMeta(userID, bodyPartID, sessionID)
	if err != nil {
		if os.IsNotExist(err) || isMalformedMeta(err) {
			return Session{}, notFound("session", sessionID)
		}
		return Session{}, err
	}

	readings := []Reading{}
	if rs, err := readReadingsFile(s.sessionCSVPath(userID, bodyPartID, sessionID)); err == nil {
		readings = rs
	}
	return Session{ID: sessionID, SessionMeta: meta, Readings: readings}, nil
}

// UpdateSessionNotes replaces the session's notes, leaving everything else
// untouched.
func (s *Store) UpdateSessionNotes(userID, bodyPartID, sessionID, notes string) error {
	meta, err := s.readSessionMeta(userID, bodyPartID, sessionID)
	if err != nil {
		if os.IsNotExist(err) || isMalformedMeta(err) {
			return notFound("session", sessionID)
		}
		return err
	}
	meta.Notes = notes
	return s.writeSessionMeta(userID, bodyPartID, sessionID, meta)
}

// DeleteSession removes the session's meta and reading files. Idempotent.
func (s *Store) DeleteSession(userID, bodyPartID, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return invalid("session id is required")
	}
	for _, p := range []string{
		s.sessionCSVPath(userID, bodyPartID, sessionID),
		s.sessionMetaPath(userID, bodyPartID, sessionID),
	} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete session file: %w", err)
		}
	}
	return nil
}

// AddReading inserts or replaces the reading at slot, stamping a fresh
// capture timestamp, then rewrites the whole sorted collection. Overlapping
// writes to the same slot resolve as last-write-wins.
func (s *Store) AddReading(userID, bodyPartID, sessionID string, slot int, grams, stress float64) error {
	if slot < 1 || slot > SlotCount {
		return invalid("slot must be between 1 and %d", SlotCount)
	}

	path := s.sessionCSVPath(userID, bodyPartID, sessionID)
	readings, err := readReadingsFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound("session", sessionID)
		}
		return err
	}

	readings = removeSlot(readings, slot)
	readings = append(readings, Reading{
		Slot:      slot,
		Timestamp: formatCreated(s.now()),
		Grams:     grams,
		Stress:    stress,
	})
	sort.Slice(readings, func(i, j int) bool { return readings[i].Slot < readings[j].Slot })

	return writeReadingsFile(path, readings)
}

// DeleteReading removes the slot if present; removing an absent slot is a
// no-op that still rewrites the collection.
func (s *Store) DeleteReading(userID, bodyPartID, sessionID string, slot int) error {
	path := s.sessionCSVPath(userID, bodyPartID, sessionID)
	readings, err := readReadingsFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound("session", sessionID)
		}
		return err
	}
	return writeReadingsFile(path, removeSlot(readings, slot))
}

func removeSlot(readings []Reading, slot int) []Reading {
	out := readings[:0]
	for _, rd := range readings {
		if rd.Slot != slot {
			out = append(out, rd)
		}
	}
	return out
}

func sessionIDFromMetaFile(name string) (string, bool) {
	if !strings.HasPrefix(name, sessionPrefix) || !strings.HasSuffix(name, metaSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, sessionPrefix), metaSuffix)
	return id, id != ""
}

func (s *Store) readSessionMeta(userID, bodyPartID, sessionID string) (SessionMeta, error) {
	b, err := os.ReadFile(s.sessionMetaPath(userID, bodyPartID, sessionID))
	if err != nil {
		return SessionMeta{}, err
	}
	var meta SessionMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return SessionMeta{}, malformedMeta(err)
	}
	return meta, nil
}

func (s *Store) writeSessionMeta(userID, bodyPartID, sessionID string, meta SessionMeta) error {
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session meta: %w", err)
	}
	return writeFileAtomic(s.sessionMetaPath(userID, bodyPartID, sessionID), b)
}
