package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BodyPartMeta is the persisted measurement-region metadata.
type BodyPartMeta struct {
	Label   string `json:"label"`
	Notes   string `json:"notes"`
	Created string `json:"created"`
}

// BodyPart is a measurement region with its assigned ID.
type BodyPart struct {
	ID string `json:"id"`
	BodyPartMeta
}

// BodyPartSummary is one row of the region list for a patient.
type BodyPartSummary struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Notes        string `json:"notes"`
	Created      string `json:"created"`
	SessionCount int    `json:"sessionCount"`
}

// ListBodyParts returns the patient's regions sorted by creation time,
// most recent first. A missing patient yields an empty list.
func (s *Store) ListBodyParts(userID string) ([]BodyPartSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.userDir(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read user dir: %w", err)
	}

	out := make([]BodyPartSummary, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := e.Name()
		meta := BodyPartMeta{Label: id}
		if m, err := s.readBodyPartMeta(userID, id); err == nil {
			meta = m
		}
		if strings.TrimSpace(meta.Label) == "" {
			meta.Label = id
		}
		out = append(out, BodyPartSummary{
			ID:           id,
			Label:        meta.Label,
			Notes:        meta.Notes,
			Created:      meta.Created,
			SessionCount: countSessionMetas(s.bodyPartDir(userID, id)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return createdTime(out[i].Created).After(createdTime(out[j].Created))
	})
	return out, nil
}

// CreateBodyPart allocates an ID from the label and writes the initial
// metadata under the patient.
func (s *Store) CreateBodyPart(userID, label, notes string) (BodyPart, error) {
	if strings.TrimSpace(userID) == "" {
		return BodyPart{}, invalid("no user selected")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return BodyPart{}, invalid("body part label is required")
	}

	now := s.now()
	id := allocateID(label, now)
	meta := BodyPartMeta{
		Label:   label,
		Notes:   notes,
		Created: formatCreated(now),
	}
	if err := s.writeBodyPartMeta(userID, id, meta); err != nil {
		return BodyPart{}, err
	}
	return BodyPart{ID: id, BodyPartMeta: meta}, nil
}

// GetBodyPart returns the region's full metadata.
func (s *Store) GetBodyPart(userID, bodyPartID string) (BodyPart, error) {
	meta, err := s.readBodyPartMeta(userID, bodyPartID)
	if err != nil {
		if os.IsNotExist(err) || isMalformedMeta(err) {
			return BodyPart{}, notFound("body part", bodyPartID)
		}
		return BodyPart{}, err
	}
	return BodyPart{ID: bodyPartID, BodyPartMeta: meta}, nil
}

// UpdateBodyPart merges only the supplied fields into the stored metadata.
func (s *Store) UpdateBodyPart(userID, bodyPartID string, label, notes *string) error {
	meta, err := s.readBodyPartMeta(userID, bodyPartID)
	if err != nil {
		if os.IsNotExist(err) || isMalformedMeta(err) {
			return notFound("body part", bodyPartID)
		}
		return err
	}
	if label != nil {
		meta.Label = *label
	}
	if notes != nil {
		meta.Notes = *notes
	}
	return s.writeBodyPartMeta(userID, bodyPartID, meta)
}

// DeleteBodyPart removes the region and all its sessions. Idempotent.
func (s *Store) DeleteBodyPart(userID, bodyPartID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(bodyPartID) == "" {
		return invalid("user id and body part id are required")
	}
	if err := os.RemoveAll(s.bodyPartDir(userID, bodyPartID)); err != nil {
		return fmt.Errorf("delete body part dir: %w", err)
	}
	return nil
}

func (s *Store) readBodyPartMeta(userID, bodyPartID string) (BodyPartMeta, error) {
	b, err := os.ReadFile(filepath.Join(s.bodyPartDir(userID, bodyPartID), bodyPartMetaFile))
	if err != nil {
		return BodyPartMeta{}, err
	}
	var meta BodyPartMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return BodyPartMeta{}, malformedMeta(err)
	}
	return meta, nil
}

func (s *Store) writeBodyPartMeta(userID, bodyPartID string, meta BodyPartMeta) error {
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal body part meta: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.bodyPartDir(userID, bodyPartID), bodyPartMetaFile), b)
}

func countSessionMetas(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, sessionPrefix) && strings.HasSuffix(name, metaSuffix) {
			n++
		}
	}
	return n
}
