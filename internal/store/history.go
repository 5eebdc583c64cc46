package store

import (
	"os"
	"sort"
	"strings"
)

// HistoryPoint is one complete session's aggregate for the trend view.
type HistoryPoint struct {
	ID        string  `json:"id"`
	Created   string  `json:"created"`
	Notes     string  `json:"notes"`
	AvgGrams  float64 `json:"avgGrams"`
	AvgStress float64 `json:"avgStress"`
}

// History scans the region's sessions and aggregates only those with exactly
// five readings, sorted ascending by creation time. Partial sessions are
// silently excluded; an empty result is valid.
func (s *Store) History(userID, bodyPartID string) ([]HistoryPoint, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(bodyPartID) == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.bodyPartDir(userID, bodyPartID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]HistoryPoint, 0, len(entries))
	for _, e := range entries {
		sessionID, ok := sessionIDFromMetaFile(e.Name())
		if !ok {
			continue
		}
		meta, err := s.readSessionMeta(userID, bodyPartID, sessionID)
		if err != nil {
			continue
		}
		readings, err := readReadingsFile(s.sessionCSVPath(userID, bodyPartID, sessionID))
		if err != nil || len(readings) != SlotCount {
			continue
		}

		var sumGrams, sumStress float64
		for _, rd := range readings {
			sumGrams += rd.Grams
			sumStress += rd.Stress
		}
		out = append(out, HistoryPoint{
			ID:        sessionID,
			Created:   meta.Created,
			Notes:     meta.Notes,
			AvgGrams:  sumGrams / SlotCount,
			AvgStress: sumStress / SlotCount,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return createdTime(out[i].Created).Before(createdTime(out[j].Created))
	})
	return out, nil
}
