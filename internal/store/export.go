package store

import (
	"fmt"
	"os"
	"strings"
)

// ExportSession renders one session plus its ancestry metadata into a
// portable payload: `# key: value` comment lines followed by the stored
// reading CSV verbatim, header row included. The caller chooses where the
// bytes go.
func (s *Store) ExportSession(userID, bodyPartID, sessionID string) ([]byte, error) {
	csvBytes, err := os.ReadFile(s.sessionCSVPath(userID, bodyPartID, sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound("session", sessionID)
		}
		return nil, fmt.Errorf("read session csv: %w", err)
	}
	meta, err := s.readSessionMeta(userID, bodyPartID, sessionID)
	if err != nil {
		if os.IsNotExist(err) || isMalformedMeta(err) {
			return nil, notFound("session", sessionID)
		}
		return nil, err
	}

	patient, region := s.ancestryLabels(userID, bodyPartID)

	var b strings.Builder
	fmt.Fprintf(&b, "# Patient: %s\n", patient)
	fmt.Fprintf(&b, "# Body Part: %s\n", region)
	fmt.Fprintf(&b, "# Session: %s\n", sessionID)
	fmt.Fprintf(&b, "# Notes: %s\n", meta.Notes)
	fmt.Fprintf(&b, "# Wire Diameter: %gmm\n", meta.WireDiameter)
	fmt.Fprintf(&b, "# Created: %s\n", meta.Created)
	b.Write(csvBytes)
	return []byte(b.String()), nil
}

// ExportFileName builds the default export name from the ancestry labels.
func (s *Store) ExportFileName(userID, bodyPartID, sessionID string) string {
	patient, region := s.ancestryLabels(userID, bodyPartID)
	flat := func(v string) string {
		return strings.Join(strings.Fields(v), "_")
	}
	return fmt.Sprintf("pressure_%s_%s_%s.csv", flat(patient), flat(region), sessionID)
}

// ancestryLabels resolves the human labels for the export header, degrading
// to the raw IDs when a meta file is missing or unreadable.
func (s *Store) ancestryLabels(userID, bodyPartID string) (patient, region string) {
	patient, region = userID, bodyPartID
	if um, err := s.readUserMeta(userID); err == nil && strings.TrimSpace(um.Name) != "" {
		patient = um.Name
	}
	if bm, err := s.readBodyPartMeta(userID, bodyPartID); err == nil && strings.TrimSpace(bm.Label) != "" {
		region = bm.Label
	}
	return patient, region
}
