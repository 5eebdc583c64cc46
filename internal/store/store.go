// Package store is the system of record: a three-level directory hierarchy of
// patients, body regions and measurement sessions under one root data dir.
// Every mutation is a read-entire-file, modify, write-entire-file cycle; the
// store itself provides no cross-call locking (single-operator tool, one
// active writer).
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	userMetaFile     = "user_meta.json"
	bodyPartMetaFile = "bodypart_meta.json"
	sessionPrefix    = "session_"
	metaSuffix       = "_meta.json"

	idMaxLabelLen = 50
)

var (
	idStripRegex    = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)
	idCollapseRegex = regexp.MustCompile(`\s+`)
)

// Store manages the persisted entity hierarchy rooted at one directory.
type Store struct {
	root string
	now  func() time.Time
}

// New returns a store over the given root directory. The directory is
// created on first use, not here.
func New(root string) *Store {
	return &Store{root: strings.TrimSpace(root), now: time.Now}
}

// Root returns the data directory this store manages.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) userDir(userID string) string {
	return filepath.Join(s.root, userID)
}

func (s *Store) bodyPartDir(userID, bodyPartID string) string {
	return filepath.Join(s.root, userID, bodyPartID)
}

func (s *Store) sessionMetaPath(userID, bodyPartID, sessionID string) string {
	return filepath.Join(s.bodyPartDir(userID, bodyPartID), sessionPrefix+sessionID+metaSuffix)
}

func (s *Store) sessionCSVPath(userID, bodyPartID, sessionID string) string {
	return filepath.Join(s.bodyPartDir(userID, bodyPartID), sessionPrefix+sessionID+".csv")
}

// allocateID derives a filesystem-safe slug from a human label plus a
// creation-time token, unique enough without a central counter.
func allocateID(label string, now time.Time) string {
	slug := idStripRegex.ReplaceAllString(label, "")
	slug = idCollapseRegex.ReplaceAllString(strings.TrimSpace(slug), "_")
	if len(slug) > idMaxLabelLen {
		slug = slug[:idMaxLabelLen]
	}
	return slug + "_" + strconv.FormatInt(now.UnixMilli(), 10)
}

// sessionIDFor derives the sortable timestamp ID used for session files.
func sessionIDFor(now time.Time) string {
	iso := now.UTC().Format("2006-01-02T15:04:05.000") + "Z"
	iso = strings.ReplaceAll(iso, ":", "-")
	return strings.ReplaceAll(iso, ".", "-")
}

func formatCreated(now time.Time) string {
	return now.UTC().Format("2006-01-02T15:04:05.000") + "Z"
}

// createdTime parses a stored creation timestamp, zero on malformed input so
// sort order degrades instead of failing.
func createdTime(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// errMalformedMeta marks stored metadata that no longer parses; read paths
// surface it as "not found" instead of crashing.
type malformedMetaError struct {
	err error
}

func (e *malformedMetaError) Error() string { return "malformed meta: " + e.err.Error() }
func (e *malformedMetaError) Unwrap() error { return e.err }

func malformedMeta(err error) error {
	return &malformedMetaError{err: err}
}

func isMalformedMeta(err error) bool {
	var mm *malformedMetaError
	return errors.As(err, &mm)
}

func countSubdirs(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			n++
		}
	}
	return n
}

// writeFileAtomic replaces path via a temp file and rename so a crashed
// write never leaves a truncated entity file behind.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
