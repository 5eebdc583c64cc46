package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// UserMeta is the persisted patient metadata.
type UserMeta struct {
	Name    string `json:"name"`
	Notes   string `json:"notes"`
	Created string `json:"created"`
}

// User is a patient with its assigned ID.
type User struct {
	ID string `json:"id"`
	UserMeta
}

// UserSummary is one row of the patient list.
type UserSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Notes         string `json:"notes"`
	Created       string `json:"created"`
	BodyPartCount int    `json:"bodyPartCount"`
}

// ListUsers returns all patients sorted by name ascending. A missing or
// unreadable meta file degrades to the directory name, never an error.
func (s *Store) ListUsers() ([]UserSummary, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	out := make([]UserSummary, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id := e.Name()
		meta := UserMeta{Name: id}
		if m, err := s.readUserMeta(id); err == nil {
			meta = m
		}
		if strings.TrimSpace(meta.Name) == "" {
			meta.Name = id
		}
		out = append(out, UserSummary{
			ID:            id,
			Name:          meta.Name,
			Notes:         meta.Notes,
			Created:       meta.Created,
			BodyPartCount: countSubdirs(s.userDir(id)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// CreateUser allocates an ID from the patient name and writes the initial
// metadata.
func (s *Store) CreateUser(name, notes string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, invalid("patient name is required")
	}

	now := s.now()
	id := allocateID(name, now)
	meta := UserMeta{
		Name:    name,
		Notes:   notes,
		Created: formatCreated(now),
	}
	if err := s.writeUserMeta(id, meta); err != nil {
		return User{}, err
	}
	return User{ID: id, UserMeta: meta}, nil
}

// GetUser returns the patient's full metadata.
func (s *Store) GetUser(userID string) (User, error) {
	meta, err := s.readUserMeta(userID)
	if err != nil {
		if os.IsNotExist(err) || isMalformedMeta(err) {
			return User{}, notFound("user", userID)
		}
		return User{}, err
	}
	return User{ID: userID, UserMeta: meta}, nil
}

// UpdateUser merges only the supplied fields into the stored metadata. Nil
// fields are untouched.
func (s *Store) UpdateUser(userID string, name, notes *string) error {
	meta, err := s.readUserMeta(userID)
	if err != nil {
		if os.IsNotExist(err) || isMalformedMeta(err) {
			return notFound("user", userID)
		}
		return err
	}
	if name != nil {
		meta.Name = *name
	}
	if notes != nil {
		meta.Notes = *notes
	}
	return s.writeUserMeta(userID, meta)
}

// DeleteUser removes the patient and every body part, session and reading
// below it. Deleting an absent patient succeeds.
func (s *Store) DeleteUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid("user id is required")
	}
	if err := os.RemoveAll(s.userDir(userID)); err != nil {
		return fmt.Errorf("delete user dir: %w", err)
	}
	return nil
}

func (s *Store) readUserMeta(userID string) (UserMeta, error) {
	b, err := os.ReadFile(filepath.Join(s.userDir(userID), userMetaFile))
	if err != nil {
		return UserMeta{}, err
	}
	var meta UserMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return UserMeta{}, malformedMeta(err)
	}
	return meta, nil
}

func (s *Store) writeUserMeta(userID string, meta UserMeta) error {
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal user meta: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.userDir(userID), userMetaFile), b)
}
