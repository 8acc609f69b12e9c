// Package notes stores the per-user notes behind the browser notes app.
package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pkt.systems/osiris/schema"
	"pkt.systems/pslog"
)

// Store keeps one JSON file of notes per user.
type Store struct {
	dir string
	mu  sync.Mutex
	log pslog.Logger
	now func() time.Time
}

// NewStore constructs a notes store rooted at dir.
func NewStore(dir string) (*Store, error) {
	return NewStoreWithLogger(dir, nil)
}

// NewStoreWithLogger constructs a notes store with logging.
func NewStoreWithLogger(dir string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("notes directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("notes_dir", dir)
	}
	return &Store{dir: dir, log: logger, now: func() time.Time { return time.Now().UTC() }}, nil
}

// List returns the user's notes, newest first.
func (s *Store) List(user schema.UserID) ([]schema.Note, error) {
	path, err := s.pathFor(user)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	notes, err := s.readLocked(path)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.After(notes[j].CreatedAt) })
	return notes, nil
}

// Add creates a note.
func (s *Store) Add(user schema.UserID, title, content string) (schema.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return schema.Note{}, schema.ErrInvalidNote
	}
	path, err := s.pathFor(user)
	if err != nil {
		return schema.Note{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	notes, err := s.readLocked(path)
	if err != nil {
		return schema.Note{}, err
	}
	now := s.now()
	note := schema.Note{
		ID:        schema.NoteID(uuid.NewString()),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.writeLocked(path, append(notes, note)); err != nil {
		s.warn("notes add failed", "user_id", user, "err", err)
		return schema.Note{}, err
	}
	if s.log != nil {
		s.log.Info("notes added", "user_id", user, "note", note.ID)
	}
	return note, nil
}

// Update replaces the title and content of the note with the given id.
func (s *Store) Update(user schema.UserID, id schema.NoteID, title, content string) (schema.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return schema.Note{}, schema.ErrInvalidNote
	}
	path, err := s.pathFor(user)
	if err != nil {
		return schema.Note{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	notes, err := s.readLocked(path)
	if err != nil {
		return schema.Note{}, err
	}
	for i := range notes {
		if notes[i].ID != id {
			continue
		}
		notes[i].Title = title
		notes[i].Content = content
		notes[i].UpdatedAt = s.now()
		if err := s.writeLocked(path, notes); err != nil {
			s.warn("notes update failed", "user_id", user, "note", id, "err", err)
			return schema.Note{}, err
		}
		if s.log != nil {
			s.log.Info("notes updated", "user_id", user, "note", id)
		}
		return notes[i], nil
	}
	return schema.Note{}, fmt.Errorf("note %q: %w", id, schema.ErrNoteNotFound)
}

// Find resolves identifier as a note id, then as a case-insensitive title.
func (s *Store) Find(user schema.UserID, identifier string) (schema.Note, error) {
	path, err := s.pathFor(user)
	if err != nil {
		return schema.Note{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	notes, err := s.readLocked(path)
	if err != nil {
		return schema.Note{}, err
	}
	i, err := match(notes, identifier)
	if err != nil {
		return schema.Note{}, err
	}
	return notes[i], nil
}

// Delete removes the note matched by identifier and returns it.
func (s *Store) Delete(user schema.UserID, identifier string) (schema.Note, error) {
	path, err := s.pathFor(user)
	if err != nil {
		return schema.Note{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	notes, err := s.readLocked(path)
	if err != nil {
		return schema.Note{}, err
	}
	i, err := match(notes, identifier)
	if err != nil {
		return schema.Note{}, err
	}
	removed := notes[i]
	notes = append(notes[:i], notes[i+1:]...)
	if err := s.writeLocked(path, notes); err != nil {
		s.warn("notes delete failed", "user_id", user, "note", removed.ID, "err", err)
		return schema.Note{}, err
	}
	if s.log != nil {
		s.log.Info("notes deleted", "user_id", user, "note", removed.ID)
	}
	return removed, nil
}

func match(notes []schema.Note, identifier string) (int, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return -1, schema.ErrNoteNotFound
	}
	for i, note := range notes {
		if string(note.ID) == identifier {
			return i, nil
		}
	}
	found := -1
	for i, note := range notes {
		if !strings.EqualFold(note.Title, identifier) {
			continue
		}
		if found >= 0 {
			return -1, fmt.Errorf("%q: %w", identifier, schema.ErrNoteAmbiguous)
		}
		found = i
	}
	if found < 0 {
		return -1, fmt.Errorf("%q: %w", identifier, schema.ErrNoteNotFound)
	}
	return found, nil
}

func (s *Store) pathFor(user schema.UserID) (string, error) {
	id, err := uuid.Parse(string(user))
	if err != nil {
		return "", fmt.Errorf("user id %q: %w", user, schema.ErrInvalidUser)
	}
	return filepath.Join(s.dir, id.String()+".json"), nil
}

func (s *Store) readLocked(path string) ([]schema.Note, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []schema.Note{}, nil
	}
	if err != nil {
		s.warn("notes load failed", "err", err)
		return nil, err
	}
	var notes []schema.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		s.warn("notes load failed", "path", path, "err", err)
		return nil, err
	}
	if notes == nil {
		notes = []schema.Note{}
	}
	return notes, nil
}

// writeLocked replaces path through a 0600 temp file in the same directory.
func (s *Store) writeLocked(path string, notes []schema.Note) error {
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".notes-*.json")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

func (s *Store) warn(msg string, keyvals ...any) {
	if s.log != nil {
		s.log.Warn(msg, keyvals...)
	}
}
