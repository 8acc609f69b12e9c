// Package prefs persists per-client terminal preferences, the server-side
// counterpart of a browser's local storage.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pkt.systems/osiris/schema"
	"pkt.systems/osiris/shell"
	"pkt.systems/pslog"
)

// ThemeKey is the preference key holding the terminal theme.
const ThemeKey = "terminal-theme"

// Store persists preference maps as one JSON file per client.
type Store struct {
	dir          string
	defaultTheme schema.ThemeName
	mu           sync.Mutex
	log          pslog.Logger
}

// NewStore constructs a preference store rooted at dir.
func NewStore(dir string, defaultTheme schema.ThemeName) (*Store, error) {
	return NewStoreWithLogger(dir, defaultTheme, nil)
}

// NewStoreWithLogger constructs a preference store with logging.
func NewStoreWithLogger(dir string, defaultTheme schema.ThemeName, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("preferences directory is required")
	}
	theme, ok := schema.NormalizeThemeName(string(defaultTheme))
	if !ok {
		if defaultTheme != "" {
			return nil, fmt.Errorf("default theme %q: %w", defaultTheme, schema.ErrInvalidTheme)
		}
		theme = schema.DefaultTheme
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("prefs_dir", dir)
	}
	return &Store{dir: dir, defaultTheme: theme, log: logger}, nil
}

// Load reads the preference map for client.
func (s *Store) Load(client schema.ClientID) (map[string]string, bool, error) {
	path, err := s.pathForClient(client)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(client, path)
}

// Save replaces the preference map for client.
func (s *Store) Save(client schema.ClientID, values map[string]string) error {
	path, err := s.pathForClient(client)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(client, path, values)
}

// Get returns a single preference value.
func (s *Store) Get(client schema.ClientID, key string) (string, bool, error) {
	values, _, err := s.Load(client)
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

// Set stores a single preference value, keeping the others.
func (s *Store) Set(client schema.ClientID, key, value string) error {
	path, err := s.pathForClient(client)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	values, _, err := s.loadLocked(client, path)
	if err != nil {
		return err
	}
	values[key] = value
	return s.saveLocked(client, path, values)
}

// Theme returns the client's saved theme, or the store default when none is
// saved or the saved name is no longer known.
func (s *Store) Theme(client schema.ClientID) schema.ThemeName {
	raw, ok, err := s.Get(client, ThemeKey)
	if err != nil || !ok {
		return s.defaultTheme
	}
	name, ok := schema.NormalizeThemeName(raw)
	if !ok {
		if s.log != nil {
			s.log.Warn("prefs theme unknown", "client", client, "theme", raw)
		}
		return s.defaultTheme
	}
	return name
}

// SetTheme validates and saves the client's theme.
func (s *Store) SetTheme(client schema.ClientID, name schema.ThemeName) error {
	normalized, ok := schema.NormalizeThemeName(string(name))
	if !ok {
		return fmt.Errorf("theme %q: %w", name, schema.ErrInvalidTheme)
	}
	if err := s.Set(client, ThemeKey, string(normalized)); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Info("prefs theme saved", "client", client, "theme", normalized)
	}
	return nil
}

// ForClient binds the store to one client for use by the shell.
func (s *Store) ForClient(client schema.ClientID) *Binding {
	return &Binding{store: s, client: client}
}

// Binding is a Store scoped to a single client.
type Binding struct {
	store  *Store
	client schema.ClientID
}

var _ shell.Preferences = (*Binding)(nil)

// Theme implements shell.Preferences.
func (b *Binding) Theme() schema.ThemeName {
	return b.store.Theme(b.client)
}

// SaveTheme implements shell.Preferences.
func (b *Binding) SaveTheme(name schema.ThemeName) error {
	return b.store.SetTheme(b.client, name)
}

func (s *Store) loadLocked(client schema.ClientID, path string) (map[string]string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("prefs load miss", "client", client)
			}
			return map[string]string{}, false, nil
		}
		if s.log != nil {
			s.log.Warn("prefs load failed", "client", client, "err", err)
		}
		return nil, false, err
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		if s.log != nil {
			s.log.Warn("prefs load failed", "client", client, "err", err)
		}
		return nil, false, err
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, true, nil
}

func (s *Store) saveLocked(client schema.ClientID, path string, values map[string]string) error {
	if values == nil {
		values = map[string]string{}
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "prefs-*.json")
	if err != nil {
		if s.log != nil {
			s.log.Warn("prefs save failed", "client", client, "err", err)
		}
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("prefs save failed", "client", client, "err", err)
		}
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		if s.log != nil {
			s.log.Warn("prefs save failed", "client", client, "err", err)
		}
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		if s.log != nil {
			s.log.Warn("prefs save failed", "client", client, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Debug("prefs save ok", "client", client, "keys", len(values))
	}
	return nil
}

func (s *Store) pathForClient(client schema.ClientID) (string, error) {
	normalized, err := schema.NormalizeClientID(string(client))
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, string(normalized)+".json"), nil
}
