package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pkt.systems/osiris/internal/appconfig"
	"pkt.systems/osiris/schema"
	"pkt.systems/pslog"
)

// DefaultMinPassword is the shortest password Signup accepts unless the
// store is configured otherwise.
const DefaultMinPassword = 6

// User represents a stored user account.
type User struct {
	ID           schema.UserID `json:"id"`
	Email        string        `json:"email"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"password_hash"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Public returns the user without credentials.
func (u User) Public() *schema.User {
	return &schema.User{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

// Store manages users stored on disk.
type Store struct {
	file        userFile
	mu          sync.RWMutex
	users       map[string]User
	stamp       fileStamp
	minPassword int
	log         pslog.Logger
}

// NewStore loads or seeds the user store.
func NewStore(path string, seeds []appconfig.SeedUser) (*Store, error) {
	return NewStoreWithLogger(path, seeds, nil)
}

// NewStoreWithLogger loads or seeds the user store with logging.
func NewStoreWithLogger(path string, seeds []appconfig.SeedUser, logger pslog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("user file path is required")
	}
	if logger != nil {
		logger = logger.With("user_file", path)
	}
	store := &Store{
		file:        userFile{path: path},
		users:       make(map[string]User),
		minPassword: DefaultMinPassword,
		log:         logger,
	}
	if err := store.ensureFile(seeds); err != nil {
		return nil, err
	}
	if err := store.loadFromDisk(); err != nil {
		return nil, err
	}
	return store, nil
}

// SetMinPassword changes the minimum password length enforced by Signup.
func (s *Store) SetMinPassword(n int) {
	if n < 1 {
		n = DefaultMinPassword
	}
	s.mu.Lock()
	s.minPassword = n
	s.mu.Unlock()
}

// HashPassword returns a bcrypt hash suitable for AddUser and UpdatePassword.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Signup creates an account from the credentials collected by the shell.
func (s *Store) Signup(email, password, username string) (User, error) {
	normalizedEmail, err := schema.NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if err := schema.ValidateUsername(username); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	minPassword := s.minPassword
	s.mu.RUnlock()
	if utf8.RuneCountInString(password) < minPassword {
		return User{}, fmt.Errorf("%w: need %d characters", schema.ErrPasswordTooShort, minPassword)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	user := User{
		Email:        normalizedEmail,
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.AddUser(user); err != nil {
		return User{}, err
	}
	created, _ := s.Lookup(username)
	return created, nil
}

// Authenticate resolves username to its record and verifies password.
func (s *Store) Authenticate(username, password string) (User, error) {
	if err := s.refreshIfNeeded(); err != nil {
		return User{}, err
	}
	if err := schema.ValidateUsername(username); err != nil {
		return User{}, schema.ErrUserNotFound
	}
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return User{}, schema.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, schema.ErrInvalidCredentials
	}
	return user, nil
}

// Lookup returns the user with the given username.
func (s *Store) Lookup(username string) (User, bool) {
	if err := s.refreshIfNeeded(); err != nil && s.log != nil {
		s.log.Warn("auth store refresh failed", "err", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	return user, ok
}

// LookupID returns the user with the given id.
func (s *Store) LookupID(id schema.UserID) (User, bool) {
	if id == "" {
		return User{}, false
	}
	if err := s.refreshIfNeeded(); err != nil && s.log != nil {
		s.log.Warn("auth store refresh failed", "err", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.ID == id {
			return user, true
		}
	}
	return User{}, false
}

// LoadUsers returns a snapshot of users ordered by username.
func (s *Store) LoadUsers() []User {
	if err := s.refreshIfNeeded(); err != nil {
		if s.log != nil {
			s.log.Warn("auth store refresh failed", "err", err)
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

// AddUser inserts a new user and persists the store. Missing ids and
// creation times are filled in.
func (s *Store) AddUser(user User) error {
	if err := s.refreshIfNeeded(); err != nil {
		return err
	}
	if err := schema.ValidateUsername(user.Username); err != nil {
		return err
	}
	email, err := schema.NormalizeEmail(user.Email)
	if err != nil {
		return err
	}
	user.Email = email
	if strings.TrimSpace(user.PasswordHash) == "" {
		return errors.New("password hash is required")
	}
	if user.ID == "" {
		user.ID = schema.UserID(uuid.NewString())
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return fmt.Errorf("username %q: %w", user.Username, schema.ErrUserExists)
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return fmt.Errorf("email %q: %w", user.Email, schema.ErrUserExists)
		}
	}
	s.users[user.Username] = user
	if err := s.saveLocked(); err != nil {
		delete(s.users, user.Username)
		if s.log != nil {
			s.log.Warn("auth user add failed", "user", user.Username, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Info("auth user added", "user", user.Username, "user_id", user.ID)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(username, passwordHash string) error {
	if err := s.refreshIfNeeded(); err != nil {
		return err
	}
	if err := schema.ValidateUsername(username); err != nil {
		return err
	}
	if strings.TrimSpace(passwordHash) == "" {
		return errors.New("password hash is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return schema.ErrUserNotFound
	}
	previous := user.PasswordHash
	user.PasswordHash = passwordHash
	s.users[username] = user
	if err := s.saveLocked(); err != nil {
		user.PasswordHash = previous
		s.users[username] = user
		if s.log != nil {
			s.log.Warn("auth password update failed", "user", username, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Info("auth password updated", "user", username)
	}
	return nil
}

// DeleteUser removes a user.
func (s *Store) DeleteUser(username string) error {
	if err := s.refreshIfNeeded(); err != nil {
		return err
	}
	if err := schema.ValidateUsername(username); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return schema.ErrUserNotFound
	}
	delete(s.users, username)
	if err := s.saveLocked(); err != nil {
		s.users[username] = user
		if s.log != nil {
			s.log.Warn("auth user delete failed", "user", username, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Info("auth user deleted", "user", username)
	}
	return nil
}

func (s *Store) ensureFile(seeds []appconfig.SeedUser) error {
	exists, err := s.file.exists()
	if err != nil || exists {
		return err
	}
	now := time.Now().UTC()
	users := make([]User, 0, len(seeds))
	for _, seed := range seeds {
		if err := schema.ValidateUsername(seed.Username); err != nil {
			return fmt.Errorf("seed user %q: %w", seed.Username, err)
		}
		email, err := schema.NormalizeEmail(seed.Email)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", seed.Username, err)
		}
		users = append(users, User{
			ID:           schema.UserID(uuid.NewString()),
			Email:        email,
			Username:     seed.Username,
			PasswordHash: seed.PasswordHash,
			CreatedAt:    now,
		})
	}
	if _, err := s.file.write(users); err != nil {
		s.warn("auth store init failed", "err", err)
		return err
	}
	if s.log != nil {
		s.log.Info("auth store initialized", "users", len(users))
	}
	return nil
}

// saveLocked persists the in-memory users ordered by username.
func (s *Store) saveLocked() error {
	users := make([]User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	stamp, err := s.file.write(users)
	if err != nil {
		return err
	}
	s.stamp = stamp
	if s.log != nil {
		s.log.Debug("auth store save ok", "users", len(users))
	}
	return nil
}

// refreshIfNeeded reloads the user file when another process replaced it.
func (s *Store) refreshIfNeeded() error {
	latest, err := s.file.stat()
	if err != nil {
		s.warn("auth store stat failed", "err", err)
		return err
	}
	s.mu.RLock()
	unchanged := s.stamp == latest
	s.mu.RUnlock()
	if unchanged {
		return nil
	}
	return s.loadFromDisk()
}

func (s *Store) loadFromDisk() error {
	users, stamp, err := s.file.read()
	if err != nil {
		s.warn("auth store load failed", "err", err)
		return err
	}
	next := make(map[string]User, len(users))
	for _, user := range users {
		if err := schema.ValidateUsername(user.Username); err != nil {
			s.warn("auth store load failed", "user", user.Username, "err", err)
			return err
		}
		next[user.Username] = user
	}
	s.mu.Lock()
	s.users = next
	s.stamp = stamp
	s.mu.Unlock()
	if s.log != nil {
		s.log.Debug("auth store load ok", "users", len(users))
	}
	return nil
}

func (s *Store) warn(msg string, keyvals ...any) {
	if s.log != nil {
		s.log.Warn(msg, keyvals...)
	}
}
