package schema

import "errors"

var (
	// ErrInvalidUser indicates an invalid username.
	ErrInvalidUser = errors.New("invalid user")
	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidClient indicates an invalid client identifier.
	ErrInvalidClient = errors.New("invalid client")
	// ErrUserExists indicates the username or email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound indicates no account matched the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials indicates a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordTooShort indicates the password is below the configured minimum.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrNotLoggedIn indicates the client has no signed-in account.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrInvalidTheme indicates an unknown theme name.
	ErrInvalidTheme = errors.New("invalid theme")
	// ErrAuthBusy indicates a backend request is still in flight.
	ErrAuthBusy = errors.New("auth request already in progress")
	// ErrInvalidNote indicates a note without a title.
	ErrInvalidNote = errors.New("note title required")
	// ErrNoteNotFound indicates no note matched the id or title.
	ErrNoteNotFound = errors.New("note not found")
	// ErrNoteAmbiguous indicates a title matched more than one note.
	ErrNoteAmbiguous = errors.New("note title is ambiguous")
)
