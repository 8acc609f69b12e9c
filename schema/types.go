package schema

import "time"

// UserID identifies an account in the reference user store.
type UserID string

// ClientID identifies a connecting client (browser cookie, SSH user, OS user).
// Preferences such as the theme are keyed by client, not by account.
type ClientID string

// ThemeName identifies a terminal color theme.
type ThemeName string

// User is the public view of an account.
type User struct {
	ID        UserID    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult is the outcome of a backend authentication call.
type AuthResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// NoteID identifies a note in the notes store.
type NoteID string

// Note is one entry of a user's notes app.
type Note struct {
	ID        NoteID    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
