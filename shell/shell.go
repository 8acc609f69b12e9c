// Package shell implements the interactive session engine: key routing,
// the line editor, history recall, command dispatch and the login/signup
// credential capture flow.
package shell

import (
	"context"

	"pkt.systems/osiris/schema"
)

// Display is the terminal surface the engine draws on.
type Display interface {
	Write(text string)
	WriteLine(text string)
	Clear()
}

// Host receives side effects aimed at the application around the terminal.
type Host interface {
	Navigate(target string)
	Toggle()
}

// Backend performs the authentication calls behind whoami, login, signup
// and logout. Calls run off the event loop.
type Backend interface {
	Login(ctx context.Context, username, password string) (schema.AuthResult, error)
	Signup(ctx context.Context, email, password, username string) (schema.AuthResult, error)
	Logout(ctx context.Context) (schema.AuthResult, error)
	Whoami(ctx context.Context) (schema.AuthResult, error)
}

// Preferences persists per-client settings across engine reloads.
type Preferences interface {
	Theme() schema.ThemeName
	SaveTheme(name schema.ThemeName) error
}

// Session is the signed-in state shown in the prompt.
type Session struct {
	LoggedIn bool
	Username string
}

const guestName = "guest"

// GuestSession returns the logged-out session.
func GuestSession() Session {
	return Session{Username: guestName}
}

type nopHost struct{}

func (nopHost) Navigate(string) {}
func (nopHost) Toggle()         {}

type memoryPreferences struct {
	theme schema.ThemeName
}

func (m *memoryPreferences) Theme() schema.ThemeName {
	return m.theme
}

func (m *memoryPreferences) SaveTheme(name schema.ThemeName) error {
	m.theme = name
	return nil
}

type offlineBackend struct{}

func (offlineBackend) Login(context.Context, string, string) (schema.AuthResult, error) {
	return schema.AuthResult{Message: "Login failed: backend unavailable"}, nil
}

func (offlineBackend) Signup(context.Context, string, string, string) (schema.AuthResult, error) {
	return schema.AuthResult{Message: "Signup failed: backend unavailable"}, nil
}

func (offlineBackend) Logout(context.Context) (schema.AuthResult, error) {
	return schema.AuthResult{Message: "Not logged in."}, nil
}

func (offlineBackend) Whoami(context.Context) (schema.AuthResult, error) {
	return schema.AuthResult{Message: "Not logged in."}, nil
}
