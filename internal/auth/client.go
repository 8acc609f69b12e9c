package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkt.systems/osiris/schema"
	"pkt.systems/osiris/shell"
	"pkt.systems/pslog"
)

var _ shell.Backend = (*Client)(nil)

// Client is the signed-in state of one connection against a Store.
type Client struct {
	store   *Store
	mu      sync.Mutex
	current schema.UserID
	log     pslog.Logger
}

// Open returns a signed-out client bound to the store.
func (s *Store) Open(logger pslog.Logger) *Client {
	if logger == nil {
		logger = s.log
	}
	return &Client{store: s, log: logger}
}

// UserID returns the signed-in user id, or "" when signed out.
func (c *Client) UserID() schema.UserID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Login signs the client in as username.
func (c *Client) Login(ctx context.Context, username, password string) (schema.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return schema.AuthResult{}, err
	}
	user, err := c.store.Authenticate(username, password)
	switch {
	case errors.Is(err, schema.ErrUserNotFound):
		c.debug("auth login unknown user", "user", username)
		return schema.AuthResult{Message: "Username not found."}, nil
	case errors.Is(err, schema.ErrInvalidCredentials):
		c.debug("auth login rejected", "user", username)
		return schema.AuthResult{Message: "Login failed: invalid credentials"}, nil
	case err != nil:
		return schema.AuthResult{}, err
	}
	c.mu.Lock()
	c.current = user.ID
	c.mu.Unlock()
	c.info("auth login ok", "user", user.Username, "user_id", user.ID)
	return schema.AuthResult{
		Success: true,
		Message: fmt.Sprintf("Welcome back, %s!", user.Username),
		User:    user.Public(),
	}, nil
}

// Signup creates an account and signs the client in as it.
func (c *Client) Signup(ctx context.Context, email, password, username string) (schema.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return schema.AuthResult{}, err
	}
	user, err := c.store.Signup(email, password, username)
	if err != nil {
		if msg, ok := signupMessage(err); ok {
			c.debug("auth signup rejected", "user", username, "err", err)
			return schema.AuthResult{Message: msg}, nil
		}
		return schema.AuthResult{}, err
	}
	c.mu.Lock()
	c.current = user.ID
	c.mu.Unlock()
	c.info("auth signup ok", "user", user.Username, "user_id", user.ID)
	return schema.AuthResult{
		Success: true,
		Message: "Account created! Logged In!",
		User:    user.Public(),
	}, nil
}

// Logout signs the client out. Signing out while signed out succeeds.
func (c *Client) Logout(ctx context.Context) (schema.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return schema.AuthResult{}, err
	}
	c.mu.Lock()
	previous := c.current
	c.current = ""
	c.mu.Unlock()
	if previous != "" {
		c.info("auth logout", "user_id", previous)
	}
	return schema.AuthResult{Success: true, Message: "Logged out successfully."}, nil
}

// Whoami reports the signed-in user. A user deleted since login signs the
// client out.
func (c *Client) Whoami(ctx context.Context) (schema.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return schema.AuthResult{}, err
	}
	id := c.UserID()
	if id == "" {
		return schema.AuthResult{Message: "Not logged in."}, nil
	}
	user, ok := c.store.LookupID(id)
	if !ok {
		c.mu.Lock()
		if c.current == id {
			c.current = ""
		}
		c.mu.Unlock()
		c.info("auth session dropped", "user_id", id)
		return schema.AuthResult{Message: "Not logged in."}, nil
	}
	return schema.AuthResult{Success: true, Message: "User info retrieved.", User: user.Public()}, nil
}

func signupMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, schema.ErrUserExists):
		return "User already registered.", true
	case errors.Is(err, schema.ErrInvalidEmail):
		return "Invalid email address.", true
	case errors.Is(err, schema.ErrInvalidUser):
		return "Invalid username: use a-z, 0-9, '.', '_' or '-'.", true
	case errors.Is(err, schema.ErrPasswordTooShort):
		return "Password is too short.", true
	}
	return "", false
}

func (c *Client) info(msg string, keyvals ...any) {
	if c.log != nil {
		c.log.Info(msg, keyvals...)
	}
}

func (c *Client) debug(msg string, keyvals ...any) {
	if c.log != nil {
		c.log.Debug(msg, keyvals...)
	}
}
