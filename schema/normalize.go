package schema

import (
	"strings"
)

// ValidateUsername ensures a username matches [a-z0-9._-] with no normalization.
func ValidateUsername(username string) error {
	if username == "" {
		return ErrInvalidUser
	}
	if strings.TrimSpace(username) != username {
		return ErrInvalidUser
	}
	for _, r := range username {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' || r == '_' || r == '-' {
			continue
		}
		return ErrInvalidUser
	}
	return nil
}

// NormalizeEmail trims and lowercases an email address and checks that it
// has a local part and a domain around a single '@'.
func NormalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	local, domain, ok := strings.Cut(trimmed, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "", ErrInvalidEmail
	}
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return "", ErrInvalidEmail
	}
	return trimmed, nil
}

// NormalizeClientID maps a raw client identifier onto a file-safe form.
// Letters are lowercased; anything outside [a-z0-9._-] becomes '_'.
func NormalizeClientID(raw string) (ClientID, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == "." || trimmed == ".." {
		return "", ErrInvalidClient
	}
	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > 128 {
		out = out[:128]
	}
	return ClientID(out), nil
}
