package schema

import (
	"errors"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	cases := []struct {
		name  string
		user  string
		valid bool
	}{
		{"simple", "alice", true},
		{"with-dots", "alice.dev", true},
		{"with-underscore", "alice_dev", true},
		{"with-dash", "alice-dev", true},
		{"with-digits", "alice123", true},
		{"empty", "", false},
		{"uppercase", "Alice", false},
		{"space", "alice dev", false},
		{"leading-space", " alice", false},
		{"trailing-space", "alice ", false},
		{"unicode", "Ã¥lice", false},
		{"symbol", "alice@", false},
	}

	for _, tc := range cases {
		err := ValidateUsername(tc.user)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("case %q expected error, got nil", tc.name)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Alice@Example.COM ")
	if err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}
	if got != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", got)
	}
	for _, bad := range []string{"", "alice", "@example.com", "alice@", "a@b@c", "al ice@example.com"} {
		if _, err := NormalizeEmail(bad); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("expected ErrInvalidEmail for %q, got %v", bad, err)
		}
	}
}

func TestNormalizeClientID(t *testing.T) {
	got, err := NormalizeClientID("Alice/../Dev")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "alice_.._dev" {
		t.Fatalf("expected sanitized id, got %q", got)
	}
	for _, bad := range []string{"", "  ", ".", ".."} {
		if _, err := NormalizeClientID(bad); !errors.Is(err, ErrInvalidClient) {
			t.Fatalf("expected ErrInvalidClient for %q, got %v", bad, err)
		}
	}
}

func TestNormalizeThemeName(t *testing.T) {
	cases := map[string]ThemeName{
		"github":       "github",
		" Dracula ":    "dracula",
		"GRUVBOX_DARK": "gruvbox",
		"nord":         "nord",
		"monokai":      "monokai",
	}
	for in, want := range cases {
		got, ok := NormalizeThemeName(in)
		if !ok || got != want {
			t.Fatalf("NormalizeThemeName(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := NormalizeThemeName("solarized"); ok {
		t.Fatalf("expected unknown theme to be rejected")
	}
	if AvailableThemes()[0] != DefaultTheme {
		t.Fatalf("expected default theme to be listed first")
	}
}
