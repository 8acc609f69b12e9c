package schema

import "strings"

// DefaultTheme is the default terminal theme name.
const DefaultTheme ThemeName = "github"

var themeNames = []ThemeName{
	"github",
	"dracula",
	"monokai",
	"nord",
	"gruvbox",
}

// AvailableThemes returns the supported theme names.
func AvailableThemes() []ThemeName {
	out := make([]ThemeName, len(themeNames))
	copy(out, themeNames)
	return out
}

// NormalizeThemeName returns a canonical theme name if supported.
func NormalizeThemeName(name string) (ThemeName, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	switch normalized {
	case "github", "github-dark":
		return "github", true
	case "dracula":
		return "dracula", true
	case "monokai":
		return "monokai", true
	case "nord":
		return "nord", true
	case "gruvbox", "gruvbox-dark":
		return "gruvbox", true
	default:
		return "", false
	}
}
