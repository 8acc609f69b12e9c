package theme

import (
	"pkt.systems/osiris/schema"
)

// Palette is the full color set of a terminal theme as hex strings.
// The browser host hands it to xterm.js verbatim; the engine derives its
// role styles from it.
type Palette struct {
	Name          schema.ThemeName `json:"-"`
	Label         string           `json:"name"`
	Background    string           `json:"background"`
	Foreground    string           `json:"foreground"`
	Cursor        string           `json:"cursor"`
	Black         string           `json:"black"`
	Red           string           `json:"red"`
	Green         string           `json:"green"`
	Yellow        string           `json:"yellow"`
	Blue          string           `json:"blue"`
	Magenta       string           `json:"magenta"`
	Cyan          string           `json:"cyan"`
	White         string           `json:"white"`
	BrightBlack   string           `json:"brightBlack"`
	BrightRed     string           `json:"brightRed"`
	BrightGreen   string           `json:"brightGreen"`
	BrightYellow  string           `json:"brightYellow"`
	BrightBlue    string           `json:"brightBlue"`
	BrightMagenta string           `json:"brightMagenta"`
	BrightCyan    string           `json:"brightCyan"`
	BrightWhite   string           `json:"brightWhite"`
}

var palettes = map[schema.ThemeName]Palette{
	"github": {
		Name:          "github",
		Label:         "GitHub Dark",
		Background:    "#0d1117",
		Foreground:    "#e6edf3",
		Cursor:        "#58a6ff",
		Black:         "#21262d",
		Red:           "#ff6b6b",
		Green:         "#3fb950",
		Yellow:        "#ffd700",
		Blue:          "#58a6ff",
		Magenta:       "#bc8cff",
		Cyan:          "#39c5cf",
		White:         "#b1bac4",
		BrightBlack:   "#8b949e",
		BrightRed:     "#ff8585",
		BrightGreen:   "#7ee787",
		BrightYellow:  "#f0e68c",
		BrightBlue:    "#79c0ff",
		BrightMagenta: "#d2a8ff",
		BrightCyan:    "#56d4dd",
		BrightWhite:   "#ffffff",
	},
	"dracula": {
		Name:          "dracula",
		Label:         "Dracula",
		Background:    "#111115",
		Foreground:    "#f8f8f2",
		Cursor:        "#f8f8f0",
		Black:         "#21222c",
		Red:           "#ff6e67",
		Green:         "#5af78e",
		Yellow:        "#f4f99d",
		Blue:          "#caa9fa",
		Magenta:       "#ff92d0",
		Cyan:          "#9aedfe",
		White:         "#f8f8f2",
		BrightBlack:   "#7984a4",
		BrightRed:     "#ff8b8b",
		BrightGreen:   "#69ff94",
		BrightYellow:  "#ffff00",
		BrightBlue:    "#d6acff",
		BrightMagenta: "#ffb3e6",
		BrightCyan:    "#c2f0ff",
		BrightWhite:   "#ffffff",
	},
	"monokai": {
		Name:          "monokai",
		Label:         "Monokai",
		Background:    "#272822",
		Foreground:    "#f8f8f2",
		Cursor:        "#f8f8f0",
		Black:         "#272822",
		Red:           "#ff2c70",
		Green:         "#a7e22e",
		Yellow:        "#ffd866",
		Blue:          "#78dce8",
		Magenta:       "#c792ea",
		Cyan:          "#a1efe4",
		White:         "#f8f8f2",
		BrightBlack:   "#908d84",
		BrightRed:     "#ff6188",
		BrightGreen:   "#bae67e",
		BrightYellow:  "#ffe066",
		BrightBlue:    "#85daed",
		BrightMagenta: "#d4b5f8",
		BrightCyan:    "#b8f4ed",
		BrightWhite:   "#ffffff",
	},
	"nord": {
		Name:          "nord",
		Label:         "Nord",
		Background:    "#2e3440",
		Foreground:    "#eceff4",
		Cursor:        "#d8dee9",
		Black:         "#3b4252",
		Red:           "#d06f79",
		Green:         "#a3be8c",
		Yellow:        "#f0d399",
		Blue:          "#88c0d0",
		Magenta:       "#c895bf",
		Cyan:          "#8be9fd",
		White:         "#e5e9f0",
		BrightBlack:   "#616e88",
		BrightRed:     "#dd828c",
		BrightGreen:   "#b4d4a1",
		BrightYellow:  "#f5dda7",
		BrightBlue:    "#a5d6e0",
		BrightMagenta: "#d4a5d0",
		BrightCyan:    "#9ef0ff",
		BrightWhite:   "#ffffff",
	},
	"gruvbox": {
		Name:          "gruvbox",
		Label:         "Gruvbox Dark",
		Background:    "#282828",
		Foreground:    "#fbf1c7",
		Cursor:        "#ebdbb2",
		Black:         "#282828",
		Red:           "#fb4934",
		Green:         "#b8bb26",
		Yellow:        "#fabd2f",
		Blue:          "#83a598",
		Magenta:       "#d3869b",
		Cyan:          "#8ec07c",
		White:         "#a89984",
		BrightBlack:   "#a89984",
		BrightRed:     "#fe8019",
		BrightGreen:   "#d5c4a1",
		BrightYellow:  "#fdd787",
		BrightBlue:    "#a4c5db",
		BrightMagenta: "#e8b4bc",
		BrightCyan:    "#b8d4a8",
		BrightWhite:   "#ffffff",
	},
}

// ForName returns the palette for name, falling back to the default theme
// for empty or unknown names.
func ForName(name schema.ThemeName) Palette {
	if name == "" {
		name = schema.DefaultTheme
	}
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[schema.DefaultTheme]
}

// Lookup returns the palette for a user-supplied name.
func Lookup(name string) (Palette, bool) {
	normalized, ok := schema.NormalizeThemeName(name)
	if !ok {
		return Palette{}, false
	}
	p, ok := palettes[normalized]
	return p, ok
}
