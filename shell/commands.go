package shell

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"pkt.systems/osiris/internal/command"
	"pkt.systems/osiris/internal/theme"
	"pkt.systems/osiris/internal/version"
	"pkt.systems/osiris/schema"
)

const helpColumn = 10

var helpCategories = []string{"Navigation", "Authentication", "Customization", "System"}

// DefaultDispatcher returns the built-in command table.
func DefaultDispatcher() *Dispatcher {
	d := NewDispatcher()
	d.Register(Entry{Name: "help", Summary: "Show this help", Category: "System", Handler: cmdHelp})
	d.Register(Entry{Name: "ls", Summary: "List applications", Category: "Navigation", Handler: cmdList})
	d.Register(Entry{Name: "cd", Usage: "cd <app>", Summary: "Open Application", Category: "Navigation", Handler: cmdChangeDir})
	d.Register(Entry{Name: "signup", Summary: "Create new account", Category: "Authentication", Handler: cmdSignup})
	d.Register(Entry{Name: "login", Summary: "Login", Category: "Authentication", Handler: cmdLogin})
	d.Register(Entry{Name: "logout", Summary: "Logout", Category: "Authentication", Handler: cmdLogout})
	d.Register(Entry{Name: "whoami", Summary: "Show user info", Category: "Authentication", Handler: cmdWhoami})
	d.Register(Entry{Name: "theme", Usage: "theme [name]", Summary: "List or switch color themes", Category: "Customization", Handler: cmdTheme})
	d.Register(Entry{Name: "clear", Summary: "Clear terminal", Category: "System", Handler: cmdClear})
	d.Register(Entry{Name: "neofetch", Summary: "Show system info", Category: "System", Handler: cmdNeofetch})
	d.Register(Entry{Name: "banner", Summary: "Show the banner", Category: "System", Handler: cmdBanner})
	d.Register(Entry{Name: "exit", Summary: "Close terminal", Category: "System", Handler: cmdExit})
	return d
}

func cmdHelp(e *Engine, _ command.Command) Outcome {
	e.display.WriteLine(e.styles.Heading.Render("Available commands:"))
	e.display.WriteLine("")
	entries := e.dispatcher.Entries()
	for _, category := range helpCategories {
		var rows []Entry
		for _, entry := range entries {
			if entry.Category == category && entry.Name != "help" {
				rows = append(rows, entry)
			}
		}
		if len(rows) == 0 {
			continue
		}
		e.display.WriteLine(e.styles.Category.Render(category + ":"))
		for _, entry := range rows {
			e.display.WriteLine("  " + padRight(e.styles.Command.Render(entry.Name), helpColumn) + "- " + entry.Summary)
		}
		e.display.WriteLine("")
	}
	return Immediate()
}

func cmdList(e *Engine, _ command.Command) Outcome {
	cells := make([]string, 0, len(e.opts.Targets))
	for i, target := range e.opts.Targets {
		cell := e.styles.Directory.Render(target.Name)
		if i < len(e.opts.Targets)-1 {
			cell = padRight(cell, helpColumn+1)
		}
		cells = append(cells, cell)
	}
	e.display.WriteLine(strings.Join(cells, ""))
	return Immediate()
}

func cmdChangeDir(e *Engine, cmd command.Command) Outcome {
	name := cmd.Arg(0)
	if name == "" {
		return Immediate()
	}
	target, ok := e.opts.target(name)
	if !ok {
		e.display.WriteLine(e.styles.Error.Render(fmt.Sprintf("cd: %s: No such directory", name)))
		return Immediate()
	}
	e.display.WriteLine(e.styles.Success.Render(fmt.Sprintf("Opening %s...", target.Label)))
	e.log.Info("shell navigate", "target", target.Name)
	e.after(e.opts.ActionDelay, func() {
		e.host.Navigate(target.Name)
	})
	return Immediate()
}

func cmdWhoami(e *Engine, _ command.Command) Outcome {
	if e.busy() {
		return e.rejectBusy()
	}
	backend := e.backend
	return Deferred(func(ctx context.Context) Settle {
		res, err := backend.Whoami(ctx)
		return func() {
			if err == nil && res.Success && res.User != nil {
				e.display.WriteLine(e.styles.Success.Render(res.User.Email))
				return
			}
			if err != nil {
				e.log.Warn("shell whoami failed", "err", err)
			}
			e.display.WriteLine(e.styles.Error.Render("Not logged in"))
		}
	})
}

func cmdLogin(e *Engine, _ command.Command) Outcome {
	if e.busy() {
		return e.rejectBusy()
	}
	return e.startCapture(&loginCapture{})
}

func cmdSignup(e *Engine, _ command.Command) Outcome {
	if e.busy() {
		return e.rejectBusy()
	}
	e.display.WriteLine(e.styles.Heading.Render("Create Account"))
	return e.startCapture(&signupCapture{minLength: e.opts.MinPasswordLength})
}

func cmdLogout(e *Engine, _ command.Command) Outcome {
	if e.busy() {
		return e.rejectBusy()
	}
	backend := e.backend
	return Deferred(func(ctx context.Context) Settle {
		res, err := backend.Logout(ctx)
		return func() {
			if err == nil && res.Success {
				e.session = GuestSession()
				e.log.Info("shell logout ok")
				e.display.WriteLine(e.styles.Success.Render("Logged out"))
				return
			}
			e.display.WriteLine(e.styles.Error.Render(failureMessage(res, err, "Error")))
		}
	})
}

func cmdClear(e *Engine, _ command.Command) Outcome {
	e.display.Clear()
	return Immediate()
}

func cmdTheme(e *Engine, cmd command.Command) Outcome {
	name := cmd.Arg(0)
	if name == "" {
		e.display.WriteLine(e.styles.Heading.Render("Available themes:"))
		for _, available := range schema.AvailableThemes() {
			p := theme.ForName(available)
			line := "  " + padRight(e.styles.Command.Render(string(available)), helpColumn) + "- " + p.Label
			if available == e.palette.Name {
				line += " " + e.styles.Success.Render("(active)")
			}
			e.display.WriteLine(line)
		}
		e.display.WriteLine(e.styles.Muted.Render("Usage: theme <name>"))
		return Immediate()
	}
	p, ok := theme.Lookup(name)
	if !ok {
		e.display.WriteLine(e.styles.Error.Render(fmt.Sprintf("theme: %s: unknown theme", name)))
		return Immediate()
	}
	if err := e.prefs.SaveTheme(p.Name); err != nil {
		e.log.Warn("shell theme save failed", "theme", p.Name, "err", err)
		e.display.WriteLine(e.styles.Error.Render(fmt.Sprintf("theme: %v", err)))
		return Immediate()
	}
	e.log.Info("shell theme changed", "theme", p.Name)
	e.display.WriteLine(e.styles.Success.Render(fmt.Sprintf("Theme set to %s. Reloading...", p.Label)))
	e.exit = ExitReload
	return Immediate()
}

func cmdNeofetch(e *Engine, _ command.Command) Outcome {
	e.display.WriteLine(e.styles.Command.Render(e.session.Username) + "@" + e.styles.Command.Render(e.opts.HostLabel))
	e.display.WriteLine(fmt.Sprintf("OS: %s/%s", runtime.GOOS, runtime.GOARCH))
	e.display.WriteLine("Shell: osiris " + version.Current())
	e.display.WriteLine(fmt.Sprintf("Theme: %s", e.palette.Label))
	return Immediate()
}

func cmdBanner(e *Engine, _ command.Command) Outcome {
	e.writeBanner()
	return Immediate()
}

func cmdExit(e *Engine, _ command.Command) Outcome {
	e.display.WriteLine(e.styles.Heading.Render("Closing..."))
	e.log.Info("shell exit requested")
	e.after(e.opts.ActionDelay, func() {
		e.exit = ExitClose
	})
	return Immediate()
}

func cmdNotFound(e *Engine, cmd command.Command) Outcome {
	e.display.WriteLine(e.styles.Error.Render(fmt.Sprintf("bash: %s: command not found", cmd.Raw)))
	return Immediate()
}

// padRight pads a possibly styled string to width visible cells.
func padRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s + " "
}

func failureMessage(res schema.AuthResult, err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	if strings.TrimSpace(res.Message) != "" {
		return res.Message
	}
	return fallback
}
