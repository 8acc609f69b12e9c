package shell

import (
	"context"

	"pkt.systems/osiris/internal/theme"
	"pkt.systems/osiris/schema"
	"pkt.systems/pslog"
)

// SessionConfig is what a host supplies to run engines for one client.
type SessionConfig struct {
	Options
	Display     Display
	Backend     Backend
	Host        Host
	Preferences Preferences
	Logger      pslog.Logger
}

// Serve runs engines for one client until the user exits, the key stream
// ends or ctx is canceled. A theme change discards the engine, clears the
// display and starts a fresh one with the newly saved palette. Engines after
// a reload always restore the signed-in user from the backend.
func Serve(ctx context.Context, cfg SessionConfig, keys <-chan KeyEvent) (ExitReason, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	prefs := cfg.Preferences
	if prefs == nil {
		prefs = &memoryPreferences{theme: schema.DefaultTheme}
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	reloads := 0
	for {
		engine, err := New(Config{
			Options:     cfg.Options,
			Display:     cfg.Display,
			Backend:     cfg.Backend,
			Host:        cfg.Host,
			Preferences: prefs,
			Palette:     theme.ForName(prefs.Theme()),
			Logger:      log,
		})
		if err != nil {
			return ExitNone, err
		}
		reason, err := engine.Run(ctx, keys)
		if reason != ExitReload {
			return reason, err
		}
		reloads++
		cfg.Options.RestoreSession = true
		log.Info("shell reload", "theme", prefs.Theme(), "reloads", reloads)
		cfg.Display.Clear()
	}
}
