package main

import (
	"errors"
	"os"
	"os/user"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/osiris/internal/appconfig"
	"pkt.systems/osiris/internal/auth"
	"pkt.systems/osiris/internal/logx"
	"pkt.systems/osiris/internal/prefs"
	"pkt.systems/osiris/schema"
	"pkt.systems/osiris/shell"
	"pkt.systems/pslog"
)

func newConsoleCmd() *cobra.Command {
	var cfgPath string
	var clientName string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run the shell on the local terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			clientID, err := consoleClientID(clientName)
			if err != nil {
				return err
			}
			logger := pslog.Ctx(cmd.Context()).With("client", clientID)
			ctx := logx.ContextWithClientLogger(cmd.Context(), logger, clientID)

			store, err := auth.NewStoreWithLogger(cfg.Auth.UserFile, cfg.Auth.SeedUsers, logger)
			if err != nil {
				return err
			}
			store.SetMinPassword(cfg.Shell.MinPassword)
			prefStore, err := prefs.NewStoreWithLogger(prefsDir(cfg.StateDir), schema.ThemeName(cfg.Shell.DefaultTheme), logger)
			if err != nil {
				return err
			}

			fd := int(os.Stdin.Fd())
			if !term.IsTerminal(fd) {
				return errors.New("console requires a terminal on stdin")
			}
			state, err := term.MakeRaw(fd)
			if err != nil {
				return err
			}
			defer func() { _ = term.Restore(fd, state) }()

			keys := shell.ReadKeys(ctx, os.Stdin, func(k shell.KeyEvent) bool {
				return k.IsCtrl('c') || k.IsCtrl('d')
			})
			display := shell.NewTerminalDisplay(cmd.OutOrStdout())
			reason, err := shell.Serve(ctx, shell.SessionConfig{
				Options:     toShellOptions(cfg.Shell),
				Display:     display,
				Backend:     store.Open(logger),
				Host:        consoleHost{log: logger},
				Preferences: prefStore.ForClient(clientID),
				Logger:      logger,
			}, keys)
			display.Write("\n")
			logger.Debug("console closed", "reason", reason.String())
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&clientName, "client", "", "client identity for preferences (defaults to the OS user)")
	return cmd
}

func consoleClientID(name string) (schema.ClientID, error) {
	if name == "" {
		current, err := user.Current()
		if err != nil {
			return "", err
		}
		name = current.Username
	}
	return schema.NormalizeClientID(name)
}

// consoleHost has no page to leave or overlay to hide.
type consoleHost struct {
	log pslog.Logger
}

func (h consoleHost) Navigate(target string) {
	h.log.Debug("console navigate ignored", "target", target)
}

func (h consoleHost) Toggle() {
	h.log.Debug("console toggle ignored")
}
