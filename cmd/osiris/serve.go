package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/osiris"
	"pkt.systems/osiris/httpapi"
	"pkt.systems/osiris/internal/appconfig"
	"pkt.systems/osiris/schema"
	"pkt.systems/osiris/shell"
	"pkt.systems/osiris/sshserver"
	"pkt.systems/pslog"
)

//go:embed assets/banner.txt
var serveLogo string

func newServeCmd() *cobra.Command {
	var cfgPath string
	var noBanner bool
	var noHTTP bool
	var noSSH bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start osiris servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logMode := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_MODE")))
			showBanner := !noBanner && logMode != "json" && logMode != "structured"
			if showBanner && serveLogo != "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), serveLogo)
			}
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			var opts []osiris.ServerOption
			if !noHTTP {
				opts = append(opts, osiris.WithHTTP())
			}
			if !noSSH {
				opts = append(opts, osiris.WithSSH())
			}
			serverCfg := toServerConfig(cfg)
			server, err := osiris.New(serverCfg, osiris.ServerDeps{Logger: logger}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if !noHTTP {
				logger.Info("http server listening", "addr", serverCfg.HTTP.Addr)
			}
			if !noSSH {
				logger.Info("ssh server listening", "addr", serverCfg.SSH.Addr)
			}
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "disable startup banner")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "disable the browser terminal server")
	cmd.Flags().BoolVar(&noSSH, "no-ssh", false, "disable the ssh server")
	return cmd
}

func toServerConfig(cfg appconfig.Config) osiris.ServerConfig {
	return osiris.ServerConfig{
		Shell:       toShellOptions(cfg.Shell),
		HTTP:        toHTTPConfig(cfg.HTTP),
		SSH:         toSSHConfig(cfg.SSH),
		Auth:        toAuthConfig(cfg.Auth),
		Preferences: toPreferencesConfig(cfg),
		Notes:       osiris.NotesConfig{Dir: notesDir(cfg.StateDir)},
	}
}

func toShellOptions(cfg appconfig.ShellConfig) shell.Options {
	return shell.Options{
		HostLabel:         cfg.HostLabel,
		RestoreSession:    cfg.RestoreSession,
		ActionDelay:       time.Duration(cfg.ActionDelayMS) * time.Millisecond,
		MinPasswordLength: cfg.MinPassword,
	}
}

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	return httpapi.Config{
		Addr:         cfg.Addr,
		ClientCookie: cfg.ClientCookie,
		BaseURL:      cfg.BaseURL,
		BasePath:     cfg.BasePath,
	}
}

func toSSHConfig(cfg appconfig.SSHConfig) sshserver.Config {
	return sshserver.Config{
		Addr:        cfg.Addr,
		HostKeyPath: cfg.HostKeyPath,
	}
}

func toAuthConfig(cfg appconfig.AuthConfig) osiris.AuthConfig {
	seeds := make([]osiris.SeedUser, 0, len(cfg.SeedUsers))
	for _, seed := range cfg.SeedUsers {
		seeds = append(seeds, osiris.SeedUser{
			Email:        seed.Email,
			Username:     seed.Username,
			PasswordHash: seed.PasswordHash,
		})
	}
	return osiris.AuthConfig{
		UserFile:  cfg.UserFile,
		SeedUsers: seeds,
	}
}

func toPreferencesConfig(cfg appconfig.Config) osiris.PreferencesConfig {
	return osiris.PreferencesConfig{
		Dir:          prefsDir(cfg.StateDir),
		DefaultTheme: schema.ThemeName(cfg.Shell.DefaultTheme),
	}
}

func prefsDir(stateDir string) string {
	return filepath.Join(stateDir, "prefs")
}

func notesDir(stateDir string) string {
	return filepath.Join(stateDir, "notes")
}
