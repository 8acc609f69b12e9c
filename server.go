// Package osiris composes the interactive shell hosts (SSH and browser)
// with the reference auth backend and per-client preferences.
package osiris

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"pkt.systems/osiris/httpapi"
	"pkt.systems/osiris/internal/appconfig"
	"pkt.systems/osiris/internal/auth"
	"pkt.systems/osiris/internal/notes"
	"pkt.systems/osiris/internal/prefs"
	"pkt.systems/osiris/schema"
	"pkt.systems/osiris/shell"
	"pkt.systems/osiris/sshserver"
	"pkt.systems/pslog"
)

// Server composes the HTTP and SSH hosts.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Shell       shell.Options
	HTTP        httpapi.Config
	SSH         sshserver.Config
	Auth        AuthConfig
	Preferences PreferencesConfig
	Notes       NotesConfig
}

// AuthConfig defines authentication storage settings.
type AuthConfig struct {
	UserFile  string
	SeedUsers []SeedUser
}

// SeedUser seeds an initial user record.
type SeedUser struct {
	Email        string
	Username     string
	PasswordHash string
}

// PreferencesConfig defines where per-client preferences live.
type PreferencesConfig struct {
	Dir          string
	DefaultTheme schema.ThemeName
}

// NotesConfig defines where the browser notes app keeps per-user notes.
// An empty Dir disables the notes app.
type NotesConfig struct {
	Dir string
}

// ServerDeps captures optional dependencies, mostly pre-bound listeners.
type ServerDeps struct {
	Logger       pslog.Logger
	HTTPListener net.Listener
	SSHListener  net.Listener
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
	enableSSH  bool
}

// WithHTTP enables the browser terminal server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSSH enables the SSH server.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// New constructs a composable osiris server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSSH {
		return nil, errors.New("no services enabled")
	}

	logger := deps.Logger
	authStore, err := auth.NewStoreWithLogger(cfg.Auth.UserFile, toSeedUsers(cfg.Auth.SeedUsers), logger)
	if err != nil {
		return nil, err
	}
	authStore.SetMinPassword(cfg.Shell.MinPasswordLength)
	prefStore, err := prefs.NewStoreWithLogger(cfg.Preferences.Dir, cfg.Preferences.DefaultTheme, logger)
	if err != nil {
		return nil, err
	}
	backend := func(log pslog.Logger) shell.Backend {
		return authStore.Open(log)
	}
	preferences := func(client schema.ClientID) shell.Preferences {
		return prefStore.ForClient(client)
	}

	var httpSrv *httpapi.Server
	var sshSrv *sshserver.Server
	if options.enableHTTP {
		httpDeps := httpapi.Deps{Backend: backend, Preferences: preferences}
		if cfg.Notes.Dir != "" {
			noteStore, err := notes.NewStoreWithLogger(cfg.Notes.Dir, logger)
			if err != nil {
				return nil, err
			}
			httpDeps.Notes = noteStore
		}
		httpSrv = httpapi.NewServer(cfg.HTTP, cfg.Shell, httpDeps)
	}
	if options.enableSSH {
		sshSrv = &sshserver.Server{
			Addr:        cfg.SSH.Addr,
			HostKeyPath: cfg.SSH.HostKeyPath,
			Listener:    deps.SSHListener,
			Options:     cfg.Shell,
			Backend:     backend,
			Preferences: preferences,
		}
	}

	return &compositeServer{
		cfg:          cfg,
		httpSrv:      httpSrv,
		httpListener: deps.HTTPListener,
		sshSrv:       sshSrv,
	}, nil
}

type compositeServer struct {
	cfg          ServerConfig
	httpSrv      *httpapi.Server
	httpListener net.Listener
	sshSrv       *sshserver.Server

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	running sync.WaitGroup
	failed  chan error
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.failed = make(chan error, 2)

	pslog.Ctx(ctx).Info(
		"server start",
		"http", s.httpSrv != nil,
		"ssh", s.sshSrv != nil,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"ssh_addr", s.cfg.SSH.Addr,
	)
	if s.httpSrv != nil {
		s.launch("http", func(ctx context.Context) error {
			return httpapi.Serve(ctx, s.httpListener, s.cfg.HTTP.Addr, s.httpSrv.Handler())
		})
	}
	if s.sshSrv != nil {
		s.launch("ssh", s.sshSrv.ListenAndServe)
	}
	return nil
}

// launch runs one service until it returns. A failing service cancels
// the others.
func (s *compositeServer) launch(name string, serve func(context.Context) error) {
	ctx := s.ctx
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		if err := serve(ctx); err != nil {
			pslog.Ctx(ctx).Error(name+" server failed", "err", err)
			s.failed <- fmt.Errorf("%s: %w", name, err)
			s.cancel()
		}
	}()
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}
	s.running.Wait()
	select {
	case err := <-s.failed:
		return err
	default:
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	started, cancel, runCtx := s.started, s.cancel, s.ctx
	s.mu.Unlock()
	if !started {
		return nil
	}
	log := pslog.Ctx(runCtx)
	log.Info("server stop requested")
	cancel()
	if ctx == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("server stopped")
		return nil
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	}
}

func toSeedUsers(users []SeedUser) []appconfig.SeedUser {
	if len(users) == 0 {
		return nil
	}
	out := make([]appconfig.SeedUser, 0, len(users))
	for _, user := range users {
		out = append(out, appconfig.SeedUser{
			Email:        user.Email,
			Username:     user.Username,
			PasswordHash: user.PasswordHash,
		})
	}
	return out
}
