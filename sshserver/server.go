package sshserver

import (
	"context"
	"io"
	"net"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/osiris/internal/logx"
	"pkt.systems/osiris/internal/version"
	"pkt.systems/osiris/schema"
	"pkt.systems/osiris/shell"
	"pkt.systems/pslog"
)

// Server exposes the osiris shell over SSH. SSH authentication only
// identifies the client; signing in happens inside the shell.
type Server struct {
	Addr        string
	HostKeyPath string
	Listener    net.Listener
	Options     shell.Options
	// Backend opens the auth backend for one session.
	Backend func(log pslog.Logger) shell.Backend
	// Preferences returns the preference binding for a client.
	Preferences func(client schema.ClientID) shell.Preferences
	logger      pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:             s.Addr,
		Version:          version.Get().SSHVersion(),
		Handler:          s.handleSession,
		PublicKeyHandler: s.handlePublicKey,
		PasswordHandler:  s.handlePassword,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	s.logger.Debug("ssh pubkey accepted", "client", ctx.User(), "remote", remoteAddr(ctx), "fingerprint", ssh.FingerprintSHA256(key))
	return true
}

func (s *Server) handlePassword(ctx gliderssh.Context, _ string) bool {
	s.logger.Debug("ssh password accepted", "client", ctx.User(), "remote", remoteAddr(ctx))
	return true
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	remote := sess.RemoteAddr().String()
	clientID, err := schema.NormalizeClientID(sess.User())
	if err != nil {
		log.Info("ssh session rejected", "reason", "missing user", "remote", remote)
		_, _ = io.WriteString(sess, "missing user\n")
		_ = sess.Exit(1)
		return
	}
	sshSession := sess.Context().SessionID()
	log = logx.WithRemote(log.With("client", clientID), remote)
	if sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	ctx, cancel := context.WithCancel(logx.ContextWithClientLogger(sess.Context(), log, clientID))
	defer cancel()

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}
	go drainWindow(ctx, winCh)

	log.Info("ssh session opened", "term", pty.Term)
	display := shell.NewTerminalDisplay(sess)
	keys := shell.ReadKeys(ctx, sess, func(k shell.KeyEvent) bool {
		return k.IsCtrl('d')
	})
	reason, err := shell.Serve(ctx, s.sessionConfig(clientID, display, log), keys)
	if err != nil && ctx.Err() == nil {
		log.Warn("ssh session failed", "err", err)
	}
	log.Info("ssh session closed", "reason", reason.String())
	_ = sess.Exit(0)
}

func (s *Server) sessionConfig(clientID schema.ClientID, display shell.Display, log pslog.Logger) shell.SessionConfig {
	cfg := shell.SessionConfig{
		Options: s.Options,
		Display: display,
		Host:    &sessionHost{log: log},
		Logger:  log,
	}
	if s.Backend != nil {
		cfg.Backend = s.Backend(log)
	}
	if s.Preferences != nil {
		cfg.Preferences = s.Preferences(clientID)
	}
	return cfg
}

// drainWindow consumes resize notifications; the shell has no layout that
// depends on the window size.
func drainWindow(ctx context.Context, winCh <-chan gliderssh.Window) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-winCh:
			if !ok {
				return
			}
		}
	}
}

// sessionHost receives navigation requests that only make sense in the
// browser; over SSH they are recorded and otherwise ignored.
type sessionHost struct {
	log pslog.Logger
}

func (h *sessionHost) Navigate(target string) {
	h.log.Info("ssh navigate ignored", "target", target)
}

func (h *sessionHost) Toggle() {
	h.log.Debug("ssh toggle ignored")
}
