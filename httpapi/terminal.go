package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pkt.systems/osiris/internal/logx"
	"pkt.systems/osiris/internal/theme"
	"pkt.systems/osiris/schema"
	"pkt.systems/osiris/shell"
)

const (
	frameInput    = "input"
	frameOutput   = "output"
	frameTheme    = "theme"
	frameNavigate = "navigate"
	frameToggle   = "toggle"
	frameClose    = "close"

	maxInboundFrame = 64 << 10
	writeTimeout    = 10 * time.Second
)

// Frame is one websocket message in either direction.
type Frame struct {
	Type   string         `json:"type"`
	Data   string         `json:"data,omitempty"`
	Target string         `json:"target,omitempty"`
	Theme  *theme.Palette `json:"theme,omitempty"`
}

// handleTerminal upgrades to a websocket and runs a shell session over it.
func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	client, fresh := s.clientID(r)
	header := http.Header{}
	if fresh != nil {
		header.Add("Set-Cookie", fresh.String())
	}
	conn, err := s.upgrader.Upgrade(w, r, header)
	if err != nil {
		logx.Ctx(r.Context()).Warn("http terminal upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(maxInboundFrame)

	sessionID := uuid.NewString()
	log := logx.WithRemote(logx.Ctx(r.Context()), remoteIP(r)).With("client", client, "session", sessionID)
	ctx, cancel := context.WithCancel(logx.ContextWithClientSessionLogger(r.Context(), log, client, sessionID))
	defer cancel()

	out := &frameWriter{conn: conn}
	input, feed := io.Pipe()
	go readFrames(conn, feed)

	cfg := shell.SessionConfig{
		Options: s.options,
		Host:    &browserHost{out: out},
		Logger:  log,
	}
	if backend := s.sessions.backend(client, logx.Ctx(r.Context())); backend != nil {
		cfg.Backend = backend
	}
	if s.preferences != nil {
		cfg.Preferences = s.preferences(client)
	}
	cfg.Display = &browserDisplay{TerminalDisplay: shell.NewTerminalDisplay(out), out: out, prefs: cfg.Preferences}

	log.Info("http terminal opened")
	reason, err := shell.Serve(ctx, cfg, shell.ReadKeys(ctx, input, nil))
	if err != nil && ctx.Err() == nil {
		log.Warn("http terminal failed", "err", err)
	}
	if reason == shell.ExitClose {
		_ = out.send(Frame{Type: frameClose})
	}
	out.close()
	_ = input.Close()
	log.Info("http terminal closed", "reason", reason.String())
}

// readFrames copies input frames into feed until the connection fails.
func readFrames(conn *websocket.Conn, feed *io.PipeWriter) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			_ = feed.CloseWithError(err)
			return
		}
		if frame.Type != frameInput || frame.Data == "" {
			continue
		}
		if _, err := io.WriteString(feed, frame.Data); err != nil {
			return
		}
	}
}

// frameWriter serializes writes to the websocket; terminal bytes become
// output frames.
type frameWriter struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (w *frameWriter) Write(p []byte) (int, error) {
	if err := w.send(Frame{Type: frameOutput, Data: string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *frameWriter) send(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return websocket.ErrCloseSent
	}
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *frameWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = w.conn.Close()
}

// browserDisplay sends the active palette along with every clear so a
// reloaded shell repaints in its new theme.
type browserDisplay struct {
	*shell.TerminalDisplay
	out   *frameWriter
	prefs shell.Preferences
}

func (d *browserDisplay) Clear() {
	d.TerminalDisplay.Clear()
	name := schema.DefaultTheme
	if d.prefs != nil {
		name = d.prefs.Theme()
	}
	palette := theme.ForName(name)
	_ = d.out.send(Frame{Type: frameTheme, Theme: &palette})
}

type browserHost struct {
	out *frameWriter
}

func (h *browserHost) Navigate(target string) {
	_ = h.out.send(Frame{Type: frameNavigate, Target: target})
}

func (h *browserHost) Toggle() {
	_ = h.out.send(Frame{Type: frameToggle})
}
