package integration_test

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"pkt.systems/osiris"
	"pkt.systems/osiris/httpapi"
	"pkt.systems/osiris/shell"
	"pkt.systems/osiris/sshserver"
	"pkt.systems/pslog"
)

const testCookie = "osiris_client"

type testServer struct {
	server   osiris.Server
	httpAddr string
	sshAddr  string
	stateDir string
}

// newTestServer starts both hosts over one shared account store. The seeded
// account is alice / alice-password.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("alice-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	sshLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	stateDir := t.TempDir()
	cfg := osiris.ServerConfig{
		Shell: shell.Options{ActionDelay: time.Millisecond},
		HTTP:  httpapi.Config{Addr: httpLn.Addr().String(), ClientCookie: testCookie},
		SSH: sshserver.Config{
			Addr:        sshLn.Addr().String(),
			HostKeyPath: filepath.Join(stateDir, "ssh_host_key"),
		},
		Auth: osiris.AuthConfig{
			UserFile: filepath.Join(stateDir, "users.json"),
			SeedUsers: []osiris.SeedUser{
				{Email: "alice@example.com", Username: "alice", PasswordHash: string(hash)},
			},
		},
		Preferences: osiris.PreferencesConfig{Dir: filepath.Join(stateDir, "prefs")},
		Notes:       osiris.NotesConfig{Dir: filepath.Join(stateDir, "notes")},
	}
	logger := pslog.NewWithOptions(&bytes.Buffer{}, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
	server, err := osiris.New(cfg, osiris.ServerDeps{
		Logger:       logger,
		HTTPListener: httpLn,
		SSHListener:  sshLn,
	}, osiris.WithHTTP(), osiris.WithSSH())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	if err := server.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(stopCtx)
	})
	return &testServer{
		server:   server,
		httpAddr: httpLn.Addr().String(),
		sshAddr:  sshLn.Addr().String(),
		stateDir: stateDir,
	}
}

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func expectOutput(t *testing.T, buffer *lockedBuffer, substr string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if strings.Contains(ansi.Strip(buffer.String()), substr) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %q in output: %s", substr, ansi.Strip(buffer.String()))
}

func expectOutputCount(t *testing.T, buffer *lockedBuffer, substr string, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if strings.Count(ansi.Strip(buffer.String()), substr) >= n {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %d x %q in output: %s", n, substr, ansi.Strip(buffer.String()))
}

// browserTerminal is a websocket client speaking the terminal frame protocol.
type browserTerminal struct {
	conn   *websocket.Conn
	output *lockedBuffer
	frames chan httpapi.Frame
}

func dialBrowser(t *testing.T, addr, client string) *browserTerminal {
	t.Helper()
	header := http.Header{}
	header.Add("Cookie", (&http.Cookie{Name: testCookie, Value: client}).String())
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", header)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	bt := &browserTerminal{conn: conn, output: &lockedBuffer{}, frames: make(chan httpapi.Frame, 64)}
	go func() {
		defer close(bt.frames)
		for {
			var frame httpapi.Frame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			if frame.Type == "output" {
				_, _ = bt.output.Write([]byte(frame.Data))
				continue
			}
			bt.frames <- frame
		}
	}()
	return bt
}

func (b *browserTerminal) send(t *testing.T, data string) {
	t.Helper()
	if err := b.conn.WriteJSON(httpapi.Frame{Type: "input", Data: data}); err != nil {
		t.Fatalf("send input: %v", err)
	}
}

func (b *browserTerminal) waitFrame(t *testing.T, kind string) httpapi.Frame {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case frame, ok := <-b.frames:
			if !ok {
				t.Fatalf("connection closed before %s frame", kind)
			}
			if frame.Type == kind {
				return frame
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %s frame", kind)
		}
	}
}
