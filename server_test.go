package osiris

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/osiris/httpapi"
	"pkt.systems/osiris/sshserver"
	"pkt.systems/pslog"
)

func TestNewRequiresAService(t *testing.T) {
	if _, err := New(testConfig(t), ServerDeps{}); err == nil || !strings.Contains(err.Error(), "no services enabled") {
		t.Fatalf("expected no services error, got %v", err)
	}
}

func TestNewRejectsUnknownDefaultTheme(t *testing.T) {
	cfg := testConfig(t)
	cfg.Preferences.DefaultTheme = "solarized"
	if _, err := New(cfg, ServerDeps{}, WithHTTP()); err == nil {
		t.Fatalf("expected invalid default theme error")
	}
}

func TestServerStopCancelsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &compositeServer{
		ctx:     ctx,
		cancel:  cancel,
		started: true,
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatalf("expected server context to be canceled")
	}
}

func TestServerServesHTTPAndSSH(t *testing.T) {
	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen http: %v", err)
	}
	sshLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen ssh: %v", err)
	}
	srv, err := New(testConfig(t), ServerDeps{HTTPListener: httpLn, SSHListener: sshLn}, WithHTTP(), WithSSH())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger := pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := srv.Start(ctx); err == nil {
		t.Fatalf("expected second start to fail")
	}

	resp, err := http.Get("http://" + httpLn.Addr().String() + "/api/theme")
	if err != nil {
		t.Fatalf("get theme: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "GitHub Dark") {
		t.Fatalf("unexpected theme response %d: %s", resp.StatusCode, body)
	}

	conn, err := net.DialTimeout("tcp", sshLn.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial ssh: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	banner := make([]byte, 4)
	if _, err := io.ReadFull(conn, banner); err != nil || string(banner) != "SSH-" {
		t.Fatalf("expected ssh banner, got %q err=%v", banner, err)
	}
	_ = conn.Close()

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := srv.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func testConfig(t *testing.T) ServerConfig {
	t.Helper()
	dir := t.TempDir()
	return ServerConfig{
		HTTP: httpapi.Config{Addr: "127.0.0.1:0"},
		SSH: sshserver.Config{
			Addr:        "127.0.0.1:0",
			HostKeyPath: filepath.Join(dir, "ssh_host_key"),
		},
		Auth:        AuthConfig{UserFile: filepath.Join(dir, "users.json")},
		Preferences: PreferencesConfig{Dir: filepath.Join(dir, "prefs")},
		Notes:       NotesConfig{Dir: filepath.Join(dir, "notes")},
	}
}
