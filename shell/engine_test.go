package shell

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/osiris/schema"
)

func TestSubmitPushesTrimmedLineAndClearsBuffer(t *testing.T) {
	te := newTestEngine(t, nil)
	inputs := []string{"help", "  ls  ", "cd notes", "Foo   bar "}
	var want []string
	for _, in := range inputs {
		te.enter(in)
		want = append(want, strings.TrimSpace(in))
		entries := te.History().Entries()
		if got := entries[len(entries)-1]; got != strings.TrimSpace(in) {
			t.Fatalf("expected %q at end of history, got %q", strings.TrimSpace(in), got)
		}
		if te.Line() != "" {
			t.Fatalf("expected empty line after submit, got %q", te.Line())
		}
	}
	if diff := cmp.Diff(want, te.History().Entries()); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	// drain the delayed navigation from "cd notes"
	te.runNextCall(t)
}

func TestEmptySubmitRedrawsPromptOnly(t *testing.T) {
	te := newTestEngine(t, nil)
	for _, in := range []string{"", "   ", "\t"} {
		te.display.Reset()
		te.enter(in)
		if te.History().Len() != 0 {
			t.Fatalf("expected empty history for %q, got %v", in, te.History().Entries())
		}
		text := te.display.Text()
		if countPrompts(text, "guest") != 1 {
			t.Fatalf("expected exactly one prompt for %q, got %q", in, text)
		}
		if strings.Contains(text, "command not found") {
			t.Fatalf("expected blank line not to dispatch, got %q", text)
		}
	}
}

func TestPromptDrawnOncePerSynchronousCommand(t *testing.T) {
	te := newTestEngine(t, nil)
	for _, in := range []string{"help", "ls", "clear", "neofetch", "banner", "theme", "nope", "cd", "cd nowhere"} {
		te.display.Reset()
		te.enter(in)
		if got := countPrompts(te.display.Text(), "guest"); got != 1 {
			t.Fatalf("expected one prompt after %q, got %d in %q", in, got, te.display.Text())
		}
	}
}

func TestRecallPreviousStopsAtOldest(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("ls")
	te.enter("help")
	te.enter("whoami")
	te.settleNext(t)

	want := []string{"whoami", "help", "ls", "ls", "ls", "ls"}
	for i, expected := range want {
		te.HandleKey(KeyEvent{Kind: KeyUp})
		if got := te.Line(); got != expected {
			t.Fatalf("recall %d: expected %q, got %q", i, expected, got)
		}
	}
	if diff := cmp.Diff([]string{"ls", "help", "whoami"}, te.History().Entries()); diff != "" {
		t.Fatalf("recall mutated history (-want +got):\n%s", diff)
	}
}

func TestRecallErasesDisplayedLine(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("ls")
	te.typeKeys("abc")
	te.display.Reset()
	te.HandleKey(KeyEvent{Kind: KeyUp})
	if got, want := te.display.Raw(), "\b\b\b   \b\b\bls"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRecallOnEmptyHistoryIsNoop(t *testing.T) {
	te := newTestEngine(t, nil)
	te.typeKeys("ab")
	te.display.Reset()
	te.HandleKey(KeyEvent{Kind: KeyUp})
	if te.display.Raw() != "" || te.Line() != "ab" {
		t.Fatalf("expected no-op recall, got line %q output %q", te.Line(), te.display.Raw())
	}
}

func TestBackspaceErasesOneCharacter(t *testing.T) {
	te := newTestEngine(t, nil)
	te.typeKeys("lsx")
	te.display.Reset()
	te.HandleKey(KeyEvent{Kind: KeyBackspace})
	if te.Line() != "ls" {
		t.Fatalf("expected ls, got %q", te.Line())
	}
	if te.display.Raw() != "\b \b" {
		t.Fatalf("expected visual backspace, got %q", te.display.Raw())
	}
	te.HandleKey(KeyEvent{Kind: KeyBackspace})
	te.HandleKey(KeyEvent{Kind: KeyBackspace})
	te.display.Reset()
	te.HandleKey(KeyEvent{Kind: KeyBackspace})
	if te.display.Raw() != "" {
		t.Fatalf("expected backspace on empty line to write nothing, got %q", te.display.Raw())
	}
}

func TestChordsIgnoredAndToggleForwarded(t *testing.T) {
	te := newTestEngine(t, nil)
	te.HandleKey(KeyEvent{Kind: KeyRune, Rune: 'c', Mods: ModCtrl})
	te.HandleKey(KeyEvent{Kind: KeyRune, Rune: 'x', Mods: ModAlt})
	te.HandleKey(KeyEvent{Kind: KeyRune, Rune: 'v', Mods: ModMeta})
	if te.Line() != "" || te.display.Raw() != "" {
		t.Fatalf("expected chords to be ignored, got line %q output %q", te.Line(), te.display.Raw())
	}
	te.HandleKey(KeyEvent{Kind: KeyRune, Rune: '`', Mods: ModCtrl})
	if te.host.toggles != 1 {
		t.Fatalf("expected toggle to reach host, got %d", te.host.toggles)
	}
	if te.Line() != "" {
		t.Fatalf("expected toggle not to edit the line, got %q", te.Line())
	}
}

func TestCommandNamesAreCaseInsensitive(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("LS")
	if !strings.Contains(te.display.Text(), "notes      projects") {
		t.Fatalf("expected listing, got %q", te.display.Text())
	}
}

func TestUnknownCommandEchoesFullLine(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("  Foo   bar ")
	if !strings.Contains(te.display.Text(), "bash: Foo   bar: command not found\n") {
		t.Fatalf("expected command not found, got %q", te.display.Text())
	}
}

func TestHelpListsCategories(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("help")
	text := te.display.Text()
	for _, want := range []string{
		"Available commands:\n",
		"Navigation:\n  ls        - List applications\n  cd        - Open Application\n",
		"Authentication:\n  signup    - Create new account\n  login     - Login\n",
		"Customization:\n  theme     - List or switch color themes\n",
		"  exit      - Close terminal\n",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected help to contain %q, got %q", want, text)
		}
	}
}

func TestChangeDirNavigatesAfterDelay(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("cd notes")
	if !strings.Contains(te.display.Text(), "Opening Notes...\n") {
		t.Fatalf("expected confirmation, got %q", te.display.Text())
	}
	if countPrompts(te.display.Text(), "guest") != 1 {
		t.Fatalf("expected prompt right after cd, got %q", te.display.Text())
	}
	te.runNextCall(t)
	if diff := cmp.Diff([]string{"notes"}, te.host.navigated); diff != "" {
		t.Fatalf("navigation mismatch (-want +got):\n%s", diff)
	}

	te.display.Reset()
	te.enter("cd nowhere")
	if !strings.Contains(te.display.Text(), "cd: nowhere: No such directory\n") {
		t.Fatalf("expected error, got %q", te.display.Text())
	}
	te.display.Reset()
	te.enter("cd")
	if got := te.display.Text(); got != "cd\n[guest@osiris ~]$ " {
		t.Fatalf("expected bare cd to only redraw prompt, got %q", got)
	}
	if len(te.host.navigated) != 1 {
		t.Fatalf("expected no further navigation, got %v", te.host.navigated)
	}
}

func TestWhoamiLoggedOutKeepsBufferingKeys(t *testing.T) {
	release := make(chan struct{})
	backend := &stubBackend{
		whoamiFn: func(ctx context.Context) (schema.AuthResult, error) {
			<-release
			return schema.AuthResult{Message: "Not logged in."}, nil
		},
	}
	te := newTestEngine(t, backend)
	te.enter("whoami")
	if te.Pending() != 1 {
		t.Fatalf("expected one pending task, got %d", te.Pending())
	}
	if countPrompts(te.display.Text(), "guest") != 0 {
		t.Fatalf("expected prompt to be suppressed, got %q", te.display.Text())
	}
	te.typeKeys("ls")
	if te.Line() != "ls" {
		t.Fatalf("expected keys to buffer while pending, got %q", te.Line())
	}
	close(release)
	te.settleNext(t)
	text := te.display.Text()
	if !strings.HasSuffix(text, "ls\nNot logged in\n[guest@osiris ~]$ ls") {
		t.Fatalf("expected output below typed text and re-echo, got %q", text)
	}
	if te.Line() != "ls" {
		t.Fatalf("expected buffered line to survive, got %q", te.Line())
	}
	if countPrompts(text, "guest") != 1 {
		t.Fatalf("expected exactly one prompt after settle, got %q", text)
	}
}

func TestWhoamiLoggedInWritesEmail(t *testing.T) {
	backend := &stubBackend{
		whoamiFn: func(context.Context) (schema.AuthResult, error) {
			return schema.AuthResult{Success: true, User: &schema.User{Email: "alice@example.com", Username: "alice"}}, nil
		},
	}
	te := newTestEngine(t, backend)
	te.enter("whoami")
	te.settleNext(t)
	if !strings.Contains(te.display.Text(), "alice@example.com\n") {
		t.Fatalf("expected email, got %q", te.display.Text())
	}
}

func TestAuthCommandsRejectedWhileTaskPending(t *testing.T) {
	release := make(chan struct{})
	backend := &stubBackend{
		logoutFn: func(context.Context) (schema.AuthResult, error) {
			<-release
			return schema.AuthResult{Success: true}, nil
		},
	}
	te := newTestEngine(t, backend)
	te.enter("logout")
	for _, cmd := range []string{"login", "signup", "logout", "whoami"} {
		te.display.Reset()
		te.enter(cmd)
		if !strings.Contains(te.display.Text(), "auth request already in progress") {
			t.Fatalf("expected %s to be rejected, got %q", cmd, te.display.Text())
		}
		if te.Interactive() {
			t.Fatalf("expected %s not to start a capture flow", cmd)
		}
	}
	if te.Pending() != 1 {
		t.Fatalf("expected only the first task in flight, got %d", te.Pending())
	}
	te.display.Reset()
	te.enter("ls")
	if !strings.Contains(te.display.Text(), "notes") {
		t.Fatalf("expected synchronous commands to run while pending, got %q", te.display.Text())
	}
	close(release)
	te.settleNext(t)
	if !strings.Contains(te.display.Text(), "Logged out\n") {
		t.Fatalf("expected logout confirmation, got %q", te.display.Text())
	}
}

func TestLogoutResetsSession(t *testing.T) {
	backend := &stubBackend{
		loginFn: func(context.Context, string, string) (schema.AuthResult, error) {
			return schema.AuthResult{Success: true}, nil
		},
		logoutFn: func(context.Context) (schema.AuthResult, error) {
			return schema.AuthResult{Success: true, Message: "Logged out successfully."}, nil
		},
	}
	te := newTestEngine(t, backend)
	te.enter("login")
	te.enter("alice")
	te.enter("secret")
	te.settleNext(t)
	te.enter("logout")
	te.settleNext(t)
	if diff := cmp.Diff(GuestSession(), te.Session()); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasSuffix(te.display.Text(), "Logged out\n[guest@osiris ~]$ ") {
		t.Fatalf("expected guest prompt after logout, got %q", te.display.Text())
	}
}

func TestLogoutFailureSurfacesBackendMessage(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("logout")
	te.settleNext(t)
	if !strings.Contains(te.display.Text(), "Not logged in.\n") {
		t.Fatalf("expected backend message, got %q", te.display.Text())
	}
	if te.Session() != GuestSession() {
		t.Fatalf("expected session unchanged, got %+v", te.Session())
	}
}

func TestBackendErrorIsWrittenNotReturned(t *testing.T) {
	backend := &stubBackend{
		logoutFn: func(context.Context) (schema.AuthResult, error) {
			return schema.AuthResult{}, errors.New("connection refused")
		},
	}
	te := newTestEngine(t, backend)
	te.enter("logout")
	te.settleNext(t)
	text := te.display.Text()
	if !strings.Contains(text, "connection refused\n") || countPrompts(text, "guest") != 1 {
		t.Fatalf("expected error line and prompt, got %q", text)
	}
}

func TestThemeWithoutArgumentListsThemes(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("theme")
	text := te.display.Text()
	if !strings.Contains(text, "github    - GitHub Dark (active)\n") {
		t.Fatalf("expected active theme marker, got %q", text)
	}
	if !strings.Contains(text, "dracula   - Dracula\n") {
		t.Fatalf("expected dracula listed, got %q", text)
	}
}

func TestThemeUnknownDoesNotPersistOrReload(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("ls")
	te.enter("theme unknownname")
	if !strings.Contains(te.display.Text(), "theme: unknownname: unknown theme\n") {
		t.Fatalf("expected error, got %q", te.display.Text())
	}
	if len(te.prefs.saved) != 0 {
		t.Fatalf("expected nothing persisted, got %v", te.prefs.saved)
	}
	if te.Exit() != ExitNone {
		t.Fatalf("expected no reload, got %v", te.Exit())
	}
	if te.History().Len() != 2 {
		t.Fatalf("expected history intact, got %v", te.History().Entries())
	}
}

func TestThemeSaveErrorIsReported(t *testing.T) {
	te := newTestEngine(t, nil)
	te.prefs.saveErr = errors.New("disk full")
	te.enter("theme nord")
	if !strings.Contains(te.display.Text(), "theme: disk full\n") {
		t.Fatalf("expected save error, got %q", te.display.Text())
	}
	if te.Exit() != ExitNone {
		t.Fatalf("expected no reload on save failure")
	}
}

func TestThemeValidPersistsAndRequestsReload(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("theme Dracula")
	if diff := cmp.Diff([]schema.ThemeName{"dracula"}, te.prefs.saved); diff != "" {
		t.Fatalf("saved themes mismatch (-want +got):\n%s", diff)
	}
	if te.Exit() != ExitReload {
		t.Fatalf("expected reload, got %v", te.Exit())
	}
	if countPrompts(te.display.Text(), "guest") != 0 {
		t.Fatalf("expected no prompt on a reloading engine, got %q", te.display.Text())
	}
	te.display.Reset()
	te.typeKeys("ls")
	if te.display.Raw() != "" {
		t.Fatalf("expected keys to be ignored after reload request, got %q", te.display.Raw())
	}
}

func TestRestoreSessionBeforeFirstPrompt(t *testing.T) {
	display := &recordingDisplay{}
	backend := &stubBackend{
		whoamiFn: func(context.Context) (schema.AuthResult, error) {
			return schema.AuthResult{Success: true, User: &schema.User{Username: "alice", Email: "alice@example.com"}}, nil
		},
	}
	e, err := New(Config{
		Options: Options{RestoreSession: true},
		Display: display,
		Backend: backend,
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	te := &testEngine{Engine: e, display: display}
	te.Start()
	text := display.Text()
	if !strings.Contains(text, "Type help to see available commands.") {
		t.Fatalf("expected welcome text, got %q", text)
	}
	if strings.Contains(text, "@osiris ~]$") {
		t.Fatalf("expected prompt to wait for restore, got %q", text)
	}
	te.settleNext(t)
	if got := display.Text(); countPrompts(got, "alice") != 1 || countPrompts(got, "guest") != 0 {
		t.Fatalf("expected a single alice prompt, got %q", got)
	}
}

func TestNewRequiresDisplay(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without display")
	}
}

func TestRunExitClosesAfterDelay(t *testing.T) {
	display := &recordingDisplay{}
	e, err := New(Config{
		Options: Options{ActionDelay: time.Millisecond},
		Display: display,
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	keys := make(chan KeyEvent, 16)
	for _, k := range Runes("exit") {
		keys <- k
	}
	keys <- KeyEvent{Kind: KeyEnter}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	reason, err := e.Run(ctx, keys)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reason != ExitClose {
		t.Fatalf("expected close, got %v", reason)
	}
	if !strings.Contains(display.Text(), "Closing...\n") {
		t.Fatalf("expected closing message, got %q", display.Text())
	}
}

func TestRunStopsOnClosedInputAndCancel(t *testing.T) {
	e, err := New(Config{Display: &recordingDisplay{}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	keys := make(chan KeyEvent)
	close(keys)
	reason, err := e.Run(context.Background(), keys)
	if err != nil || reason != ExitInputClosed {
		t.Fatalf("expected input-closed, got %v (%v)", reason, err)
	}

	e, err = New(Config{Display: &recordingDisplay{}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reason, err = e.Run(ctx, make(chan KeyEvent))
	if reason != ExitCanceled || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v (%v)", reason, err)
	}
}

func TestChangeDirRejectsListOnlyTarget(t *testing.T) {
	te := newTestEngine(t, nil)
	te.enter("cd projects")
	if !strings.Contains(te.display.Text(), "cd: projects: No such directory\n") {
		t.Fatalf("expected error for list-only target, got %q", te.display.Text())
	}
	if len(te.host.navigated) != 0 {
		t.Fatalf("expected no navigation, got %v", te.host.navigated)
	}
}

func TestRunHoldsKeysUntilRestoreSettles(t *testing.T) {
	display := &recordingDisplay{}
	release := make(chan struct{})
	backend := &stubBackend{
		whoamiFn: func(ctx context.Context) (schema.AuthResult, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return schema.AuthResult{}, ctx.Err()
			}
			return schema.AuthResult{Message: "Not logged in."}, nil
		},
	}
	e, err := New(Config{
		Options: Options{RestoreSession: true, ActionDelay: time.Millisecond},
		Display: display,
		Backend: backend,
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	keys := make(chan KeyEvent, 16)
	for _, k := range Runes("login") {
		keys <- k
	}
	keys <- KeyEvent{Kind: KeyEnter}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan ExitReason, 1)
	go func() {
		reason, _ := e.Run(ctx, keys)
		done <- reason
	}()
	time.Sleep(50 * time.Millisecond)
	if strings.Contains(display.Text(), "login") {
		t.Fatalf("expected keys to wait for the restore, got %q", display.Text())
	}
	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(display.Text(), "Username: ") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(keys)
	if reason := <-done; reason != ExitInputClosed {
		t.Fatalf("expected input-closed, got %v", reason)
	}
	text := display.Text()
	if strings.Contains(text, schema.ErrAuthBusy.Error()) {
		t.Fatalf("expected login to start after restore, got %q", text)
	}
	if !strings.Contains(text, "[guest@osiris ~]$ login\nUsername: ") {
		t.Fatalf("expected login capture after the restored prompt, got %q", text)
	}
}
