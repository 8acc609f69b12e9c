package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"pkt.systems/osiris/internal/theme"
	"pkt.systems/osiris/schema"
	"pkt.systems/pslog"
)

const (
	defaultHostLabel   = "osiris"
	defaultActionDelay = 300 * time.Millisecond
	defaultMinPassword = 6
)

// ExitReason tells the host why Run returned.
type ExitReason int

const (
	ExitNone ExitReason = iota
	// ExitClose means the user ran exit.
	ExitClose
	// ExitReload means the theme changed and the host should rebuild the engine.
	ExitReload
	// ExitInputClosed means the key stream ended.
	ExitInputClosed
	// ExitCanceled means the context was canceled.
	ExitCanceled
)

func (r ExitReason) String() string {
	switch r {
	case ExitClose:
		return "close"
	case ExitReload:
		return "reload"
	case ExitInputClosed:
		return "input-closed"
	case ExitCanceled:
		return "canceled"
	default:
		return "none"
	}
}

// Target is an application listed by ls. cd opens it unless ListOnly is set.
type Target struct {
	Name     string
	Label    string
	ListOnly bool
}

// DefaultTargets are the applications known to the hosting shell. Only the
// notes app can be opened.
func DefaultTargets() []Target {
	return []Target{
		{Name: "notes", Label: "Notes"},
		{Name: "projects", Label: "Projects", ListOnly: true},
	}
}

// Options are the engine settings shared by every host.
type Options struct {
	HostLabel         string
	RestoreSession    bool
	ActionDelay       time.Duration
	MinPasswordLength int
	Targets           []Target
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.HostLabel) == "" {
		o.HostLabel = defaultHostLabel
	}
	if o.ActionDelay < 0 {
		o.ActionDelay = 0
	}
	if o.ActionDelay == 0 {
		o.ActionDelay = defaultActionDelay
	}
	if o.MinPasswordLength <= 0 {
		o.MinPasswordLength = defaultMinPassword
	}
	if len(o.Targets) == 0 {
		o.Targets = DefaultTargets()
	}
	return o
}

func (o Options) target(name string) (Target, bool) {
	for _, t := range o.Targets {
		if t.Name == name && !t.ListOnly {
			return t, true
		}
	}
	return Target{}, false
}

// Config wires an engine to its collaborators.
type Config struct {
	Options
	Display     Display
	Backend     Backend
	Host        Host
	Preferences Preferences
	Palette     theme.Palette
	Dispatcher  *Dispatcher
	Logger      pslog.Logger
}

// Engine is one interactive session. All state is owned by the goroutine
// running Run; tasks hand results back through the settle channel.
type Engine struct {
	opts       Options
	display    Display
	backend    Backend
	host       Host
	prefs      Preferences
	palette    theme.Palette
	styles     theme.Styles
	dispatcher *Dispatcher
	log        pslog.Logger

	session   Session
	line      lineBuffer
	history   *History
	capture   capture
	pending   int
	restoring bool
	exit      ExitReason

	ctx     context.Context
	settled chan Settle
	calls   chan func()
	done    chan struct{}
	started bool
}

// New builds an engine. Display is required.
func New(cfg Config) (*Engine, error) {
	if cfg.Display == nil {
		return nil, errors.New("shell: display is required")
	}
	if cfg.Palette.Name == "" {
		cfg.Palette = theme.ForName(schema.DefaultTheme)
	}
	if cfg.Backend == nil {
		cfg.Backend = offlineBackend{}
	}
	if cfg.Host == nil {
		cfg.Host = nopHost{}
	}
	if cfg.Preferences == nil {
		cfg.Preferences = &memoryPreferences{theme: cfg.Palette.Name}
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = DefaultDispatcher()
	}
	if cfg.Logger == nil {
		cfg.Logger = pslog.Ctx(context.Background())
	}
	return &Engine{
		opts:       cfg.Options.withDefaults(),
		display:    cfg.Display,
		backend:    cfg.Backend,
		host:       cfg.Host,
		prefs:      cfg.Preferences,
		palette:    cfg.Palette,
		styles:     theme.NewStyles(cfg.Palette),
		dispatcher: cfg.Dispatcher,
		log:        cfg.Logger,
		session:    GuestSession(),
		history:    NewHistory(),
		ctx:        context.Background(),
		settled:    make(chan Settle, 16),
		calls:      make(chan func(), 16),
		done:       make(chan struct{}),
	}, nil
}

// Session returns the current signed-in state.
func (e *Engine) Session() Session {
	return e.session
}

// History returns the command history.
func (e *Engine) History() *History {
	return e.history
}

// Line returns the unsubmitted input line.
func (e *Engine) Line() string {
	return e.line.String()
}

// Interactive reports whether a credential flow owns the keyboard.
func (e *Engine) Interactive() bool {
	return e.capture != nil
}

// Pending returns the number of backend tasks in flight.
func (e *Engine) Pending() int {
	return e.pending
}

// Exit returns the reason the engine wants to stop, or ExitNone.
func (e *Engine) Exit() ExitReason {
	return e.exit
}

// Prompt renders the prompt for the current session.
func (e *Engine) Prompt() string {
	return e.styles.Prompt.Render(e.promptText())
}

func (e *Engine) promptText() string {
	user := guestName
	if e.session.LoggedIn && e.session.Username != "" {
		user = e.session.Username
	}
	return fmt.Sprintf("[%s@%s ~]$ ", user, e.opts.HostLabel)
}

// Start writes the welcome banner and either draws the first prompt or, with
// session restore enabled, asks the backend who is signed in first.
func (e *Engine) Start() {
	if e.started {
		return
	}
	e.started = true
	e.writeBanner()
	e.display.WriteLine("Type " + e.styles.Command.Render("help") + " to see available commands.")
	e.display.WriteLine("")
	if !e.opts.RestoreSession {
		e.drawPrompt()
		return
	}
	backend := e.backend
	e.restoring = true
	e.spawn(func(ctx context.Context) Settle {
		res, err := backend.Whoami(ctx)
		return func() {
			e.restoring = false
			if err != nil {
				e.log.Debug("shell session restore failed", "err", err)
				return
			}
			if res.Success && res.User != nil && res.User.Username != "" {
				e.session = Session{LoggedIn: true, Username: res.User.Username}
				e.log.Info("shell session restored", "username", res.User.Username)
			}
		}
	})
}

// Run is the event loop. It returns when the user exits, the theme changes,
// the key stream closes or ctx is canceled. Keys wait in the stream until a
// session restore has settled.
func (e *Engine) Run(ctx context.Context, keys <-chan KeyEvent) (ExitReason, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	e.ctx = ctx
	defer close(e.done)
	e.Start()
	e.log.Debug("shell session start", "theme", e.palette.Name, "restore", e.opts.RestoreSession)
	for e.exit == ExitNone {
		in := keys
		if e.restoring {
			in = nil
		}
		select {
		case <-ctx.Done():
			return ExitCanceled, ctx.Err()
		case k, ok := <-in:
			if !ok {
				return ExitInputClosed, nil
			}
			e.HandleKey(k)
		case settle := <-e.settled:
			e.apply(settle)
		case fn := <-e.calls:
			fn()
		}
	}
	e.log.Debug("shell session end", "reason", e.exit.String())
	return e.exit, nil
}

// HandleKey routes one key event. Chords other than the toggle shortcut are
// dropped; while a credential flow is active it receives every key.
func (e *Engine) HandleKey(k KeyEvent) {
	if e.exit != ExitNone {
		return
	}
	if k.IsToggle() {
		e.host.Toggle()
		return
	}
	if k.Mods.Chord() {
		return
	}
	if e.capture != nil {
		e.handleCaptureKey(k)
		return
	}
	switch k.Kind {
	case KeyEnter:
		e.submit()
	case KeyBackspace:
		if e.line.Backspace() {
			e.display.Write(eraseSequence)
		}
	case KeyUp:
		e.recallPrevious()
	case KeyRune:
		if !printable(k.Rune) {
			return
		}
		e.line.Append(k.Rune)
		e.display.Write(string(k.Rune))
	}
}

func (e *Engine) submit() {
	e.display.WriteLine("")
	line := strings.TrimSpace(e.line.String())
	e.line.Clear()
	e.history.Reset()
	if line == "" {
		e.drawPrompt()
		return
	}
	e.history.Push(line)
	e.log.Debug("shell command", "command", firstToken(line))
	outcome := e.dispatcher.Dispatch(e, line)
	switch {
	case outcome.task != nil:
		e.spawn(outcome.task)
	case outcome.interactive:
	default:
		e.drawPrompt()
	}
}

func (e *Engine) recallPrevious() {
	entry, ok := e.history.Previous()
	if !ok {
		return
	}
	e.display.Write(eraseVisual(e.line.Len()))
	e.line.SetString(entry)
	e.display.Write(entry)
}

// drawPrompt writes the prompt unless the engine is about to stop.
func (e *Engine) drawPrompt() {
	if e.exit == ExitReload {
		return
	}
	e.display.Write(e.Prompt())
}

func (e *Engine) busy() bool {
	return e.pending > 0
}

func (e *Engine) rejectBusy() Outcome {
	e.display.WriteLine(e.styles.Error.Render(schema.ErrAuthBusy.Error()))
	return Immediate()
}

// spawn runs task on its own goroutine and suppresses the prompt until its
// continuation is applied.
func (e *Engine) spawn(task Task) {
	e.pending++
	ctx := e.ctx
	go func() {
		settle := task(ctx)
		select {
		case e.settled <- settle:
		case <-e.done:
		}
	}()
}

// apply runs a task continuation and draws the one prompt it owes. Text the
// user typed while the task was in flight is moved below the output and
// re-echoed after the prompt.
func (e *Engine) apply(settle Settle) {
	if e.pending > 0 {
		e.pending--
	}
	typed := e.line.String()
	if typed != "" {
		e.display.WriteLine("")
	}
	if settle != nil {
		settle()
	}
	e.drawPrompt()
	if typed != "" {
		e.display.Write(typed)
	}
}

// after schedules fn on the event loop once d has elapsed.
func (e *Engine) after(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		select {
		case e.calls <- fn:
		case <-e.done:
		}
	})
}

func (e *Engine) loginTask(username, password string) Task {
	backend := e.backend
	return func(ctx context.Context) Settle {
		res, err := backend.Login(ctx, username, password)
		return func() {
			if err == nil && res.Success {
				e.session = Session{LoggedIn: true, Username: username}
				e.log.Info("shell login ok", "username", username)
				e.display.WriteLine(e.styles.Success.Render("Login successful"))
				return
			}
			e.log.Info("shell login failed", "username", username, "err", err)
			e.display.WriteLine(e.styles.Error.Render(failureMessage(res, err, "Login failed")))
		}
	}
}

func (e *Engine) signupTask(email, password, username string) Task {
	backend := e.backend
	return func(ctx context.Context) Settle {
		res, err := backend.Signup(ctx, email, password, username)
		return func() {
			if err == nil && res.Success {
				e.session = Session{LoggedIn: true, Username: username}
				e.log.Info("shell signup ok", "username", username)
				e.display.WriteLine(e.styles.Success.Render(successMessage(res, "Account created!")))
				return
			}
			e.log.Info("shell signup failed", "username", username, "err", err)
			e.display.WriteLine(e.styles.Error.Render(failureMessage(res, err, "Signup failed")))
		}
	}
}

func (e *Engine) writeBanner() {
	e.display.WriteLine("")
	for _, line := range bannerLines {
		e.display.WriteLine(e.styles.Banner.Render(line))
	}
	e.display.WriteLine("")
}

var bannerLines = []string{
	" ██████╗ ███████╗██╗██████╗ ██╗███████╗",
	"██╔═══██╗██╔════╝██║██╔══██╗██║██╔════╝",
	"██║   ██║███████╗██║██████╔╝██║███████╗",
	"██║   ██║╚════██║██║██╔══██╗██║╚════██║",
	"╚██████╔╝███████║██║██║  ██║██║███████║",
	" ╚═════╝ ╚══════╝╚═╝╚═╝  ╚═╝╚═╝╚══════╝",
}

func successMessage(res schema.AuthResult, fallback string) string {
	if strings.TrimSpace(res.Message) != "" {
		return res.Message
	}
	return fallback
}

func printable(r rune) bool {
	return unicode.IsPrint(r)
}

func firstToken(line string) string {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return strings.ToLower(line[:i])
	}
	return strings.ToLower(line)
}
