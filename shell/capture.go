package shell

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maskRune replaces password characters on the display.
const maskRune = '*'

// capture is the credential flow in progress. The concrete types are
// loginCapture and signupCapture; each carries only its own fields.
type capture interface {
	// label is written before the current field is typed.
	label() string
	masked() bool
	// field returns the accumulator of the current step.
	field() *string
	// submit validates the current field and either advances, aborts with
	// a message, or finishes with a backend task.
	submit(e *Engine) transition
	mode() string
}

// transition is the result of pressing Enter inside a capture flow. A zero
// transition means the flow advanced to its next step.
type transition struct {
	abort string
	task  Task
}

type loginStep int

const (
	loginUsername loginStep = iota
	loginPassword
)

type loginCapture struct {
	step     loginStep
	username string
	password string
}

func (c *loginCapture) mode() string { return "login" }

func (c *loginCapture) label() string {
	if c.step == loginPassword {
		return "Password: "
	}
	return "Username: "
}

func (c *loginCapture) masked() bool {
	return c.step == loginPassword
}

func (c *loginCapture) field() *string {
	if c.step == loginPassword {
		return &c.password
	}
	return &c.username
}

func (c *loginCapture) submit(e *Engine) transition {
	switch c.step {
	case loginUsername:
		if strings.TrimSpace(c.username) == "" {
			return transition{abort: "Username required"}
		}
		c.step = loginPassword
		return transition{}
	default:
		if strings.TrimSpace(c.password) == "" {
			return transition{abort: "Password required"}
		}
		return transition{task: e.loginTask(c.username, c.password)}
	}
}

type signupStep int

const (
	signupEmail signupStep = iota
	signupUsername
	signupPassword
)

type signupCapture struct {
	step      signupStep
	email     string
	username  string
	password  string
	minLength int
}

func (c *signupCapture) mode() string { return "signup" }

func (c *signupCapture) label() string {
	switch c.step {
	case signupUsername:
		return "Username: "
	case signupPassword:
		return "Password: "
	default:
		return "Email: "
	}
}

func (c *signupCapture) masked() bool {
	return c.step == signupPassword
}

func (c *signupCapture) field() *string {
	switch c.step {
	case signupUsername:
		return &c.username
	case signupPassword:
		return &c.password
	default:
		return &c.email
	}
}

func (c *signupCapture) submit(e *Engine) transition {
	switch c.step {
	case signupEmail:
		if strings.TrimSpace(c.email) == "" || !strings.Contains(c.email, "@") {
			return transition{abort: "Valid email required"}
		}
		c.step = signupUsername
		return transition{}
	case signupUsername:
		if strings.TrimSpace(c.username) == "" {
			return transition{abort: "Username required"}
		}
		c.step = signupPassword
		return transition{}
	default:
		if strings.TrimSpace(c.password) == "" || utf8.RuneCountInString(c.password) < c.minLength {
			return transition{abort: fmt.Sprintf("Password must be at least %d characters", c.minLength)}
		}
		return transition{task: e.signupTask(c.email, c.password, c.username)}
	}
}

// handleCaptureKey feeds one key to the active capture flow.
func (e *Engine) handleCaptureKey(k KeyEvent) {
	c := e.capture
	switch k.Kind {
	case KeyEnter:
		e.submitCapture()
	case KeyBackspace:
		acc := c.field()
		if *acc == "" {
			return
		}
		_, size := utf8.DecodeLastRuneInString(*acc)
		*acc = (*acc)[:len(*acc)-size]
		e.display.Write(eraseSequence)
	case KeyRune:
		if !printable(k.Rune) {
			return
		}
		acc := c.field()
		*acc += string(k.Rune)
		if c.masked() {
			e.display.Write(string(maskRune))
			return
		}
		e.display.Write(string(k.Rune))
	}
}

func (e *Engine) submitCapture() {
	c := e.capture
	e.display.WriteLine("")
	tr := c.submit(e)
	switch {
	case tr.abort != "":
		e.capture = nil
		e.log.Debug("shell capture aborted", "mode", c.mode(), "reason", tr.abort)
		e.display.WriteLine(e.styles.Error.Render(tr.abort))
		e.drawPrompt()
	case tr.task != nil:
		e.capture = nil
		e.spawn(tr.task)
	default:
		e.display.Write(c.label())
	}
}

func (e *Engine) startCapture(c capture) Outcome {
	e.capture = c
	e.display.Write(c.label())
	return Interactive()
}
