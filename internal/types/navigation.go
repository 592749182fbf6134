package types

// Interrupt is a blocker detected on a page that requires a human.
type Interrupt string

// Interrupt kinds.
const (
	InterruptNone    Interrupt = "none"
	InterruptLogin   Interrupt = "login"
	InterruptCaptcha Interrupt = "captcha"
)

// Terminal is the outcome that ends a navigation loop.
type Terminal string

// Terminal outcomes.
const (
	TerminalNone      Terminal = "none"
	TerminalFormFound Terminal = "form_found"
	TerminalExhausted Terminal = "exhausted"
)

// NavigationState tracks progress of the form-discovery loop.
// StepCount only increases and never exceeds the configured maximum.
type NavigationState struct {
	StepCount   int       `json:"step_count"`
	CurrentPage string    `json:"current_page"`
	Interrupt   Interrupt `json:"interrupt"`
	Terminal    Terminal  `json:"terminal"`
}

// Done reports whether a terminal outcome has been reached.
func (s NavigationState) Done() bool {
	return s.Terminal == TerminalFormFound || s.Terminal == TerminalExhausted
}
