package navigator

import (
	"strings"

	"github.com/jonathan/scholarship-agent/internal/types"
)

// CaptchaKeywords mark anti-bot challenge pages. Matched against title and body text.
var CaptchaKeywords = []string{
	"captcha",
	"checking your browser",
	"verify you are human",
	"verify that you are human",
	"are you a robot",
	"i'm not a robot",
	"cloudflare ray id",
	"attention required",
	"ddos protection",
}

// LoginKeywords mark sign-in walls. Matched against the page title only; body
// text is too noisy because most sites carry a "Sign in" link in the header.
var LoginKeywords = []string{
	"login",
	"log in",
	"sign in",
	"sign-in",
	"signin",
	"authentication",
}

// Snapshot is what the interrupt and form checks read from a page.
type Snapshot struct {
	URL      string
	Title    string
	BodyText string
	HTML     string
	Summary  PageSummary
}

// DetectInterrupt classifies a snapshot. CAPTCHA is checked before login
// because challenge pages often also mention signing in.
func DetectInterrupt(s Snapshot) types.Interrupt {
	title := strings.ToLower(s.Title)
	text := title + "\n" + strings.ToLower(s.BodyText)
	for _, kw := range CaptchaKeywords {
		if strings.Contains(text, kw) {
			return types.InterruptCaptcha
		}
	}
	if s.Summary.HasPassword {
		return types.InterruptLogin
	}
	for _, kw := range LoginKeywords {
		if strings.Contains(title, kw) {
			return types.InterruptLogin
		}
	}
	return types.InterruptNone
}

func interruptMessage(kind types.Interrupt, page string) string {
	switch kind {
	case types.InterruptCaptcha:
		return "Anti-bot challenge detected on " + page + ". Solve it in the browser window."
	case types.InterruptLogin:
		return "Login required on " + page + ". Sign in in the browser window."
	}
	return ""
}
