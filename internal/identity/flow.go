package identity

import "regexp"

// FlowKind selects how the client should drive the provider sign-in.
type FlowKind string

const (
	// FlowPopup opens the provider consent screen in a popup window.
	FlowPopup FlowKind = "popup"
	// FlowRedirect navigates the whole page to the provider and back.
	FlowRedirect FlowKind = "redirect"
)

// Signals are the environment observations the flow choice depends on.
type Signals struct {
	UserAgent     string
	Standalone    bool // installed/PWA mode
	ViewportWidth int  // 0 when unknown
}

var mobileAgentPattern = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// ChooseFlow picks the sign-in flow for the given environment. Mobile
// browsers, installed apps, and small viewports get the redirect flow
// because popups are unreliable there; everything else gets the popup,
// with redirect remaining the runtime fallback when a popup is blocked.
func ChooseFlow(s Signals) FlowKind {
	if mobileAgentPattern.MatchString(s.UserAgent) {
		return FlowRedirect
	}
	if s.Standalone {
		return FlowRedirect
	}
	if s.ViewportWidth > 0 && s.ViewportWidth <= 768 {
		return FlowRedirect
	}
	return FlowPopup
}
