package automation

import (
	"strings"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
)

// Page-state predicates over a live session. All of them are best-effort
// heuristics against a page whose structure is not under our control.

const (
	otpInputSelector     = "input#otp, input[name='otp'], input[name='verification_code']"
	flashErrorSelector   = ".flash-error"
	profileMenuSelector  = "summary[aria-label*='View profile'], details[aria-label='View profile and more']"
	userLoginMetaSelect  = "meta[name='user-login']"
	deviceVerifiedPath   = "/sessions/verified-device"
	sessionCookieName    = "user_session"
	loggedInCookieName   = "logged_in"
	dotcomUserCookieName = "dotcom_user"
)

var deviceApprovalMarkers = []string{
	"check your phone",
	"approve sign in",
	"confirm digit",
	"github mobile",
	"verify your identity",
	"device verification",
}

// Authenticated reports whether the session is established: any of the
// session cookies, the profile menu, or a populated user-login meta tag.
func Authenticated(s port.Session) bool {
	if _, ok := s.Cookie(sessionCookieName); ok {
		return true
	}
	if v, ok := s.Cookie(loggedInCookieName); ok && strings.EqualFold(v, "yes") {
		return true
	}
	if v, ok := s.Cookie(dotcomUserCookieName); ok && strings.TrimSpace(v) != "" {
		return true
	}

	if els, err := s.FindAll(profileMenuSelector); err == nil && len(els) > 0 {
		return true
	}

	if meta, err := s.Find(userLoginMetaSelect); err == nil {
		if content, err := meta.Attribute("content"); err == nil && strings.TrimSpace(content) != "" {
			return true
		}
	}

	return false
}

// HasLoginError reports whether a login error banner is present.
func HasLoginError(s port.Session) bool {
	els, err := s.FindAll(flashErrorSelector)
	return err == nil && len(els) > 0
}

// IsOTPPage reports whether a one-time-code input is present.
func IsOTPPage(s port.Session) bool {
	els, err := s.FindAll(otpInputSelector)
	return err == nil && len(els) > 0
}

// IsDeviceApprovalPage reports whether the "approve on your device" page is
// showing. An authenticated session is never a device-approval page.
func IsDeviceApprovalPage(s port.Session) bool {
	if Authenticated(s) {
		return false
	}
	if strings.Contains(s.CurrentURL(), deviceVerifiedPath) {
		return true
	}

	src := strings.ToLower(s.PageSource())
	for _, marker := range deviceApprovalMarkers {
		if strings.Contains(src, marker) {
			return true
		}
	}
	return false
}
