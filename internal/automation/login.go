package automation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/domain/apperror"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

const (
	loginFieldSelector    = "#login_field"
	passwordFieldSelector = "#password"
	commitSelector        = "input[name='commit']"

	signalPollInterval = 500 * time.Millisecond
	switchSettle       = 800 * time.Millisecond
)

// Phrases that lead from an OTP page to the device-approval channel.
var challengeSwitchPhrases = []string{
	"use github mobile",
	"approve a sign in on your phone",
	"use a different method",
	"try another way",
	"more options",
	"check your phone",
}

// loginSignal is the first page state observed after submitting credentials.
type loginSignal int

const (
	signalNone loginSignal = iota
	signalAuthenticated
	signalDeviceApproval
	signalOTP
	signalLoginError
)

type Credentials struct {
	Email    string
	Password string
}

type LoginConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LoginAutomaton submits credentials and classifies the immediate outcome,
// delegating device-approval challenges to the resolver. Internally branches
// resolve to signal values; only the public boundary fails with classified
// errors.
type LoginAutomaton struct {
	creds    Credentials
	cfg      LoginConfig
	resolver *ApprovalResolver
	log      *logger.Logger

	sleep func(time.Duration)
	now   func() time.Time
}

func NewLoginAutomaton(creds Credentials, cfg LoginConfig, resolver *ApprovalResolver, log *logger.Logger) *LoginAutomaton {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &LoginAutomaton{
		creds:    creds,
		cfg:      cfg,
		resolver: resolver,
		log:      log,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Run drives the login flow on the given session. Classified failures carry
// an apperror kind; raw errors are browser-session faults for the caller to
// reclassify.
func (a *LoginAutomaton) Run(ctx context.Context, s port.Session) error {
	if strings.TrimSpace(a.creds.Email) == "" || strings.TrimSpace(a.creds.Password) == "" {
		return apperror.New(apperror.KindAuthConfig, "login requested but credentials are not configured")
	}

	if err := s.Navigate(ctx, a.cfg.BaseURL+"/login"); err != nil {
		return err
	}
	if err := s.WaitReady(ctx, a.cfg.Timeout); err != nil {
		return err
	}

	if err := a.submitCredentials(s); err != nil {
		return err
	}

	signal, err := a.waitForSignal(ctx, s)
	if err != nil {
		return err
	}

	switch signal {
	case signalAuthenticated:
		a.log.Info("Login succeeded", "email", a.creds.Email)
		return nil

	case signalDeviceApproval:
		if err := a.resolver.Resolve(ctx, s); err != nil {
			return err
		}
		if Authenticated(s) {
			return nil
		}

	case signalNone:
		return apperror.New(apperror.KindLoginTimeout, "timed out waiting for a login outcome")
	}

	// The device-approval path can surface an OTP page, so re-check it here
	// regardless of which signal fired first.
	if IsOTPPage(s) {
		if a.trySwitchToDeviceApproval(s) {
			if err := a.resolver.Resolve(ctx, s); err != nil {
				return err
			}
			if Authenticated(s) {
				return nil
			}
		}
		return apperror.New(apperror.KindUnsupportedChallenge,
			"a one-time code was requested but only device approval is supported")
	}

	if HasLoginError(s) {
		return apperror.New(apperror.KindInvalidCredentials, "invalid credentials")
	}

	return apperror.New(apperror.KindLoginIncomplete, "login did not complete")
}

func (a *LoginAutomaton) submitCredentials(s port.Session) error {
	loginField, err := s.Find(loginFieldSelector)
	if err != nil {
		return reclassifyLookup(err, "login field not found")
	}
	passwordField, err := s.Find(passwordFieldSelector)
	if err != nil {
		return reclassifyLookup(err, "password field not found")
	}

	if err := loginField.Input(a.creds.Email); err != nil {
		return err
	}
	if err := passwordField.Input(a.creds.Password); err != nil {
		return err
	}

	commit, err := s.Find(commitSelector)
	if err != nil {
		return reclassifyLookup(err, "submit control not found")
	}
	return commit.Click()
}

// waitForSignal polls for the first of the four mutually exclusive login
// outcomes, bounded by the configured timeout.
func (a *LoginAutomaton) waitForSignal(ctx context.Context, s port.Session) (loginSignal, error) {
	start := a.now()
	for a.now().Sub(start) < a.cfg.Timeout {
		if err := ctx.Err(); err != nil {
			return signalNone, err
		}

		switch {
		case Authenticated(s):
			return signalAuthenticated, nil
		case IsDeviceApprovalPage(s):
			return signalDeviceApproval, nil
		case IsOTPPage(s):
			return signalOTP, nil
		case HasLoginError(s):
			return signalLoginError, nil
		}

		a.sleep(signalPollInterval)
	}
	return signalNone, nil
}

// trySwitchToDeviceApproval clicks through the OTP page's alternative-method
// links looking for the device-approval channel.
func (a *LoginAutomaton) trySwitchToDeviceApproval(s port.Session) bool {
	for _, phrase := range challengeSwitchPhrases {
		el, err := s.FindByText(phrase)
		if err != nil {
			continue
		}
		if err := el.Click(); err != nil {
			continue
		}
		a.sleep(switchSettle)
		if IsDeviceApprovalPage(s) {
			a.log.Info("Switched challenge to device approval", "via", phrase)
			return true
		}
	}
	return false
}

// reclassifyLookup maps a missing-element lookup to the explicit
// form-changed failure; the target page's structure is not under our
// control, so a vanished selector is a distinct outcome, not a raw fault.
func reclassifyLookup(err error, msg string) error {
	if errors.Is(err, port.ErrNotFound) {
		return apperror.Wrap(apperror.KindLoginFormChanged, msg, err)
	}
	return err
}
