package automation

import (
	"context"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/application/port"
	"github.com/dreschagin/screenshot-mailer/internal/domain/apperror"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

const (
	// Floors for the polling loop; configured values below these are raised.
	minApprovalTimeout = 30 * time.Second
	minPollInterval    = 1 * time.Second

	refreshEvery = 3
	rootNavEvery = 5

	postClickSettle   = 800 * time.Millisecond
	postRefreshSettle = 600 * time.Millisecond
	postRootNavSettle = 900 * time.Millisecond

	repromptWait = 6 * time.Second
	finalWait    = 8 * time.Second
)

type ResolverConfig struct {
	RootURL             string
	Password            string
	TimeoutSeconds      int
	PollIntervalSeconds int
}

// ApprovalResolver turns an un-actionable "approve on your device" page into
// an authenticated session, or a bounded timeout failure. The challenge is
// relayed out of band once; afterwards the resolver only nudges the page and
// waits for the user.
type ApprovalResolver struct {
	relay port.ChallengeRelay
	cfg   ResolverConfig
	log   *logger.Logger

	sleep func(time.Duration)
	now   func() time.Time
}

func NewApprovalResolver(relay port.ChallengeRelay, cfg ResolverConfig, log *logger.Logger) *ApprovalResolver {
	return &ApprovalResolver{
		relay: relay,
		cfg:   cfg,
		log:   log,
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// Resolve relays the current challenge and polls until the session becomes
// authenticated or the timeout elapses. A nil return means the loop exited
// without a timeout: either authenticated, or an OTP page appeared and
// control goes back to the caller. The caller must re-check the page state.
func (r *ApprovalResolver) Resolve(ctx context.Context, s port.Session) error {
	initialDigit := ExtractApprovalDigit(s)
	r.relayChallenge(ctx, s, initialDigit)

	timeout := time.Duration(r.cfg.TimeoutSeconds) * time.Second
	if timeout < minApprovalTimeout {
		timeout = minApprovalTimeout
	}
	pollInterval := time.Duration(r.cfg.PollIntervalSeconds) * time.Second
	if pollInterval < minPollInterval {
		pollInterval = minPollInterval
	}

	start := r.now()
	polls := 0

	for r.now().Sub(start) < timeout {
		if err := ctx.Err(); err != nil {
			return err
		}

		if Authenticated(s) {
			return nil
		}

		if r.clickApprovalControl(s) {
			r.sleep(postClickSettle)
			if Authenticated(s) {
				return nil
			}
		}

		// Rare re-prompt: the password field comes back mid-approval.
		if r.resubmitPassword(ctx, s) {
			if Authenticated(s) {
				return nil
			}
		}

		polls++
		if polls%refreshEvery == 0 {
			if err := s.Refresh(ctx); err != nil {
				r.log.Debug("Page refresh failed during approval wait", "error", err.Error())
			}
			r.sleep(postRefreshSettle)
		}
		if polls%rootNavEvery == 0 {
			if err := s.Navigate(ctx, r.cfg.RootURL); err != nil {
				r.log.Debug("Root navigation failed during approval wait", "error", err.Error())
			}
			r.sleep(postRootNavSettle)
		}

		if current := ExtractApprovalDigit(s); current != "" && initialDigit != "" && current != initialDigit {
			// A second challenge appeared; keep waiting on the original to
			// avoid re-login loops.
			r.log.Info("Approval digit changed while waiting",
				"was", initialDigit,
				"now", current,
			)
		}

		// OTP pages are not handled here; hand control back.
		if IsOTPPage(s) {
			return nil
		}

		r.sleep(pollInterval)
	}

	// One last nudge before giving up: the approval may have landed between
	// the final poll and now.
	if err := s.Navigate(ctx, r.cfg.RootURL); err == nil {
		r.waitForAnyState(ctx, s, finalWait)
	}
	if Authenticated(s) {
		return nil
	}

	return apperror.New(apperror.KindDeviceApprovalTimeout, "waiting for device approval timed out")
}

func (r *ApprovalResolver) relayChallenge(ctx context.Context, s port.Session, digit string) {
	shot, err := s.Screenshot()
	if err != nil {
		r.log.Warn("Failed to capture approval challenge screenshot", "error", err.Error())
		return
	}

	// A relay failure never aborts resolution: the user may approve blind.
	if err := r.relay.Relay(ctx, port.ApprovalChallenge{Digit: digit, Screenshot: shot}); err != nil {
		r.log.Warn("Failed to relay approval challenge", "error", err.Error())
		return
	}

	r.log.Info("Relayed device-approval challenge", "digit", digit)
}

// clickApprovalControl clicks any visible Continue/Verify/submit control,
// covering post-approval interstitial pages.
func (r *ApprovalResolver) clickApprovalControl(s port.Session) bool {
	for _, text := range []string{"continue", "verify"} {
		el, err := s.FindByText(text)
		if err != nil {
			continue
		}
		if el.Visible() && el.Click() == nil {
			return true
		}
	}

	els, err := s.FindAll("button[type='submit'], input[type='submit']")
	if err != nil {
		return false
	}
	for _, el := range els {
		if el.Visible() && el.Click() == nil {
			return true
		}
	}
	return false
}

func (r *ApprovalResolver) resubmitPassword(ctx context.Context, s port.Session) bool {
	fields, err := s.FindAll("input[type='password']#password, input[name='password']")
	if err != nil || len(fields) == 0 {
		return false
	}

	if err := fields[0].Input(r.cfg.Password); err != nil {
		return false
	}

	if submit, err := s.Find("input[name='commit'], button[type='submit']"); err == nil {
		if err := submit.Click(); err != nil {
			return false
		}
	} else {
		return false
	}

	r.waitForAnyState(ctx, s, repromptWait)
	return true
}

// waitForAnyState polls until the page settles into a recognizable state or
// the timeout elapses.
func (r *ApprovalResolver) waitForAnyState(ctx context.Context, s port.Session, timeout time.Duration) {
	start := r.now()
	for r.now().Sub(start) < timeout {
		if ctx.Err() != nil {
			return
		}
		if Authenticated(s) || IsOTPPage(s) || IsDeviceApprovalPage(s) {
			return
		}
		r.sleep(500 * time.Millisecond)
	}
}
