package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/screenshot-mailer/internal/domain/apperror"
	"github.com/dreschagin/screenshot-mailer/pkg/logger"
)

func newTestResolver(relay *recordingRelay, clock *fakeClock, timeoutSeconds, pollSeconds int) *ApprovalResolver {
	resolver := NewApprovalResolver(relay, ResolverConfig{
		RootURL:             "https://github.com",
		Password:            "secret",
		TimeoutSeconds:      timeoutSeconds,
		PollIntervalSeconds: pollSeconds,
	}, logger.New("error"))
	resolver.sleep = clock.Sleep
	resolver.now = clock.Now
	return resolver
}

func TestApprovalResolver_TimesOut(t *testing.T) {
	clock := newFakeClock()
	relay := &recordingRelay{}
	s := newFakeSession()
	s.url = "https://github.com/sessions/verified-device"

	start := clock.Now()
	resolver := newTestResolver(relay, clock, 45, 2)
	err := resolver.Resolve(context.Background(), s)

	if apperror.KindOf(err) != apperror.KindDeviceApprovalTimeout {
		t.Fatalf("expected KindDeviceApprovalTimeout, got %v", err)
	}
	if len(relay.challenges) != 1 {
		t.Fatalf("expected exactly 1 relayed challenge, got %d", len(relay.challenges))
	}

	// The loop itself is bounded by the configured timeout; only the final
	// nudge and the last in-flight poll may run past it.
	elapsed := clock.Now().Sub(start)
	if elapsed > 45*time.Second+finalWait+10*time.Second {
		t.Fatalf("polling ran for %v, exceeding the bound", elapsed)
	}
}

func TestApprovalResolver_EnforcesTimeoutFloor(t *testing.T) {
	clock := newFakeClock()
	s := newFakeSession()
	s.url = "https://github.com/sessions/verified-device"

	start := clock.Now()
	resolver := newTestResolver(&recordingRelay{}, clock, 1, 0)
	err := resolver.Resolve(context.Background(), s)

	if apperror.KindOf(err) != apperror.KindDeviceApprovalTimeout {
		t.Fatalf("expected KindDeviceApprovalTimeout, got %v", err)
	}
	if elapsed := clock.Now().Sub(start); elapsed < 30*time.Second {
		t.Fatalf("loop gave up after %v, below the 30s floor", elapsed)
	}
}

func TestApprovalResolver_RelayFailureIsSwallowed(t *testing.T) {
	clock := newFakeClock()
	relay := &recordingRelay{err: errors.New("smtp down")}
	s := newFakeSession()
	s.url = "https://github.com/sessions/verified-device"
	s.elements["button[type='submit'], input[type='submit']"] = []*fakeElement{
		{onClick: s.authenticate},
	}

	resolver := newTestResolver(relay, clock, 30, 1)
	if err := resolver.Resolve(context.Background(), s); err != nil {
		t.Fatalf("Resolve() error = %v, relay failures must not abort resolution", err)
	}
}

func TestApprovalResolver_ReturnsOnOTP(t *testing.T) {
	clock := newFakeClock()
	s := newFakeSession()
	s.url = "https://github.com/sessions/verified-device"
	s.elements[otpInputSelector] = []*fakeElement{{}}

	resolver := newTestResolver(&recordingRelay{}, clock, 300, 1)
	start := clock.Now()
	if err := resolver.Resolve(context.Background(), s); err != nil {
		t.Fatalf("Resolve() error = %v, OTP must hand control back without failing", err)
	}
	if elapsed := clock.Now().Sub(start); elapsed > 10*time.Second {
		t.Fatalf("resolver kept polling for %v after OTP appeared", elapsed)
	}
}

func TestApprovalResolver_AuthenticatedMidPoll(t *testing.T) {
	clock := newFakeClock()
	s := newFakeSession()
	s.url = "https://github.com/sessions/verified-device"

	resolver := newTestResolver(&recordingRelay{}, clock, 120, 1)

	// Simulate the user approving while we wait: authenticate after a few
	// sleeps have gone by.
	sleeps := 0
	resolver.sleep = func(d time.Duration) {
		clock.Sleep(d)
		sleeps++
		if sleeps > 5 {
			s.authenticate()
		}
	}
	resolver.now = clock.Now

	if err := resolver.Resolve(context.Background(), s); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
}

func TestApprovalResolver_PasswordReprompt(t *testing.T) {
	clock := newFakeClock()
	s := newFakeSession()
	s.url = "https://github.com/sessions/verified-device"

	pw := &fakeElement{}
	s.elements["input[type='password']#password, input[name='password']"] = []*fakeElement{pw}
	s.elements["input[name='commit'], button[type='submit']"] = []*fakeElement{
		{onClick: s.authenticate},
	}

	resolver := newTestResolver(&recordingRelay{}, clock, 30, 1)
	if err := resolver.Resolve(context.Background(), s); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(pw.inputs) == 0 || pw.inputs[0] != "secret" {
		t.Fatalf("expected password to be re-entered, got %v", pw.inputs)
	}
}
