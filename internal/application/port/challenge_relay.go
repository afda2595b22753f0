package port

import "context"

// ApprovalChallenge is the transient payload of one device-approval
// challenge. Digit is empty when no approval number could be extracted.
// It lives only for the duration of one resolution and is never persisted.
type ApprovalChallenge struct {
	Digit      string
	Screenshot []byte
}

// ChallengeRelay forwards a device-approval challenge to the account owner
// out of band. Implementations must be safe to fail: the resolver logs and
// continues when a relay attempt errors.
type ChallengeRelay interface {
	Relay(ctx context.Context, challenge ApprovalChallenge) error
}
