package port

import "context"

// Mail is one outbound message. AttachmentPath is optional.
type Mail struct {
	To             string
	Subject        string
	Body           string
	AttachmentPath string
}

// Mailer delivers mail through the configured transport.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}
