package mailer

import "context"

// Message is a rendered email ready for delivery.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	TextBody  string
	HTMLBody  string
}

// Mailer delivers rendered messages. Implementations must be safe for
// concurrent use; delivery errors are returned to the caller (the job queue)
// for retry and never surface to request handlers.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
