package email

import "context"

// Attachment is a file carried by a message.
type Attachment struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Message struct {
	To          []string
	Subject     string
	HTMLBody    string
	Headers     map[string]string
	Attachments []Attachment
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpProvider drops every message. Used when SMTP is not configured.
type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	return nil
}
