package email

import (
	"context"
	"encoding/base64"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSendBuildsMultipartMessage(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	p := NewSMTP(Config{Host: "mail.local", Port: 2525, From: "billing@acme.nl"})
	p.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	err := p.Send(context.Background(), Message{
		To:       []string{"klant@example.nl"},
		Subject:  "Factuur FY2024-01-001",
		HTMLBody: "<p>Hallo</p>",
		Headers:  map[string]string{"X-Correlation-Id": "abc"},
		Attachments: []Attachment{
			{Filename: "factuur-fy2024-01-001.pdf", ContentType: "application/pdf", Body: []byte("%PDF-1.3")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"klant@example.nl"}, gotTo)
	assert.Contains(t, gotMsg, "From: billing@acme.nl\r\n")
	assert.Contains(t, gotMsg, "X-Correlation-Id: abc\r\n")
	assert.Contains(t, gotMsg, "multipart/mixed")
	assert.Contains(t, gotMsg, `filename=factuur-fy2024-01-001.pdf`)
	assert.Contains(t, gotMsg, base64.StdEncoding.EncodeToString([]byte("%PDF-1.3")))
	assert.True(t, strings.Index(gotMsg, "text/html") < strings.Index(gotMsg, "application/pdf"))
}

func TestSMTPSendRequiresRecipient(t *testing.T) {
	err := NewSMTP(Config{}).Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestWriteBase64WrapsLines(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, writeBase64(&sb, make([]byte, 120)))
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}
}
