package mail

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendWithoutCredentials(t *testing.T) {
	s := &SMTP{Host: "localhost", Port: "2525"}
	err := s.Send(context.Background(), Message{To: []string{"a@b.co"}, Subject: "x", Text: "y"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildPlainText(t *testing.T) {
	s := &SMTP{From: "noreply@studio.local", FromName: "Studio"}
	raw := string(s.build(Message{To: []string{"a@b.co", "c@d.co"}, Subject: "Password reset token", Text: "hello"}))

	assert.True(t, strings.HasPrefix(raw, "From: Studio <noreply@studio.local>\r\n"))
	assert.Contains(t, raw, "To: a@b.co, c@d.co\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain;")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nhello"))
}

func TestBuildPrefersHTML(t *testing.T) {
	s := &SMTP{}
	raw := string(s.build(Message{To: []string{"a@b.co"}, Text: "plain", HTML: "<p>rich</p>"}))
	assert.Contains(t, raw, "Content-Type: text/html;")
	assert.True(t, strings.HasSuffix(raw, "<p>rich</p>"))
}
