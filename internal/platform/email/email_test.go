package email

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/koshtony/beezy-beta/internal/platform/config"
)

func TestNewReturnsLogMailerWhenDisabled(t *testing.T) {
	mailer := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"})
	_, ok := mailer.(logMailer)
	require.True(t, ok)
	require.NoError(t, mailer.Send(context.Background(), "a@example.com", "b@example.com", "subject", "body"))
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("hr@example.com", "jane@example.com", "Approval required", "Leave request awaits you"))
	require.True(t, strings.HasPrefix(msg, "From: hr@example.com\r\nTo: jane@example.com\r\nSubject: Approval required\r\n"))
	require.True(t, strings.HasSuffix(msg, "\r\n\r\nLeave request awaits you"))
}
