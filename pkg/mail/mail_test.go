package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
)

type capture struct {
	addr string
	from string
	to   []string
	msg  string
	err  error
}

func newTestSMTP(c *capture) *SMTP {
	m := NewSMTP(&config.MailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		Username: "u",
		Password: "p",
		From:     "patrol@example.com",
	}, zap.NewNop())
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.from, c.to, c.msg = addr, from, to, string(msg)
		return c.err
	}
	return m
}

func TestSMTP_SendMagicLink(t *testing.T) {
	c := &capture{}
	m := newTestSMTP(c)

	err := m.SendMagicLink(context.Background(), "a@example.com", "http://app/auth/verify?token=abc")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", c.addr)
	assert.Equal(t, "patrol@example.com", c.from)
	assert.Equal(t, []string{"a@example.com"}, c.to)
	assert.Contains(t, c.msg, "Subject: Your Bear Valley Run Checks login link\r\n")
	assert.Contains(t, c.msg, "http://app/auth/verify?token=abc")
}

func TestSMTP_SendWelcome(t *testing.T) {
	c := &capture{}
	m := newTestSMTP(c)

	require.NoError(t, m.SendWelcome(context.Background(), "b@example.com", "Bea", "http://link"))
	assert.True(t, strings.Contains(c.msg, "Hi Bea,"))
}

func TestSMTP_SendError(t *testing.T) {
	c := &capture{err: errors.New("relay refused")}
	m := newTestSMTP(c)

	err := m.SendMagicLink(context.Background(), "a@example.com", "x")
	assert.ErrorContains(t, err, "relay refused")
}

func TestNewSender_NoHostLogsOnly(t *testing.T) {
	s := NewSender(&config.MailConfig{}, zap.NewNop())
	_, ok := s.(*logSender)
	require.True(t, ok)
	assert.NoError(t, s.SendMagicLink(context.Background(), "a@example.com", "x"))
}
