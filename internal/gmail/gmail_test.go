package gmail

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	gmailv1 "google.golang.org/api/gmail/v1"

	"inbox-briefing-go/internal/config"
	"inbox-briefing-go/internal/errs"
)

func TestParseMessage(t *testing.T) {
	msg := &gmailv1.Message{
		Id:           "abc123",
		Snippet:      "Your staking rewards are ready",
		InternalDate: 1717232400000,
		LabelIds:     []string{"UNREAD", "INBOX"},
		Payload: &gmailv1.MessagePart{
			Headers: []*gmailv1.MessagePartHeader{
				{Name: "From", Value: "Coinbase <alerts@coinbase.com>"},
				{Name: "Subject", Value: "Staking rewards"},
			},
		},
	}

	out := parseMessage(msg)
	assert.Equal(t, "abc123", out.ID)
	assert.Equal(t, "Coinbase <alerts@coinbase.com>", out.Sender)
	assert.Equal(t, "Staking rewards", out.Subject)
	assert.Equal(t, "Your staking rewards are ready", out.Snippet)
	assert.Equal(t, time.UnixMilli(1717232400000), out.Timestamp)
	assert.Equal(t, []string{"UNREAD", "INBOX"}, out.Labels)
	assert.False(t, out.Read)
}

func TestParseMessageDefaults(t *testing.T) {
	out := parseMessage(&gmailv1.Message{Id: "x", LabelIds: []string{"INBOX"}})
	assert.Equal(t, "(no subject)", out.Subject)
	assert.Empty(t, out.Sender)
	assert.True(t, out.Read)
}

func TestParseMessageEmptySubjectHeader(t *testing.T) {
	msg := &gmailv1.Message{
		Id: "x",
		Payload: &gmailv1.MessagePart{
			Headers: []*gmailv1.MessagePartHeader{{Name: "Subject", Value: ""}},
		},
	}
	assert.Equal(t, "(no subject)", parseMessage(msg).Subject)
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	p := New(&config.GmailConfig{ClientID: "id"}, logrus.NewEntry(logger))
	err := p.Authenticate(context.Background())
	assert.ErrorIs(t, err, errs.ErrCredential)
}

func TestOperationsRequireAuthentication(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	p := New(&config.GmailConfig{}, logrus.NewEntry(logger))

	_, err := p.FetchUnread(context.Background(), 10)
	assert.ErrorIs(t, err, errs.ErrProvider)
	assert.ErrorIs(t, p.MarkAsRead(context.Background(), "id"), errs.ErrProvider)
	assert.ErrorIs(t, p.AddLabel(context.Background(), "id", "Work"), errs.ErrProvider)
	assert.ErrorIs(t, p.MoveToTrash(context.Background(), "id"), errs.ErrProvider)
}
