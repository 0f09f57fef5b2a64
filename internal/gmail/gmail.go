// Package gmail implements the provider boundary on top of the Gmail API,
// authenticated with an OAuth2 refresh token.
package gmail

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"inbox-briefing-go/internal/config"
	"inbox-briefing-go/internal/errs"
	"inbox-briefing-go/internal/model"
)

const user = "me"

// Provider talks to the Gmail API. Call Authenticate before anything else.
type Provider struct {
	cfg *config.GmailConfig
	svc *gmailv1.Service
	log *logrus.Entry
}

// New creates an unconnected Provider.
func New(cfg *config.GmailConfig, log *logrus.Entry) *Provider {
	return &Provider{cfg: cfg, log: log}
}

// Authenticate builds the Gmail service from the configured OAuth2 client
// and refresh token and validates it with a profile lookup.
func (p *Provider) Authenticate(ctx context.Context) error {
	if p.cfg.ClientID == "" || p.cfg.ClientSecret == "" || p.cfg.RefreshToken == "" {
		return fmt.Errorf("%w: Gmail OAuth2 credentials missing", errs.ErrCredential)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Scopes:       []string{gmailv1.GmailModifyScope},
		Endpoint:     google.Endpoint,
	}
	token := &oauth2.Token{RefreshToken: p.cfg.RefreshToken}
	tokenSource := oauthConfig.TokenSource(ctx, token)

	svc, err := gmailv1.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return fmt.Errorf("%w: create Gmail service: %v", errs.ErrCredential, err)
	}

	if _, err := svc.Users.GetProfile(user).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: Gmail profile lookup failed: %v", errs.ErrCredential, err)
	}

	p.svc = svc
	return nil
}

func (p *Provider) requireService() error {
	if p.svc == nil {
		return fmt.Errorf("%w: not authenticated", errs.ErrProvider)
	}
	return nil
}

// FetchUnread returns up to limit unread messages, newest first (the
// Gmail list order). A message that cannot be fetched or parsed is
// skipped with a warning rather than failing the batch.
func (p *Provider) FetchUnread(ctx context.Context, limit int) ([]model.Message, error) {
	if err := p.requireService(); err != nil {
		return nil, err
	}

	resp, err := p.svc.Users.Messages.List(user).
		Q("is:unread").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", errs.ErrProvider, err)
	}

	msgs := make([]model.Message, 0, len(resp.Messages))
	for _, stub := range resp.Messages {
		full, err := p.svc.Users.Messages.Get(user, stub.Id).
			Format("metadata").
			MetadataHeaders("From", "Subject").
			Context(ctx).
			Do()
		if err != nil {
			p.log.Warnf("Failed to get message %s: %v", stub.Id, err)
			continue
		}
		msgs = append(msgs, parseMessage(full))
	}

	return msgs, nil
}

// parseMessage converts a Gmail API message resource into the pipeline's
// Message type.
func parseMessage(msg *gmailv1.Message) model.Message {
	out := model.Message{
		ID:      msg.Id,
		Subject: "(no subject)",
		Snippet: msg.Snippet,
		Labels:  msg.LabelIds,
		Read:    true,
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				out.Sender = h.Value
			case "Subject":
				if h.Value != "" {
					out.Subject = h.Value
				}
			}
		}
	}

	out.Timestamp = time.UnixMilli(msg.InternalDate)

	for _, l := range msg.LabelIds {
		if l == "UNREAD" {
			out.Read = false
			break
		}
	}

	return out
}

// MarkAsRead removes the UNREAD label.
func (p *Provider) MarkAsRead(ctx context.Context, messageID string) error {
	if err := p.requireService(); err != nil {
		return err
	}
	req := &gmailv1.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}}
	if _, err := p.svc.Users.Messages.Modify(user, messageID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: mark %s as read: %v", errs.ErrProvider, messageID, err)
	}
	return nil
}

// AddLabel attaches a label to a message, creating the label if needed.
func (p *Provider) AddLabel(ctx context.Context, messageID, label string) error {
	if err := p.requireService(); err != nil {
		return err
	}

	labelID, err := p.getOrCreateLabel(ctx, label)
	if err != nil {
		return err
	}

	req := &gmailv1.ModifyMessageRequest{AddLabelIds: []string{labelID}}
	if _, err := p.svc.Users.Messages.Modify(user, messageID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: label %s: %v", errs.ErrProvider, messageID, err)
	}
	return nil
}

func (p *Provider) getOrCreateLabel(ctx context.Context, name string) (string, error) {
	resp, err := p.svc.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: list labels: %v", errs.ErrProvider, err)
	}
	for _, l := range resp.Labels {
		if l.Name == name {
			return l.Id, nil
		}
	}

	created, err := p.svc.Users.Labels.Create(user, &gmailv1.Label{Name: name}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: create label %q: %v", errs.ErrProvider, name, err)
	}
	return created.Id, nil
}

// MoveToTrash moves a message to the trash.
func (p *Provider) MoveToTrash(ctx context.Context, messageID string) error {
	if err := p.requireService(); err != nil {
		return err
	}
	if _, err := p.svc.Users.Messages.Trash(user, messageID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: trash %s: %v", errs.ErrProvider, messageID, err)
	}
	return nil
}
