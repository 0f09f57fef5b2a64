// Package imapmail implements the provider boundary over plain IMAP, for
// mailboxes without Gmail API access. Labels map to IMAP mailboxes and
// trash maps to a move into the Trash mailbox.
package imapmail

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"inbox-briefing-go/internal/config"
	"inbox-briefing-go/internal/digest"
	"inbox-briefing-go/internal/errs"
	"inbox-briefing-go/internal/model"
)

const (
	inboxMailbox = "INBOX"
	trashMailbox = "Trash"
	snippetLen   = 200
)

// Provider talks to an IMAP server. Call Authenticate before anything
// else and Close when done.
type Provider struct {
	cfg    *config.GmailConfig
	client *client.Client
	log    *logrus.Entry
}

// New creates an unconnected Provider.
func New(cfg *config.GmailConfig, log *logrus.Entry) *Provider {
	return &Provider{cfg: cfg, log: log}
}

// Authenticate dials the server over TLS and logs in.
func (p *Provider) Authenticate(ctx context.Context) error {
	if p.cfg.IMAPUser == "" || p.cfg.IMAPPassword == "" {
		return fmt.Errorf("%w: IMAP credentials missing", errs.ErrCredential)
	}

	c, err := client.DialTLS(fmt.Sprintf("%s:%d", p.cfg.IMAPHost, p.cfg.IMAPPort), nil)
	if err != nil {
		return fmt.Errorf("%w: connect to IMAP server: %v", errs.ErrProvider, err)
	}

	if err := c.Login(p.cfg.IMAPUser, p.cfg.IMAPPassword); err != nil {
		c.Logout()
		return fmt.Errorf("%w: IMAP login failed: %v", errs.ErrCredential, err)
	}

	p.client = c
	return nil
}

// Close logs out of the server.
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Logout()
}

func (p *Provider) requireClient() error {
	if p.client == nil {
		return fmt.Errorf("%w: not authenticated", errs.ErrProvider)
	}
	return nil
}

// FetchUnread searches INBOX for unseen messages and returns up to limit
// of them, newest first. Messages that fail to parse are skipped with a
// warning.
func (p *Provider) FetchUnread(ctx context.Context, limit int) ([]model.Message, error) {
	if err := p.requireClient(); err != nil {
		return nil, err
	}

	if _, err := p.client.Select(inboxMailbox, false); err != nil {
		return nil, fmt.Errorf("%w: select %s: %v", errs.ErrProvider, inboxMailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := p.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("%w: search unseen: %v", errs.ErrProvider, err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	// UIDs ascend with arrival; keep only the newest limit of them.
	if len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- p.client.UidFetch(seqset, items, messages)
	}()

	var msgs []model.Message
	for raw := range messages {
		msg, err := p.parseMessage(raw, section)
		if err != nil {
			p.log.Warnf("Failed to parse IMAP message %d: %v", raw.Uid, err)
			continue
		}
		msgs = append(msgs, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("%w: fetch messages: %v", errs.ErrProvider, err)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.After(msgs[j].Timestamp)
	})
	return msgs, nil
}

func (p *Provider) parseMessage(raw *imap.Message, section *imap.BodySectionName) (model.Message, error) {
	msg := model.Message{
		ID: strconv.FormatUint(uint64(raw.Uid), 10),
	}

	if raw.Envelope != nil {
		msg.Subject = raw.Envelope.Subject
		msg.Timestamp = raw.Envelope.Date
		if len(raw.Envelope.From) > 0 {
			msg.Sender = formatAddress(raw.Envelope.From[0])
		}
	}
	if msg.Subject == "" {
		msg.Subject = "(no subject)"
	}

	for _, f := range raw.Flags {
		if f == imap.SeenFlag {
			msg.Read = true
			break
		}
	}

	if body := raw.GetBody(section); body != nil {
		snippet, err := extractSnippet(body)
		if err != nil {
			return msg, err
		}
		msg.Snippet = snippet
	}

	return msg, nil
}

func formatAddress(addr *imap.Address) string {
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s>", addr.PersonalName, addr.Address())
	}
	return addr.Address()
}

// extractSnippet reads the first text part of the message and condenses it
// to a short excerpt, mirroring the snippet the Gmail API provides.
func extractSnippet(r io.Reader) (string, error) {
	entity, err := message.Read(r)
	if err != nil {
		return "", fmt.Errorf("read message: %v", err)
	}

	var plain, html string
	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", fmt.Errorf("read part: %v", err)
			}
			content, err := io.ReadAll(part.Body)
			if err != nil {
				return "", fmt.Errorf("read part body: %v", err)
			}
			contentType := part.Header.Get("Content-Type")
			switch {
			case strings.Contains(contentType, "text/plain") && plain == "":
				plain = string(content)
			case strings.Contains(contentType, "text/html") && html == "":
				html = string(content)
			}
		}
	} else {
		content, err := io.ReadAll(entity.Body)
		if err != nil {
			return "", fmt.Errorf("read body: %v", err)
		}
		if strings.Contains(entity.Header.Get("Content-Type"), "text/html") {
			html = string(content)
		} else {
			plain = string(content)
		}
	}

	text := plain
	if text == "" {
		text = digest.PlainText(html)
	}
	text = strings.Join(strings.Fields(text), " ")
	return digest.Truncate(text, snippetLen), nil
}

func (p *Provider) uidSet(messageID string) (*imap.SeqSet, error) {
	uid, err := strconv.ParseUint(messageID, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid message id %q", errs.ErrProvider, messageID)
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))
	return seqset, nil
}

// MarkAsRead sets the \Seen flag.
func (p *Provider) MarkAsRead(ctx context.Context, messageID string) error {
	if err := p.requireClient(); err != nil {
		return err
	}
	seqset, err := p.uidSet(messageID)
	if err != nil {
		return err
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := p.client.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("%w: mark %s as read: %v", errs.ErrProvider, messageID, err)
	}
	return nil
}

// AddLabel copies the message into a mailbox of that name, creating the
// mailbox when it does not exist yet.
func (p *Provider) AddLabel(ctx context.Context, messageID, label string) error {
	if err := p.requireClient(); err != nil {
		return err
	}
	seqset, err := p.uidSet(messageID)
	if err != nil {
		return err
	}

	// Create is idempotent enough here: an already-exists failure is fine.
	if err := p.client.Create(label); err != nil {
		p.log.Debugf("Create mailbox %q: %v", label, err)
	}

	if err := p.client.UidCopy(seqset, label); err != nil {
		return fmt.Errorf("%w: copy %s to %q: %v", errs.ErrProvider, messageID, label, err)
	}
	return nil
}

// MoveToTrash moves the message into the Trash mailbox.
func (p *Provider) MoveToTrash(ctx context.Context, messageID string) error {
	if err := p.requireClient(); err != nil {
		return err
	}
	seqset, err := p.uidSet(messageID)
	if err != nil {
		return err
	}

	if err := p.client.UidMove(seqset, trashMailbox); err != nil {
		return fmt.Errorf("%w: move %s to trash: %v", errs.ErrProvider, messageID, err)
	}
	return nil
}
