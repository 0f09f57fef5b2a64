// Package telegram delivers run summaries and alerts through a Telegram
// bot, formatted as HTML messages.
package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"inbox-briefing-go/internal/digest"
	"inbox-briefing-go/internal/errs"
	"inbox-briefing-go/internal/model"
)

// Telegram rejects messages longer than this.
const maxMessageLen = 4096

const (
	maxPerCategory = 3
	maxHighlights  = 5
	subjectWidth   = 50
)

var categoryEmoji = map[string]string{
	"Work":          "🔴",
	"Crypto":        "📊",
	"Admin":         "⚠️",
	"Newsletters":   "📰",
	"Personal":      "💬",
	"Noise":         "🗑️",
	"Uncategorized": "❓",
}

// Notifier sends briefings to a single chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *logrus.Entry
}

// New creates a Notifier, validating the bot token against the Telegram
// API.
func New(token string, chatID int64, log *logrus.Entry) (*Notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: telegram bot token not provided", errs.ErrCredential)
	}
	if chatID == 0 {
		return nil, fmt.Errorf("%w: telegram chat id not provided", errs.ErrCredential)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%w: create telegram bot: %v", errs.ErrCredential, err)
	}

	return &Notifier{api: api, chatID: chatID, log: log}, nil
}

// SendSummary formats the collection as an HTML briefing and sends it,
// chunked to the Telegram message limit.
func (n *Notifier) SendSummary(ctx context.Context, collection *model.Collection) error {
	text := FormatSummary(collection)

	for _, chunk := range splitMessage(text, maxMessageLen) {
		msg := tgbotapi.NewMessage(n.chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := n.api.Send(msg); err != nil {
			return fmt.Errorf("%w: send summary: %v", errs.ErrNotifier, err)
		}
	}

	n.log.WithField("total", collection.TotalCount).Info("Sent briefing")
	return nil
}

// SendAlert sends an urgent single message.
func (n *Notifier) SendAlert(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, "🚨 <b>ALERT</b>: "+html.EscapeString(text))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("%w: send alert: %v", errs.ErrNotifier, err)
	}
	return nil
}

// FormatSummary renders the briefing text. Categories are ordered by
// descending count; each lists up to three subjects with the sender's
// display name. The output is deterministic for a fixed collection.
func FormatSummary(collection *model.Collection) string {
	lines := []string{"📧 <b>Inbox Briefing</b>", ""}

	for _, category := range collection.CategoriesByCount() {
		count := collection.ByCategory[category]
		emoji, ok := categoryEmoji[category]
		if !ok {
			emoji = "📌"
		}
		plural := "s"
		if count == 1 {
			plural = ""
		}
		lines = append(lines, fmt.Sprintf("%s <b>%s</b>: %d message%s", emoji, html.EscapeString(category), count, plural))

		entries := collection.MessagesIn(category)
		for i, cm := range entries {
			if i == maxPerCategory {
				break
			}
			subject := digest.Truncate(cm.Message.Subject, subjectWidth)
			sender := model.SenderName(cm.Message.Sender)
			lines = append(lines, fmt.Sprintf("  • %s (%s)", html.EscapeString(subject), html.EscapeString(sender)))
		}
		if extra := len(entries) - maxPerCategory; extra > 0 {
			lines = append(lines, fmt.Sprintf("  <i>...and %d more</i>", extra))
		}

		lines = append(lines, "")
	}

	if highlights := digestHighlights(collection); len(highlights) > 0 {
		lines = append(lines, "🔗 <b>Highlights</b>")
		lines = append(lines, highlights...)
		lines = append(lines, "")
	}

	lines = append(lines, fmt.Sprintf("✅ <b>Total:</b> %d messages processed", collection.TotalCount))
	return strings.Join(lines, "\n")
}

// digestHighlights pulls linked articles out of the snippets of messages
// whose category carries the "digest" action tag.
func digestHighlights(collection *model.Collection) []string {
	var lines []string
	for _, cm := range collection.Messages {
		if collection.CategoryActions[cm.Category] != "digest" {
			continue
		}
		items := digest.ExtractItems(cm.Message.Snippet)
		if len(items) == 0 {
			continue
		}
		item := items[0]
		lines = append(lines, fmt.Sprintf(`  • <a href="%s">%s</a>`, item.URL, html.EscapeString(item.Title)))
		if len(lines) == maxHighlights {
			break
		}
	}
	return lines
}

// splitMessage breaks text into chunks no longer than limit, preferring
// line boundaries and hard-splitting any single oversized line.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			chunks = append(chunks, flush(&b), line[:limit])
			line = line[limit:]
		}
		if b.Len()+len(line)+1 > limit {
			chunks = append(chunks, flush(&b))
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func flush(b *strings.Builder) string {
	s := b.String()
	b.Reset()
	return s
}
