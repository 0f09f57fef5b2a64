// Package model holds the data types passed along the pipeline: fetched
// messages, categorization results, and the per-run collection.
package model

import (
	"strings"
	"time"
)

// Message represents one fetched email, normalized from whichever provider
// produced it. Immutable after creation.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Snippet   string    `json:"snippet"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	Labels    []string  `json:"labels,omitempty"`
}

// SenderAddress extracts the bare address from a sender field that may be
// either "Display Name <address>" or a bare address. It splits on the first
// <...> pair and falls back to the whole string when absent.
func (m Message) SenderAddress() string {
	return SenderAddress(m.Sender)
}

// SenderDomain returns the part of the sender address after "@", or the
// whole address when there is none.
func (m Message) SenderDomain() string {
	addr := m.SenderAddress()
	if i := strings.Index(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return addr
}

// SenderAddress extracts the address portion of a raw sender field.
func SenderAddress(sender string) string {
	open := strings.Index(sender, "<")
	if open < 0 {
		return strings.TrimSpace(sender)
	}
	end := strings.Index(sender[open:], ">")
	if end < 0 {
		return strings.TrimSpace(sender)
	}
	return strings.TrimSpace(sender[open+1 : open+end])
}

// SenderName returns the display name of a sender field when present and
// the address otherwise. Used for briefing formatting only.
func SenderName(sender string) string {
	open := strings.Index(sender, "<")
	if open < 0 || !strings.Contains(sender[open:], ">") {
		return strings.TrimSpace(sender)
	}
	name := strings.Trim(strings.TrimSpace(sender[:open]), `"`)
	if name == "" {
		return SenderAddress(sender)
	}
	return name
}

// CategorizedMessage pairs a Message with exactly one category, a
// confidence score in [0, 1], and the reason the category was chosen.
type CategorizedMessage struct {
	Message    Message `json:"message"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}
