package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderAddress(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   string
	}{
		{"bare address", "alerts@coinbase.com", "alerts@coinbase.com"},
		{"display name", "Coinbase Alerts <alerts@coinbase.com>", "alerts@coinbase.com"},
		{"quoted name", `"Doe, Jane" <jane@company.com>`, "jane@company.com"},
		{"unclosed bracket", "Broken <alerts@coinbase.com", "Broken <alerts@coinbase.com"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SenderAddress(tt.sender))
		})
	}
}

func TestSenderName(t *testing.T) {
	assert.Equal(t, "Coinbase Alerts", SenderName("Coinbase Alerts <alerts@coinbase.com>"))
	assert.Equal(t, "alerts@coinbase.com", SenderName("<alerts@coinbase.com>"))
	assert.Equal(t, "alerts@coinbase.com", SenderName("alerts@coinbase.com"))
}

func TestSenderDomain(t *testing.T) {
	m := Message{Sender: "Jane <jane@company.com>"}
	assert.Equal(t, "company.com", m.SenderDomain())

	noAt := Message{Sender: "not-an-address"}
	assert.Equal(t, "not-an-address", noAt.SenderDomain())
}

func TestNewCollectionCounts(t *testing.T) {
	categorized := []CategorizedMessage{
		{Message: Message{ID: "1"}, Category: "Work"},
		{Message: Message{ID: "2"}, Category: "Crypto"},
		{Message: Message{ID: "3"}, Category: "Work"},
		{Message: Message{ID: "4"}, Category: "Uncategorized"},
	}

	c := NewCollection(categorized)
	assert.Equal(t, 4, c.TotalCount)
	assert.Equal(t, map[string]int{"Work": 2, "Crypto": 1, "Uncategorized": 1}, c.ByCategory)
	assert.WithinDuration(t, time.Now(), c.CreatedAt, time.Minute)

	sum := 0
	for _, n := range c.ByCategory {
		sum += n
	}
	assert.Equal(t, c.TotalCount, sum)
}

func TestNewCollectionEmpty(t *testing.T) {
	c := NewCollection(nil)
	assert.Equal(t, 0, c.TotalCount)
	assert.Empty(t, c.ByCategory)
}

func TestCategoriesByCount(t *testing.T) {
	categorized := []CategorizedMessage{
		{Category: "Work"},
		{Category: "Work"},
		{Category: "Crypto"},
		{Category: "Admin"},
	}

	c := NewCollectionAt(categorized, time.Now())
	// Count descending, alphabetical on ties.
	assert.Equal(t, []string{"Work", "Admin", "Crypto"}, c.CategoriesByCount())
}

func TestMessagesInPreservesOrder(t *testing.T) {
	categorized := []CategorizedMessage{
		{Message: Message{ID: "1"}, Category: "Work"},
		{Message: Message{ID: "2"}, Category: "Crypto"},
		{Message: Message{ID: "3"}, Category: "Work"},
	}

	c := NewCollectionAt(categorized, time.Now())
	work := c.MessagesIn("Work")
	require.Len(t, work, 2)
	assert.Equal(t, "1", work[0].Message.ID)
	assert.Equal(t, "3", work[1].Message.ID)
	assert.Empty(t, c.MessagesIn("Nope"))
}
