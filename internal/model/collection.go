package model

import (
	"sort"
	"time"
)

// Collection is the aggregate result of one run: every categorized message
// plus per-category counts. Read-only after construction.
type Collection struct {
	Messages   []CategorizedMessage `json:"messages"`
	TotalCount int                  `json:"total_count"`
	ByCategory map[string]int       `json:"by_category"`
	CreatedAt  time.Time            `json:"created_at"`

	// CategoryActions maps category name to its configured action tag.
	// Consumed by notification formatting; may be empty.
	CategoryActions map[string]string `json:"category_actions,omitempty"`
}

// NewCollection folds categorized messages into a Collection, stamping it
// with the current wall-clock time. An empty input yields TotalCount 0 and
// an empty ByCategory map.
func NewCollection(categorized []CategorizedMessage) *Collection {
	return NewCollectionAt(categorized, time.Now())
}

// NewCollectionAt is NewCollection with an explicit creation timestamp.
func NewCollectionAt(categorized []CategorizedMessage, at time.Time) *Collection {
	byCategory := make(map[string]int, 8)
	for _, cm := range categorized {
		byCategory[cm.Category]++
	}
	return &Collection{
		Messages:   categorized,
		TotalCount: len(categorized),
		ByCategory: byCategory,
		CreatedAt:  at,
	}
}

// CategoriesByCount returns the category names ordered by descending count,
// ties broken alphabetically so the ordering is deterministic.
func (c *Collection) CategoriesByCount() []string {
	names := make([]string, 0, len(c.ByCategory))
	for name := range c.ByCategory {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if c.ByCategory[names[i]] != c.ByCategory[names[j]] {
			return c.ByCategory[names[i]] > c.ByCategory[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// MessagesIn returns the messages assigned to one category, preserving
// their pipeline order.
func (c *Collection) MessagesIn(category string) []CategorizedMessage {
	var out []CategorizedMessage
	for _, cm := range c.Messages {
		if cm.Category == category {
			out = append(out, cm)
		}
	}
	return out
}
