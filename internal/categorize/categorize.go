// Package categorize assigns exactly one category to each message by
// evaluating it against a compiled rule set. Matching is a pure function
// of (message, rule set): no I/O, deterministic, idempotent.
package categorize

import (
	"sort"

	"inbox-briefing-go/internal/model"
	"inbox-briefing-go/internal/rules"
)

// Confidence values by match axis.
const (
	senderConfidence  = 1.0
	contentConfidence = 0.8
)

const fallbackReason = "No rules matched"

type candidate struct {
	category   string
	confidence float64
	reason     string
	priority   int
}

// One categorizes a single message. Every rule is tested on both axes:
// each sender matcher against the raw sender field, each content pattern
// against subject + " " + snippet. All qualifying candidates are kept and
// ranked by (priority ascending, confidence descending); the stable sort
// leaves rule-declaration order as the final tie-break. When nothing
// qualifies the fallback category is returned with confidence 0.
func One(msg model.Message, set *rules.Set) model.CategorizedMessage {
	text := msg.Subject + " " + msg.Snippet

	var candidates []candidate
	for _, rule := range set.Rules() {
		for _, m := range rule.Senders {
			if m.Match(msg.Sender) {
				candidates = append(candidates, candidate{
					category:   rule.Category,
					confidence: senderConfidence,
					reason:     "Sender matched: " + m.Src,
					priority:   rule.Priority,
				})
			}
		}
		for _, m := range rule.Patterns {
			if m.Match(text) {
				candidates = append(candidates, candidate{
					category:   rule.Category,
					confidence: contentConfidence,
					reason:     "Pattern matched: " + m.Src,
					priority:   rule.Priority,
				})
			}
		}
	}

	if len(candidates) == 0 {
		return model.CategorizedMessage{
			Message:  msg,
			Category: rules.FallbackCategory,
			Reason:   fallbackReason,
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		return candidates[i].confidence > candidates[j].confidence
	})

	best := candidates[0]
	return model.CategorizedMessage{
		Message:    msg,
		Category:   best.category,
		Confidence: best.confidence,
		Reason:     best.reason,
	}
}

// Batch categorizes messages in input order. Invalid patterns were already
// dropped at rule load, so a single message can never abort the batch.
func Batch(msgs []model.Message, set *rules.Set) []model.CategorizedMessage {
	out := make([]model.CategorizedMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, One(msg, set))
	}
	return out
}
