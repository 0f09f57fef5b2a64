// Package organizer applies per-category mailbox actions to categorized
// messages. It layers on top of categorization output and talks to the
// same provider boundary as the pipeline.
//
// Supported action tags: "trash", "read", and "label:<name>". Other tags
// (e.g. "digest") carry no mailbox mutation and are consumed by
// notification formatting instead.
package organizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"inbox-briefing-go/internal/metrics"
	"inbox-briefing-go/internal/model"
	"inbox-briefing-go/internal/pipeline"
	"inbox-briefing-go/internal/rules"
)

// Organizer applies rule actions. In simulate mode it records what it
// would do instead of calling the provider.
type Organizer struct {
	provider pipeline.Provider
	simulate bool
	metrics  *metrics.Metrics
	log      *logrus.Entry

	actions []string
}

// New wires an Organizer.
func New(provider pipeline.Provider, simulate bool, m *metrics.Metrics, log *logrus.Entry) *Organizer {
	return &Organizer{
		provider: provider,
		simulate: simulate,
		metrics:  m,
		log:      log,
	}
}

// Apply walks the categorized messages and applies each category's action
// tag. Provider failures are logged per message and never abort the pass.
func (o *Organizer) Apply(ctx context.Context, categorized []model.CategorizedMessage, set *rules.Set) {
	for _, cm := range categorized {
		action := set.Action(cm.Category)
		if action == "" {
			continue
		}

		desc, apply := o.plan(cm, action)
		if apply == nil {
			continue
		}

		if o.simulate {
			o.actions = append(o.actions, desc)
			o.metrics.ActionsSimulated.Inc()
			o.log.WithField("message_id", cm.Message.ID).Infof("Simulated: %s", desc)
			continue
		}

		if err := apply(ctx); err != nil {
			o.log.WithField("message_id", cm.Message.ID).Warnf("Action failed (%s): %v", desc, err)
			continue
		}
		o.actions = append(o.actions, desc)
		o.metrics.ActionsApplied.Inc()
		o.log.WithField("message_id", cm.Message.ID).Debugf("Applied: %s", desc)
	}
}

// plan maps an action tag to a description and the provider call that
// performs it. A nil call means the tag mutates nothing.
func (o *Organizer) plan(cm model.CategorizedMessage, action string) (string, func(context.Context) error) {
	msg := cm.Message
	subject := msg.Subject

	switch {
	case action == "trash":
		return fmt.Sprintf("trash %q from %s (%s)", subject, msg.SenderAddress(), msg.ID),
			func(ctx context.Context) error { return o.provider.MoveToTrash(ctx, msg.ID) }
	case action == "read":
		return fmt.Sprintf("mark %q as read (%s)", subject, msg.ID),
			func(ctx context.Context) error { return o.provider.MarkAsRead(ctx, msg.ID) }
	case strings.HasPrefix(action, "label:"):
		label := strings.TrimPrefix(action, "label:")
		return fmt.Sprintf("label %q with %s (%s)", subject, label, msg.ID),
			func(ctx context.Context) error { return o.provider.AddLabel(ctx, msg.ID, label) }
	default:
		return "", nil
	}
}

// Actions returns the human-readable action log for this pass: applied
// actions, or planned ones in simulate mode.
func (o *Organizer) Actions() []string {
	return o.actions
}
