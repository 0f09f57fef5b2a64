// Package pipeline sequences one batch run: authenticate, fetch unread
// messages, categorize, aggregate, notify. It owns the dry-run semantics
// and the partial-failure policy across notifiers.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-briefing-go/internal/categorize"
	"inbox-briefing-go/internal/digest"
	"inbox-briefing-go/internal/metrics"
	"inbox-briefing-go/internal/model"
	"inbox-briefing-go/internal/rules"
)

// Provider is the mail-service boundary consumed by the orchestrator.
type Provider interface {
	// Authenticate validates credentials and establishes the session.
	// Failures wrap errs.ErrCredential.
	Authenticate(ctx context.Context) error
	// FetchUnread returns up to limit unread messages, newest first.
	// Failures wrap errs.ErrProvider.
	FetchUnread(ctx context.Context, limit int) ([]model.Message, error)
	MarkAsRead(ctx context.Context, messageID string) error
	AddLabel(ctx context.Context, messageID, label string) error
	MoveToTrash(ctx context.Context, messageID string) error
}

// Notifier is the delivery boundary. Failures wrap errs.ErrNotifier.
type Notifier interface {
	SendSummary(ctx context.Context, collection *model.Collection) error
	SendAlert(ctx context.Context, text string) error
}

// Runner executes the pipeline. Rules are loaded fresh on every Run so no
// state survives between invocations.
type Runner struct {
	provider       Provider
	notifiers      []Notifier
	categoriesPath string
	dryRun         bool
	metrics        *metrics.Metrics
	log            *logrus.Entry
}

// NewRunner wires a Runner. notifiers may be empty; metrics must not be nil.
func NewRunner(provider Provider, notifiers []Notifier, categoriesPath string, dryRun bool, m *metrics.Metrics, log *logrus.Entry) *Runner {
	if dryRun {
		log.Info("Running in dry-run mode, notifications will be skipped")
	}
	return &Runner{
		provider:       provider,
		notifiers:      notifiers,
		categoriesPath: categoriesPath,
		dryRun:         dryRun,
		metrics:        m,
		log:            log,
	}
}

// Run executes one pipeline invocation and returns the built Collection
// together with the rule set it was categorized under, so callers can
// apply rule actions without loading the rules a second time.
// Authentication, fetch, and rule-load failures are fatal and propagate;
// notifier failures are logged per notifier and never fail the run. An
// empty inbox short-circuits with an empty Collection, a nil rule set,
// and no notification.
func (r *Runner) Run(ctx context.Context, limit int) (*model.Collection, *rules.Set, error) {
	start := time.Now()
	defer func() {
		r.metrics.ProcessingTime.Observe(time.Since(start).Seconds())
	}()

	r.log.Info("Authenticating with mail provider")
	if err := r.provider.Authenticate(ctx); err != nil {
		return nil, nil, fmt.Errorf("authenticate: %w", err)
	}

	r.log.WithField("limit", limit).Info("Fetching unread messages")
	r.metrics.FetchRuns.Inc()
	msgs, err := r.provider.FetchUnread(ctx, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch unread: %w", err)
	}
	r.metrics.MessagesFetched.Add(float64(len(msgs)))

	if len(msgs) == 0 {
		r.log.Info("No unread messages")
		return model.NewCollection(nil), nil, nil
	}
	r.log.WithField("count", len(msgs)).Info("Fetched unread messages")

	set, err := rules.Load(r.categoriesPath, r.log)
	if err != nil {
		return nil, nil, fmt.Errorf("load rules: %w", err)
	}
	r.metrics.RuleCount.Set(float64(set.Len()))

	categorized := categorize.Batch(msgs, set)
	for _, cm := range categorized {
		r.metrics.Categorized.WithLabelValues(cm.Category).Inc()
	}

	collection := model.NewCollection(categorized)
	collection.CategoryActions = set.Actions()
	for _, name := range collection.CategoriesByCount() {
		r.log.WithFields(logrus.Fields{
			"category": name,
			"count":    collection.ByCategory[name],
		}).Info("Categorized")
	}

	if r.dryRun {
		r.log.Info("Dry-run mode, skipping notification")
		r.logSummary(collection)
		return collection, set, nil
	}

	for i, notifier := range r.notifiers {
		if err := notifier.SendSummary(ctx, collection); err != nil {
			r.metrics.NotifyFailures.Inc()
			r.log.WithField("notifier", i).Warnf("Failed to send summary: %v", err)
			continue
		}
		r.metrics.NotifySuccesses.Inc()
	}

	return collection, set, nil
}

// logSummary prints the per-category breakdown in dry-run mode, up to
// three subjects per category.
func (r *Runner) logSummary(collection *model.Collection) {
	for _, name := range collection.CategoriesByCount() {
		entries := collection.MessagesIn(name)
		for i, cm := range entries {
			if i == 3 {
				r.log.Infof("  ...and %d more in %s", len(entries)-3, name)
				break
			}
			r.log.Infof("  [%s] %s (%s)", name, digest.Truncate(cm.Message.Subject, 50), cm.Message.SenderAddress())
		}
	}
	r.log.WithField("total", collection.TotalCount).Info("Dry-run summary complete")
}
