package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-briefing-go/internal/errs"
	"inbox-briefing-go/internal/metrics"
	"inbox-briefing-go/internal/model"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "categories.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const testRules = `{
	"Crypto": {"senders": ["@coinbase.com"], "priority": 10},
	"Work":   {"patterns": ["\\bsprint\\b"], "priority": 20}
}`

// fakeProvider implements Provider with canned responses.
type fakeProvider struct {
	messages   []model.Message
	authErr    error
	fetchErr   error
	fetchCalls int
}

func (f *fakeProvider) Authenticate(ctx context.Context) error { return f.authErr }

func (f *fakeProvider) FetchUnread(ctx context.Context, limit int) ([]model.Message, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if limit < len(f.messages) {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func (f *fakeProvider) MarkAsRead(ctx context.Context, id string) error { return nil }

func (f *fakeProvider) AddLabel(ctx context.Context, id, label string) error { return nil }

func (f *fakeProvider) MoveToTrash(ctx context.Context, id string) error { return nil }

// fakeNotifier implements Notifier and records calls.
type fakeNotifier struct {
	summaryCalls int
	alertCalls   int
	fail         bool
}

func (f *fakeNotifier) SendSummary(ctx context.Context, c *model.Collection) error {
	f.summaryCalls++
	if f.fail {
		return errors.New("delivery refused")
	}
	return nil
}

func (f *fakeNotifier) SendAlert(ctx context.Context, text string) error {
	f.alertCalls++
	return nil
}

func sampleMessages() []model.Message {
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return []model.Message{
		{ID: "1", Sender: "alerts@coinbase.com", Subject: "Staking rewards", Snippet: "2.3 SOL", Timestamp: ts},
		{ID: "2", Sender: "susan@company.com", Subject: "Sprint review", Snippet: "Friday 3pm", Timestamp: ts},
		{ID: "3", Sender: "random@example.org", Subject: "Hey", Snippet: "long time", Timestamp: ts},
	}
}

func TestRunHappyPath(t *testing.T) {
	provider := &fakeProvider{messages: sampleMessages()}
	notifier := &fakeNotifier{}
	m := metrics.New()

	runner := NewRunner(provider, []Notifier{notifier}, writeRules(t, testRules), false, m, testLog())
	collection, set, err := runner.Run(context.Background(), 50)

	require.NoError(t, err)
	require.NotNil(t, set)
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, 3, collection.TotalCount)
	assert.Equal(t, 1, collection.ByCategory["Crypto"])
	assert.Equal(t, 1, collection.ByCategory["Work"])
	assert.Equal(t, 1, collection.ByCategory["Uncategorized"])
	assert.Equal(t, 1, notifier.summaryCalls)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.MessagesFetched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifySuccesses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Categorized.WithLabelValues("Crypto")))
}

func TestRunEmptyInboxShortCircuits(t *testing.T) {
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}

	runner := NewRunner(provider, []Notifier{notifier}, writeRules(t, testRules), false, metrics.New(), testLog())
	collection, set, err := runner.Run(context.Background(), 50)

	require.NoError(t, err)
	assert.Nil(t, set)
	assert.Equal(t, 0, collection.TotalCount)
	assert.Equal(t, 0, notifier.summaryCalls)
	assert.Equal(t, 0, notifier.alertCalls)
}

func TestRunDryRunSuppressesNotifiers(t *testing.T) {
	provider := &fakeProvider{messages: sampleMessages()}
	notifier := &fakeNotifier{}

	runner := NewRunner(provider, []Notifier{notifier}, writeRules(t, testRules), true, metrics.New(), testLog())
	collection, _, err := runner.Run(context.Background(), 50)

	require.NoError(t, err)
	assert.Equal(t, 3, collection.TotalCount)
	assert.Equal(t, 0, notifier.summaryCalls)
}

func TestRunNotifierFaultIsolation(t *testing.T) {
	provider := &fakeProvider{messages: sampleMessages()}
	failing := &fakeNotifier{fail: true}
	healthy := &fakeNotifier{}
	m := metrics.New()

	runner := NewRunner(provider, []Notifier{failing, healthy}, writeRules(t, testRules), false, m, testLog())
	collection, _, err := runner.Run(context.Background(), 50)

	require.NoError(t, err)
	assert.Equal(t, 3, collection.TotalCount)
	assert.Equal(t, 1, failing.summaryCalls)
	assert.Equal(t, 1, healthy.summaryCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifyFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifySuccesses))
}

func TestRunAuthFailureIsFatal(t *testing.T) {
	provider := &fakeProvider{authErr: errs.ErrCredential}

	runner := NewRunner(provider, nil, writeRules(t, testRules), false, metrics.New(), testLog())
	_, _, err := runner.Run(context.Background(), 50)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCredential)
	assert.Equal(t, 0, provider.fetchCalls)
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	provider := &fakeProvider{fetchErr: errs.ErrProvider}

	runner := NewRunner(provider, nil, writeRules(t, testRules), false, metrics.New(), testLog())
	_, _, err := runner.Run(context.Background(), 50)

	assert.ErrorIs(t, err, errs.ErrProvider)
}

func TestRunRuleLoadFailureIsFatal(t *testing.T) {
	provider := &fakeProvider{messages: sampleMessages()}
	notifier := &fakeNotifier{}

	runner := NewRunner(provider, []Notifier{notifier}, "/nonexistent/categories.json", false, metrics.New(), testLog())
	_, _, err := runner.Run(context.Background(), 50)

	assert.ErrorIs(t, err, errs.ErrConfigNotFound)
	assert.Equal(t, 0, notifier.summaryCalls)
}

func TestRunHonorsLimit(t *testing.T) {
	provider := &fakeProvider{messages: sampleMessages()}

	runner := NewRunner(provider, nil, writeRules(t, testRules), true, metrics.New(), testLog())
	collection, _, err := runner.Run(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, 2, collection.TotalCount)
}

func TestRunReturnsRulesUsedForCategorization(t *testing.T) {
	provider := &fakeProvider{messages: sampleMessages()}
	path := writeRules(t, `{
		"Crypto": {"senders": ["@coinbase.com"], "priority": 10, "action": "label:Crypto"},
		"Work":   {"patterns": ["\\bsprint\\b"], "priority": 20}
	}`)

	runner := NewRunner(provider, nil, path, true, metrics.New(), testLog())
	collection, set, err := runner.Run(context.Background(), 50)

	require.NoError(t, err)
	require.NotNil(t, set)

	// The returned set is the one the categories came from, so action
	// application needs no second load.
	assert.Equal(t, "label:Crypto", set.Action("Crypto"))
	assert.Equal(t, map[string]string{"Crypto": "label:Crypto"}, collection.CategoryActions)
}
