// Command inbox-briefing fetches unread mail, categorizes it with the
// configured rules, and delivers a summary to Telegram. A dry run fetches
// and categorizes but sends nothing and mutates nothing.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inbox-briefing-go/internal/config"
	"inbox-briefing-go/internal/errs"
	"inbox-briefing-go/internal/gmail"
	"inbox-briefing-go/internal/imapmail"
	"inbox-briefing-go/internal/metrics"
	"inbox-briefing-go/internal/model"
	"inbox-briefing-go/internal/organizer"
	"inbox-briefing-go/internal/pipeline"
	"inbox-briefing-go/internal/rules"
	"inbox-briefing-go/internal/telegram"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		limit      = flag.Int("limit", 0, "max messages to fetch (default from config)")
		dryRun     = flag.Bool("dry-run", false, "fetch and categorize but skip notifications and mailbox changes")
		simulate   = flag.Bool("simulate", false, "alias for -dry-run")
		categories = flag.String("categories", "", "path to the categories JSON config (default from config)")
		debug      = flag.Bool("debug", false, "enable debug-level logging")
	)
	flag.Parse()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Errorf("Failed to load configuration: %v", err)
		return errs.ExitCode(err)
	}

	if *limit > 0 {
		cfg.Run.Limit = *limit
	}
	if *dryRun || *simulate {
		cfg.Run.DryRun = true
	}
	if *categories != "" {
		cfg.Run.CategoriesPath = *categories
	}

	if err := cfg.Validate(); err != nil {
		logrus.Errorf("Configuration validation failed: %v", err)
		return errs.ExitCode(err)
	}

	log := logrus.WithField("run_id", uuid.NewString())
	m := metrics.New()

	var provider pipeline.Provider
	if cfg.Gmail.UseIMAP {
		p := imapmail.New(&cfg.Gmail, log)
		defer p.Close()
		provider = p
		log.Info("Using IMAP provider")
	} else {
		provider = gmail.New(&cfg.Gmail, log)
		log.Info("Using Gmail API provider")
	}

	var notifiers []pipeline.Notifier
	if !cfg.Run.DryRun {
		notifier, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
		if err != nil {
			log.Errorf("Failed to create telegram notifier: %v", err)
			return errs.ExitCode(err)
		}
		notifiers = append(notifiers, notifier)
	}

	runner := pipeline.NewRunner(provider, notifiers, cfg.Run.CategoriesPath, cfg.Run.DryRun, m, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)

	type result struct {
		collection *model.Collection
		set        *rules.Set
		err        error
	}
	done := make(chan result, 1)
	go func() {
		collection, set, err := runner.Run(ctx, cfg.Run.Limit)
		done <- result{collection, set, err}
	}()

	var collection *model.Collection
	var set *rules.Set
	select {
	case <-interrupted:
		log.Warn("Interrupted by user")
		cancel()
		return errs.ExitInterrupt
	case res := <-done:
		if res.err != nil {
			log.Errorf("Pipeline failed: %v", res.err)
			return errs.ExitCode(res.err)
		}
		collection, set = res.collection, res.set
	}

	if collection.TotalCount > 0 && set != nil {
		applyActions(ctx, provider, collection, set, cfg.Run.DryRun, m, log)
	}

	log.WithField("total", collection.TotalCount).Info("Run complete")
	return errs.ExitOK
}

// applyActions runs the organizer over the categorized messages, reusing
// the rule set the pipeline already loaded. In dry-run mode actions are
// simulated and logged.
func applyActions(ctx context.Context, provider pipeline.Provider, collection *model.Collection, set *rules.Set, dryRun bool, m *metrics.Metrics, log *logrus.Entry) {
	org := organizer.New(provider, dryRun, m, log)
	org.Apply(ctx, collection.Messages, set)
	if actions := org.Actions(); len(actions) > 0 {
		log.WithField("actions", len(actions)).Info("Mailbox actions processed")
	}
}
