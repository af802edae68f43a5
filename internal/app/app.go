// Package app assembles the relay from its configuration: store, feeds, filter,
// notifier, poller, scheduler, and the admin API.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/oharling/newsrelay/internal/api"
	"github.com/oharling/newsrelay/internal/config"
	"github.com/oharling/newsrelay/internal/dedupe"
	"github.com/oharling/newsrelay/internal/feed"
	"github.com/oharling/newsrelay/internal/feed/filter"
	"github.com/oharling/newsrelay/internal/feed/newsapi"
	"github.com/oharling/newsrelay/internal/feed/redditfetch"
	"github.com/oharling/newsrelay/internal/feed/rssfetch"
	"github.com/oharling/newsrelay/internal/notify"
	"github.com/oharling/newsrelay/internal/notify/email"
	"github.com/oharling/newsrelay/internal/notify/telegram"
	"github.com/oharling/newsrelay/internal/poller"
)

type App struct {
	Store     dedupe.SeenStore
	Poller    *poller.Poller
	Scheduler *poller.Scheduler
	Server    *api.Server
}

func New(logger *slog.Logger, doc *config.Document, env config.EnvConfig) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := newStore(doc.Store)
	if err != nil {
		return nil, err
	}

	source, err := newSource(doc, env)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var itemFilter *filter.Filter
	if doc.Filter != nil {
		itemFilter, err = filter.New(doc.Filter.Rule, filter.Action(doc.Filter.Action))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	notifier, err := newNotifier(doc.Notifier, env)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	p, err := poller.New(poller.Config{
		Source:    source,
		Store:     store,
		Notifier:  notifier,
		Filter:    itemFilter,
		Logger:    logger,
		OpTimeout: doc.OpTimeout(),
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	scheduler, err := poller.NewScheduler(p, doc.CronSchedule(), logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		Store:     store,
		Poller:    p,
		Scheduler: scheduler,
		Server:    api.NewServer(scheduler, store, logger),
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

func newStore(cfg config.StoreConfig) (dedupe.SeenStore, error) {
	policy := dedupe.RetentionPolicy{
		MaxAge:        cfg.Retention.MaxAge.Std(),
		MaxEntries:    cfg.Retention.MaxEntries,
		TargetEntries: cfg.Retention.TargetEntries,
	}
	if policy.MaxAge == 0 && policy.MaxEntries == 0 {
		// Without retention the store grows without bound; 3 days matches the
		// cadence of the feeds this relay is built for.
		policy.MaxAge = 3 * 24 * time.Hour
	}
	switch cfg.Backend {
	case config.StoreBackendSQLite:
		return dedupe.NewSQLiteStore(cfg.Path, cfg.Table, policy)
	case config.StoreBackendBadger:
		return dedupe.NewBadgerStore(cfg.Path, policy)
	case config.StoreBackendMemory, "":
		return dedupe.NewMemoryStore(policy)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func newSource(doc *config.Document, env config.EnvConfig) (feed.Source, error) {
	fetchers := make([]feed.Fetcher, 0, len(doc.Feeds))
	for i, cfg := range doc.Feeds {
		switch cfg.Type {
		case config.FeedTypeRSS:
			fetcher, err := rssfetch.New(cfg.URL, cfg.Limit, env.FeedHTTPTimeout, env.UserAgent)
			if err != nil {
				return nil, fmt.Errorf("feed %d: %w", i, err)
			}
			fetchers = append(fetchers, fetcher)
		case config.FeedTypeNewsAPI:
			fetchers = append(fetchers, newsapi.New(cfg.URL, cfg.Limit, env.FeedHTTPTimeout, env.UserAgent))
		case config.FeedTypeReddit:
			fetchers = append(fetchers, redditfetch.New(cfg.Subreddits, cfg.Limit, env.FeedHTTPTimeout, env.UserAgent))
		default:
			return nil, fmt.Errorf("feed %d: unknown feed type %q", i, cfg.Type)
		}
	}
	return feed.NewMultiSource(fetchers, doc.AllowPartialFeedErrors)
}

func newNotifier(cfg config.NotifierConfig, env config.EnvConfig) (notify.Notifier, error) {
	switch cfg.Type {
	case config.NotifierTelegram:
		return telegram.New(env.Telegram.BaseURL, env.Telegram.BotToken, env.Telegram.ChatID, env.Telegram.Timeout)
	case config.NotifierEmail:
		return email.New(email.Config{
			Host:               env.SMTP.Host,
			Port:               env.SMTP.Port,
			Username:           env.SMTP.User,
			Password:           env.SMTP.Password,
			From:               cfg.Email.From,
			To:                 cfg.Email.To,
			InsecureSkipVerify: env.SMTP.InsecureSkipVerify,
		})
	default:
		return nil, fmt.Errorf("unknown notifier type %q", cfg.Type)
	}
}
