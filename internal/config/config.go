// Package config loads the relay document (YAML) and environment overrides.
// The document describes what to poll, how to bound the seen-store, and where
// new items go; credentials stay in the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreBackendSQLite = "sqlite"
	StoreBackendBadger = "badger"
	StoreBackendMemory = "memory"
)

const (
	NotifierTelegram = "telegram"
	NotifierEmail    = "email"
)

const (
	FeedTypeRSS     = "rss"
	FeedTypeNewsAPI = "newsapi"
	FeedTypeReddit  = "reddit"
)

// Document is the top-level relay configuration file.
type Document struct {
	// Schedule is a cron expression, an @every duration, or a plain duration
	// such as "5m".
	Schedule string `yaml:"schedule"`
	// OperationTimeout bounds each fetch, delivery, and store operation.
	OperationTimeout Duration `yaml:"operation_timeout"`
	// AllowPartialFeedErrors keeps a cycle going when one of several feeds fails.
	AllowPartialFeedErrors bool `yaml:"allow_partial_feed_errors"`

	Feeds    []FeedConfig   `yaml:"feeds"`
	Filter   *FilterConfig  `yaml:"filter"`
	Store    StoreConfig    `yaml:"store"`
	Notifier NotifierConfig `yaml:"notifier"`
}

type FeedConfig struct {
	Type       string   `yaml:"type"`
	URL        string   `yaml:"url"`
	Subreddits []string `yaml:"subreddits"`
	Limit      int      `yaml:"limit"`
}

type FilterConfig struct {
	Rule   string `yaml:"rule"`
	Action string `yaml:"action"`
}

type StoreConfig struct {
	Backend   string          `yaml:"backend"`
	Path      string          `yaml:"path"`
	Table     string          `yaml:"table"`
	Retention RetentionConfig `yaml:"retention"`
}

type RetentionConfig struct {
	MaxAge        Duration `yaml:"max_age"`
	MaxEntries    int      `yaml:"max_entries"`
	TargetEntries int      `yaml:"target_entries"`
}

type NotifierConfig struct {
	Type  string      `yaml:"type"`
	Email EmailConfig `yaml:"email"`
}

type EmailConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Load reads and validates a relay document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse relay document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) Validate() error {
	if d.Schedule == "" {
		return fmt.Errorf("schedule is required")
	}
	if len(d.Feeds) == 0 {
		return fmt.Errorf("at least one feed is required")
	}
	for i, feed := range d.Feeds {
		switch feed.Type {
		case FeedTypeRSS, FeedTypeNewsAPI:
			if feed.URL == "" && feed.Type == FeedTypeRSS {
				return fmt.Errorf("feed %d: rss feed requires a url", i)
			}
		case FeedTypeReddit:
			if len(feed.Subreddits) == 0 {
				return fmt.Errorf("feed %d: reddit feed requires subreddits", i)
			}
		default:
			return fmt.Errorf("feed %d: unknown feed type %q", i, feed.Type)
		}
	}
	switch d.Store.Backend {
	case StoreBackendSQLite, StoreBackendBadger:
		if d.Store.Path == "" {
			return fmt.Errorf("store backend %q requires a path", d.Store.Backend)
		}
	case StoreBackendMemory, "":
	default:
		return fmt.Errorf("unknown store backend %q", d.Store.Backend)
	}
	switch d.Notifier.Type {
	case NotifierTelegram, NotifierEmail:
	default:
		return fmt.Errorf("unknown notifier type %q", d.Notifier.Type)
	}
	return nil
}

// CronSchedule normalizes the configured schedule for the cron parser: a plain
// duration like "5m" becomes "@every 5m"; cron expressions and @-directives
// pass through unchanged.
func (d *Document) CronSchedule() string {
	if dur, err := parseDurationExtended(d.Schedule); err == nil && dur > 0 {
		return "@every " + dur.String()
	}
	return d.Schedule
}

// OpTimeout returns the configured operation timeout, defaulting to 30s.
func (d *Document) OpTimeout() time.Duration {
	if d.OperationTimeout > 0 {
		return d.OperationTimeout.Std()
	}
	return 30 * time.Second
}
