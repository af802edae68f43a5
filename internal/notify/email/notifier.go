// Package email delivers items as HTML email over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/wneessen/go-mail"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/oharling/newsrelay/internal/feed"
)

type Config struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	To                 string
	InsecureSkipVerify bool
}

type Notifier struct {
	config    Config
	converter goldmark.Markdown
}

func New(config Config) (*Notifier, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if config.Port <= 0 {
		config.Port = 587
	}
	if config.To == "" {
		return nil, fmt.Errorf("email recipient is required")
	}
	if config.From == "" {
		config.From = config.Username
	}
	return &Notifier{
		config: config,
		converter: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}, nil
}

func (n *Notifier) Deliver(ctx context.Context, item feed.Item) error {
	body, err := n.renderBody(item)
	if err != nil {
		return err
	}

	m := mail.NewMsg()
	if err := m.From(n.config.From); err != nil {
		return fmt.Errorf("invalid from address %q: %w", n.config.From, err)
	}
	if err := m.ToFromString(n.config.To); err != nil {
		return fmt.Errorf("invalid to address(es) %q: %w", n.config.To, err)
	}
	m.Subject(item.Title)
	m.SetBodyString(mail.TypeTextHTML, body)

	opts := []mail.Option{
		mail.WithPort(n.config.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         n.config.Host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: n.config.InsecureSkipVerify,
		}),
	}
	if n.config.Username != "" {
		opts = append(
			opts,
			mail.WithUsername(n.config.Username),
			mail.WithPassword(n.config.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}

	client, err := mail.NewClient(n.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (n *Notifier) renderBody(item feed.Item) (string, error) {
	var md bytes.Buffer
	fmt.Fprintf(&md, "# %s\n\n", item.Title)
	if item.Description != "" {
		fmt.Fprintf(&md, "%s\n\n", item.Description)
	}
	fmt.Fprintf(&md, "[Read more](%s)\n", item.URL)
	if !item.PublishedAt.IsZero() {
		fmt.Fprintf(&md, "\nPublished %s\n", item.PublishedAt.Format("2006-01-02 15:04 MST"))
	}

	var out bytes.Buffer
	if err := n.converter.Convert(md.Bytes(), &out); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	return out.String(), nil
}
