// Package notify publishes broken-link events of failed publish runs.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
	"git.home.luguber.info/inful/docbinder/internal/spider"
)

// Notifier receives the broken links of a failed run.
type Notifier interface {
	BrokenLinks(ctx context.Context, runID string, links []spider.BrokenLink) error
	Close() error
}

// NoopNotifier drops every event.
type NoopNotifier struct{}

func (NoopNotifier) BrokenLinks(context.Context, string, []spider.BrokenLink) error { return nil }
func (NoopNotifier) Close() error                                                   { return nil }

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATSNotifier publishes one JSON message per broken link.
type NATSNotifier struct {
	conn    *nats.Conn
	pub     publisher
	subject string
	scheme  string
	host    string
	logger  *slog.Logger
	now     func() time.Time
}

// NewNATSNotifier connects to url. Events carry absolute URLs on scheme://host.
func NewNATSNotifier(url, subject, scheme, host string, logger *slog.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("docbinder"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	n := newNATSNotifier(conn, subject, scheme, host, logger)
	n.conn = conn
	n.logger.Info("NATS notifier connected", logfields.URL(url), slog.String("subject", subject))
	return n, nil
}

func newNATSNotifier(pub publisher, subject, scheme, host string, logger *slog.Logger) *NATSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{pub: pub, subject: subject, scheme: scheme, host: host, logger: logger, now: time.Now}
}

func (n *NATSNotifier) BrokenLinks(ctx context.Context, runID string, links []spider.BrokenLink) error {
	if len(links) == 0 {
		return nil
	}
	now := n.now()
	for _, b := range links {
		data, err := json.Marshal(newEvent(runID, n.scheme, n.host, b, now))
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to marshal broken link event").Build()
		}
		if err := n.pub.Publish(n.subject, data); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to publish broken link event").
				WithContext("subject", n.subject).
				Build()
		}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := n.pub.FlushWithContext(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to flush broken link events").Build()
	}
	n.logger.Debug("Published broken link events", logfields.RunID(runID), logfields.Count(len(links)))
	return nil
}

// Close drains the connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
