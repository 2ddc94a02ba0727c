package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/spider"
)

type fakePublisher struct {
	subjects []string
	messages [][]byte
	err      error
	flushed  int
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakePublisher) FlushWithContext(context.Context) error {
	f.flushed++
	return nil
}

func TestNATSNotifier_PublishesOneEventPerLink(t *testing.T) {
	pub := &fakePublisher{}
	n := newNATSNotifier(pub, "docbinder.links.broken", "https", "docs.dogs.com", nil)
	require.NotNil(t, n.logger)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	links := []spider.BrokenLink{
		{Target: "dogs-repo/missing.html", Source: "dogs-repo/index.html", Raw: "missing.html"},
		{Target: "gone.html", Source: "index.html", Raw: "/gone.html"},
	}
	require.NoError(t, n.BrokenLinks(context.Background(), "run-1", links))
	require.Len(t, pub.messages, 2)
	require.Equal(t, 1, pub.flushed)
	require.Equal(t, []string{"docbinder.links.broken", "docbinder.links.broken"}, pub.subjects)

	var ev BrokenLinkEvent
	require.NoError(t, json.Unmarshal(pub.messages[0], &ev))
	require.Equal(t, BrokenLinkEvent{
		RunID:     "run-1",
		Host:      "docs.dogs.com",
		Target:    "dogs-repo/missing.html",
		Source:    "dogs-repo/index.html",
		Raw:       "missing.html",
		URL:       "https://docs.dogs.com/dogs-repo/missing.html",
		Section:   "dogs-repo",
		Timestamp: fixed,
	}, ev)
}

func TestNATSNotifier_NoLinksIsSilent(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, newNATSNotifier(pub, "s", "http", "h", nil).BrokenLinks(context.Background(), "r", nil))
	require.Empty(t, pub.messages)
	require.Zero(t, pub.flushed)
}

func TestNATSNotifier_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection closed")}
	err := newNATSNotifier(pub, "s", "http", "h", nil).BrokenLinks(context.Background(), "r", []spider.BrokenLink{{Target: "x.html"}})
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = NoopNotifier{}
	require.NoError(t, n.BrokenLinks(context.Background(), "r", []spider.BrokenLink{{Target: "x"}}))
	require.NoError(t, n.Close())
}
