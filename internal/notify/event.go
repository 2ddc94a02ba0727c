package notify

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/docbinder/internal/spider"
)

// BrokenLinkEvent is published once per broken link of a failed run, for
// downstream processing such as opening issues against section repositories.
type BrokenLinkEvent struct {
	RunID     string    `json:"run_id"`
	Host      string    `json:"host"`
	Target    string    `json:"target"`            // site-relative path that did not resolve
	Source    string    `json:"source"`            // page containing the link
	Raw       string    `json:"raw"`               // link as written in the page
	URL       string    `json:"url,omitempty"`     // absolute URL of Target on Host
	Section   string    `json:"section,omitempty"` // first path element of Source
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(runID, scheme, host string, b spider.BrokenLink, now time.Time) BrokenLinkEvent {
	ev := BrokenLinkEvent{
		RunID:     runID,
		Host:      host,
		Target:    b.Target,
		Source:    b.Source,
		Raw:       b.Raw,
		Section:   sectionOf(b.Source),
		Timestamp: now,
	}
	if host != "" {
		if scheme == "" {
			scheme = "http"
		}
		ev.URL = scheme + "://" + host + "/" + b.Target
	}
	return ev
}

func sectionOf(source string) string {
	if dir, _, ok := strings.Cut(source, "/"); ok {
		return dir
	}
	return ""
}
