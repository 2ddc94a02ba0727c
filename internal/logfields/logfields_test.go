package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

func TestHelpersUseCanonicalKeys(t *testing.T) {
	cases := []struct {
		attr slog.Attr
		key  string
	}{
		{RunID("r1"), KeyRunID},
		{Stage("crawl"), KeyStage},
		{Repository("org/repo"), KeyRepo},
		{Ref("v1"), KeyRef},
		{Section("dogs"), KeySection},
		{Version("v2"), KeyVersion},
		{Path("/tmp"), KeyPath},
		{URL("index.html"), KeyURL},
		{Count(3), KeyCount},
	}
	for _, c := range cases {
		if c.attr.Key != c.key {
			t.Errorf("attr key = %q, want %q", c.attr.Key, c.key)
		}
	}
}

func TestCommitIsShortened(t *testing.T) {
	a := Commit("0123456789abcdef")
	if got := a.Value.String(); got != "01234567" {
		t.Fatalf("Commit() = %q, want 01234567", got)
	}
	if got := Commit("abc").Value.String(); got != "abc" {
		t.Fatalf("short sha changed: %q", got)
	}
}

func TestErrorNil(t *testing.T) {
	if Error(nil).Value.String() != "" {
		t.Fatal("nil error should render empty")
	}
	if Error(errors.New("boom")).Value.String() != "boom" {
		t.Fatal("error text not preserved")
	}
}
