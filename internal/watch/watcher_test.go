package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docbinder/internal/publish"
)

type fakeCycle struct {
	mu        sync.Mutex
	stale     bool
	staleErr  error
	publishes int
}

func (f *fakeCycle) Stale(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stale, f.staleErr
}

func (f *fakeCycle) Publish(context.Context) (*publish.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes++
	return &publish.Result{Success: true}, nil
}

func (f *fakeCycle) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.publishes
}

func (f *fakeCycle) setStale(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stale = v
}

type fakePuller struct {
	mu      sync.Mutex
	changed map[string]bool
	pulled  []string
}

func (f *fakePuller) Pull(_ context.Context, repo string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled = append(f.pulled, repo)
	if repo == "broken" {
		return false, errors.New("diverged")
	}
	return f.changed[repo], nil
}

func TestRunCycle_SkipsWhenFresh(t *testing.T) {
	cycle := &fakeCycle{}
	w := New(cycle, nil, Options{}, nil, nil)

	w.runCycle(context.Background())
	require.Zero(t, cycle.count())

	cycle.setStale(true)
	w.runCycle(context.Background())
	require.Equal(t, 1, cycle.count())
}

func TestRunCycle_StaleErrorRebuilds(t *testing.T) {
	cycle := &fakeCycle{stale: true, staleErr: errors.New("section vanished")}
	New(cycle, nil, Options{}, nil, nil).runCycle(context.Background())
	require.Equal(t, 1, cycle.count())
}

func TestTrigger_Debounces(t *testing.T) {
	w := New(&fakeCycle{}, nil, Options{Debounce: 20 * time.Millisecond}, nil, nil)
	for range 5 {
		w.Trigger()
	}
	select {
	case <-w.requests:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced request never fired")
	}
	select {
	case <-w.requests:
		t.Fatal("burst produced more than one request")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPoll_RequestsCycleOnlyWhenMoved(t *testing.T) {
	puller := &fakePuller{changed: map[string]bool{"b": true}}

	w := New(&fakeCycle{}, puller, Options{Repos: []string{"a", "broken"}}, nil, nil)
	w.poll(context.Background())
	require.Empty(t, w.requests)
	require.Equal(t, []string{"a", "broken"}, puller.pulled)

	w = New(&fakeCycle{}, puller, Options{Repos: []string{"a", "b"}}, nil, nil)
	w.poll(context.Background())
	require.Len(t, w.requests, 1)
}

func TestShouldIgnoreEvent(t *testing.T) {
	for path, want := range map[string]bool{
		"master/source/index.md":      false,
		"master/source/.index.md.swp": true,
		"master/source/index.md~":     true,
		"master/source/#index.md#":    true,
		"repo/.git":                   true,
	} {
		require.Equal(t, want, shouldIgnoreEvent(path), path)
	}
}

func TestIgnoredOutputTree(t *testing.T) {
	root := t.TempDir()
	w := New(&fakeCycle{}, nil, Options{Ignore: []string{filepath.Join(root, "output")}}, nil, nil)
	require.True(t, w.ignored(filepath.Join(root, "output", "master", "index.md")))
	require.False(t, w.ignored(filepath.Join(root, "output-notes", "index.md")))
	require.False(t, w.ignored(filepath.Join(root, "master", "index.md")))
}

func TestRun_RebindsOnChange(t *testing.T) {
	dir := t.TempDir()
	cycle := &fakeCycle{stale: true}
	w := New(cycle, nil, Options{Paths: []string{dir}, Debounce: 10 * time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return cycle.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("# changed"), 0o600))
	require.Eventually(t, func() bool { return cycle.count() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
