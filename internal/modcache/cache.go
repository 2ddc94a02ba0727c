package modcache

import (
	"context"
	"log/slog"
	"maps"

	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

// Section describes one section's current state on disk.
type Section struct {
	Key
	SourceDir string // materialized source
	Commit    string // remote commit identity, empty for local sources
	Local     bool
	OutputDir string // rendered output for this section
}

// Cache answers staleness questions against a Store.
type Cache struct {
	store  Store
	logger *slog.Logger
}

// New wraps store. A nil store makes every section stale.
func New(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// IsStale reports whether s differs from its last recorded state. Any failure
// to decide is treated as stale.
func (c *Cache) IsStale(ctx context.Context, s Section) bool {
	if c == nil || c.store == nil {
		return true
	}
	log := c.logger.With(logfields.Section(s.Section), logfields.Version(s.Version))

	rec, found, err := c.store.Load(ctx, s.Key)
	if err != nil {
		log.Warn("Modification record unreadable, treating as stale", logfields.Error(err))
		return true
	}
	if !found {
		log.Debug("No modification record")
		return true
	}

	source, err := SourceIdentity(s.SourceDir, s.Commit, s.Local)
	if err != nil || source != rec.Source {
		log.Debug("Source changed")
		return true
	}

	files, err := FileFingerprints(s.OutputDir)
	if err != nil || len(files) == 0 || !maps.Equal(files, rec.Files) {
		log.Debug("Output changed", logfields.Count(len(files)))
		return true
	}
	return false
}

// Record stores the current state of s.
func (c *Cache) Record(ctx context.Context, s Section) error {
	if c == nil || c.store == nil {
		return nil
	}
	source, err := SourceIdentity(s.SourceDir, s.Commit, s.Local)
	if err != nil {
		return err
	}
	files, err := FileFingerprints(s.OutputDir)
	if err != nil {
		return err
	}
	c.logger.Debug("Recording modification state",
		logfields.Section(s.Section), logfields.Version(s.Version), logfields.Count(len(files)))
	return c.store.Save(ctx, s.Key, Record{Source: source, Files: files})
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}
