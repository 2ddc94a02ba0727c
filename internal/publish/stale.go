package publish

import (
	"context"
	"path/filepath"

	"git.home.luguber.info/inful/docbinder/internal/assemble"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
	"git.home.luguber.info/inful/docbinder/internal/modcache"
	"git.home.luguber.info/inful/docbinder/internal/source"
)

// snippetKeyPrefix namespaces code-example repositories among section keys.
const snippetKeyPrefix = "snippets:"

// tracked lists the units whose modification state is recorded: the whole
// master dir (owning the public root, layouts and renderer config included),
// every section, every book version and every code-example repository.
func (p *Publisher) tracked(sections []source.Resolved, versions []assemble.Mount, examples []source.Resolved) []modcache.Section {
	root := p.layout.Public
	out := make([]modcache.Section, 0, 1+len(sections)+len(versions)+len(examples))
	out = append(out, modcache.Section{
		Key:       modcache.Key{OutputRoot: root},
		SourceDir: p.layout.MasterDir,
		Local:     true,
		OutputDir: root,
	})
	for i, r := range sections {
		dir := p.cfg.Sections[i].MountDir()
		s := modcache.Section{
			Key:       modcache.Key{OutputRoot: root, Section: dir},
			SourceDir: r.Path,
			Local:     r.Local,
			OutputDir: filepath.Join(root, filepath.FromSlash(dir)),
		}
		if !r.Local {
			// Snapshot directories are named by identity and effective ref.
			s.Commit = r.Path
		}
		out = append(out, s)
	}
	for _, v := range versions {
		out = append(out, modcache.Section{
			Key:       modcache.Key{OutputRoot: root, Version: v.Dir},
			SourceDir: v.Source,
			Commit:    p.cfg.BookRepo + "@" + v.Dir,
			OutputDir: filepath.Join(root, v.Dir),
		})
	}
	for _, r := range examples {
		s := modcache.Section{
			Key:       modcache.Key{OutputRoot: root, Section: snippetKeyPrefix + r.Identity},
			SourceDir: r.Path,
			Local:     r.Local,
			OutputDir: root,
		}
		if !r.Local {
			s.Commit = r.Path
		}
		out = append(out, s)
	}
	return out
}

// Stale reports whether any tracked unit changed since the last successful
// run. It must be asked before Publish, which clears the output. Without a
// cache, or on any resolution failure, everything is stale.
func (p *Publisher) Stale(ctx context.Context) (bool, error) {
	if p.cache == nil {
		return true, nil
	}
	if p.scope != nil {
		p.scope.BeginRun()
		defer p.scope.EndRun()
	}
	sections, err := p.resolveSections(ctx)
	if err != nil {
		return true, err
	}
	var versions []assemble.Mount
	for _, tag := range p.cfg.Versions {
		versions = append(versions, assemble.Mount{Dir: tag})
	}
	roots := []string{p.layout.MasterSource()}
	for _, r := range sections {
		if r.Path != "" && !r.Skipped {
			roots = append(roots, r.Path)
		}
	}
	examples, err := p.resolveExamples(ctx, roots)
	if err != nil {
		return true, err
	}
	for _, s := range p.tracked(sections, versions, examples) {
		if p.cache.IsStale(ctx, s) {
			p.logger.Debug("Stale", logfields.Section(s.Section), logfields.Version(s.Version))
			return true, nil
		}
	}
	return false, nil
}
