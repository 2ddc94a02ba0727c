package publish

import (
	"path/filepath"

	"git.home.luguber.info/inful/docbinder/internal/config"
)

const (
	// PublicDir is the final application's web root.
	PublicDir = "public"
	// SourceDir is the site source inside the master directory.
	SourceDir = "source"
)

// Layout names the directories one run reads and writes.
type Layout struct {
	MasterDir  string // configured master directory (read only)
	OutputDir  string // cleared every run
	WorkDir    string // <output>/master, where the renderer runs
	SiteSource string // <output>/master/source
	VersionDir string // staging for local version exports
	FinalApp   string // cleared every run
	Public     string // <final_app>/public
}

// NewLayout derives the run layout from cfg.
func NewLayout(cfg *config.Config) Layout {
	work := filepath.Join(cfg.OutputDir, "master")
	return Layout{
		MasterDir:  cfg.MasterDir,
		OutputDir:  cfg.OutputDir,
		WorkDir:    work,
		SiteSource: filepath.Join(work, SourceDir),
		VersionDir: filepath.Join(cfg.OutputDir, ".versions"),
		FinalApp:   cfg.FinalAppDir,
		Public:     filepath.Join(cfg.FinalAppDir, PublicDir),
	}
}

// MasterSource is the master directory's own site source.
func (l Layout) MasterSource() string {
	return filepath.Join(l.MasterDir, SourceDir)
}
