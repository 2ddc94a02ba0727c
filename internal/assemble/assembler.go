// Package assemble merges resolved section trees into the site source.
package assemble

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
	"git.home.luguber.info/inful/docbinder/internal/logfields"
)

// Mount places Source at Dir (slash-separated, relative to the site root).
type Mount struct {
	Dir    string
	Source string
}

// Assembler copies mounts into a site source tree.
type Assembler struct {
	logger *slog.Logger
}

// New returns an Assembler.
func New(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// Assemble copies every mount into siteRoot/<Dir>, clearing the destination
// first so nothing from a previous run survives.
func (a *Assembler) Assemble(siteRoot string, mounts []Mount) error {
	for _, m := range mounts {
		if err := a.mount(siteRoot, m); err != nil {
			return err
		}
		a.logger.Debug("Mounted section", logfields.Section(m.Dir), logfields.Path(m.Source))
	}
	return nil
}

// AssembleVersions copies each version's index content into siteRoot/<tag>/.
func (a *Assembler) AssembleVersions(siteRoot string, versions []Mount) error {
	for _, v := range versions {
		if err := a.mount(siteRoot, v); err != nil {
			return err
		}
		a.logger.Debug("Mounted version", logfields.Version(v.Dir), logfields.Path(v.Source))
	}
	return nil
}

func (a *Assembler) mount(siteRoot string, m Mount) error {
	dest, err := MountPath(siteRoot, m.Dir)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dest); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to clear mount path").
			WithContext("path", dest).
			Build()
	}
	if err := CopyDir(m.Source, dest); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to copy section content").
			WithContext("source", m.Source).
			WithContext("path", dest).
			Build()
	}
	return nil
}

// MountPath joins dir below root. Directories resolving to root itself or
// outside it are rejected, since the result gets cleared before copying.
func MountPath(root, dir string) (string, error) {
	dest := filepath.Join(root, filepath.FromSlash(dir))
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ferrors.ValidationError("mount directory must lie below its root").
			WithContext("root", root).
			WithContext("dir", dir).
			Build()
	}
	return dest, nil
}

// TemplateVariablesFile is written next to the site source directory.
const TemplateVariablesFile = "template_variables.yml"

// WriteTemplateVariables writes vars to <siteRoot>/../data/template_variables.yml.
// Nothing is written for an empty map.
func WriteTemplateVariables(siteRoot string, vars map[string]any) (string, error) {
	if len(vars) == 0 {
		return "", nil
	}
	dir := filepath.Join(filepath.Dir(siteRoot), "data")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create data directory").Build()
	}
	data, err := yaml.Marshal(vars)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode template variables").Build()
	}
	path := filepath.Join(dir, TemplateVariablesFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write template variables").
			WithContext("path", path).
			Build()
	}
	return path, nil
}
