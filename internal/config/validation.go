package config

import (
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/docbinder/internal/foundation/errors"
)

// Validate checks cross-field invariants. It expects defaults to be applied.
func (c *Config) Validate() error {
	if c.PublicHost == "" {
		return ferrors.ValidationError("public_host is required").Build()
	}
	if c.PublicScheme != "http" && c.PublicScheme != "https" {
		return ferrors.ValidationError("public_scheme must be http or https").
			WithContext("public_scheme", c.PublicScheme).
			Build()
	}
	switch c.Remote.Provider {
	case ProviderGitHub, ProviderGit:
	default:
		return ferrors.ValidationError("unsupported remote provider").
			WithContext("provider", c.Remote.Provider).
			Build()
	}

	mounts := make(map[string]int, len(c.Sections))
	for i, s := range c.Sections {
		if err := validateRepoName(s.Repository.Name); err != nil {
			return ferrors.ValidationError(fmt.Sprintf("sections[%d]: %v", i, err)).Build()
		}
		mount := s.MountDir()
		if mount == "" || mount == "." || strings.HasPrefix(mount, "..") {
			return ferrors.ValidationError(fmt.Sprintf("sections[%d]: invalid directory %q", i, s.Directory)).Build()
		}
		if prev, dup := mounts[mount]; dup {
			return ferrors.ValidationError(fmt.Sprintf("sections[%d] and sections[%d] share directory %q", prev, i, mount)).Build()
		}
		mounts[mount] = i
	}

	if len(c.Versions) > 0 {
		if c.BookRepo == "" {
			return ferrors.ValidationError("versions require book_repo").Build()
		}
		if err := validateRepoName(c.BookRepo); err != nil {
			return ferrors.ValidationError("book_repo: " + err.Error()).Build()
		}
		for _, v := range c.Versions {
			if v == "" || strings.HasPrefix(v, ".") || strings.ContainsAny(v, `/\`) {
				return ferrors.ValidationError(fmt.Sprintf("invalid version tag %q", v)).Build()
			}
			if _, clash := mounts[v]; clash {
				return ferrors.ValidationError(fmt.Sprintf("version %q collides with a section directory", v)).Build()
			}
		}
	}

	if c.PDF != nil && (c.PDF.Page == "" || c.PDF.Filename == "") {
		return ferrors.ValidationError("pdf requires page and filename").Build()
	}
	return nil
}

func validateRepoName(name string) error {
	parts := strings.Split(name, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("repository name %q must be owner/name", name)
	}
	return nil
}
