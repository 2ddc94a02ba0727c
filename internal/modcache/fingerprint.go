package modcache

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// FileFingerprints walks dir and returns a fingerprint per regular file keyed
// by slash-separated relative path. A missing dir yields an empty map; .git
// directories are not walked.
func FileFingerprints(dir string) (map[string]string, error) {
	out := map[string]string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir && errorsIsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() && d.Name() == ".git" && p != dir {
			return filepath.SkipDir
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		out[rel] = fileFingerprint(rel, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func fileFingerprint(rel string, info fs.FileInfo) string {
	h := xxhash.New()
	_, _ = h.WriteString(rel)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(strconv.FormatInt(info.ModTime().UnixNano(), 10))
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(strconv.FormatInt(info.Size(), 10))
	return strconv.FormatUint(h.Sum64(), 16)
}

// Combine folds a fingerprint map into one stable value.
func Combine(files map[string]string) string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("=")
		_, _ = h.WriteString(files[k])
		_, _ = h.WriteString("\n")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// SourceIdentity fingerprints a section's source. Remote snapshots are
// immutable, so their commit identity is enough; local trees are hashed from
// file mtimes and sizes.
func SourceIdentity(sourceDir, commit string, local bool) (string, error) {
	if !local && commit != "" {
		return "commit:" + commit, nil
	}
	files, err := FileFingerprints(sourceDir)
	if err != nil {
		return "", err
	}
	return "tree:" + Combine(files), nil
}
