// Package modcache remembers, per section, the fingerprints of the rendered
// files and of the source they came from, so repeated local runs can tell
// whether a section changed.
//
// Records are keyed by (output root, version tag, section directory). Any
// doubt (missing record, unreadable file, store error) answers "stale".
package modcache
