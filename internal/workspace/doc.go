// Package workspace manages staging directories for snapshot materialization.
//
// Snapshots are extracted into a private staging directory under the cache
// root and promoted into their final location with a single rename, so a
// cache entry is either absent or complete.
package workspace
