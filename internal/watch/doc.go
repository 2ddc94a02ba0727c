// Package watch keeps a local bind current: filesystem changes under the
// master directory and local section repositories trigger a debounced publish,
// and a periodic job pulls the section repositories from their remotes.
// Cycles whose units are all fresh per the modification cache are skipped.
package watch
