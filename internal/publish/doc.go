// Package publish sequences one publish run: resolve sections, assemble the
// site source, render it, copy the build into the final application, validate
// links and emit the sitemap, then record modification state and print the PDF.
//
// Broken links are a failed Result, not an error. Errors are reserved for
// conditions that abort the run (missing primary sources, renderer or PDF
// failures, filesystem trouble).
package publish
