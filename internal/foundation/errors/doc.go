// Package errors provides the classified error primitives used across docbinder.
//
// Every pipeline stage reports failures as a ClassifiedError so the CLI can pick a
// distinguishable exit code and decide how much detail to print.
//
// Key features:
//   - ErrorCategory: failure class (config, not_found, render, links, pdf, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: advisory retry behavior for transport failures
//   - ErrorBuilder: fluent construction with context and cause
//   - CLIErrorAdapter: exit codes and user-facing formatting
//
// Example usage:
//
//	err := errors.NotFoundError("section repository not found").
//		WithContext("repository", "org/dogs-repo").
//		WithCause(originalErr).
//		Build()
package errors
