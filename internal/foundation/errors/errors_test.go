package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "config.yaml").
			Build()

		require.Equal(t, CategoryConfig, err.Category())
		require.Equal(t, SeverityFatal, err.Severity())
		require.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		require.Equal(t, "config.yaml", file)
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("resolve section: %w", NotFoundError("missing").Build())

		require.True(t, IsClassified(err))
		require.True(t, IsNotFound(err))
		require.Equal(t, CategoryNotFound, GetCategory(err))
		require.False(t, HasCategory(err, CategoryRender))
	})

	t.Run("WithContext does not mutate the original", func(t *testing.T) {
		base := GitError("fetch failed").Build()
		derived := base.WithContext("url", "https://example.com")

		_, ok := base.Context().Get("url")
		require.False(t, ok)
		url, _ := derived.Context().GetString("url")
		require.Equal(t, "https://example.com", url)
	})
}

func TestErrorBuilder(t *testing.T) {
	original := stderrors.New("connection reset")
	err := WrapError(original, CategoryNetwork, "download failed").
		Warning().
		Retryable().
		WithContext("host", "api.github.com").
		Build()

	require.Equal(t, SeverityWarning, err.Severity())
	require.Equal(t, RetryBackoff, err.RetryStrategy())
	require.True(t, err.CanRetry())
	require.ErrorIs(t, err, original)

	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal},
		{"NotFoundError", NotFoundError("x"), CategoryNotFound, SeverityError},
		{"RenderError", RenderError("x"), CategoryRender, SeverityFatal},
		{"BrokenLinksError", BrokenLinksError("x"), CategoryLinks, SeverityError},
		{"PDFError", PDFError("x"), CategoryPDF, SeverityFatal},
		{"FileSystemError", FileSystemError("x"), CategoryFileSystem, SeverityError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built := tt.builder.Build()
			require.Equal(t, tt.category, built.Category())
			require.Equal(t, tt.severity, built.Severity())
		})
	}
}
