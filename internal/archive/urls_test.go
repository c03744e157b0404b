package archive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

func TestCleanURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"example.com", "https://example.com"},
		{"https://example.com", "https://example.com"},
		{"http://example.com/path", "http://example.com/path"},
		{"  https://example.com  ", "https://example.com"},
		{"not a domain", "not a domain"},
		{"localhost", "localhost"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanURL(tt.in), "input %q", tt.in)
	}
}

func TestIsValidURL(t *testing.T) {
	t.Parallel()

	assert.True(t, IsValidURL("https://example.com"))
	assert.True(t, IsValidURL("http://example.com/path?q=1"))
	assert.True(t, IsValidURL("mailto:someone@example.com"))
	assert.False(t, IsValidURL("example.com"))
	assert.False(t, IsValidURL("not a url"))
	assert.False(t, IsValidURL(""))
}

func TestIsInternalPage(t *testing.T) {
	t.Parallel()

	assert.True(t, IsInternalPage("chrome://settings"))
	assert.True(t, IsInternalPage("chrome-extension://abc/popup.html"))
	assert.True(t, IsInternalPage("moz-extension://abc/options.html"))
	assert.False(t, IsInternalPage("https://example.com"))
}

func TestIsArchiveURL(t *testing.T) {
	t.Parallel()

	assert.True(t, IsArchiveURL("https://archive.ph/abc123/https://example.com"))
	assert.True(t, IsArchiveURL("https://archive.is/abc123"))
	assert.True(t, IsArchiveURL("https://archive.today/abc123"))
	assert.True(t, IsArchiveURL("https://web.archive.org/web/20230101000000/https://example.com"))
	assert.False(t, IsArchiveURL("https://example.com"))
}

func TestExtractRealURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"archive.ph", "https://archive.ph/abc123/https://example.com/page", "https://example.com/page", true},
		{"archive.is", "https://archive.is/xyz/https://example.com", "https://example.com", true},
		{"wayback", "https://web.archive.org/web/20230101000000/https://example.com/a", "https://example.com/a", true},
		{"wayback wildcard", "https://web.archive.org/web/*/https://example.com", "", false},
		{"archive id only", "https://archive.ph/abc123", "", false},
		{"not archive", "https://example.com", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ExtractRealURL(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRealURL(t *testing.T) {
	t.Parallel()

	got, err := RealURL("https://archive.ph/abc123/https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got)

	_, err = RealURL("https://example.com")
	require.ErrorIs(t, err, autoarchive.ErrNotArchiveURL)

	_, err = RealURL("https://archive.ph/abc123")
	require.Error(t, err)
	assert.False(t, errors.Is(err, autoarchive.ErrNotArchiveURL))
}

func TestSubmitURL(t *testing.T) {
	t.Parallel()

	got, err := SubmitURL("", "example.com/a b")
	require.ErrorIs(t, err, autoarchive.ErrInvalidURL)
	assert.Empty(t, got)

	got, err = SubmitURL("", "example.com/page?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://archive.ph/submit/?url=https%3A%2F%2Fexample.com%2Fpage%3Fx%3D1", got)

	got, err = SubmitURL("https://archive.today/submit/", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://archive.today/submit/?url=https%3A%2F%2Fexample.com", got)

	got, err = SubmitURL("", "https://en.example.org/wiki/Go (language)!*'~+")
	require.NoError(t, err)
	assert.Equal(t,
		"https://archive.ph/submit/?url=https%3A%2F%2Fen.example.org%2Fwiki%2FGo%20(language)!*'~%2B", got)

	_, err = SubmitURL("", "chrome://settings")
	require.ErrorIs(t, err, autoarchive.ErrInternalPage)
}

func TestVersionsURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://web.archive.org/web/*/https://example.com", VersionsURL("example.com"))
	assert.Equal(t, "https://web.archive.org/web/*/https://example.com/a", VersionsURL("https://example.com/a"))
}
