package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
logging:
  development: false
  level: error
scan:
  archive_url: https://archive.example/submit/
  text_indicators: |
    paywall
    /subscribe (now|today)/
  page_path_patterns: /news/
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSubmitURLCmd(t *testing.T) {
	t.Parallel()

	out, err := run(t, "", "submit-url", "example.com/story")
	require.NoError(t, err)
	require.Equal(t, "https://archive.example/submit/?url=https%3A%2F%2Fexample.com%2Fstory\n", out)

	_, err = run(t, "", "submit-url", "chrome://settings")
	require.ErrorIs(t, err, autoarchive.ErrInternalPage)
}

func TestVersionsURLCmd(t *testing.T) {
	t.Parallel()

	out, err := run(t, "", "versions-url", "example.com")
	require.NoError(t, err)
	require.Equal(t, "https://web.archive.org/web/*/https://example.com\n", out)
}

func TestRealURLCmd(t *testing.T) {
	t.Parallel()

	out, err := run(t, "", "real-url", "https://web.archive.org/web/20240101000000/https://example.com/a")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/a\n", out)

	_, err = run(t, "", "real-url", "https://example.com/a")
	require.ErrorIs(t, err, autoarchive.ErrNotArchiveURL)
}

func TestEvaluateCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		stdin       string
		args        []string
		wantArchive bool
		wantReason  string
	}{
		{
			name:        "text flag override",
			args:        []string{"--url", "https://example.com/blog/1", "--text", "Subscribe\n\n today"},
			wantArchive: true,
			wantReason:  "Found indicators: /subscribe (now|today)/ (indicators override normal scanning conditions)",
		},
		{
			name:       "stdin homepage",
			stdin:      "paywall",
			args:       []string{"--url", "https://example.com/", "--text-file", "-"},
			wantReason: "Homepage exclusion",
		},
		{
			name:       "empty text",
			args:       []string{"--url", "https://example.com/news/1", "--text", ""},
			wantReason: "No indicators found in page content",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out, err := run(t, tc.stdin, append([]string{"evaluate"}, tc.args...)...)
			require.NoError(t, err)
			var verdict autoarchive.Verdict
			require.NoError(t, json.Unmarshal([]byte(out), &verdict))
			assert.Equal(t, tc.wantArchive, verdict.WouldArchive)
			assert.Equal(t, tc.wantReason, verdict.Reason)
		})
	}
}

func TestEvaluateCmd_MalformedURL(t *testing.T) {
	t.Parallel()

	_, err := run(t, "", "evaluate", "--url", "::bad", "--text", "paywall")
	require.ErrorIs(t, err, autoarchive.ErrMalformedURL)
}

func TestEvaluateCmd_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := run(t, "", "evaluate", "--text", "paywall")
	require.Error(t, err)
}
