package detector

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

func TestHeuristicShouldPromote(t *testing.T) {
	t.Parallel()

	longText := strings.Repeat("subscriber content ", 30)

	tests := []struct {
		name string
		resp autoarchive.FetchResponse
		want bool
	}{
		{
			name: "empty body",
			resp: autoarchive.FetchResponse{StatusCode: http.StatusOK},
			want: true,
		},
		{
			name: "empty next mount point",
			resp: autoarchive.FetchResponse{StatusCode: http.StatusOK, Body: []byte(`<body><div id="__next"></div></body>`)},
			want: true,
		},
		{
			name: "server rendered mount point",
			resp: autoarchive.FetchResponse{
				StatusCode: http.StatusOK,
				Body:       []byte(`<body><div id="root"><p>` + longText + `</p></div></body>`),
				Text:       longText,
			},
			want: false,
		},
		{
			name: "script heavy with little text",
			resp: autoarchive.FetchResponse{
				StatusCode: http.StatusOK,
				Body:       []byte(`<html><script>var a=1;</script><p>t</p></html>`),
				Text:       "t",
			},
			want: true,
		},
		{
			name: "script heavy with plenty of text",
			resp: autoarchive.FetchResponse{
				StatusCode: http.StatusOK,
				Body:       []byte(`<html><script>var a=1;</script><p>t</p></html>`),
				Text:       longText,
			},
			want: false,
		},
		{
			name: "plain article",
			resp: autoarchive.FetchResponse{
				StatusCode: http.StatusOK,
				Body:       []byte(`<html><body><p>short</p></body></html>`),
				Text:       "short",
			},
			want: false,
		},
		{
			name: "non 200",
			resp: autoarchive.FetchResponse{StatusCode: http.StatusNotFound},
			want: false,
		},
		{
			name: "already headless",
			resp: autoarchive.FetchResponse{StatusCode: http.StatusOK, UsedHeadless: true},
			want: false,
		},
	}

	h := NewHeuristic(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, h.ShouldPromote(tt.resp))
		})
	}
}

func TestScriptDensityUnterminated(t *testing.T) {
	t.Parallel()

	assert.True(t, scriptDensityHigh([]byte(`<p>x</p><script src="a.js"`)))
	assert.False(t, scriptDensityHigh([]byte(`<p>no scripts here at all</p>`)))
	assert.False(t, scriptDensityHigh(nil))
}
