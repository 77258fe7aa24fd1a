package static

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"adinsight/config"
)

func TestHandler(t *testing.T) {
	custom, fallback := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(custom, "index.html"), []byte("<h1>{title}</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(fallback, "app.js"), []byte("var x = 1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(fallback, "secret.yaml"), []byte("no"), 0644))

	cfg := config.ServerConfig{
		Static:        custom,
		StaticDefault: fallback,
		StaticAllowed: []string{"*.html", "*.js"},
		TemplateVars:  map[string]string{"title": "AdInsight"},
	}
	h := Handler(func() config.ServerConfig { return cfg }, zaptest.NewLogger(t))

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<h1>AdInsight</h1>"},
		{"/app.js", http.StatusOK, "var x = 1"},
		{"/secret.yaml", http.StatusForbidden, ""},
		{"/missing.js", http.StatusNotFound, ""},
		{"/../secret.yaml", http.StatusForbidden, ""},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, c.path, nil))
		assert.Equal(t, c.status, rec.Code, c.path)
		if c.body != "" {
			assert.Equal(t, c.body, rec.Body.String(), c.path)
		}
	}
}

func TestIsAllowedWildcard(t *testing.T) {
	assert.True(t, isAllowedWildcard("js/app.js", []string{"*/app.js"}))
	assert.False(t, isAllowedWildcard("js/app.js", []string{"*.js"}))
}
