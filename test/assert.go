package test

import (
	"path/filepath"
	"testing"

	"github.com/freekieb7/bastro/http"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// WriteFiles lays out files (slash separated, relative to root) on fs.
func WriteFiles(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

// AssertRoutes checks that router holds exactly the wanted "METHOD url" pairs.
func AssertRoutes(t *testing.T, router *http.Router, want ...string) {
	t.Helper()

	got := make([]string, 0, len(want))
	for _, route := range router.Routes() {
		got = append(got, string(route.Method)+" "+route.URL)
	}
	require.ElementsMatch(t, want, got)
}
