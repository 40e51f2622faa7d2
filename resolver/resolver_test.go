package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveRelativeFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.ts"), []byte("export const x = 1;"), 0o644))
	importer := filepath.Join(dir, "index.ts")

	r := New(Config{})
	res := r.Resolve(importer, "./foo")
	require.Equal(t, Resolved, res.Kind)
	require.Equal(t, filepath.Join(dir, "foo.ts"), res.Path)
}

func TestResolveMissing(t *testing.T) {
	dir := t.TempDir()
	importer := filepath.Join(dir, "index.ts")
	r := New(Config{})
	res := r.Resolve(importer, "./nope")
	require.Equal(t, Missing, res.Kind)
}

func TestResolveExternal(t *testing.T) {
	r := New(Config{Externals: map[string]string{"lodash": "lodash-es"}})
	res := r.Resolve("/a/index.ts", "lodash")
	require.Equal(t, External, res.Kind)
	require.Equal(t, "lodash-es", res.External)
}

func TestResolveAlias(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "button.ts"), []byte("export {}"), 0o644))
	importer := filepath.Join(dir, "index.ts")

	r := New(Config{Alias: map[string]string{"@components/*": dir + "/*"}})
	res := r.Resolve(importer, "@components/button")
	require.Equal(t, Resolved, res.Kind)
	require.Equal(t, filepath.Join(dir, "button.ts"), res.Path)
}

func TestResolveIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.ts"), []byte("export {}"), 0o644))
	importer := filepath.Join(dir, "index.ts")
	r := New(Config{})

	res1 := r.Resolve(importer, "./foo")
	res2 := r.Resolve(importer, "./foo")
	require.Equal(t, res1, res2)
}
