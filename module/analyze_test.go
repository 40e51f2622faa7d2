package module

import (
	"path/filepath"
	"testing"

	"bennypowers.dev/mako/sourcefile"
	"github.com/stretchr/testify/require"
)

func parseJS(t *testing.T, src string) *AST {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "index.ts")
	f := sourcefile.New(path, dir, true)
	content := sourcefile.Load(f, []byte(src))
	ast, d := Parse(f.AbsPath, content)
	require.Nil(t, d)
	t.Cleanup(ast.Close)
	return ast
}

func parseCSS(t *testing.T, src string) *AST {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "index.css")
	f := sourcefile.New(path, dir, true)
	content := sourcefile.Load(f, []byte(src))
	ast, d := Parse(f.AbsPath, content)
	require.Nil(t, d)
	t.Cleanup(ast.Close)
	return ast
}

func TestAnalyzeDepsDefaultImport(t *testing.T) {
	ast := parseJS(t, `import Foo from "./foo";`)
	res := AnalyzeDeps(ast)
	require.Len(t, res.Dependencies, 1)
	d := res.Dependencies[0]
	require.Equal(t, "./foo", d.SourceText)
	require.Equal(t, ImportKind, d.Type.Kind)
	require.True(t, d.Type.Specifiers&SpecDefault != 0)
}

func TestAnalyzeDepsNamedAndNamespace(t *testing.T) {
	ast := parseJS(t, `import { a, b as c } from "./named";
import * as ns from "./ns";`)
	res := AnalyzeDeps(ast)
	require.Len(t, res.Dependencies, 2)

	require.Equal(t, "./named", res.Dependencies[0].SourceText)
	require.True(t, res.Dependencies[0].Type.Specifiers&SpecNamed != 0)
	require.Contains(t, res.Dependencies[0].Type.NamedBindings, "a")

	require.Equal(t, "./ns", res.Dependencies[1].SourceText)
	require.True(t, res.Dependencies[1].Type.Specifiers&SpecNamespace != 0)
}

func TestAnalyzeDepsSideEffectImport(t *testing.T) {
	ast := parseJS(t, `import "./styles.css";`)
	res := AnalyzeDeps(ast)
	require.Len(t, res.Dependencies, 1)
	require.Equal(t, "./styles.css", res.Dependencies[0].SourceText)
	require.Equal(t, ImportSpecifierKind(0), res.Dependencies[0].Type.Specifiers)
}

func TestAnalyzeDepsExportAllAndNamed(t *testing.T) {
	ast := parseJS(t, `export * from "./reexport-all";
export { x, y } from "./reexport-named";`)
	res := AnalyzeDeps(ast)
	require.Len(t, res.Dependencies, 2)
	require.Equal(t, ExportAll, res.Dependencies[0].Type.Kind)
	require.Equal(t, "./reexport-all", res.Dependencies[0].SourceText)
	require.Equal(t, ExportNamed, res.Dependencies[1].Type.Kind)
	require.Contains(t, res.Dependencies[1].Type.NamedBindings, "x")
}

func TestAnalyzeDepsRequire(t *testing.T) {
	ast := parseJS(t, `const foo = require("./foo");`)
	res := AnalyzeDeps(ast)
	require.Len(t, res.Dependencies, 1)
	require.Equal(t, Require, res.Dependencies[0].Type.Kind)
	require.Equal(t, "./foo", res.Dependencies[0].SourceText)
}

func TestAnalyzeDepsDynamicImport(t *testing.T) {
	ast := parseJS(t, `async function load() {
  const m = await import("./lazy");
  return m;
}`)
	res := AnalyzeDeps(ast)
	require.Len(t, res.Dependencies, 1)
	require.Equal(t, DynamicImport, res.Dependencies[0].Type.Kind)
	require.Equal(t, "./lazy", res.Dependencies[0].SourceText)
}

func TestAnalyzeDepsDynamicImportMagicComment(t *testing.T) {
	ast := parseJS(t, `const m = import(/* webpackChunkName: "lazy-chunk" */ "./lazy");`)
	res := AnalyzeDeps(ast)
	require.Len(t, res.Dependencies, 1)
	require.Equal(t, "lazy-chunk", res.Dependencies[0].Type.DynamicOpts["chunkName"])
}

func TestAnalyzeDepsWorker(t *testing.T) {
	ast := parseJS(t, `const w = new Worker(new URL("./worker.js", import.meta.url));`)
	res := AnalyzeDeps(ast)
	require.Len(t, res.Dependencies, 1)
	require.Equal(t, Worker, res.Dependencies[0].Type.Kind)
	require.Equal(t, "./worker.js", res.Dependencies[0].SourceText)
}

func TestAnalyzeDepsImportMetaURL(t *testing.T) {
	ast := parseJS(t, `const url = import.meta.url;`)
	res := AnalyzeDeps(ast)
	require.Len(t, res.ImportMetaURLSpans, 1)
	require.Len(t, res.Dependencies, 0)
}

func TestAnalyzeDepsOrdinalsPreserveSourceOrder(t *testing.T) {
	ast := parseJS(t, `import a from "./a";
import b from "./b";
require("./c");`)
	res := AnalyzeDeps(ast)
	require.Len(t, res.Dependencies, 3)
	for i, d := range res.Dependencies {
		require.Equal(t, i, d.Ordinal)
	}
}

func TestAnalyzeCSSDepsImport(t *testing.T) {
	ast := parseCSS(t, `@import "./base.css";
@import url("./theme.css");
.x { color: red; }`)
	res := AnalyzeCSSDeps(ast)
	require.Len(t, res.Dependencies, 2)
	require.Equal(t, "./base.css", res.Dependencies[0].SourceText)
	require.Equal(t, CSSImport, res.Dependencies[0].Type.Kind)
	require.Equal(t, "./theme.css", res.Dependencies[1].SourceText)
}
