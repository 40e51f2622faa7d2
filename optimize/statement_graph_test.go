package optimize

import (
	"path/filepath"
	"testing"

	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/sourcefile"
	"github.com/stretchr/testify/require"
)

func parseJS(t *testing.T, src string) *module.AST {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "index.ts")
	f := sourcefile.New(path, dir, true)
	content := sourcefile.Load(f, []byte(src))
	ast, d := module.Parse(f.AbsPath, content)
	require.Nil(t, d)
	t.Cleanup(ast.Close)
	return ast
}

func TestBuildStatementGraphImportBindings(t *testing.T) {
	ast := parseJS(t, `import Foo, { bar as baz } from "./foo";
console.log(Foo, baz);`)
	g := BuildStatementGraph(ast)
	require.Len(t, g.Statements, 2)

	imp := g.Statements[0]
	require.Equal(t, ImportDecl, imp.Kind)
	require.Equal(t, "Foo", imp.Import.Default)
	require.Contains(t, imp.Import.NamedLocals, "baz")
	require.Contains(t, imp.Defined, "Foo")
	require.Contains(t, imp.Defined, "baz")
	require.False(t, imp.SelfExecuted)
}

func TestBuildStatementGraphSideEffectImport(t *testing.T) {
	ast := parseJS(t, `import "./styles.css";`)
	g := BuildStatementGraph(ast)
	require.Len(t, g.Statements, 1)
	require.True(t, g.Statements[0].SelfExecuted)
}

func TestBuildStatementGraphExportConst(t *testing.T) {
	ast := parseJS(t, `export const x = 1;`)
	g := BuildStatementGraph(ast)
	require.Len(t, g.Statements, 1)
	s := g.Statements[0]
	require.Equal(t, ExportDecl, s.Kind)
	require.True(t, s.Export.HasDeclaration)
	require.Equal(t, []string{"x"}, s.Export.Names)
	require.Equal(t, []string{"x"}, s.Export.Locals)
}

func TestBuildStatementGraphExportSpecifierList(t *testing.T) {
	ast := parseJS(t, `const a = 1;
export { a };`)
	g := BuildStatementGraph(ast)
	require.Len(t, g.Statements, 2)
	exp := g.Statements[1]
	require.Equal(t, ExportDecl, exp.Kind)
	require.False(t, exp.Export.HasDeclaration)
	require.Equal(t, []string{"a"}, exp.Export.Names)
}

func TestBuildStatementGraphExportAll(t *testing.T) {
	ast := parseJS(t, `export * from "./other";`)
	g := BuildStatementGraph(ast)
	require.Len(t, g.Statements, 1)
	require.Equal(t, ExportAllDecl, g.Statements[0].Kind)
	require.Equal(t, "./other", g.Statements[0].Export.Source)
}

func TestBuildStatementGraphRequiresChain(t *testing.T) {
	ast := parseJS(t, `function helper() { return 1; }
export function main() { return helper(); }`)
	g := BuildStatementGraph(ast)
	main := g.DefinerOf("main")
	require.NotNil(t, main)
	require.Contains(t, main.Requires["main"], "helper")
}

func TestBuildStatementGraphFunctionDeclNotSelfExecuted(t *testing.T) {
	ast := parseJS(t, `function helper() { sideEffect(); }`)
	g := BuildStatementGraph(ast)
	require.False(t, g.Statements[0].SelfExecuted)
}

func TestBuildStatementGraphTopLevelCallIsSelfExecuted(t *testing.T) {
	ast := parseJS(t, `sideEffect();`)
	g := BuildStatementGraph(ast)
	require.True(t, g.Statements[0].SelfExecuted)
}
