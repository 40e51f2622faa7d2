package module

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func analyzeAndTransform(t *testing.T, src string, resolve func(Dependency) Resolution, commonJS bool) string {
	t.Helper()
	ast := parseJS(t, src)
	res := AnalyzeDeps(ast)

	info := &Info{ASTKind: ASTJS, Dependencies: res.Dependencies}
	resolutions := make([]Resolution, len(res.Dependencies))
	for i, d := range res.Dependencies {
		resolutions[i] = resolve(d)
	}

	out := Transform(TransformInput{
		Info:        info,
		AST:         ast,
		Resolutions: resolutions,
		MetaSpans:   res.ImportMetaURLSpans,
		SelfModule:  "self-id",
		CommonJS:    commonJS,
	})
	return string(out)
}

func resolveAllTo(id string) func(Dependency) Resolution {
	return func(Dependency) Resolution { return Resolution{Kind: ResolvedOK, ModuleID: id} }
}

func TestTransformDefaultImportCJS(t *testing.T) {
	out := analyzeAndTransform(t, `import Foo from "./foo";
console.log(Foo);`, resolveAllTo("mod:foo"), true)
	require.Contains(t, out, `__mako_require__("mod:foo")`)
	require.Contains(t, out, "__mako_require__.i(")
	require.Contains(t, out, "var Foo = ")
	require.NotContains(t, out, "import Foo")
}

func TestTransformNamedImportCJS(t *testing.T) {
	out := analyzeAndTransform(t, `import { a, b as c } from "./named";`, resolveAllTo("mod:named"), true)
	require.Contains(t, out, `__mako_require__("mod:named")`)
	require.Contains(t, out, "var a = ")
	require.Contains(t, out, "var c = ")
}

func TestTransformNamespaceImportCJS(t *testing.T) {
	out := analyzeAndTransform(t, `import * as ns from "./ns";`, resolveAllTo("mod:ns"), true)
	require.Contains(t, out, "__mako_require__.n(")
	require.Contains(t, out, "var ns = ")
}

func TestTransformPreservesESMWhenConcatenated(t *testing.T) {
	out := analyzeAndTransform(t, `import Foo from "./foo";`, resolveAllTo("mod:foo"), false)
	require.Contains(t, out, `import Foo from "mod:foo";`)
}

func TestTransformRequireRewrite(t *testing.T) {
	out := analyzeAndTransform(t, `const x = require("./foo");`, resolveAllTo("mod:foo"), true)
	require.Contains(t, out, `const x = __mako_require__("mod:foo");`)
}

func TestTransformDynamicImportRewrite(t *testing.T) {
	out := analyzeAndTransform(t, `import("./lazy").then(m => m.run());`, resolveAllTo("mod:lazy"), true)
	require.Contains(t, out, "__mako_require__.e(")
	require.Contains(t, out, "__mako_require__.n(__mako_require__(")
}

func TestTransformMissingDependencyThrowingStub(t *testing.T) {
	out := analyzeAndTransform(t, `const x = require("./nope");`, func(Dependency) Resolution {
		return Resolution{Kind: ResolvedMissing, Reason: "./nope could not be resolved"}
	}, true)
	require.Contains(t, out, "__mako_require__.missing(")
}

func TestTransformImportMetaURLRewrite(t *testing.T) {
	out := analyzeAndTransform(t, `const url = import.meta.url;`, resolveAllTo("mod:x"), true)
	require.Contains(t, out, `__mako_require__.m("self-id")`)
	require.NotContains(t, out, "import.meta.url")
}

func TestDefineReplacementDotChain(t *testing.T) {
	ast := parseJS(t, `if (process.env.NODE_ENV === "production") { go(); }`)
	info := &Info{ASTKind: ASTJS}
	out := Transform(TransformInput{
		Info: info,
		AST:  ast,
		Defines: map[string]DefineValue{
			"process.env.NODE_ENV": {Raw: `"production"`},
		},
	})
	require.Contains(t, string(out), `if ("production" === "production")`)
}

func TestDefineReplacementSkipsLocalBinding(t *testing.T) {
	ast := parseJS(t, `function f(DEBUG) { return DEBUG; }`)
	info := &Info{ASTKind: ASTJS}
	out := Transform(TransformInput{
		Info: info,
		AST:  ast,
		Defines: map[string]DefineValue{
			"DEBUG": {Raw: "false"},
		},
	})
	require.Contains(t, string(out), "function f(DEBUG) { return DEBUG; }")
}

func TestDefineReplacementComputedMember(t *testing.T) {
	ast := parseJS(t, `const v = A["B"];`)
	info := &Info{ASTKind: ASTJS}
	out := Transform(TransformInput{
		Info: info,
		AST:  ast,
		Defines: map[string]DefineValue{
			"A.B": {Raw: "42"},
		},
	})
	require.Contains(t, string(out), "const v = 42;")
}

func TestTransformCSSHoistsImports(t *testing.T) {
	ast := parseCSS(t, `.a { color: red; }
@import "./base.css";
.b { color: blue; }`)
	info := &Info{ASTKind: ASTCSS, Dependencies: AnalyzeCSSDeps(ast).Dependencies}
	resolutions := []Resolution{{Kind: ResolvedOK, ModuleID: "mod:base"}}
	out := TransformCSS(TransformCSSInput{Info: info, AST: ast, Resolutions: resolutions})
	str := string(out)
	require.True(t, indexOf(str, "@import") < indexOf(str, ".a {"))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestTransformCSSMergesDuplicateRules(t *testing.T) {
	ast := parseCSS(t, `.shared { color: red; }
.unique { color: blue; }
.shared { color: red; }`)
	info := &Info{ASTKind: ASTCSS}
	out := TransformCSS(TransformCSSInput{Info: info, AST: ast})
	count := 0
	str := string(out)
	for i := 0; i+len(".shared") <= len(str); i++ {
		if str[i:i+len(".shared")] == ".shared" {
			count++
		}
	}
	require.Equal(t, 1, count)
}
