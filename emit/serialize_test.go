package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"bennypowers.dev/mako/chunk"
	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
	"bennypowers.dev/mako/sourcefile"
)

func mkInfo(id module.ID, relPath string, kind module.ASTKind, src string, isEntry bool) *module.Info {
	return &module.Info{
		ID:      id,
		File:    sourcefile.File{AbsPath: string(id), RelPath: relPath, IsEntry: isEntry},
		ASTKind: kind,
		Source:  []byte(src),
	}
}

func TestSerializeJSEntryChunkEmbedsRuntimeAndBootstrap(t *testing.T) {
	g := modulegraph.New()
	root := module.ID("/proj/src/index.ts")
	g.AddModule(root, mkInfo(root, "src/index.ts", module.ASTJS, "module.exports.x = 1;", true))

	c := chunk.Form(g).Chunks[0]

	out := SerializeJS(g, c, chunk.DevIDStrategy{}, "makoChunk", false)

	require.Contains(t, string(out.Content), "__mako_require__")
	require.Contains(t, string(out.Content), "makoChunk")
	require.Contains(t, string(out.Content), "src/index.ts")
}

func TestSerializeCSSConcatenatesInOrder(t *testing.T) {
	g := modulegraph.New()
	a := module.ID("/proj/src/a.css")
	b := module.ID("/proj/src/b.css")
	g.AddModule(a, mkInfo(a, "src/a.css", module.ASTCSS, ".a{color:red}", false))
	g.AddModule(b, mkInfo(b, "src/b.css", module.ASTCSS, ".b{color:blue}", false))

	c := &chunk.Chunk{Kind: chunk.Shared, Name: "styles", Modules: []module.ID{a, b}}
	out := SerializeCSS(g, c, false)

	idxA := strings.Index(string(out.Content), ".a{")
	idxB := strings.Index(string(out.Content), ".b{")
	require.True(t, idxA >= 0 && idxB > idxA)
}
