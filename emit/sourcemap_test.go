package emit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeChunkSourceMapOffsetsSourcesAndNames(t *testing.T) {
	maps := []ModuleMap{
		{Sources: []string{"a.ts"}, Names: []string{"foo"}, Mappings: "AAAA", Lines: 1},
		{Sources: []string{"b.ts"}, Names: []string{"bar"}, Mappings: "AAAA", Lines: 1},
	}

	merged := MergeChunkSourceMap("entry.js", 0, maps)

	require.Equal(t, []string{"a.ts", "b.ts"}, merged.Sources)
	require.Equal(t, []string{"foo", "bar"}, merged.Names)
	// two generated lines (one per module), joined with ';'
	require.Equal(t, 2, countSemicolonGroups(merged.Mappings))
}

func TestMergeChunkSourceMapPreludeOffset(t *testing.T) {
	maps := []ModuleMap{
		{Sources: []string{"a.ts"}, Mappings: "AAAA", Lines: 1},
	}
	merged := MergeChunkSourceMap("entry.js", 2, maps)
	require.Equal(t, 3, countSemicolonGroups(merged.Mappings))
}

func TestVLQRoundTrip(t *testing.T) {
	fields := []int{0, 5, 2, -3}
	encoded := encodeVLQSegments(fields)
	decoded := decodeVLQSegments(encoded)
	require.Equal(t, fields, decoded)
}

func countSemicolonGroups(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for _, c := range s {
		if c == ';' {
			n++
		}
	}
	return n
}
