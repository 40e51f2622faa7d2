/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package emit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ModuleMap is one per-module source map, as a parsed Source Map v3
// structure, plus the line count of the module's emitted body (needed to
// offset the next module's mappings).
type ModuleMap struct {
	Sources  []string `json:"sources"`
	Names    []string `json:"names"`
	Mappings string   `json:"mappings"`
	Lines    int      `json:"-"`
}

// V3 is a standard Source Map v3 document.
type V3 struct {
	Version  int      `json:"version"`
	File     string   `json:"file,omitempty"`
	Sources  []string `json:"sources"`
	Names    []string `json:"names"`
	Mappings string   `json:"mappings"`
}

// MergeChunkSourceMap merges each module's per-module map into one
// chunk-level map, offsetting destination lines by the cumulative line
// count of preceding modules plus preludeLines (the chunk wrapper's own
// line count before the first module body starts), per spec §4.7
// "Source maps". Source and name tables are concatenated with id offsets
// so a merged mapping's source/name index still resolves correctly.
func MergeChunkSourceMap(file string, preludeLines int, maps []ModuleMap) V3 {
	merged := V3{Version: 3, File: file}

	var allLines []string
	// preludeLines generated lines have no mappings of their own.
	for i := 0; i < preludeLines; i++ {
		allLines = append(allLines, "")
	}

	var prev [5]int // absolute fields of the last segment written so far
	for _, m := range maps {
		sourceOffset := len(merged.Sources)
		nameOffset := len(merged.Names)
		merged.Sources = append(merged.Sources, m.Sources...)
		merged.Names = append(merged.Names, m.Names...)

		allLines = append(allLines, offsetMappingLines(m.Mappings, sourceOffset, nameOffset, &prev)...)
	}
	merged.Mappings = strings.Join(allLines, ";")
	return merged
}

// offsetMappingLines shifts every mapping segment's source index (2nd VLQ
// field) and name index (5th field, when present) by sourceOffset and
// nameOffset, and re-expresses every field but the generated column as a
// delta from prev (the absolute fields of the last segment already placed
// in the merged map, updated as it goes). It returns one string per
// generated line (caller joins with ';' at the correct absolute line
// position). Real base64-VLQ decoding is delegated to
// decodeVLQSegments/encodeVLQSegments.
func offsetMappingLines(mappings string, sourceOffset, nameOffset int, prev *[5]int) []string {
	if mappings == "" {
		return []string{""}
	}
	var abs [5]int // absolute fields within this module's own map
	lines := strings.Split(mappings, ";")
	for i, line := range lines {
		if line == "" {
			continue
		}
		segments := strings.Split(line, ",")
		for j, seg := range segments {
			fields := decodeVLQSegments(seg)
			if len(fields) > 5 {
				fields = fields[:5]
			}
			for k := 1; k < len(fields); k++ {
				abs[k] += fields[k]
				shifted := abs[k]
				if k == 1 {
					shifted += sourceOffset
				} else if k == 4 {
					shifted += nameOffset
				}
				fields[k] = shifted - prev[k]
				prev[k] = shifted
			}
			segments[j] = encodeVLQSegments(fields)
		}
		lines[i] = strings.Join(segments, ",")
	}
	return lines
}

// base64VLQChars is the standard VLQ base64 alphabet used by Source Map v3.
const base64VLQChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func decodeVLQSegments(seg string) []int {
	var out []int
	value, shift := 0, 0
	for i := 0; i < len(seg); i++ {
		digit := strings.IndexByte(base64VLQChars, seg[i])
		if digit < 0 {
			continue
		}
		cont := digit & 0x20
		digit &= 0x1f
		value += digit << shift
		if cont == 0 {
			negate := value&1 == 1
			value >>= 1
			if negate {
				value = -value
			}
			out = append(out, value)
			value, shift = 0, 0
		} else {
			shift += 5
		}
	}
	return out
}

func encodeVLQSegments(fields []int) string {
	var b strings.Builder
	for _, v := range fields {
		n := v
		if n < 0 {
			n = (-n << 1) | 1
		} else {
			n <<= 1
		}
		for {
			digit := n & 0x1f
			n >>= 5
			if n > 0 {
				digit |= 0x20
			}
			b.WriteByte(base64VLQChars[digit])
			if n == 0 {
				break
			}
		}
	}
	return b.String()
}

// IdentityModuleMap builds a naive line-for-line ModuleMap: generated line N
// maps to source line N, column 0. It is a pragmatic approximation for
// transforms that only rewrite text within existing lines (specifier
// literals, define substitutions) without inserting or removing line
// breaks, used when a module has no finer-grained mapping of its own.
func IdentityModuleMap(sourcePath string, lineCount int) ModuleMap {
	return PaddedIdentityModuleMap(sourcePath, lineCount, 0, 0)
}

// PaddedIdentityModuleMap is IdentityModuleMap with leadingBlank unmapped
// generated lines before the first source line and trailingBlank unmapped
// lines after the last — used by SerializeJS's per-module function-wrapper
// header/footer lines, which have no corresponding source line of their
// own.
func PaddedIdentityModuleMap(sourcePath string, bodyLines, leadingBlank, trailingBlank int) ModuleMap {
	total := bodyLines + leadingBlank + trailingBlank
	if total <= 0 {
		return ModuleMap{Sources: []string{sourcePath}}
	}
	lines := make([]string, total)
	for i := 0; i < leadingBlank; i++ {
		lines[i] = ""
	}
	for i := 0; i < bodyLines; i++ {
		if i == 0 {
			lines[leadingBlank+i] = encodeVLQSegments([]int{0, 0, 0, 0})
		} else {
			lines[leadingBlank+i] = encodeVLQSegments([]int{0, 0, 1, 0})
		}
	}
	for i := 0; i < trailingBlank; i++ {
		lines[leadingBlank+bodyLines+i] = ""
	}
	return ModuleMap{
		Sources:  []string{sourcePath},
		Mappings: strings.Join(lines, ";"),
		Lines:    total,
	}
}

// MarshalWithRef renders v as JSON and appends the trailing reference
// comment a sibling ".map" file is linked by (spec §4.7).
func MarshalWithRef(v V3, mapFilename string) ([]byte, []byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("emit: marshal source map: %w", err)
	}
	ref := []byte(fmt.Sprintf("\n//# sourceMappingURL=%s\n", mapFilename))
	return data, ref, nil
}
