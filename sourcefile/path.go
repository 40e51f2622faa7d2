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

// Package sourcefile parses module path strings, loads their content, and
// computes the hashes the rest of the pipeline memoizes on.
package sourcefile

import (
	"strings"
)

// VirtualScheme prefixes a path that does not correspond to an on-disk file.
const VirtualScheme = "virtual:"

// ParsedPath is the result of splitting a raw module specifier into its
// pathname, query params, and fragment. Two ParsedPaths round-trip through
// String() to the same canonical form they were parsed from.
type ParsedPath struct {
	Pathname string
	Params   map[string]string
	Fragment string
}

// ParsePath splits path at the first '?' for query params, then looks for a
// '#' fragment. A '#' only introduces a fragment when the text after it
// contains no '.': "foo.ts#bar" is pathname "foo.ts" fragment "bar", but
// "foo#bar.ts" is pathname "foo#bar.ts" with no fragment, matching how the
// resolver must keep `#` sometimes used inside real filenames.
func ParsePath(raw string) ParsedPath {
	pathname := raw
	query := ""

	if i := strings.IndexByte(pathname, '?'); i >= 0 {
		query = pathname[i+1:]
		pathname = pathname[:i]
	}

	fragment := ""
	if i := strings.LastIndexByte(pathname, '#'); i >= 0 {
		suffix := pathname[i+1:]
		if !strings.Contains(suffix, ".") {
			fragment = suffix
			pathname = pathname[:i]
		}
	}

	return ParsedPath{
		Pathname: pathname,
		Params:   parseParams(query),
		Fragment: fragment,
	}
}

func parseParams(query string) map[string]string {
	params := make(map[string]string)
	if query == "" {
		return params
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		if i := strings.IndexByte(pair, '='); i >= 0 {
			params[pair[:i]] = pair[i+1:]
		} else {
			params[pair] = ""
		}
	}
	return params
}

// String renders the ParsedPath back to its canonical form. Param order is
// stable (insertion order is not preserved by a Go map, so callers that need
// byte-stable output across runs should use Format with an explicit key
// order); String sorts keys for determinism.
func (p ParsedPath) String() string {
	return p.Format(sortedKeys(p.Params))
}

// Format renders the ParsedPath using the given param key order.
func (p ParsedPath) Format(keyOrder []string) string {
	var b strings.Builder
	b.WriteString(p.Pathname)
	if len(p.Params) > 0 {
		b.WriteByte('?')
		first := true
		for _, k := range keyOrder {
			v, ok := p.Params[k]
			if !ok {
				continue
			}
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(k)
			if v != "" {
				b.WriteByte('=')
				b.WriteString(v)
			}
		}
	}
	if p.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(p.Fragment)
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion sort is fine; param lists are tiny (?modules, ?raw, ?watch=parent)
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// NormalizeWindowsPath strips a `\\?\` UNC prefix and converts backslashes
// to forward slashes, so downstream ModuleIds are platform-independent.
func NormalizeWindowsPath(path string) string {
	path = strings.TrimPrefix(path, `\\?\`)
	return strings.ReplaceAll(path, `\`, "/")
}

// IsVirtual reports whether a pathname uses a reserved virtual scheme such
// as "virtual:inline_css:runtime".
func IsVirtual(pathname string) bool {
	return strings.HasPrefix(pathname, VirtualScheme)
}

// VirtualUnderlyingPath returns the `path=` param of a virtual source, if
// the virtual module wraps a concrete on-disk resource.
func (p ParsedPath) VirtualUnderlyingPath() (string, bool) {
	v, ok := p.Params["path"]
	return v, ok
}
