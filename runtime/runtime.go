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

// Package runtime holds the JS shim emitted once per build and referenced
// by every compiled module as the __mako_require__ closure parameter
// (module/transform.go emits calls against this exact symbol surface:
// plain call, .i, .n, .a, .e, .x, .u, .m, .missing, ._async).
package runtime

import _ "embed"

//go:embed shim.js
var Shim string

// EntryBootstrap renders the final statement appended to an entry chunk,
// kicking off the module graph by requiring the entry module ids in order.
func EntryBootstrap(entryModuleIDs []string) string {
	out := ""
	for _, id := range entryModuleIDs {
		out += "__mako_require__(" + quote(id) + ");\n"
	}
	return out
}

func quote(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	out = append(out, '"')
	return string(out)
}
