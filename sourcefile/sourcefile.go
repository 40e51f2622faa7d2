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

package sourcefile

import (
	"path/filepath"
	"strings"
)

// ContentKind discriminates the loaded content of a SourceFile.
type ContentKind int

const (
	ContentUnloaded ContentKind = iota
	ContentJS
	ContentCSS
	ContentBinary
)

// File is an immutable descriptor of an input artifact. Its content is
// produced separately by the load task (module.Load), which returns a
// sourcefile.Content value; File itself never touches the filesystem.
type File struct {
	AbsPath        string
	RelPath        string
	Ext            string
	Query          map[string]string
	Fragment       string
	IsUnderModules bool
	IsVirtual      bool
	IsEntry        bool
}

// New builds a File descriptor from an absolute path and a project root used
// to compute RelPath. The path is normalized for Windows UNC prefixes first.
func New(absPath, projectRoot string, isEntry bool) File {
	absPath = NormalizeWindowsPath(absPath)
	parsed := ParsePath(absPath)
	rel, err := filepath.Rel(projectRoot, parsed.Pathname)
	if err != nil {
		rel = parsed.Pathname
	}
	rel = filepath.ToSlash(rel)

	return File{
		AbsPath:        parsed.Pathname,
		RelPath:        rel,
		Ext:            strings.ToLower(filepath.Ext(parsed.Pathname)),
		Query:          parsed.Params,
		Fragment:       parsed.Fragment,
		IsUnderModules: strings.Contains(parsed.Pathname, "/node_modules/"),
		IsVirtual:      IsVirtual(absPath),
		IsEntry:        isEntry,
	}
}

// ModuleIDString returns the canonical ModuleId string form: the absolute
// resolved path plus any significant query (?modules, ?watch=parent). Query
// keys are emitted in a fixed, spec-significant order so the string is
// stable across runs regardless of map iteration order.
func (f File) ModuleIDString() string {
	p := ParsedPath{Pathname: f.AbsPath, Params: f.Query, Fragment: f.Fragment}
	order := make([]string, 0, len(f.Query))
	for _, k := range []string{"modules", "watch", "raw"} {
		if _, ok := f.Query[k]; ok {
			order = append(order, k)
		}
	}
	for _, k := range sortedKeys(f.Query) {
		found := false
		for _, o := range order {
			if o == k {
				found = true
				break
			}
		}
		if !found {
			order = append(order, k)
		}
	}
	return p.Format(order)
}

// HasQuery reports whether a significant query param is present.
func (f File) HasQuery(key string) bool {
	_, ok := f.Query[key]
	return ok
}
