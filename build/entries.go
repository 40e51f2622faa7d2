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

package build

import (
	"path/filepath"

	"bennypowers.dev/mako/internal/config"
)

// resolveEntries returns cfg.Entry with every path made absolute against
// projectDir, falling back to config.AutoDetectEntry when none is
// configured (spec §6 "entry").
func resolveEntries(cfg *config.Config, projectDir string) (map[string]string, error) {
	if len(cfg.Entry) == 0 {
		return config.AutoDetectEntry(projectDir)
	}
	out := make(map[string]string, len(cfg.Entry))
	for name, path := range cfg.Entry {
		if filepath.IsAbs(path) {
			out[name] = path
		} else {
			out[name] = filepath.Join(projectDir, path)
		}
	}
	return out, nil
}

// externalReplacements flattens cfg.Externals (spec §6 "externals") into
// the resolver's simpler specifier->replacement map. Target-specific forms
// (root/commonjs/extra) matter to a future UMD-style externals emitter,
// not modeled here: we bundle only the browser-global (CommonJS) request
// form, which this project always runs in.
func externalReplacements(cfg *config.Config) map[string]string {
	if len(cfg.Externals) == 0 {
		return nil
	}
	out := make(map[string]string, len(cfg.Externals))
	for specifier, ext := range cfg.Externals {
		repl := ext.Replacement
		if repl == "" {
			repl = ext.CommonJS
		}
		if repl == "" {
			repl = specifier
		}
		out[specifier] = repl
	}
	return out
}
