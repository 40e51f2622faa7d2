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
	"encoding/json"
	"fmt"

	"bennypowers.dev/mako/internal/config"
	"bennypowers.dev/mako/module"
)

// Transform rewrites every module's Source in place: specifier literals
// become require() calls against generated ids, define/env substitutions
// run, and async modules get the top-level-await wrapper (spec §4.3, §4.4).
// skip names concatenation-group roots whose Source Optimize already
// finalized via EmitRoot — those must not be transformed a second time.
func Transform(g *Graph, cfg *config.Config, skip map[module.ID]bool) {
	defines := convertDefines(cfg.Define)

	for _, id := range g.Modules.AllModuleIDs() {
		if skip[id] {
			continue
		}
		info := g.Modules.Module(id)
		if info == nil {
			continue
		}
		ast := g.ASTs[id]
		resolutions := g.Resolutions[id]

		switch info.ASTKind {
		case module.ASTJS:
			info.Source = module.Transform(module.TransformInput{
				Info:        info,
				AST:         ast,
				Resolutions: resolutions,
				SelfModule:  g.GeneratedID[id],
				CommonJS:    true,
				Defines:     defines,
			})
		case module.ASTCSS:
			info.Source = module.TransformCSS(module.TransformCSSInput{
				Info:        info,
				AST:         ast,
				Resolutions: resolutions,
			})
		}
	}
}

// convertDefines turns the config file's raw JSON-ish values into the
// already-serialized expression text module.DefineValue wants, the same
// json.Marshal-a-literal approach module/load.go's wrapModuleExports uses
// for data-as-module wrapping.
func convertDefines(raw map[string]any) map[string]module.DefineValue {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]module.DefineValue, len(raw))
	for k, v := range raw {
		encoded, err := json.Marshal(v)
		if err != nil {
			encoded = []byte(fmt.Sprintf("%q", fmt.Sprint(v)))
		}
		out[k] = module.DefineValue{Raw: string(encoded)}
	}
	return out
}
