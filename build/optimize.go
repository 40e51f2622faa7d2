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
	"bennypowers.dev/mako/internal/config"
	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/optimize"
)

// Optimize runs tree shaking and module concatenation over g in place
// (spec §4.6). Development builds skip both passes entirely: every module
// stays in its own function wrapper so dev-mode stack traces and HMR
// boundaries line up with source files one-to-one.
//
// Concatenation replaces every group's inner modules with one rewritten
// root body; the returned set names those group roots so Transform knows
// to leave their Source alone (EmitRoot already produced final bytes).
func Optimize(g *Graph, mode config.Mode) map[module.ID]bool {
	concatenated := make(map[module.ID]bool)
	if mode != config.Production {
		return concatenated
	}

	shaken := optimize.Shake(g.Modules, g.ASTs)
	groups := optimize.FindGroups(g.Modules, shaken)

	for _, grp := range groups {
		for _, ext := range grp.Externals {
			if genID, ok := g.GeneratedID[ext.ModuleID]; ok {
				ext.Request = genID
			}
		}

		body := optimize.EmitRoot(g.Modules, grp, shaken, g.ASTs)
		rootInfo := g.Modules.Module(grp.Root)
		if rootInfo != nil {
			rootInfo.Source = body
		}

		for _, ext := range grp.Externals {
			if g.Modules.HasModule(ext.ModuleID) {
				g.Modules.AddDependency(grp.Root, ext.ModuleID, module.Dependency{
					SourceText: ext.Request,
					Type:       module.ResolveType{Kind: module.ImportKind},
				})
			}
		}

		concatenated[grp.Root] = true
		for _, inner := range grp.Inner {
			if inner == grp.Root {
				continue
			}
			g.Modules.RemoveModuleAndDeps(inner)
			delete(g.ASTs, inner)
			delete(g.Resolutions, inner)
		}
	}

	return concatenated
}
