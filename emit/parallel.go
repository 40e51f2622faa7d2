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
	"context"

	"golang.org/x/sync/errgroup"

	"bennypowers.dev/mako/chunk"
	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
)

// SerializeAll serializes every chunk in g concurrently (spec §5
// "L5 chunk emission: per-chunk tasks in parallel"), mirroring the
// teacher's worker-count fan-out in generate/parallel.go but over
// errgroup instead of a hand-rolled WaitGroup, since cancellation here
// needs to propagate: one chunk's serialize failure (spec §7 "Emit — I/O
// failure writing output files; fatal") should stop the others.
func SerializeAll(ctx context.Context, g *modulegraph.Graph, cg *chunk.Graph, ids IDStrategy, chunkLoadingGlobal string, withSourceMap bool) ([]Output, error) {
	outputs := make([]Output, len(cg.Chunks))

	eg, _ := errgroup.WithContext(ctx)
	for i, c := range cg.Chunks {
		i, c := i, c
		eg.Go(func() error {
			if hasKind(g, c, module.ASTCSS) {
				outputs[i] = SerializeCSS(g, c, withSourceMap)
			} else {
				outputs[i] = SerializeJS(g, c, ids, chunkLoadingGlobal, withSourceMap)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func hasKind(g *modulegraph.Graph, c *chunk.Chunk, kind module.ASTKind) bool {
	for _, id := range c.Modules {
		if info := g.Module(id); info != nil {
			if info.ASTKind != kind {
				return false
			}
		}
	}
	return len(c.Modules) > 0
}
