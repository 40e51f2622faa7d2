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

package engine

// ApplyEffects drains ref's queued effects in a deterministic order derived
// from task-dependency topology: a cell's own effects are applied after
// every cell in its read-set has had its effects applied, and read-set
// order is the order Await was called in (program order within one task).
func (e *Engine) ApplyEffects(ref Reference, sink func(Effect)) {
	seen := make(map[CellID]bool)
	e.applyEffectsRec(ref.id, seen, sink)
}

func (e *Engine) applyEffectsRec(id CellID, seen map[CellID]bool, sink func(Effect)) {
	if seen[id] {
		return
	}
	seen[id] = true

	c := e.cellByID(id)
	if c == nil {
		return
	}

	c.mu.Lock()
	readSet := append([]CellID(nil), c.readSet...)
	effects := append([]Effect(nil), c.effects...)
	c.mu.Unlock()

	for _, depID := range readSet {
		e.applyEffectsRec(depID, seen, sink)
	}
	for _, eff := range effects {
		sink(eff)
	}
}
