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

package logging

import "github.com/pterm/pterm"

// ProgressBar wraps pterm's DefaultProgressbar. It is a no-op when quiet
// mode is on. Neither the build driver nor the chunk emitter creates one.
type ProgressBar struct {
	bar *pterm.ProgressbarPrinter
}

// NewProgressBar starts a progress bar titled title with total steps.
// Returns a ProgressBar whose Increment/Stop are safe to call even when
// quiet mode suppressed the underlying pterm printer.
func NewProgressBar(title string, total int) *ProgressBar {
	if GetLogger().IsQuietEnabled() || total == 0 {
		return &ProgressBar{}
	}
	bar, _ := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle(title).
		Start()
	return &ProgressBar{bar: bar}
}

// Increment advances the bar by one step.
func (p *ProgressBar) Increment() {
	if p.bar != nil {
		p.bar.Increment()
	}
}

// Stop finalizes the bar, leaving its final state printed.
func (p *ProgressBar) Stop() {
	if p.bar != nil {
		_, _ = p.bar.Stop()
	}
}
