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

package chunk

import "fmt"

// Filename renders a chunk's output filename per spec §4.5: "<chunk_name>.
// <content_hash?>.<ext>" where the hash segment is present iff hashing is
// enabled. contentHash is the empty string to omit it.
func Filename(c *Chunk, contentHash string, ext string) string {
	if contentHash == "" {
		return fmt.Sprintf("%s.%s", c.Name, ext)
	}
	return fmt.Sprintf("%s.%s.%s", c.Name, contentHash, ext)
}
