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
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"mime"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// ContentHash is a 64-bit non-cryptographic hash over raw file bytes. It is
// the primary freshness key the task engine compares cell read-sets against.
type ContentHash uint64

// HashContent computes the content hash of raw bytes with XxHash-64.
func HashContent(data []byte) ContentHash {
	return ContentHash(xxhash.Sum64(data))
}

// AssetNameHash truncates an MD5 digest of streamed asset bytes to 8 hex
// characters, used to name emitted binary assets. MD5 is used here (not
// XxHash) because it is only a naming aid, not a freshness key, and the
// teacher repo (designtokens, export) reaches for stdlib crypto hashes for
// exactly this kind of non-freshness digest; see DESIGN.md.
func AssetNameHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])[:8]
}

// DataURL renders bytes as a base64 data URL, guessing the MIME type from
// the file extension.
func DataURL(path string, data []byte) string {
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return "data:" + mimeType + ";base64," + encoded
}
