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

// Package version holds build-time metadata, overridden via -ldflags
// -X at release build time (goreleaser-style), matching the teacher's
// cmd/version.go consumer contract.
package version

// Version, Commit, and Date are overridden at build time via:
//
//	go build -ldflags "-X bennypowers.dev/mako/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// BuildInfo is the JSON-serializable shape cmd/version.go prints with
// --output json.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func GetVersion() string { return Version }

func GetBuildInfo() BuildInfo {
	return BuildInfo{Version: Version, Commit: Commit, Date: Date}
}
