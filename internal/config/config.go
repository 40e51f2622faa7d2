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

// Package config loads the bundler's JSON/TOML configuration (spec §6
// "Config file"): viper reads JSON files, and ".toml" files are decoded
// directly with BurntSushi/toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"bennypowers.dev/mako/resolver"
)

// Mode mirrors spec §6 "mode".
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
)

// AllowChunks restricts a split-chunk group to entry chunks, async chunks,
// or both (spec §6 "code_splitting").
type AllowChunks string

const (
	AllowEntry AllowChunks = "entry"
	AllowAsync AllowChunks = "async"
	AllowAll   AllowChunks = "all"
)

// SplitChunkGroup is one entry of "code_splitting.groups".
type SplitChunkGroup struct {
	Name        string      `mapstructure:"name" toml:"name"`
	Test        string      `mapstructure:"test" toml:"test"` // regex over resolved module path
	MinChunks   int         `mapstructure:"min_chunks" toml:"min_chunks"`
	MinSize     int64       `mapstructure:"min_size" toml:"min_size"`
	MaxSize     int64       `mapstructure:"max_size" toml:"max_size"`
	Priority    int         `mapstructure:"priority" toml:"priority"`
	AllowChunks AllowChunks `mapstructure:"allow_chunks" toml:"allow_chunks"`
}

// CodeSplitting is either "auto" (Auto=true, Groups empty) or an explicit
// group list.
type CodeSplitting struct {
	Auto   bool              `mapstructure:"-" toml:"-"`
	Groups []SplitChunkGroup `mapstructure:"groups" toml:"groups"`
}

// External describes one entry of spec §6 "externals": either a bare
// replacement global name or a per-target-format mapping.
type External struct {
	Replacement string            `mapstructure:"replacement" toml:"replacement"`
	Root        string            `mapstructure:"root" toml:"root"`
	CommonJS    string            `mapstructure:"commonjs" toml:"commonjs"`
	Extra       map[string]string `mapstructure:"extra" toml:"extra"`
}

// Resolve mirrors spec §6 "resolve".
type Resolve struct {
	Alias      map[string]string `mapstructure:"alias" toml:"alias"`
	Extensions []string          `mapstructure:"extensions" toml:"extensions"`
	Conditions []string          `mapstructure:"conditions" toml:"conditions"`
}

// Output mirrors spec §6 "output".
type Output struct {
	Path              string `mapstructure:"path" toml:"path"`
	Filename          string `mapstructure:"filename" toml:"filename"`
	ChunkFilename     string `mapstructure:"chunk_filename" toml:"chunk_filename"`
	ChunkLoadingGlobal string `mapstructure:"chunk_loading_global" toml:"chunk_loading_global"`
}

// LoaderRule is one entry of "experimental.turbo.rules" — a user-provided
// loader chain for an extension, executed by the external loader worker
// pool (spec §1 "Out of scope").
type LoaderRule struct {
	Loaders  []string `mapstructure:"loaders" toml:"loaders"`
	RenameAs string   `mapstructure:"rename_as" toml:"rename_as"`
}

// Experimental mirrors spec §6 "experimental.turbo.rules".
type Experimental struct {
	Turbo struct {
		Rules map[string]LoaderRule `mapstructure:"rules" toml:"rules"`
	} `mapstructure:"turbo" toml:"turbo"`
}

// Config is the typed shape of spec §6's config file.
type Config struct {
	ProjectDir string `mapstructure:"-" toml:"-"`

	Entry map[string]string `mapstructure:"entry" toml:"entry"`
	Output Output           `mapstructure:"output" toml:"output"`
	Mode   Mode             `mapstructure:"mode" toml:"mode"`

	Minify      bool   `mapstructure:"minify" toml:"minify"`
	Devtool     string `mapstructure:"devtool" toml:"devtool"` // "source-map" or ""
	InlineLimit int64  `mapstructure:"inline_limit" toml:"inline_limit"`

	Define map[string]any `mapstructure:"define" toml:"define"`

	CodeSplitting CodeSplitting       `mapstructure:"code_splitting" toml:"code_splitting"`
	Externals     map[string]External `mapstructure:"externals" toml:"externals"`
	Resolve       Resolve             `mapstructure:"resolve" toml:"resolve"`
	Experimental  Experimental        `mapstructure:"experimental" toml:"experimental"`

	Dev struct {
		Port int    `mapstructure:"port" toml:"port"`
		Host string `mapstructure:"host" toml:"host"`
		Eager bool  `mapstructure:"eager" toml:"eager"`
	} `mapstructure:"dev" toml:"dev"`
}

// Default returns the built-in defaults before a config file or flags are
// applied: production mode, auto code splitting, source maps on.
func Default() *Config {
	return &Config{
		Mode:          Production,
		Devtool:       "source-map",
		InlineLimit:   10 * 1024,
		CodeSplitting: CodeSplitting{Auto: true},
		Output: Output{
			Path:               "dist",
			Filename:           "[name].js",
			ChunkFilename:      "[name].[contenthash].js",
			ChunkLoadingGlobal: "makoChunk",
		},
	}
}

// Load reads configPath (JSON or TOML by extension) into cfg, which should
// start as Default(). A missing path is not an error — callers proceed
// with defaults plus whatever flags were bound. Load does no searching of
// its own; callers pass the file they found. ".toml" files are decoded with
// BurntSushi/toml directly, every other extension through viper.
func Load(v *viper.Viper, configPath string, cfg *Config) error {
	if configPath == "" {
		return nil
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return fmt.Errorf("config: invalid path %q: %w", configPath, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil
	}

	switch filepath.Ext(abs) {
	case ".toml":
		if _, err := toml.DecodeFile(abs, cfg); err != nil {
			return fmt.Errorf("config: decode toml %s: %w", abs, err)
		}
		return nil
	default:
		v.SetConfigFile(abs)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", abs, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return fmt.Errorf("config: unmarshal %s: %w", abs, err)
		}
		return nil
	}
}

// entryExtPriority orders AutoDetectEntry's glob matches the way the
// richest-source-first convention (resolver.DefaultExtensions) prefers: a
// project with both an index.ts and a stray index.js picks the TS one.
var entryExtPriority = map[string]int{".ts": 0, ".tsx": 1, ".js": 2, ".jsx": 3}

// AutoDetectEntry resolves spec §6's "or auto-detected src/index.{ts,tsx}"
// fallback when Entry is empty, delegating the actual glob to
// resolver.AutoDetectEntries.
func AutoDetectEntry(projectDir string) (map[string]string, error) {
	matches, err := resolver.AutoDetectEntries(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("config: no entry configured and no src/index.{ts,tsx,js,jsx} found under %s", projectDir)
	}
	sort.Slice(matches, func(i, j int) bool {
		return entryExtPriority[filepath.Ext(matches[i])] < entryExtPriority[filepath.Ext(matches[j])]
	})
	return map[string]string{"index": matches[0]}, nil
}
