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

// Package resolver implements the enhanced-resolve style lookup used by
// analyze_deps to turn a written specifier into a concrete file, an
// external, or a recorded miss (spec §4.3 "resolve").
package resolver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	DS "github.com/bmatcuk/doublestar"
)

// Resource is the outcome of resolving one dependency specifier.
type Resource struct {
	Kind        ResourceKind
	Path        string // set when Kind == Resolved
	PackageJSON *PackageJSON
	External    string // set when Kind == External
	MissReason  string // set when Kind == Missing
}

type ResourceKind int

const (
	Resolved ResourceKind = iota
	External
	Missing
)

// PackageJSON is the subset of package.json the resolver and the
// side-effects pass (spec §4.6.1) need.
type PackageJSON struct {
	Name         string          `json:"name"`
	Main         string          `json:"main"`
	Module       string          `json:"module"`
	SideEffects  json.RawMessage `json:"sideEffects"`
	Exports      json.RawMessage `json:"exports"`
	path         string
}

// SideEffectsDefault reports the package's default side-effect-free-ness.
// Absent "sideEffects" defaults to true (side-effectful), matching the npm
// ecosystem convention the teacher's resolve.go-equivalents rely on.
func (p *PackageJSON) SideEffectsDefault() bool {
	if p == nil || len(p.SideEffects) == 0 {
		return true
	}
	var b bool
	if err := json.Unmarshal(p.SideEffects, &b); err == nil {
		return b
	}
	// array form: list of globs with side effects; treat as side-effectful
	// unless the resolver is asked about one of the globs (not modeled here).
	return true
}

// Config is the resolver's configuration surface (spec §6 "resolve" block).
type Config struct {
	Alias       map[string]string
	Extensions  []string
	Conditions  []string
	Externals   map[string]string
	Fallback    map[string]string // unresolved specifier -> replacement module
}

// DefaultExtensions matches the teacher's convention of trying the richest
// source extension first.
var DefaultExtensions = []string{".tsx", ".ts", ".jsx", ".js", ".mjs", ".cjs", ".json"}

// Resolver resolves specifiers against an importer path. It caches
// package.json lookups; Clear() drops that cache. Nothing in the build or
// watch path calls Clear, and no missing-dependency recovery scan exists.
type Resolver struct {
	cfg Config
	mu  sync.RWMutex
	pkg map[string]*PackageJSON // dir -> nearest package.json
}

func New(cfg Config) *Resolver {
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	return &Resolver{cfg: cfg, pkg: make(map[string]*PackageJSON)}
}

// Clear drops the package.json cache, forcing the next Resolve to re-stat
// the filesystem.
func (r *Resolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pkg = make(map[string]*PackageJSON)
}

// Resolve resolves a specifier written in importer against the configured
// aliases, externals, extensions and fallback map. Running it twice on the
// same (specifier, importer) pair — absent an explicit Clear() — yields the
// same Resource (spec §8 "Idempotent resolve").
func (r *Resolver) Resolve(importer, specifier string) Resource {
	if repl, ok := r.cfg.Externals[specifier]; ok {
		if repl == "" {
			repl = specifier
		}
		return Resource{Kind: External, External: repl}
	}

	specifier = r.applyAlias(specifier)

	var candidate string
	switch {
	case strings.HasPrefix(specifier, "."):
		candidate = filepath.Join(filepath.Dir(importer), specifier)
	case strings.HasPrefix(specifier, "/"):
		candidate = specifier
	default:
		// Bare specifier: treat as a node_modules package unless aliased.
		return r.resolveBare(specifier)
	}

	if res, ok := r.resolveFileOrDir(candidate); ok {
		return res
	}

	if repl, ok := r.cfg.Fallback[specifier]; ok {
		if res, ok := r.resolveFileOrDir(filepath.Join(filepath.Dir(importer), repl)); ok {
			return res
		}
		return Resource{Kind: External, External: repl}
	}

	return Resource{Kind: Missing, MissReason: "no such file: " + candidate}
}

func (r *Resolver) applyAlias(specifier string) string {
	if target, ok := r.cfg.Alias[specifier]; ok {
		return target
	}
	for prefix, target := range r.cfg.Alias {
		if strings.HasSuffix(prefix, "/*") {
			base := strings.TrimSuffix(prefix, "/*")
			if strings.HasPrefix(specifier, base+"/") {
				rest := strings.TrimPrefix(specifier, base+"/")
				return strings.TrimSuffix(target, "/*") + "/" + rest
			}
		}
	}
	return specifier
}

func (r *Resolver) resolveBare(specifier string) Resource {
	// Bare specifiers resolve to an external unless explicitly aliased to a
	// local path; a full node_modules package walk is out of scope for the
	// core engine (spec §1 names package resolution nuance as an external
	// collaborator concern), but we still honor fallback remaps.
	if repl, ok := r.cfg.Fallback[specifier]; ok {
		return Resource{Kind: External, External: repl}
	}
	return Resource{Kind: External, External: specifier}
}

func (r *Resolver) resolveFileOrDir(candidate string) (Resource, bool) {
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return Resource{Kind: Resolved, Path: candidate, PackageJSON: r.nearestPackageJSON(candidate)}, true
	}
	for _, ext := range r.cfg.Extensions {
		p := candidate + ext
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return Resource{Kind: Resolved, Path: p, PackageJSON: r.nearestPackageJSON(p)}, true
		}
	}
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		for _, name := range []string{"index"} {
			for _, ext := range r.cfg.Extensions {
				p := filepath.Join(candidate, name+ext)
				if _, err := os.Stat(p); err == nil {
					return Resource{Kind: Resolved, Path: p, PackageJSON: r.nearestPackageJSON(p)}, true
				}
			}
		}
	}
	return Resource{}, false
}

// NearestPackageJSON exposes the same package.json lookup Resolve uses
// internally, so callers that need a module's side-effects default (spec
// §4.6.1 "Side-effects propagation") without resolving a dependency edge can
// look it up directly by the module's own path.
func (r *Resolver) NearestPackageJSON(fromFile string) *PackageJSON {
	return r.nearestPackageJSON(fromFile)
}

func (r *Resolver) nearestPackageJSON(fromFile string) *PackageJSON {
	dir := filepath.Dir(fromFile)
	for {
		r.mu.RLock()
		if pkg, ok := r.pkg[dir]; ok {
			r.mu.RUnlock()
			if pkg != nil {
				return pkg
			}
		} else {
			r.mu.RUnlock()
			p := filepath.Join(dir, "package.json")
			if data, err := os.ReadFile(p); err == nil {
				var pkg PackageJSON
				if json.Unmarshal(data, &pkg) == nil {
					pkg.path = p
					r.mu.Lock()
					r.pkg[dir] = &pkg
					r.mu.Unlock()
					return &pkg
				}
			}
			r.mu.Lock()
			r.pkg[dir] = nil
			r.mu.Unlock()
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

// AutoDetectEntries globs for the conventional src/index.{ts,tsx,js,jsx}
// entry when no explicit entry map is configured (spec §6 "entry"); called
// by config.AutoDetectEntry so the fallback-entry lookup shares one
// implementation instead of a second hand-rolled extension loop.
func AutoDetectEntries(root string) ([]string, error) {
	return DS.Glob(filepath.Join(root, "src/index.{ts,tsx,js,jsx}"))
}
