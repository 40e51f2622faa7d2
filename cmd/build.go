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

package cmd

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/mako/build"
	"bennypowers.dev/mako/cache"
	"bennypowers.dev/mako/internal/config"
	"bennypowers.dev/mako/internal/logging"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Bundle the project once and exit",
	Long: `Resolves the module graph from the configured (or auto-detected) entry
modules, tree-shakes and concatenates in production mode, forms chunks, and
writes the result to the output directory. Exits 0 on a clean build, 1 on a
build with warnings only if --strict is set, 2 on a fatal diagnostic.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().String("dir", "", "project directory (default: current directory)")
	buildCmd.Flags().String("root", "", "alias for --dir")
	buildCmd.Flags().Bool("no-sourcemap", false, "disable source map generation")
	buildCmd.Flags().String("target", "browser", "runtime target: browser or node")
	buildCmd.Flags().Bool("minify", false, "minify output (reserved; not yet implemented)")
	buildCmd.Flags().String("entries", "", "comma-separated name=path entry overrides")
	buildCmd.Flags().Bool("strict", false, "exit 1 if any warning diagnostics were reported")
}

func runBuild(cmd *cobra.Command, args []string) error {
	dirFlag, _ := cmd.Flags().GetString("dir")
	rootFlag, _ := cmd.Flags().GetString("root")
	projectDir, err := resolveProjectDir(dirFlag, rootFlag)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.ProjectDir = projectDir
	if err := config.Load(viper.GetViper(), findConfigFile(projectDir), cfg); err != nil {
		return err
	}

	if noMap, _ := cmd.Flags().GetBool("no-sourcemap"); noMap {
		cfg.Devtool = ""
	}
	if minify, _ := cmd.Flags().GetBool("minify"); minify {
		cfg.Minify = true
	}
	if entries, _ := cmd.Flags().GetString("entries"); entries != "" {
		cfg.Entry = parseEntriesFlag(entries)
	}

	result, err := build.Once(context.Background(), cfg, projectDir, nil)
	if err != nil {
		return err
	}

	for _, d := range result.Diagnostics.All() {
		logging.DiagnosticMsg(d)
	}

	if result.HasFatalErrors() {
		os.Exit(2)
	}

	if err := build.Write(cfg, projectDir, result); err != nil {
		return err
	}
	saveCacheBestEffort(cfg, projectDir, result)

	logging.Success("built %d chunk(s) to %s", len(result.Outputs), cfg.Output.Path)

	if strict, _ := cmd.Flags().GetBool("strict"); strict && len(result.Diagnostics.All()) > 0 {
		os.Exit(1)
	}
	return nil
}

// findConfigFile looks for mako.config.json or mako.config.toml under
// projectDir; an absent file is not an error (config.Load already no-ops
// on an empty path).
func findConfigFile(projectDir string) string {
	for _, name := range []string{"mako.config.json", "mako.config.toml"} {
		candidate := projectDir + string(os.PathSeparator) + name
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func parseEntriesFlag(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, path, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[name] = path
	}
	return out
}

// saveCacheBestEffort persists every module's content hash and generated id
// so a future incremental rebuild (not yet implemented) has a populated
// boundary to compare against. A failure here never fails the build — the
// cache is explicitly optional (spec §6 "Persisted cache (optional)").
func saveCacheBestEffort(cfg *config.Config, projectDir string, result *build.Result) {
	boundary, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	boundaryHash := xxhash.Sum64(boundary)

	c := cache.New(boundaryHash)
	for _, id := range result.Graph.Modules.AllModuleIDs() {
		info := result.Graph.Modules.Module(id)
		if info == nil {
			continue
		}
		var deps []string
		for _, e := range result.Graph.Modules.GetDependencies(id) {
			deps = append(deps, string(e.To))
		}
		c.Put(string(id), cache.Entry{
			ContentHash:  info.Hash,
			GeneratedID:  result.Graph.GeneratedID[id],
			Dependencies: deps,
		})
	}

	if err := cache.Save(cache.Path(projectDir), c); err != nil {
		logging.Debug("cache: save failed: %v", err)
	}
}
