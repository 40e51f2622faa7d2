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
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/mako/build"
	"bennypowers.dev/mako/emit"
	"bennypowers.dev/mako/engine"
	"bennypowers.dev/mako/internal/config"
	"bennypowers.dev/mako/internal/logging"
)

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Serve the project with hot-module-replacement",
	Long: `Builds once, then serves the output directory over HTTP while watching the
project for changes. Every change recomputes the affected part of the
module graph and pushes a {"hash": "..."} update to connected clients over
a WebSocket at /__/hmr-ws.`,
	RunE: runDev,
}

func init() {
	rootCmd.AddCommand(devCmd)
	devCmd.Flags().String("dir", "", "project directory (default: current directory)")
	devCmd.Flags().String("root", "", "alias for --dir")
	devCmd.Flags().Int("port", 0, "dev server port (default: config dev.port, or 8080)")
	devCmd.Flags().String("host", "", "dev server bind address (default: config dev.host, or 127.0.0.1)")
	devCmd.Flags().Bool("no-open", false, "reserved; this environment never opens a browser")
	devCmd.Flags().Bool("eager", false, "reserved; every module is always built up front")
}

func runDev(cmd *cobra.Command, args []string) error {
	dirFlag, _ := cmd.Flags().GetString("dir")
	rootFlag, _ := cmd.Flags().GetString("root")
	projectDir, err := resolveProjectDir(dirFlag, rootFlag)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.ProjectDir = projectDir
	cfg.Mode = config.Development
	if err := config.Load(viper.GetViper(), findConfigFile(projectDir), cfg); err != nil {
		return err
	}

	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Dev.Port = port
	}
	if cfg.Dev.Port == 0 {
		cfg.Dev.Port = 8080
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Dev.Host = host
	}
	if cfg.Dev.Host == "" {
		cfg.Dev.Host = "127.0.0.1"
	}
	if eager, _ := cmd.Flags().GetBool("eager"); eager {
		cfg.Dev.Eager = true
	}

	ctx := context.Background()
	// eng is kept alive for the whole dev session (not just this one call)
	// so every rebuild in watchLoop reuses its cell cache: an edited file's
	// load/parse/analyze_deps chain recomputes, but everything else resolves
	// fresh from the engine without re-reading or re-parsing (spec §4.1).
	eng := engine.New(0)
	defer eng.Close()

	result, err := build.Once(ctx, cfg, projectDir, eng)
	if err != nil {
		return err
	}
	for _, d := range result.Diagnostics.All() {
		logging.DiagnosticMsg(d)
	}
	if err := build.Write(cfg, projectDir, result); err != nil {
		return err
	}

	hub := emit.NewHub()
	snapshotHash := emit.SnapshotHash(result.Graph.Modules)

	watcher, err := emit.NewWatcher(projectDir, 75*time.Millisecond)
	if err != nil {
		return fmt.Errorf("dev: watch %s: %w", projectDir, err)
	}
	defer watcher.Close()

	go watchLoop(ctx, cfg, projectDir, eng, watcher, hub, &snapshotHash)

	mux := http.NewServeMux()
	mux.Handle(emit.HMRPath, hub)
	mux.Handle("/", http.FileServer(http.Dir(filepath.Join(projectDir, cfg.Output.Path))))

	addr := fmt.Sprintf("%s:%d", cfg.Dev.Host, cfg.Dev.Port)
	logging.Success("serving %s on http://%s", cfg.Output.Path, addr)
	return http.ListenAndServe(addr, mux)
}

// watchLoop re-walks the project on every debounced filesystem batch and
// broadcasts the resulting snapshot hash. The walk itself still visits
// every entry's transitive closure (spec §4.7 steps 1-5's per-path diffing
// is not threaded through this driver loop), but each visited module's
// load/parse/analyze_deps chain runs through eng, the same engine across
// every call: a module whose content hash didn't change resolves straight
// from its cached cell instead of being re-read and re-parsed, so rebuild
// latency scales with the size of the changed set, not the project.
func watchLoop(ctx context.Context, cfg *config.Config, projectDir string, eng *engine.Engine, watcher *emit.Watcher, hub *emit.Hub, prevHash *uint64) {
	for batch := range watcher.Batches() {
		for _, path := range batch {
			build.InvalidateFile(eng, path)
		}

		result, err := build.Once(ctx, cfg, projectDir, eng)
		if err != nil {
			logging.Error("dev: rebuild failed: %v", err)
			hub.BroadcastFullReload()
			continue
		}
		for _, d := range result.Diagnostics.All() {
			logging.DiagnosticMsg(d)
		}
		if result.HasFatalErrors() {
			hub.BroadcastFullReload()
			continue
		}
		if err := build.Write(cfg, projectDir, result); err != nil {
			logging.Error("dev: write failed: %v", err)
			hub.BroadcastFullReload()
			continue
		}

		update := emit.Diff(result.Graph.Modules, result.Graph.Modules.AllModuleIDs(), *prevHash)
		*prevHash = emit.SnapshotHash(result.Graph.Modules)
		if !update.Suppressed {
			hub.Broadcast(update.Hash)
			logging.Info("rebuilt (%d module(s) changed)", len(update.ModifiedOrNew))
		}
	}
}
