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
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/mako/internal/logging"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mako",
	Short: "An incremental JavaScript/TypeScript bundler",
	Long: `Resolves a module graph from your entry modules, transforms and chunks it,
and emits executable JavaScript and CSS with source maps. The dev subcommand
serves hot-module-replacement updates to connected clients.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveProjectDir(dirFlag, rootFlag string) (string, error) {
	if rootFlag != "" {
		return expandPath(rootFlag)
	}
	if dirFlag != "" {
		return expandPath(dirFlag)
	}
	return os.Getwd()
}

// expandPath expands a leading ~ and resolves to an absolute path, mirroring
// the teacher's cmd/root.go expandPath.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		switch {
		case path == "~":
			path = home
		case len(path) > 1 && path[1] == '/':
			path = filepath.Join(home, path[2:])
		}
	}
	return filepath.Abs(path)
}

func initConfig() {
	if viper.GetBool("verbose") {
		logging.SetDebugEnabled(true)
		pterm.EnableDebugMessages()
	}
	if viper.GetBool("quiet") {
		logging.SetQuietEnabled(true)
	}
	viper.AutomaticEnv()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging output")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress info/debug output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}
