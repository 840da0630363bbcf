package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootFlag   string
	logLevel   string
	noColor    bool
)

// errFailed ends a run whose failure has already been reported.
var errFailed = errors.New("failed")

var rootCmd = &cobra.Command{
	Use:   "differ",
	Short: "Locate and patch source code by structure",
	Long: `differ applies batches of structural edits to source files.

Each change names its target (a function, a method of a class, an import, a
block of text or a line) instead of a byte range. Targets are located with
tree-sitter, checked up front, and applied per file: a file is patched in full
or not at all.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default ~/.config/differ/config.toml)")
	pf.StringVar(&rootFlag, "root", "", "Workspace root (default: current directory)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
