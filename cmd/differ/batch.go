package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/magtheo/Differ-sub000/internal/journal"
	"github.com/magtheo/Differ-sub000/internal/patch"
	"github.com/magtheo/Differ-sub000/internal/requests"
)

var (
	changesFile string
	dryRun      bool
)

var validateCmd = &cobra.Command{
	Use:   "validate -f <changes>",
	Short: "Check a change file without touching any file",
	Long: `Check every change in a change file against the workspace.

Each change is checked on its own: its file must exist (unless the action
creates one), its target must resolve, and near misses are suggested.

Examples:
  differ validate -f changes.yaml
  cat changes.json | differ validate -f -`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var applyCmd = &cobra.Command{
	Use:   "apply -f <changes>",
	Short: "Validate and apply a change file",
	Long: `Validate a change file, then apply it file by file.

Nothing is written when validation fails. Each file is patched in full or
not at all, and a failing file never stops the others.

Examples:
  differ apply -f changes.yaml
  differ apply -f changes.yaml --dry-run`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	for _, c := range []*cobra.Command{validateCmd, applyCmd} {
		c.Flags().StringVarP(&changesFile, "file", "f", "", `Change file (YAML or JSON, "-" for stdin)`)
		_ = c.MarkFlagRequired("file")
		rootCmd.AddCommand(c)
	}
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show diffs instead of writing")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	reqs, err := requests.Load(changesFile)
	if err != nil {
		return err
	}

	sum := e.orchestrator().Validate(cmd.Context(), reqs)
	fmt.Fprint(e.out, e.printer.Validation(sum))
	if !sum.OverallValid {
		return errFailed
	}
	return nil
}

func runApply(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	reqs, err := requests.Load(changesFile)
	if err != nil {
		return err
	}

	sum := e.orchestrator().Validate(cmd.Context(), reqs)
	if !sum.OverallValid {
		fmt.Fprint(e.out, e.printer.Validation(sum))
		return errFailed
	}

	var sink patch.Sink
	if !dryRun {
		sink = e.ws
	}
	res := e.patcher().PatchBatch(cmd.Context(), reqs, e.ws, sink)
	fmt.Fprint(e.out, e.printer.Batch(res, dryRun))

	if !dryRun {
		j, err := e.journal()
		if err != nil {
			log.Warn().Err(err).Msg("journal: open failed")
		}
		defer j.Close()
		if err := j.Record(journal.NewBatch(), res); err != nil {
			log.Warn().Err(err).Msg("journal: record failed")
		}
	}

	if !res.OK() {
		return errFailed
	}
	return nil
}
