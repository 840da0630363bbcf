package main

import (
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/magtheo/Differ-sub000/internal/config"
	"github.com/magtheo/Differ-sub000/internal/grammar"
	"github.com/magtheo/Differ-sub000/internal/journal"
	"github.com/magtheo/Differ-sub000/internal/patch"
	"github.com/magtheo/Differ-sub000/internal/report"
	"github.com/magtheo/Differ-sub000/internal/resolve"
	"github.com/magtheo/Differ-sub000/internal/similarity"
	"github.com/magtheo/Differ-sub000/internal/validate"
	"github.com/magtheo/Differ-sub000/internal/workspace"
)

// env is everything a command needs, built once from config and flags.
type env struct {
	cfg      *config.Config
	host     *grammar.Host
	resolver *resolve.Resolver
	ws       *workspace.Workspace
	printer  *report.Printer
	out      io.Writer
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if rootFlag != "" {
		cfg.Workspace.Root = rootFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setupLogging(cmd.ErrOrStderr(), cfg.Log.LevelOrDefault())

	reg, err := grammar.BuiltinRegistry(cfg.Languages...)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.New(cfg.Workspace.Root)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("root", ws.Root()).Strs("languages", reg.IDs()).Msg("differ: ready")

	out := cmd.OutOrStdout()
	matcher := similarity.Matcher{
		Threshold: cfg.Suggest.ThresholdOrDefault(),
		Limit:     cfg.Suggest.LimitOrDefault(),
	}
	return &env{
		cfg:      cfg,
		host:     grammar.NewHost(reg),
		resolver: resolve.New(matcher),
		ws:       ws,
		printer:  report.New(useColor(out), termWidth(out)),
		out:      out,
	}, nil
}

func setupLogging(w io.Writer, level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, NoColor: noColor})
}

func (e *env) orchestrator() *validate.Orchestrator {
	o := validate.New(e.host, e.resolver, e.ws)
	o.Options = validate.Options{
		ConcurrentLimit: e.cfg.Validation.ConcurrentLimitOrDefault(),
		Timeout:         e.cfg.Validation.TimeoutOrDefault(),
	}
	return o
}

func (e *env) patcher() *patch.Patcher {
	return patch.New(e.host, e.resolver)
}

// journal opens the commit journal, or returns nil when it is disabled.
func (e *env) journal() (*journal.Journal, error) {
	if !e.cfg.Journal.Enabled {
		return nil, nil
	}
	path, err := e.cfg.Journal.PathOrDefault()
	if err != nil {
		return nil, err
	}
	if e.cfg.Journal.Path == "" {
		if _, err := config.EnsureDataDir(); err != nil {
			return nil, err
		}
	}
	return journal.Open(path)
}

func useColor(w io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// termWidth returns the width targets are truncated to, 0 when not a terminal.
func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(f.Fd())
	if err != nil || width <= 0 {
		return 0
	}
	// Leave room for the mark, index, action and location around the target.
	return max(width/2, 20)
}
