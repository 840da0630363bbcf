package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/magtheo/Differ-sub000/internal/change"
	"github.com/magtheo/Differ-sub000/internal/index"
)

var (
	resolveAction string
	resolveTarget string
	resolveClass  string
)

var outlineCmd = &cobra.Command{
	Use:   "outline <path>...",
	Short: "List the functions, classes, methods and imports of files",
	Long: `Print a compact outline of every supported file under the given paths.

Directories are walked recursively; .git and anything matched by the root
.gitignore are skipped.

Examples:
  differ outline src/auth.js
  differ outline .`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOutline,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <file> --action <action> [--target <target>] [--class <class>]",
	Short: "Show where one change would land",
	Long: `Resolve a single target the way apply would and print its location.

Examples:
  differ resolve src/auth.js --action replace_function --target loginUser
  differ resolve src/auth.js --action add_method --class Session --target close
  differ resolve main.go --action modify_line --target 12:a3`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print a file with line numbers and hashes for modify_line",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the supported languages",
	Args:  cobra.NoArgs,
	RunE:  runLanguages,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveAction, "action", "", "Action kind, e.g. replace_function")
	resolveCmd.Flags().StringVar(&resolveTarget, "target", "", "Target name, text or line ref")
	resolveCmd.Flags().StringVar(&resolveClass, "class", "", "Enclosing class for method actions")
	_ = resolveCmd.MarkFlagRequired("action")

	rootCmd.AddCommand(outlineCmd, resolveCmd, showCmd, languagesCmd)
}

func runOutline(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	supported := func(rel string) bool { return e.host.Registry().Detect(rel) != "" }
	files := make(map[string]*index.FileIndex)
	for _, arg := range args {
		paths, err := e.ws.Files(cmd.Context(), arg, supported)
		if err != nil {
			return err
		}
		for _, file := range paths {
			text, err := e.ws.Read(file)
			if err != nil {
				return err
			}
			files[file] = index.BuildFile(cmd.Context(), e.host, file, text)
		}
	}
	fmt.Fprint(e.out, index.FormatOutline(files))
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	kind, err := change.ParseKind(resolveAction)
	if err != nil {
		return err
	}
	file := args[0]

	var text string
	if e.ws.Exists(file) {
		if text, err = e.ws.Read(file); err != nil {
			return err
		}
	} else if !kind.Creates() {
		return fmt.Errorf("%s: file not found", file)
	}

	idx := index.BuildFile(cmd.Context(), e.host, file, text)
	res := e.resolver.Resolve(idx, kind, resolveTarget, resolveClass)
	if !res.Exists {
		fmt.Fprintf(e.out, "%s: %s: %s\n", file, res.Code, res.Reason)
		if len(res.Suggestions) > 0 {
			fmt.Fprintf(e.out, "did you mean: %s\n", strings.Join(res.Suggestions, ", "))
		}
		return errFailed
	}

	s := res.Span
	fmt.Fprintf(e.out, "%s:%d:%d-%d:%d [%d,%d) %s confidence\n",
		file, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column, s.Start.Offset, s.End.Offset, res.Confidence)
	if res.Reason != "" {
		fmt.Fprintln(e.out, res.Reason)
	}
	if len(res.Suggestions) > 0 {
		fmt.Fprintf(e.out, "note: %s\n", strings.Join(res.Suggestions, ", "))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	text, err := e.ws.Read(args[0])
	if err != nil {
		return err
	}
	lang := e.host.Registry().Detect(args[0])
	fmt.Fprint(e.out, e.printer.Source(args[0], lang, text))
	return nil
}

func runLanguages(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	reg := e.host.Registry()
	for _, id := range reg.IDs() {
		def, _ := reg.Lookup(id)
		fmt.Fprintf(e.out, "%-12s %s\n", id, strings.Join(def.Extensions, " "))
	}
	return nil
}
