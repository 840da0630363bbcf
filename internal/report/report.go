// Package report renders validation summaries and batch results for a
// terminal. The engine itself never formats messages; only the CLI does.
package report

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/magtheo/Differ-sub000/internal/change"
	"github.com/magtheo/Differ-sub000/internal/patch"
	"github.com/magtheo/Differ-sub000/internal/validate"
)

var (
	ColorOK   = lipgloss.Color("#00AA00")
	ColorBad  = lipgloss.Color("#ff0000")
	ColorWarn = lipgloss.Color("#d7af00")
	ColorDim  = lipgloss.Color("#808080")
)

// Printer renders reports. With Color off the output is plain text.
type Printer struct {
	Color bool
	// Width caps how much of a target is shown; 0 shows it all.
	Width int

	ok, bad, warn, dim, bold lipgloss.Style
}

// New returns a printer.
func New(color bool, width int) *Printer {
	return &Printer{
		Color: color,
		Width: width,
		ok:    lipgloss.NewStyle().Foreground(ColorOK),
		bad:   lipgloss.NewStyle().Foreground(ColorBad).Bold(true),
		warn:  lipgloss.NewStyle().Foreground(ColorWarn),
		dim:   lipgloss.NewStyle().Foreground(ColorDim),
		bold:  lipgloss.NewStyle().Bold(true),
	}
}

func (p *Printer) paint(s lipgloss.Style, text string) string {
	if !p.Color {
		return text
	}
	return s.Render(text)
}

// Validation renders one line per request, its issues indented below it,
// then a totals line and the overall verdict.
func (p *Printer) Validation(sum validate.Summary) string {
	var b strings.Builder

	labels := make([]string, len(sum.Results))
	width := 0
	for i, r := range sum.Results {
		labels[i] = p.label(r.Index, r.Request)
		width = max(width, ansi.StringWidth(labels[i]))
	}

	for i, r := range sum.Results {
		mark := p.paint(p.ok, "✓")
		switch {
		case !r.Valid:
			mark = p.paint(p.bad, "✗")
		case len(r.Warnings) > 0:
			mark = p.paint(p.warn, "!")
		}
		loc := r.Request.File
		if r.Span != nil {
			loc = fmt.Sprintf("%s:%d:%d", loc, r.Span.Start.Line, r.Span.Start.Column)
		}
		fmt.Fprintf(&b, "%s %s  %s\n", mark, pad(labels[i], width), p.paint(p.dim, loc))
		for _, e := range r.Errors {
			p.issue(&b, p.paint(p.bad, "error"), e)
		}
		for _, w := range r.Warnings {
			p.issue(&b, p.paint(p.warn, "warning"), w)
		}
	}

	if len(sum.Results) > 0 {
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d %s, %d valid, %d invalid, %d with warnings across %d %s in %s\n",
		sum.Total, plural(sum.Total, "request"), sum.Valid, sum.Invalid, sum.WithWarnings,
		len(sum.Files), plural(len(sum.Files), "file"), sum.Elapsed.Round(time.Millisecond))
	if sum.OverallValid {
		b.WriteString(p.paint(p.ok, "OK") + "\n")
	} else {
		b.WriteString(p.paint(p.bad, "FAILED") + "\n")
	}
	return b.String()
}

// Batch renders the outcome of each file. In a dry run, changed files are
// followed by a unified diff.
func (p *Printer) Batch(res patch.BatchResult, dryRun bool) string {
	var b strings.Builder
	patched := 0
	for _, f := range res.Files {
		if f.Err != nil {
			fmt.Fprintf(&b, "%s %s\n", p.paint(p.bad, "✗"), f.File)
			p.issue(&b, p.paint(p.bad, "error"), f.Err)
			continue
		}
		patched++
		verb := "unchanged"
		switch {
		case f.Created:
			verb = "created"
		case f.Changed:
			verb = "modified"
		}
		if dryRun && f.Changed {
			verb = "would be " + verb
		}
		fmt.Fprintf(&b, "%s %s  %s (%d %s)\n", p.paint(p.ok, "✓"), f.File, p.paint(p.dim, verb), len(f.Edits), plural(len(f.Edits), "edit"))
		if dryRun && f.Changed {
			b.WriteString(p.colorDiff(Diff(f.File, f.Original, f.Content)))
		}
	}
	fmt.Fprintf(&b, "\n%d %s, %d patched, %d failed\n", len(res.Files), plural(len(res.Files), "file"), patched, res.Failed())
	return b.String()
}

func (p *Printer) issue(b *strings.Builder, severity string, e *change.Error) {
	msg := e.Msg
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if e.Code != change.CodeNone {
		msg = e.Code.String() + ": " + msg
	}
	fmt.Fprintf(b, "    %s: %s\n", severity, msg)
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(b, "    did you mean: %s\n", strings.Join(e.Suggestions, ", "))
	}
}

func (p *Printer) label(index int, req change.Request) string {
	action := req.Kind.String()
	if req.Kind == change.KindUnknown && req.RawAction != "" {
		action = req.RawAction
	}
	target := firstLine(req.Target)
	if req.Class != "" {
		target = req.Class + "." + target
	}
	if p.Width > 0 {
		target = ansi.Truncate(target, p.Width, "…")
	}
	return strings.TrimSpace(fmt.Sprintf("[%d] %s %s", index, p.paint(p.bold, action), target))
}

func (p *Printer) colorDiff(diff string) string {
	if !p.Color {
		return diff
	}
	lines := strings.SplitAfter(diff, "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			lines[i] = p.bold.Render(strings.TrimSuffix(l, "\n")) + "\n"
		case strings.HasPrefix(l, "+"):
			lines[i] = p.ok.Render(strings.TrimSuffix(l, "\n")) + "\n"
		case strings.HasPrefix(l, "-"):
			lines[i] = p.bad.UnsetBold().Render(strings.TrimSuffix(l, "\n")) + "\n"
		case strings.HasPrefix(l, "@@"):
			lines[i] = p.dim.Render(strings.TrimSuffix(l, "\n")) + "\n"
		}
	}
	return strings.Join(lines, "")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " …"
	}
	return s
}

func pad(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
