package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/ansi"

	"github.com/magtheo/Differ-sub000/internal/hashline"
)

// Theme is the chroma style used for highlighted source.
const Theme = "monokai"

// Source renders text as tagged lines, "num:hash|content", the form
// modify_line targets are written against. language is a chroma lexer name;
// path picks the lexer when language is unknown to chroma. With color the
// content is syntax highlighted.
func (p *Printer) Source(path, language, text string) string {
	tagged := hashline.TagLines(text)
	if len(tagged) > 1 && strings.HasSuffix(text, "\n") {
		tagged = tagged[:len(tagged)-1]
	}

	var colored []string
	if p.Color {
		colored = highlight(path, language, text, len(tagged))
	}

	var b strings.Builder
	for i, t := range tagged {
		content := t.Content
		if colored != nil {
			content = colored[i]
		}
		b.WriteString(p.paint(p.dim, fmt.Sprintf("%d:%s|", t.Num, t.Hash)))
		b.WriteString(content)
		if colored != nil {
			b.WriteString(ansi.ResetStyle)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// highlight returns text highlighted and split into exactly want lines, or
// nil when no lexer applies or the output does not line up with the input.
func highlight(path, language, text string, want int) []string {
	lex := lexers.Get(language)
	if lex == nil {
		lex = lexers.Match(filepath.Base(path))
	}
	if lex == nil {
		return nil
	}
	it, err := chroma.Coalesce(lex).Tokenise(nil, text)
	if err != nil {
		return nil
	}
	fmtr := formatters.Get("terminal16m")
	if fmtr == nil {
		fmtr = formatters.Fallback
	}
	var buf strings.Builder
	if err := fmtr.Format(&buf, styles.Get(Theme), it); err != nil {
		return nil
	}

	lines := splitLines(buf.String())
	for len(lines) > want && ansi.Strip(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) != want {
		return nil
	}
	return lines
}

// splitLines splits a highlighted block into lines, carrying the active SGR
// state across each break so every line renders on its own.
func splitLines(block string) []string {
	lines := strings.Split(block, "\n")
	var active []string
	for i, line := range lines {
		if i > 0 && len(active) > 0 {
			lines[i] = strings.Join(active, "") + line
		}
		active = scanSGR(line, active)
	}
	return lines
}

// scanSGR folds the SGR sequences of line into active. A reset clears it.
func scanSGR(line string, active []string) []string {
	for j := 0; j < len(line); j++ {
		if line[j] != '\x1b' || j+1 >= len(line) || line[j+1] != '[' {
			continue
		}
		k := j + 2
		for k < len(line) && line[k] != 'm' && line[k] != '\x1b' {
			k++
		}
		if k >= len(line) || line[k] != 'm' {
			continue
		}
		if params := line[j+2 : k]; params == "" || params == "0" {
			active = active[:0]
		} else {
			active = append(active, line[j:k+1])
		}
		j = k
	}
	return active
}
