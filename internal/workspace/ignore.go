package workspace

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
)

// ignoreRules is a parsed .gitignore. The last matching rule wins.
type ignoreRules []ignoreRule

type ignoreRule struct {
	re       *regexp.Regexp
	negate   bool
	dirOnly  bool
	anchored bool
}

// loadIgnore reads the .gitignore at file. A missing file yields no rules.
func loadIgnore(file string) (ignoreRules, error) {
	//nolint:gosec // G304: fixed name under the workspace root
	f, err := os.Open(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rules ignoreRules
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if r, ok := parseIgnoreRule(line); ok {
			rules = append(rules, r)
		}
	}
	return rules, sc.Err()
}

func parseIgnoreRule(line string) (ignoreRule, bool) {
	var r ignoreRule
	if strings.HasPrefix(line, "!") {
		r.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	r.anchored = strings.HasPrefix(line, "/")
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return r, false
	}

	var b strings.Builder
	if r.anchored {
		b.WriteString("^")
	} else {
		b.WriteString("(^|/)")
	}
	writeGlob(&b, line)
	if r.anchored {
		b.WriteString("$")
	} else {
		b.WriteString("(/.*)?$")
	}

	re, err := regexp.Compile(b.String())
	if err != nil {
		return r, false
	}
	r.re = re
	return r, true
}

// writeGlob translates a gitignore glob into regexp syntax.
func writeGlob(b *strings.Builder, glob string) {
	for i := 0; i < len(glob); i++ {
		switch c := glob[i]; c {
		case '*':
			switch {
			case strings.HasPrefix(glob[i:], "**/"):
				b.WriteString("(.*/)?")
				i += 2
			case strings.HasPrefix(glob[i:], "**"):
				b.WriteString(".*")
				i++
			default:
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			if j := strings.IndexByte(glob[i:], ']'); j > 0 {
				b.WriteString(glob[i : i+j+1])
				i += j
			} else {
				b.WriteString(`\[`)
			}
		case '\\':
			if i+1 < len(glob) {
				b.WriteString(regexp.QuoteMeta(glob[i+1 : i+2]))
				i++
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
}

// Match reports whether rel, a slash-separated path relative to the root,
// is ignored.
func (rules ignoreRules) Match(rel string, isDir bool) bool {
	ignored := false
	for _, r := range rules {
		var hit bool
		switch {
		case r.dirOnly:
			hit = (isDir && r.re.MatchString(rel)) || (!isDir && r.re.MatchString(path.Dir(rel)))
		case r.anchored:
			hit = r.re.MatchString(rel)
		default:
			hit = r.re.MatchString(rel) || r.re.MatchString(path.Base(rel))
		}
		if hit {
			ignored = !r.negate
		}
	}
	return ignored
}
