package index

import (
	"fmt"
	"sort"
	"strings"
)

// MaxOutlineBytes caps an outline so it stays small enough to hand to an LLM
// as the list of names it may target.
const MaxOutlineBytes = 16 * 1024

// FormatOutline renders a compact outline of several indexed files, sorted by
// path and capped at MaxOutlineBytes.
//
// Example output:
//
//	src/session.js (javascript):
//	  import: ./api
//	  class Session: open, close
//	  fn: loginUser
func FormatOutline(files map[string]*FileIndex) string {
	if len(files) == 0 {
		return ""
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		entry := fmt.Sprintf("%s (%s):\n%s", path, files[path].Language, Outline(files[path]))
		if b.Len()+len(entry) > MaxOutlineBytes {
			fmt.Fprintf(&b, "# ... truncated (%d files total)\n", len(paths))
			break
		}
		b.WriteString(entry)
	}
	return b.String()
}

// Outline renders the symbols of one file, two-space indented.
func Outline(idx *FileIndex) string {
	if !idx.ParseOK {
		return fmt.Sprintf("  ! %v\n", idx.ParseErr)
	}
	var b strings.Builder
	if len(idx.Imports) > 0 {
		fmt.Fprintf(&b, "  import: %s\n", strings.Join(idx.ImportNames(), ", "))
	}
	for _, c := range idx.SortedClasses() {
		if len(c.Methods) == 0 {
			fmt.Fprintf(&b, "  class %s\n", c.Name)
			continue
		}
		fmt.Fprintf(&b, "  class %s: %s\n", c.Name, strings.Join(c.MethodNames(), ", "))
	}
	if len(idx.Functions) > 0 {
		fmt.Fprintf(&b, "  fn: %s\n", strings.Join(idx.FunctionNames(), ", "))
	}
	if b.Len() == 0 {
		return "  (no symbols)\n"
	}
	return b.String()
}
