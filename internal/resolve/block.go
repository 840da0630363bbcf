package resolve

import (
	"fmt"
	"strings"

	"github.com/magtheo/Differ-sub000/internal/change"
	"github.com/magtheo/Differ-sub000/internal/index"
)

// oversized reports whether a matched node of rawLen bytes is too large to
// stand in for a target of targetLen bytes.
func oversized(rawLen, targetLen int) bool {
	return rawLen > 2*targetLen+200
}

type blockMatch struct {
	found      bool
	start, end int
	code       change.Code
	reason     string
}

// findBlock finds the smallest named node whose whitespace-normalized text
// contains the normalized target, then narrows the span to the exact bytes
// that matched inside it.
func findBlock(idx *index.FileIndex, target string) blockMatch {
	want := normalize(target)
	if want == "" {
		return blockMatch{code: change.TargetNotFound, reason: "empty block target"}
	}
	root := idx.Blocks()
	if root == nil {
		return blockMatch{code: change.TargetNotFound, reason: "file has no syntax tree"}
	}
	node := deepest(root, idx.Text, want)
	if node == nil {
		return blockMatch{code: change.TargetNotFound, reason: "block not found"}
	}

	raw := node.Span.Slice(idx.Text)
	if oversized(len(raw), len(target)) {
		reason := fmt.Sprintf("smallest enclosing %s is %d bytes for a %d byte target", node.Kind, len(raw), len(target))
		return blockMatch{code: change.AmbiguousOrOversizedMatch, reason: reason}
	}

	norm, at := normalizeMap(raw)
	i := strings.Index(norm, want)
	if i < 0 {
		return blockMatch{code: change.Internal, reason: "normalized match vanished"}
	}
	base := node.Span.Start.Offset
	return blockMatch{
		found: true,
		start: base + at[i],
		end:   base + at[i+len(want)-1] + 1,
	}
}

func deepest(b *index.Block, text, want string) *index.Block {
	if !strings.Contains(normalize(b.Span.Slice(text)), want) {
		return nil
	}
	for _, c := range b.Children {
		if d := deepest(c, text, want); d != nil {
			return d
		}
	}
	return b
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func normalize(s string) string {
	n, _ := normalizeMap(s)
	return n
}

// normalizeMap collapses whitespace runs to one space and trims both ends.
// at[i] is the byte offset in s of the i-th byte of the result; collapsed
// spaces map to the first byte after the run.
func normalizeMap(s string) (string, []int) {
	out := make([]byte, 0, len(s))
	at := make([]int, 0, len(s))
	pending := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSpace(c) {
			pending = len(out) > 0
			continue
		}
		if pending {
			out = append(out, ' ')
			at = append(at, i)
			pending = false
		}
		out = append(out, c)
		at = append(at, i)
	}
	return string(out), at
}
