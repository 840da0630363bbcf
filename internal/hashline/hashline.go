// Package hashline addresses single lines by number plus a short content hash.
//
// modify_line requests name their target as "12" or "12:ab". When a hash is
// given it must match the current content of that line, so a request written
// against an older snapshot is rejected instead of editing the wrong line.
package hashline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// HashLen is the number of hex characters per line hash.
const HashLen = 2

// LineHash computes the short content hash of a line. Trailing carriage
// returns are ignored so CRLF files hash like LF files.
func LineHash(line string) string {
	h := sha256.Sum256([]byte(strings.TrimSuffix(line, "\r")))
	return hex.EncodeToString(h[:1])
}

// TaggedLine is a line with its number and content hash.
type TaggedLine struct {
	Num     int
	Hash    string
	Content string
}

// Tag formats the line as "num:hash|content".
func (t TaggedLine) Tag() string {
	return fmt.Sprintf("%d:%s|%s", t.Num, t.Hash, t.Content)
}

// TagLines tags every line of content, numbering from 1.
func TagLines(content string) []TaggedLine {
	lines := strings.Split(content, "\n")
	tagged := make([]TaggedLine, len(lines))
	for i, line := range lines {
		tagged[i] = TaggedLine{Num: i + 1, Hash: LineHash(line), Content: line}
	}
	return tagged
}

// FormatTagged joins tagged lines with newlines.
func FormatTagged(tagged []TaggedLine) string {
	var b strings.Builder
	for i, t := range tagged {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t.Tag())
	}
	return b.String()
}

// HashMismatchError is returned when a ref's hash no longer matches its line.
type HashMismatchError struct {
	Line     int
	Expected string
	Got      string
	Content  string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch at line %d: expected %s, got %s (actual: %q)", e.Line, e.Expected, e.Got, e.Content)
}

// Ref identifies a line by number and, optionally, hash.
type Ref struct {
	Line int
	Hash string
}

func (r Ref) String() string {
	if r.Hash == "" {
		return strconv.Itoa(r.Line)
	}
	return fmt.Sprintf("%d:%s", r.Line, r.Hash)
}

// ParseRef parses "12", "L12" or "12:ab".
func ParseRef(s string) (Ref, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "L")
	num, hash, hasHash := strings.Cut(s, ":")
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return Ref{}, fmt.Errorf("invalid line ref %q: expected line or line:hash", s)
	}
	if !hasHash {
		return Ref{Line: n}, nil
	}
	if len(hash) != HashLen {
		return Ref{}, fmt.Errorf("invalid line ref %q: hash must be %d hex chars", s, HashLen)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return Ref{}, fmt.Errorf("invalid line ref %q: hash is not hex", s)
	}
	return Ref{Line: n, Hash: strings.ToLower(hash)}, nil
}

// Validate checks the ref against 0-indexed lines.
func (r Ref) Validate(lines []string) error {
	idx := r.Line - 1
	if idx < 0 || idx >= len(lines) {
		return fmt.Errorf("line %d out of range (file has %d lines)", r.Line, len(lines))
	}
	if r.Hash == "" {
		return nil
	}
	if actual := LineHash(lines[idx]); actual != r.Hash {
		return &HashMismatchError{Line: r.Line, Expected: r.Hash, Got: actual, Content: lines[idx]}
	}
	return nil
}
