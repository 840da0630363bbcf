package requests

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magtheo/Differ-sub000/internal/change"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []change.Request
	}{
		{
			name: "changes key",
			input: `changes:
  - file: src/auth.js
    action: replace_function
    target: loginUser
    content: |
      function loginUser() {}
  - file: src/auth.js
    action: Add-Method
    class: Session
    content: "close() {}"
`,
			want: []change.Request{
				{File: "src/auth.js", Kind: change.ReplaceFunction, Target: "loginUser", Replacement: "function loginUser() {}\n"},
				{File: "src/auth.js", Kind: change.AddMethod, Class: "Session", Replacement: "close() {}"},
			},
		},
		{
			name:  "bare json list",
			input: `[{"file": "a.go", "action": "modify_line", "target": "3:ab", "content": "x := 1"}]`,
			want:  []change.Request{{File: "a.go", Kind: change.ModifyLine, Target: "3:ab", Replacement: "x := 1"}},
		},
		{
			name:  "unknown action kept",
			input: "- file: a.js\n  action: rename_symbol\n  target: a\n",
			want:  []change.Request{{File: "a.js", Kind: change.KindUnknown, Target: "a", RawAction: "rename_symbol"}},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	for name, input := range map[string]string{
		"scalar":        "just text",
		"unknown field": "- file: a.js\n  action: add_import\n  bogus: 1\n",
		"bad yaml":      "- file: [unclosed\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}
