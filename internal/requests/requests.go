// Package requests decodes change files: a YAML or JSON list of change
// requests, either bare or under a top-level "changes" key.
//
//	changes:
//	  - file: src/auth.js
//	    action: replace_function
//	    target: loginUser
//	    content: |
//	      function loginUser(name) { ... }
package requests

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/magtheo/Differ-sub000/internal/change"
)

type wireRequest struct {
	File    string `yaml:"file"`
	Action  string `yaml:"action"`
	Target  string `yaml:"target"`
	Class   string `yaml:"class"`
	Content string `yaml:"content"`
}

type wireFile struct {
	Changes []wireRequest `yaml:"changes"`
}

// Decode reads every request from r. Unknown actions do not fail decoding;
// they come back as change.KindUnknown with RawAction set, so validation can
// report them per request.
func Decode(r io.Reader) ([]change.Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read change file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse change file: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var wire []wireRequest
	switch root.Content[0].Kind {
	case yaml.SequenceNode:
		err = dec.Decode(&wire)
	case yaml.MappingNode:
		var f wireFile
		err = dec.Decode(&f)
		wire = f.Changes
	default:
		return nil, errors.New("parse change file: expected a list of changes or a changes: key")
	}
	if err != nil {
		return nil, fmt.Errorf("parse change file: %w", err)
	}

	out := make([]change.Request, len(wire))
	for i, w := range wire {
		out[i] = change.Request{
			File:        w.File,
			Target:      w.Target,
			Class:       w.Class,
			Replacement: w.Content,
		}
		if k, err := change.ParseKind(w.Action); err == nil {
			out[i].Kind = k
		} else {
			out[i].RawAction = w.Action
		}
	}
	return out, nil
}

// Load decodes the change file at path; "-" reads standard input.
func Load(path string) ([]change.Request, error) {
	if path == "-" {
		return Decode(os.Stdin)
	}
	//nolint:gosec // G304: path given by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
