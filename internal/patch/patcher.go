package patch

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/magtheo/Differ-sub000/internal/change"
	"github.com/magtheo/Differ-sub000/internal/grammar"
	"github.com/magtheo/Differ-sub000/internal/index"
	"github.com/magtheo/Differ-sub000/internal/resolve"
)

// Source supplies the current content of files.
type Source interface {
	Exists(path string) bool
	Read(path string) (string, error)
}

// Sink commits new file content.
type Sink interface {
	Write(path, content string) error
}

// FileResult is the outcome for one file. Err is nil on success.
type FileResult struct {
	File      string
	Original  string
	Content   string
	Changed   bool
	Created   bool
	Committed bool // the sink accepted Content
	Edits     []change.Edit
	Err       *change.Error
}

// BatchResult lists file results in request arrival order.
type BatchResult struct {
	Files []FileResult
}

// Failed returns the number of files that were not patched.
func (b BatchResult) Failed() int {
	n := 0
	for _, f := range b.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// OK reports whether every file was patched.
func (b BatchResult) OK() bool { return b.Failed() == 0 }

// Patcher resolves and applies the requests of a batch file by file.
type Patcher struct {
	Host     *grammar.Host
	Resolver *resolve.Resolver
}

// New returns a patcher.
func New(host *grammar.Host, r *resolve.Resolver) *Patcher {
	return &Patcher{Host: host, Resolver: r}
}

// PatchFile resolves reqs against text and applies them. Any request that
// fails to resolve fails the whole file; nothing is partially applied.
func (p *Patcher) PatchFile(ctx context.Context, file, text string, exists bool, reqs []change.Indexed) FileResult {
	res := FileResult{File: file, Original: text, Content: text}
	if len(reqs) == 0 {
		return res
	}

	if len(reqs) > 1 {
		for _, r := range reqs {
			if r.Request.Kind == change.CreateFile {
				res.Err = change.Errorf(change.CreateFileConflict, file, r.Index,
					"create_file cannot be combined with %d other requests", len(reqs)-1)
				return res
			}
		}
	}

	if reqs[0].Request.Kind == change.CreateFile {
		res.Edits = []change.Edit{{File: file, Kind: change.CreateFile, Replacement: reqs[0].Request.Replacement, Request: reqs[0].Index}}
		res.Content = reqs[0].Request.Replacement
		res.Created = !exists
		res.Changed = !exists || res.Content != text
		return res
	}

	if !exists {
		for _, r := range reqs {
			if !r.Request.Kind.Creates() {
				res.Err = change.Errorf(change.MissingFile, file, r.Index, "%s needs an existing file", r.Request.Kind)
				return res
			}
		}
		text = ""
		res.Original, res.Content, res.Created = "", "", true
	}

	idx := index.BuildFile(ctx, p.Host, file, text)
	edits := make([]change.Edit, 0, len(reqs))
	for _, r := range reqs {
		if err := ctx.Err(); err != nil {
			res.Err = &change.Error{Code: change.Internal, File: file, Request: r.Index, Msg: "cancelled", Err: err}
			return res
		}
		edit, rr := p.Resolver.ResolveRequest(idx, r)
		if !rr.Exists {
			res.Err = &change.Error{Code: rr.Code, File: file, Request: r.Index, Msg: rr.Reason, Suggestions: rr.Suggestions}
			return res
		}
		edit.File = file
		edits = append(edits, edit)
	}

	out, err := Apply(text, edits)
	if err != nil {
		res.Err = asChangeError(err, file)
		return res
	}
	res.Edits = edits
	res.Content = out
	res.Changed = res.Created || out != text
	return res
}

// PatchBatch patches every file named by reqs in arrival order. Each file
// commits to sink on its own; a failure never touches other files. A nil
// sink patches in memory only. Once ctx is done, remaining files are left
// untouched and reported as cancelled.
func (p *Patcher) PatchBatch(ctx context.Context, reqs []change.Request, src Source, sink Sink) BatchResult {
	order, groups := change.GroupByFile(reqs)
	out := BatchResult{Files: make([]FileResult, 0, len(order))}

	for _, file := range order {
		group := groups[file]
		if err := ctx.Err(); err != nil {
			out.Files = append(out.Files, FileResult{
				File: file,
				Err:  &change.Error{Code: change.Internal, File: file, Request: group[0].Index, Msg: "cancelled", Err: err},
			})
			continue
		}

		exists := src.Exists(file)
		var text string
		if exists {
			var err error
			if text, err = src.Read(file); err != nil {
				out.Files = append(out.Files, FileResult{
					File: file,
					Err:  &change.Error{Code: change.MissingFile, File: file, Request: group[0].Index, Msg: "read failed", Err: err},
				})
				continue
			}
		}

		res := p.PatchFile(ctx, file, text, exists, group)
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("file", file).Msg("patch: file rejected")
			out.Files = append(out.Files, res)
			continue
		}
		if sink != nil && res.Changed {
			if err := sink.Write(file, res.Content); err != nil {
				log.Error().Err(err).Str("file", file).Msg("patch: commit failed")
				res.Err = &change.Error{Code: change.Internal, File: file, Request: -1, Msg: "write failed", Err: err}
				out.Files = append(out.Files, res)
				continue
			}
			res.Committed = true
			log.Debug().Str("file", file).Int("edits", len(res.Edits)).Bool("created", res.Created).Msg("patch: committed")
		}
		out.Files = append(out.Files, res)
	}
	return out
}

func asChangeError(err error, file string) *change.Error {
	var ce *change.Error
	if errors.As(err, &ce) {
		return ce
	}
	return &change.Error{Code: change.Internal, File: file, Request: -1, Err: err}
}
