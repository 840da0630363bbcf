// Package validate runs read-only pre-flight checks over a whole batch of
// change requests before anything is patched.
package validate

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/magtheo/Differ-sub000/internal/change"
	"github.com/magtheo/Differ-sub000/internal/grammar"
	"github.com/magtheo/Differ-sub000/internal/index"
	"github.com/magtheo/Differ-sub000/internal/resolve"
	"github.com/magtheo/Differ-sub000/internal/span"
)

const (
	DefaultConcurrentLimit = 20
	DefaultTimeout         = 5 * time.Second
)

// Files is the read-only view of the workspace a validation needs.
type Files interface {
	Exists(path string) bool
	Read(path string) (string, error)
}

// Options bounds a validation run.
type Options struct {
	// ConcurrentLimit is the largest batch checked concurrently; larger
	// batches are checked one request at a time.
	ConcurrentLimit int
	// Timeout bounds each request's check.
	Timeout time.Duration
}

// DefaultOptions returns the default bounds.
func DefaultOptions() Options {
	return Options{ConcurrentLimit: DefaultConcurrentLimit, Timeout: DefaultTimeout}
}

// Result is the verdict for one request.
type Result struct {
	Index    int
	Request  change.Request
	Valid    bool
	Errors   []*change.Error
	Warnings []*change.Error
	// Span is the resolved target when resolution ran and succeeded.
	Span       *span.Span
	Confidence resolve.Confidence
	Elapsed    time.Duration
}

func (r *Result) fail(code change.Code, format string, args ...any) {
	r.Errors = append(r.Errors, change.Errorf(code, r.Request.File, r.Index, format, args...))
}

func (r *Result) warn(code change.Code, format string, args ...any) {
	r.Warnings = append(r.Warnings, change.Errorf(code, r.Request.File, r.Index, format, args...))
}

// Summary aggregates a validation run.
type Summary struct {
	Results      []Result
	Total        int
	Valid        int
	Invalid      int
	WithWarnings int
	// Files lists the distinct files touched, in arrival order.
	Files        []string
	Elapsed      time.Duration
	OverallValid bool
}

// Orchestrator checks batches of requests against a workspace.
type Orchestrator struct {
	Host     *grammar.Host
	Resolver *resolve.Resolver
	Files    Files
	Options  Options
}

// New returns an orchestrator with default options.
func New(host *grammar.Host, r *resolve.Resolver, files Files) *Orchestrator {
	return &Orchestrator{Host: host, Resolver: r, Files: files, Options: DefaultOptions()}
}

// Validate checks every request. Small batches run concurrently, each
// request racing its own timeout; a timeout or panic only fails the request
// it happened in. Validate always waits for every request.
func (o *Orchestrator) Validate(ctx context.Context, reqs []change.Request) Summary {
	start := time.Now()
	limit := o.Options.ConcurrentLimit
	if limit <= 0 {
		limit = DefaultConcurrentLimit
	}

	results := make([]Result, len(reqs))
	if len(reqs) <= limit {
		g := new(errgroup.Group)
		g.SetLimit(limit)
		for i, req := range reqs {
			g.Go(func() error {
				results[i] = o.run(ctx, i, req)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, req := range reqs {
			results[i] = o.run(ctx, i, req)
		}
	}

	sum := summarize(results)
	sum.Elapsed = time.Since(start)
	log.Debug().
		Int("total", sum.Total).
		Int("invalid", sum.Invalid).
		Dur("elapsed", sum.Elapsed).
		Msg("validate: batch checked")
	return sum
}

func (o *Orchestrator) run(ctx context.Context, i int, req change.Request) Result {
	timeout := o.Options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				log.Error().Str("file", req.File).Int("request", i).Interface("panic", p).Msg("validate: check panicked")
				r := Result{Index: i, Request: req}
				r.fail(change.Internal, "check panicked: %v", p)
				done <- r
			}
		}()
		done <- o.check(tctx, i, req)
	}()

	var res Result
	select {
	case res = <-done:
	case <-tctx.Done():
		res = Result{Index: i, Request: req}
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			res.fail(change.ValidationTimeout, "check timed out after %s", timeout)
		} else {
			res.fail(change.Internal, "check cancelled: %v", tctx.Err())
		}
	}
	res.Valid = len(res.Errors) == 0
	res.Elapsed = time.Since(start)
	return res
}

func (o *Orchestrator) check(ctx context.Context, i int, req change.Request) Result {
	res := Result{Index: i, Request: req}
	if !structural(&res) {
		return res
	}

	exists := o.Files.Exists(req.File)
	switch {
	case req.Kind == change.CreateFile:
		if exists {
			res.warn(change.CodeNone, "file exists and will be overwritten")
		}
		return res
	case !exists && req.Kind.Creates():
		res.warn(change.MissingFile, "file does not exist and will be created")
		return res
	case !exists:
		res.fail(change.MissingFile, "file does not exist")
		return res
	}

	text, err := o.Files.Read(req.File)
	if err != nil {
		res.Errors = append(res.Errors, &change.Error{Code: change.MissingFile, File: req.File, Request: i, Msg: "read failed", Err: err})
		return res
	}
	if err := ctx.Err(); err != nil {
		return res
	}

	idx := index.BuildFile(ctx, o.Host, req.File, text)
	rr := o.Resolver.Resolve(idx, req.Kind, req.Target, req.Class)
	if !rr.Exists {
		res.Errors = append(res.Errors, &change.Error{
			Code: rr.Code, File: req.File, Request: i, Msg: rr.Reason, Suggestions: rr.Suggestions,
		})
		return res
	}
	res.Span = &rr.Span
	res.Confidence = rr.Confidence
	if len(rr.Suggestions) > 0 {
		res.Warnings = append(res.Warnings, &change.Error{
			Code: change.CodeNone, File: req.File, Request: i, Msg: rr.Reason, Suggestions: rr.Suggestions,
		})
	}
	return res
}

// structural runs the checks that need no file access and reports whether
// the request is worth checking further.
func structural(res *Result) bool {
	req := res.Request
	if req.Kind == change.KindUnknown {
		name := req.RawAction
		if name == "" {
			name = req.Kind.String()
		}
		res.fail(change.UnsupportedAction, "unsupported action %q", name)
		return false
	}
	if req.File == "" {
		res.fail(change.MissingFile, "%s names no file", req.Kind)
	}
	if req.Kind.NeedsClass() && req.Class == "" {
		res.fail(change.MissingClass, "%s requires a class", req.Kind)
	}
	if req.Kind.NeedsTarget() && req.Target == "" {
		res.fail(change.MissingTarget, "%s requires a target", req.Kind)
	}
	switch req.Kind {
	case change.ReplaceFunction, change.ReplaceMethod, change.ReplaceBlock:
		if req.Replacement == "" {
			res.warn(change.CodeNone, "empty content deletes the target")
		}
	case change.AddImport, change.AddFunction, change.AddStruct, change.AddEnum,
		change.AddMethod, change.InsertAfter, change.InsertBefore, change.CreateFile:
		if req.Replacement == "" {
			res.warn(change.CodeNone, "%s has no content", req.Kind)
		}
	}
	return len(res.Errors) == 0
}

func summarize(results []Result) Summary {
	sum := Summary{Results: results, Total: len(results)}
	seen := make(map[string]bool)
	for _, r := range results {
		if r.Valid {
			sum.Valid++
		} else {
			sum.Invalid++
		}
		if len(r.Warnings) > 0 {
			sum.WithWarnings++
		}
		if r.Request.File == "" {
			continue
		}
		if f := filepath.Clean(r.Request.File); !seen[f] {
			seen[f] = true
			sum.Files = append(sum.Files, f)
		}
	}
	sum.OverallValid = sum.Invalid == 0
	return sum
}
