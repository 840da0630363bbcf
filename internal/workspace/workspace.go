// Package workspace is the file-system side of a batch: it reads snapshots
// and commits new content, confined to one root directory.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the workspace root.
var ErrOutsideRoot = errors.New("access denied: path outside workspace root")

// Workspace confines reads and writes to Root.
type Workspace struct {
	root string
}

// New returns a workspace rooted at root, which must be an existing directory.
// An empty root means the working directory.
func New(root string) (*Workspace, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid root path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute root directory.
func (w *Workspace) Root() string { return w.root }

// Path resolves file against the root and rejects anything outside it.
func (w *Workspace) Path(file string) (string, error) {
	var abs string
	if filepath.IsAbs(file) {
		abs = file
	} else {
		abs = filepath.Join(w.root, file)
	}
	abs, err := filepath.Abs(abs)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%s: %w", file, ErrOutsideRoot)
	}
	return abs, nil
}

// Exists reports whether file is a regular file inside the root.
func (w *Workspace) Exists(file string) bool {
	abs, err := w.Path(file)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Read returns the exact bytes of file.
func (w *Workspace) Read(file string) (string, error) {
	abs, err := w.Path(file)
	if err != nil {
		return "", err
	}
	//nolint:gosec // G304: path confined to the workspace root
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write atomically replaces file with content, creating parent directories
// as needed and keeping the mode of an existing file.
func (w *Workspace) Write(file, content string) error {
	abs, err := w.Path(file)
	if err != nil {
		return err
	}
	var mode os.FileMode
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	return writeAtomic(abs, []byte(content), mode)
}

// MaxWalkFileSize is the largest file Files returns.
const MaxWalkFileSize = 10 * 1024 * 1024

// Files lists the regular files under dir, relative to the root and sorted,
// for which keep returns true. .git and paths ignored by the root
// .gitignore are skipped, as are files over MaxWalkFileSize. A nil keep
// keeps everything.
func (w *Workspace) Files(ctx context.Context, dir string, keep func(rel string) bool) ([]string, error) {
	start, err := w.Path(dir)
	if err != nil {
		return nil, err
	}
	rules, err := loadIgnore(filepath.Join(w.root, ".gitignore"))
	if err != nil {
		return nil, fmt.Errorf("read .gitignore: %w", err)
	}

	var files []string
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if d.Name() == ".git" || rules.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || rules.Match(rel, false) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > MaxWalkFileSize {
			return nil
		}
		if keep == nil || keep(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
