// Package discovery enumerates the media files below an upload root.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions are the video containers the upload command selects unless told otherwise.
var DefaultExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".flv"}

// Item is a file selected for transfer
type Item struct {
	LocalPath string // Absolute path
	RelPath   string // Slash-separated path relative to root
	Size      int64
}

// Options controls which files Discover selects
type Options struct {
	Extensions []string
	Excludes   []string

	// BestEffort records unreadable directories as warnings instead of failing.
	BestEffort bool
}

// Result holds the selected items in RelPath order
type Result struct {
	Root     string
	Items    []Item
	Warnings []*TraversalError
}

// TotalSize returns the sum of all item sizes
func (r *Result) TotalSize() int64 {
	var total int64
	for _, item := range r.Items {
		total += item.Size
	}
	return total
}

// InvalidRootError is returned when the root is missing or not a directory
type InvalidRootError struct {
	Root string
	Err  error
}

func (e *InvalidRootError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid root %s: %v", e.Root, e.Err)
	}
	return fmt.Sprintf("invalid root %s: not a directory", e.Root)
}

func (e *InvalidRootError) Unwrap() error {
	return e.Err
}

// TraversalError is returned when part of the tree cannot be read during the walk
type TraversalError struct {
	Path string
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("walk %s: %v", e.Path, e.Err)
}

func (e *TraversalError) Unwrap() error {
	return e.Err
}

// Discover walks root and returns the regular files whose extension is in opts.Extensions.
func Discover(root string, opts Options) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &InvalidRootError{Root: root, Err: err}
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, &InvalidRootError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &InvalidRootError{Root: root}
	}

	// WalkDir does not descend into a symlinked root, so walk its target.
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, &InvalidRootError{Root: root, Err: err}
	}

	result := &Result{Root: realRoot, Items: []Item{}}

	extensions := NormalizeExtensions(opts.Extensions)
	if len(extensions) == 0 {
		return result, nil
	}

	for _, pattern := range opts.Excludes {
		if !doublestar.ValidatePattern(strings.TrimSuffix(pattern, "/")) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", pattern)
		}
	}

	w := &walker{
		root:       realRoot,
		extensions: extensions,
		excludes:   opts.Excludes,
		bestEffort: opts.BestEffort,
		result:     result,
	}
	if err := filepath.WalkDir(realRoot, w.visit); err != nil {
		return nil, err
	}

	sort.Slice(result.Items, func(i, j int) bool {
		return result.Items[i].RelPath < result.Items[j].RelPath
	})

	return result, nil
}

// NormalizeExtensions lowercases the extensions, adds a missing leading dot and drops duplicates.
func NormalizeExtensions(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

type walker struct {
	root       string
	extensions map[string]struct{}
	excludes   []string
	bestEffort bool
	result     *Result
}

func (w *walker) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		if path == w.root {
			return &InvalidRootError{Root: w.root, Err: err}
		}
		terr := &TraversalError{Path: path, Err: err}
		if !w.bestEffort {
			return terr
		}
		w.result.Warnings = append(w.result.Warnings, terr)
		if d != nil && d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	if path == w.root {
		return nil
	}

	relPath, err := filepath.Rel(w.root, path)
	if err != nil {
		return fmt.Errorf("get relative path: %w", err)
	}
	relPath = filepath.ToSlash(relPath)

	if d.IsDir() {
		if w.isExcludedDir(relPath) {
			return filepath.SkipDir
		}
		return nil
	}

	if !w.hasExtension(d.Name()) || w.isExcluded(relPath) {
		return nil
	}

	var info fs.FileInfo
	switch {
	case d.Type().IsRegular():
		info, err = d.Info()
	case d.Type()&fs.ModeSymlink != 0:
		info, err = w.resolveLink(path)
		if err == nil && info == nil {
			return nil
		}
	default:
		return nil
	}
	if err != nil {
		terr := &TraversalError{Path: path, Err: err}
		if !w.bestEffort {
			return terr
		}
		w.result.Warnings = append(w.result.Warnings, terr)
		return nil
	}

	w.result.Items = append(w.result.Items, Item{
		LocalPath: path,
		RelPath:   relPath,
		Size:      info.Size(),
	})
	return nil
}

// resolveLink returns the target info of a symlink that points at a regular
// file inside the root, or nil when the link must be ignored.
func (w *walker) resolveLink(path string) (fs.FileInfo, error) {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		// dangling link
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	rel, err := filepath.Rel(w.root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, nil
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	return info, nil
}

func (w *walker) hasExtension(name string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// isExcluded checks if a file path matches any exclude pattern
func (w *walker) isExcluded(path string) bool {
	for _, pattern := range w.excludes {
		if strings.HasSuffix(pattern, "/") {
			continue
		}
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// isExcludedDir checks if a directory matches a directory pattern (ending with /)
func (w *walker) isExcludedDir(path string) bool {
	for _, pattern := range w.excludes {
		if !strings.HasSuffix(pattern, "/") {
			continue
		}
		if matched, _ := doublestar.Match(strings.TrimSuffix(pattern, "/"), path); matched {
			return true
		}
	}
	return false
}
