package sample

import (
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// Walk yields every regular, non-hidden file under root in lexical path
// order. A root that is itself a file yields just that file. The sequence
// is lazy and can be ranged over again to restart the walk.
func Walk(root string) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		info, err := os.Stat(root)
		if err != nil {
			yield(File{}, &InvalidInputError{Path: root, Reason: "does not exist", Cause: err})
			return
		}
		if info.Mode().IsRegular() {
			yield(File{Path: root, Rel: filepath.Base(root), Size: info.Size()}, nil)
			return
		}
		if !info.IsDir() {
			yield(File{}, &InvalidInputError{Path: root, Reason: "not a file or directory"})
			return
		}

		stopped := false
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(File{}, err) {
					stopped = true
					return filepath.SkipAll
				}
				return nil
			}
			if path != root && IsHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				if !yield(File{}, err) {
					stopped = true
					return filepath.SkipAll
				}
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = d.Name()
			}
			if !yield(File{Path: path, Rel: filepath.ToSlash(rel), Size: fi.Size()}, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(File{}, err)
		}
	}
}

// Collect drains a walk, stopping at the first error.
func Collect(seq iter.Seq2[File, error]) ([]File, error) {
	var files []File
	for f, err := range seq {
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// IsHidden reports whether a base name is a dotfile. Partial outputs and
// intermediates are hidden, so walks never pick them up.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Nested reports whether dir lies strictly inside root.
func Nested(dir, root string) bool {
	rel, ok := relTo(root, dir)
	return ok && rel != "."
}

// SameDir reports whether a and b name the same directory.
func SameDir(a, b string) bool {
	if rel, ok := relTo(a, b); ok && rel == "." {
		return true
	}
	ai, errA := os.Stat(a)
	bi, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(ai, bi)
}

// ExcludeDir drops files under dir, so an output folder nested in the
// walked tree is never read back as input.
func ExcludeDir(files []File, dir string) []File {
	kept := files[:0]
	for _, f := range files {
		if rel, ok := relTo(dir, f.Path); !ok || rel == "." {
			kept = append(kept, f)
		}
	}
	return kept
}

// relTo returns path relative to base when path is base or below it.
func relTo(base, path string) (string, bool) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
