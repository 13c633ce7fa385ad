package discovery

import (
	"errors"
	"io/fs"
	"iter"
	"path"
	"path/filepath"
	"strings"

	"github.com/km-arc/service-annotations/framework/bundles"
)

// DefaultExcludes are directory names never descended into.
var DefaultExcludes = []string{"tests", "Tests", "testdata", "DependencyInjection", "Resources"}

// Candidate is a source file that may declare a service type.
type Candidate struct {
	Bundle string
	// File is the path on disk.
	File string
	// Package is the import path of the file's directory.
	Package string
	// Stem is the file name without extension; it names the expected type.
	Stem string
}

// Locator enumerates candidate files under bundle roots.
type Locator struct {
	excludes map[string]bool
}

// NewLocator creates a Locator skipping the given directory names, or
// DefaultExcludes when none are given.
func NewLocator(excludes ...string) *Locator {
	if len(excludes) == 0 {
		excludes = DefaultExcludes
	}
	l := &Locator{excludes: make(map[string]bool, len(excludes))}
	for _, e := range excludes {
		l.excludes[e] = true
	}
	return l
}

var errStopWalk = errors.New("stop walk")

// Candidates lazily walks one bundle. The sequence can be ranged over again to
// restart the walk. Vendored bundles yield nothing. A walk error is yielded
// once and ends the sequence.
func (l *Locator) Candidates(b bundles.Bundle) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		if b.IsVendored() {
			return
		}

		root := filepath.Clean(b.Path)
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != root && l.skipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !isSourceFile(d.Name()) {
				return nil
			}

			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			if !yield(newCandidate(b, p, rel), nil) {
				return errStopWalk
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopWalk) {
			yield(Candidate{}, err)
		}
	}
}

func (l *Locator) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	return l.excludes[name]
}

func isSourceFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

func newCandidate(b bundles.Bundle, file, rel string) Candidate {
	rel = filepath.ToSlash(rel)
	dir := path.Dir(rel)

	pkg := b.Namespace
	if dir != "." {
		pkg = b.Namespace + "/" + dir
	}
	return Candidate{
		Bundle:  b.Name,
		File:    file,
		Package: pkg,
		Stem:    strings.TrimSuffix(path.Base(rel), ".go"),
	}
}
