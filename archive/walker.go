// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/maruel/natural"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to
// Walk. The file argument is the zip.File structure for file in archive which
// satisfies match condition. If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// MatchFunc decides if file with given base name should be visited.
type MatchFunc func(base string) bool

// Walk visits regular files located directly in dir inside the archive and
// calls walkFn for each one whose base name satisfies match. A world packed
// together with its top level folder is handled too: any entry whose parent
// directory ends with "/"+dir qualifies, and when several such directories
// exist the one closest to archive root wins. Files are visited in natural order
// of their names so "r.2.0" comes before "r.10.0". Empty dir selects archive
// root, nil match selects everything.
//
// Archives with entries using absolute paths or ".." components are rejected.
func Walk(archive, dir string, match MatchFunc, walkFn WalkFunc) error {

	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	dir = strings.Trim(path.Clean("/"+strings.ReplaceAll(dir, `\`, "/")), "/")

	var (
		selected []*zip.File
		depth    = -1
	)
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !inDir(name, dir) {
			continue
		}
		if match != nil && !match(path.Base(name)) {
			continue
		}
		d := strings.Count(name, "/")
		switch {
		case depth < 0 || d < depth:
			depth = d
			selected = append(selected[:0], f)
		case d == depth:
			selected = append(selected, f)
		}
	}

	slices.SortStableFunc(selected, func(a, b *zip.File) int {
		switch {
		case natural.Less(a.Name, b.Name):
			return -1
		case natural.Less(b.Name, a.Name):
			return 1
		}
		return 0
	})

	for _, f := range selected {
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

func inDir(name, dir string) bool {
	parent := path.Dir(name)
	if parent == "." {
		parent = ""
	}
	if dir == "" {
		return parent == ""
	}
	return parent == dir || strings.HasSuffix(parent, "/"+dir)
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
