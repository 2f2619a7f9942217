package anvil

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/maruel/natural"

	"chunkscan/archive"
)

// Container is one region container found by Source. It is owned by whoever
// received it last and should not be shared.
type Container struct {
	// Name identifies container within its source.
	Name string
	// Path on disk, empty for archive entries.
	Path    string
	Size    int64
	ModTime time.Time

	data     []byte
	err      error
	external string
}

// Open loads and parses container. Preloaded content is released.
func (c *Container) Open() (*File, error) {
	if c.err != nil {
		return nil, c.err
	}
	data := c.data
	c.data = nil
	if data == nil && len(c.Path) > 0 {
		var err error
		if data, err = os.ReadFile(c.Path); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
	}
	f, err := Load(c.Name, data)
	if err != nil {
		return nil, err
	}
	f.external = c.external
	return f, nil
}

// Source enumerates region containers.
type Source interface {
	// Containers calls fn for every container in source order. Error from fn
	// or from enumeration itself stops the walk and is returned.
	Containers(ctx context.Context, fn func(*Container) error) error
	fmt.Stringer
}

func checkPatterns(patterns []string) error {
	if len(patterns) == 0 {
		return fmt.Errorf("no container patterns")
	}
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("bad container pattern %q: %w", p, err)
		}
	}
	return nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

// DirSource lists containers in a directory. Chunks stored externally are
// found in the same directory.
type DirSource struct {
	Dir      string
	Patterns []string
}

func (s *DirSource) String() string {
	return s.Dir
}

func (s *DirSource) Containers(ctx context.Context, fn func(*Container) error) error {
	if err := checkPatterns(s.Patterns); err != nil {
		return err
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return fmt.Errorf("unable to read region directory: %w", err)
	}

	var containers []*Container
	for _, e := range entries {
		if !e.Type().IsRegular() || !matchAny(s.Patterns, e.Name()) {
			continue
		}
		c := &Container{
			Name:     e.Name(),
			Path:     filepath.Join(s.Dir, e.Name()),
			external: s.Dir,
		}
		if info, err := e.Info(); err != nil {
			// vanished or unreadable, let worker report it
			c.err = fmt.Errorf("%w: %w", ErrIO, err)
		} else {
			c.Size, c.ModTime = info.Size(), info.ModTime()
		}
		containers = append(containers, c)
	}
	slices.SortFunc(containers, func(a, b *Container) int {
		return compareNames(a.Name, b.Name)
	})

	for _, c := range containers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// ArchiveSource lists containers inside zip archive. Archive is open only
// while enumerating so content of every container is read upfront.
type ArchiveSource struct {
	Archive string
	// Dir is directory inside archive, world may be packed under top level
	// folder in which case it is found as well.
	Dir      string
	Patterns []string
}

func (s *ArchiveSource) String() string {
	if len(s.Dir) == 0 {
		return s.Archive
	}
	return s.Archive + ":" + s.Dir
}

func (s *ArchiveSource) Containers(ctx context.Context, fn func(*Container) error) error {
	if err := checkPatterns(s.Patterns); err != nil {
		return err
	}
	match := func(base string) bool {
		return matchAny(s.Patterns, base)
	}
	err := archive.Walk(s.Archive, s.Dir, match, func(_ string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := &Container{
			Name:    f.Name,
			Size:    int64(f.UncompressedSize64),
			ModTime: f.Modified,
		}
		c.data, c.err = readEntry(f)
		return fn(c)
	})
	if err != nil {
		return fmt.Errorf("unable to walk archive: %w", err)
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return data, nil
}

func compareNames(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return 0
}
