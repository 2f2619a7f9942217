// Package anvil reads region containers: 32x32 grids of chunks, each stored
// as a compressed tag tree in 4 KiB sectors.
package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	mcregion "github.com/Tnze/go-mc/save/region"
)

var (
	// ErrIO is returned when container (or external chunk) cannot be read.
	ErrIO = errors.New("container is unreadable")
	// ErrContainerFormat is returned for corrupt header, offset table or
	// chunk record.
	ErrContainerFormat = errors.New("malformed container")
)

const (
	// GridSize is number of chunks along each side of container.
	GridSize   = 32
	sectorSize = 4096
	headerSize = 2 * sectorSize
)

// File is a parsed region container held in memory. It never writes back.
type File struct {
	name string
	data []byte
	rg   *mcregion.Region

	// directory with external chunk files, empty when not available
	external string
	rx, rz   int
	hasPos   bool
}

// memFile adapts in-memory container to what region reader expects.
type memFile struct {
	*bytes.Reader
}

func (memFile) Write([]byte) (int, error) {
	return 0, errors.New("region container is read-only")
}

// Load parses container content. Empty data is a valid container without
// chunks.
func Load(name string, data []byte) (*File, error) {
	f := &File{name: name, data: data}
	f.rx, f.rz, f.hasPos = RegionPos(name)
	if len(data) == 0 {
		return f, nil
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %s: header is truncated (%d bytes)", ErrContainerFormat, name, len(data))
	}
	rg, err := mcregion.Load(memFile{bytes.NewReader(data)})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContainerFormat, name, err)
	}
	f.rg = rg
	return f, nil
}

// OpenFile reads container from disk. External chunk files are looked up
// next to it.
func OpenFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	f, err := Load(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	f.external = filepath.Dir(path)
	return f, nil
}

// Name returns container name as it was loaded.
func (f *File) Name() string {
	return f.name
}

// Exists reports whether chunk at container-local position is present.
func (f *File) Exists(x, z int) bool {
	if f.rg == nil || x < 0 || x >= GridSize || z < 0 || z >= GridSize {
		return false
	}
	return f.rg.ExistSector(x, z)
}

// Count returns number of present chunks.
func (f *File) Count() int {
	var n int
	for z := range GridSize {
		for x := range GridSize {
			if f.Exists(x, z) {
				n++
			}
		}
	}
	return n
}

// Chunk returns reader with decompressed tag tree of chunk at
// container-local position.
func (f *File) Chunk(x, z int) (io.Reader, error) {
	if !f.Exists(x, z) {
		return nil, fmt.Errorf("%w: %s: no chunk at [%d, %d]", os.ErrNotExist, f.name, x, z)
	}
	if err := f.checkRecord(x, z); err != nil {
		return nil, err
	}
	rec, err := f.rg.ReadSector(x, z)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: chunk [%d, %d]: %w", ErrContainerFormat, f.name, x, z, err)
	}
	if len(rec) == 0 {
		return nil, fmt.Errorf("%w: %s: chunk [%d, %d]: empty record", ErrContainerFormat, f.name, x, z)
	}

	method, payload := rec[0], rec[1:]
	if method&externalFlag != 0 {
		if payload, err = f.readExternal(x, z); err != nil {
			return nil, err
		}
		method &^= externalFlag
	}
	r, err := decompress(method, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: chunk [%d, %d]: %w", ErrContainerFormat, f.name, x, z, err)
	}
	return r, nil
}

// Chunks calls fn for every present chunk in container order (x changes
// fastest). Iteration stops on first error.
func (f *File) Chunks(fn func(x, z int, r io.Reader) error) error {
	for z := range GridSize {
		for x := range GridSize {
			if !f.Exists(x, z) {
				continue
			}
			r, err := f.Chunk(x, z)
			if err != nil {
				return err
			}
			if err := fn(x, z, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkRecord makes sure record length prefix points inside the container
// before region reader allocates for it.
func (f *File) checkRecord(x, z int) error {
	loc := binary.BigEndian.Uint32(f.data[4*(x+GridSize*z):])
	offset := int64(loc>>8) * sectorSize
	if offset < headerSize || offset+4 > int64(len(f.data)) {
		return fmt.Errorf("%w: %s: chunk [%d, %d] points outside of container (sector %d)", ErrContainerFormat, f.name, x, z, loc>>8)
	}
	length := int64(int32(binary.BigEndian.Uint32(f.data[offset:])))
	if length <= 0 || offset+4+length > int64(len(f.data)) {
		return fmt.Errorf("%w: %s: chunk [%d, %d] has bad length %d", ErrContainerFormat, f.name, x, z, length)
	}
	return nil
}

func (f *File) readExternal(x, z int) ([]byte, error) {
	if len(f.external) == 0 || !f.hasPos {
		return nil, fmt.Errorf("%w: %s: chunk [%d, %d] is stored externally and cannot be located", ErrContainerFormat, f.name, x, z)
	}
	name := fmt.Sprintf("c.%d.%d.mcc", f.rx*GridSize+x, f.rz*GridSize+z)
	data, err := os.ReadFile(filepath.Join(f.external, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIO, f.name, err)
	}
	return data, nil
}

// RegionPos extracts region coordinates from container name "r.<x>.<z>.mca".
func RegionPos(name string) (rx, rz int, ok bool) {
	parts := strings.Split(filepath.Base(filepath.FromSlash(name)), ".")
	if len(parts) != 4 || parts[0] != "r" {
		return 0, 0, false
	}
	var err error
	if rx, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, false
	}
	if rz, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, false
	}
	return rx, rz, true
}
