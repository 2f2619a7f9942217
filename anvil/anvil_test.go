package anvil

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"chunkscan/internal/fixture"
)

type visit struct {
	x, z int
	data []byte
}

func collect(t *testing.T, f *File) ([]visit, error) {
	t.Helper()
	var got []visit
	err := f.Chunks(func(x, z int, r io.Reader) error {
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		got = append(got, visit{x, z, data})
		return nil
	})
	return got, err
}

func TestLoad_Empty(t *testing.T) {
	f, err := Load("r.0.0.mca", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Count() != 0 {
		t.Errorf("Count() = %d, want 0", f.Count())
	}
	got, err := collect(t, f)
	if err != nil || len(got) != 0 {
		t.Errorf("Chunks() visited %d, error = %v", len(got), err)
	}
}

func TestLoad_TruncatedHeader(t *testing.T) {
	data := fixture.NewRegion().Put(0, 0, fixture.CompressionZlib, fixture.Chunk(0, 0, 1, 0)).Bytes()

	for _, size := range []int{1, 100, 4096, headerSize - 1} {
		_, err := Load("r.0.0.mca", data[:size])
		if !errors.Is(err, ErrContainerFormat) {
			t.Errorf("Load() of %d bytes error = %v, want ErrContainerFormat", size, err)
		}
	}
}

func TestChunks_Compression(t *testing.T) {
	tree := fixture.Chunk(3, 4, 2, 1)

	tests := []struct {
		name   string
		method byte
	}{
		{"gzip", fixture.CompressionGzip},
		{"zlib", fixture.CompressionZlib},
		{"none", fixture.CompressionNone},
		{"lz4", fixture.CompressionLZ4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := fixture.NewRegion().Put(7, 9, tt.method, tree).Bytes()
			f, err := Load("r.0.0.mca", data)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			got, err := collect(t, f)
			if err != nil {
				t.Fatalf("Chunks() error = %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("visited %d chunks, want 1", len(got))
			}
			if got[0].x != 7 || got[0].z != 9 {
				t.Errorf("position = [%d, %d], want [7, 9]", got[0].x, got[0].z)
			}
			if !bytes.Equal(got[0].data, tree) {
				t.Errorf("decoded chunk differs from original")
			}
		})
	}
}

func TestChunks_Order(t *testing.T) {
	rg := fixture.NewRegion()
	for _, p := range [][2]int{{5, 0}, {0, 1}, {1, 0}, {31, 31}} {
		rg.Put(p[0], p[1], fixture.CompressionNone, fixture.Chunk(int32(p[0]), int32(p[1]), 0, 0))
	}
	f, err := Load("r.0.0.mca", rg.Bytes())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Count() != 4 {
		t.Errorf("Count() = %d, want 4", f.Count())
	}

	got, err := collect(t, f)
	if err != nil {
		t.Fatalf("Chunks() error = %v", err)
	}
	want := [][2]int{{1, 0}, {5, 0}, {0, 1}, {31, 31}}
	if len(got) != len(want) {
		t.Fatalf("visited %d chunks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].x != want[i][0] || got[i].z != want[i][1] {
			t.Errorf("visit %d = [%d, %d], want %v", i, got[i].x, got[i].z, want[i])
		}
	}
}

func TestChunks_StopsOnCallbackError(t *testing.T) {
	rg := fixture.NewRegion().
		Put(0, 0, fixture.CompressionNone, fixture.Chunk(0, 0, 0, 0)).
		Put(1, 0, fixture.CompressionNone, fixture.Chunk(1, 0, 0, 0))
	f, err := Load("r.0.0.mca", rg.Bytes())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	stop := errors.New("stop")
	var calls int
	err = f.Chunks(func(x, z int, r io.Reader) error {
		calls++
		return stop
	})
	if err != stop || calls != 1 {
		t.Errorf("Chunks() = %v after %d calls, want stop after 1", err, calls)
	}
}

func TestChunk_Malformed(t *testing.T) {
	tests := []struct {
		name string
		rg   *fixture.Region
	}{
		{
			name: "offset outside of container",
			rg:   fixture.NewRegion().Location(0, 0, 50, 1),
		},
		{
			name: "offset inside header",
			rg:   fixture.NewRegion().Put(0, 0, fixture.CompressionNone, []byte{1}).Location(0, 0, 1, 1),
		},
		{
			name: "unknown compression",
			rg:   fixture.NewRegion().PutRecord(0, 0, []byte{9, 1, 2, 3}),
		},
		{
			name: "corrupt zlib stream",
			rg:   fixture.NewRegion().PutRecord(0, 0, []byte{fixture.CompressionZlib, 0xde, 0xad, 0xbe, 0xef}),
		},
		{
			name: "truncated lz4 stream",
			rg:   fixture.NewRegion().PutRecord(0, 0, append([]byte{fixture.CompressionLZ4}, "LZ4Bl"...)),
		},
		{
			name: "external chunk without directory",
			rg:   fixture.NewRegion().PutRecord(0, 0, []byte{fixture.CompressionExternal | fixture.CompressionZlib}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Load("r.0.0.mca", tt.rg.Bytes())
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			_, err = f.Chunk(0, 0)
			if !errors.Is(err, ErrContainerFormat) {
				t.Errorf("Chunk() error = %v, want ErrContainerFormat", err)
			}
		})
	}
}

func TestChunk_BadLength(t *testing.T) {
	data := fixture.NewRegion().Put(0, 0, fixture.CompressionNone, fixture.Chunk(0, 0, 0, 0)).Bytes()
	// record length prefix larger than whole file
	copy(data[headerSize:], []byte{0x7f, 0xff, 0xff, 0xff})

	f, err := Load("r.0.0.mca", data)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := f.Chunk(0, 0); !errors.Is(err, ErrContainerFormat) {
		t.Errorf("Chunk() error = %v, want ErrContainerFormat", err)
	}

	copy(data[headerSize:], []byte{0xff, 0xff, 0xff, 0xf0})
	if _, err := f.Chunk(0, 0); !errors.Is(err, ErrContainerFormat) {
		t.Errorf("Chunk() with negative length error = %v, want ErrContainerFormat", err)
	}
}

func TestChunk_Missing(t *testing.T) {
	f, err := Load("r.0.0.mca", fixture.NewRegion().Bytes())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := f.Chunk(4, 4); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Chunk() error = %v, want ErrNotExist", err)
	}
	if f.Exists(-1, 0) || f.Exists(0, 32) {
		t.Error("Exists() should be false outside of grid")
	}
}

func TestOpenFile_External(t *testing.T) {
	dir := t.TempDir()
	tree := fixture.Chunk(34, -29, 1, 0)

	data := fixture.NewRegion().
		PutRecord(2, 3, []byte{fixture.CompressionExternal | fixture.CompressionZlib}).
		Bytes()
	path := filepath.Join(dir, "r.1.-1.mca")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write container: %v", err)
	}

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}

	if _, err := f.Chunk(2, 3); !errors.Is(err, ErrIO) {
		t.Errorf("Chunk() without external file error = %v, want ErrIO", err)
	}

	mcc := filepath.Join(dir, "c.34.-29.mcc")
	if err := os.WriteFile(mcc, fixture.Compress(fixture.CompressionZlib, tree), 0644); err != nil {
		t.Fatalf("Failed to write external chunk: %v", err)
	}
	r, err := f.Chunk(2, 3)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading chunk: %v", err)
	}
	if !bytes.Equal(got, tree) {
		t.Error("external chunk differs from original")
	}
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "r.0.0.mca"))
	if !errors.Is(err, ErrIO) {
		t.Errorf("OpenFile() error = %v, want ErrIO", err)
	}
}

func TestRegionPos(t *testing.T) {
	tests := []struct {
		name   string
		rx, rz int
		ok     bool
	}{
		{"r.0.0.mca", 0, 0, true},
		{"r.-3.12.mca", -3, 12, true},
		{"world/region/r.5.-7.mca", 5, -7, true},
		{"r.1.2.mcr", 1, 2, true},
		{"r.a.2.mca", 0, 0, false},
		{"c.1.2.mcc", 0, 0, false},
		{"r.1.mca", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rx, rz, ok := RegionPos(tt.name)
			if ok != tt.ok || rx != tt.rx || rz != tt.rz {
				t.Errorf("RegionPos() = (%d, %d, %v), want (%d, %d, %v)", rx, rz, ok, tt.rx, tt.rz, tt.ok)
			}
		})
	}
}
