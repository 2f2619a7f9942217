package fixture

import (
	"bytes"
	"encoding/binary"
	"math/bits"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// Chunk compression identifiers stored in front of chunk payload.
const (
	CompressionGzip byte = 1
	CompressionZlib byte = 2
	CompressionNone byte = 3
	CompressionLZ4  byte = 4
	// payload is stored in external .mcc file
	CompressionExternal byte = 0x80
)

const sectorSize = 4096

// Region accumulates chunks and renders region container.
type Region struct {
	records map[int][]byte
	// offsets to override after layout, for broken containers
	locations map[int]uint32
}

func NewRegion() *Region {
	return &Region{records: make(map[int][]byte), locations: make(map[int]uint32)}
}

// Put stores tag tree for container-local position compressed with given
// method.
func (r *Region) Put(x, z int, compression byte, tree []byte) *Region {
	return r.PutRecord(x, z, append([]byte{compression}, Compress(compression, tree)...))
}

// PutRecord stores record as is (compression byte followed by payload).
func (r *Region) PutRecord(x, z int, record []byte) *Region {
	r.records[x+32*z] = record
	return r
}

// Location forces raw location table entry for position.
func (r *Region) Location(x, z int, offset, count uint32) *Region {
	r.locations[x+32*z] = offset<<8 | count&0xff
	return r
}

// Bytes lays out container: location table, timestamp table, then records
// in index order each padded to full sectors.
func (r *Region) Bytes() []byte {
	header := make([]byte, 2*sectorSize)
	var body bytes.Buffer
	next := uint32(2)
	for i := range 1024 {
		rec, ok := r.records[i]
		if !ok {
			continue
		}
		var sector bytes.Buffer
		_ = binary.Write(&sector, binary.BigEndian, int32(len(rec)))
		sector.Write(rec)
		count := (sector.Len() + sectorSize - 1) / sectorSize
		sector.Write(make([]byte, count*sectorSize-sector.Len()))
		body.Write(sector.Bytes())

		binary.BigEndian.PutUint32(header[4*i:], next<<8|uint32(count))
		binary.BigEndian.PutUint32(header[sectorSize+4*i:], 1700000000)
		next += uint32(count)
	}
	for i, loc := range r.locations {
		binary.BigEndian.PutUint32(header[4*i:], loc)
	}
	return append(header, body.Bytes()...)
}

// Compress encodes data with chunk compression method.
func Compress(compression byte, data []byte) []byte {
	var buf bytes.Buffer
	switch compression &^ CompressionExternal {
	case CompressionGzip:
		w := gzip.NewWriter(&buf)
		_, _ = w.Write(data)
		_ = w.Close()
	case CompressionZlib:
		w := zlib.NewWriter(&buf)
		_, _ = w.Write(data)
		_ = w.Close()
	case CompressionLZ4:
		return LZ4Blocks(data, 64)
	default:
		buf.Write(data)
	}
	return buf.Bytes()
}

// LZ4Blocks produces LZ4Block stream splitting data into blocks of
// blockSize, incompressible blocks are stored raw. Checksums are zero.
func LZ4Blocks(data []byte, blockSize int) []byte {
	var (
		out  bytes.Buffer
		comp lz4.Compressor
	)
	level := byte(max(0, bits.Len(uint(blockSize-1))-10))
	block := func(method byte, payload []byte, size int) {
		out.WriteString("LZ4Block")
		out.WriteByte(method | level)
		_ = binary.Write(&out, binary.LittleEndian, int32(len(payload)))
		_ = binary.Write(&out, binary.LittleEndian, int32(size))
		_ = binary.Write(&out, binary.LittleEndian, int32(0))
		out.Write(payload)
	}
	for len(data) > 0 {
		n := min(blockSize, len(data))
		src := data[:n]
		data = data[n:]

		dst := make([]byte, lz4.CompressBlockBound(n))
		z, err := comp.CompressBlock(src, dst)
		if err != nil || z == 0 || z >= n {
			block(0x10, src, n)
			continue
		}
		block(0x20, dst[:z], n)
	}
	block(0x10, nil, 0)
	return out.Bytes()
}
