// Package output renders scan results as text or as protobuf SearchResult
// message:
//
//	message ChunkCoord   { int32 x = 1; int32 z = 2; }
//	message Chunk        { ChunkCoord coord = 1; }
//	message SearchResult { repeated Chunk result = 1; }
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"

	"chunkscan/common"
)

// ErrEncoding is returned when result cannot be serialized or written.
var ErrEncoding = errors.New("unable to encode result")

const (
	fieldResult protowire.Number = 1
	fieldCoord  protowire.Number = 1
	fieldX      protowire.Number = 1
	fieldZ      protowire.Number = 2
)

// Write renders coordinates in requested format.
func Write(w io.Writer, format common.OutputFmt, coords []common.ChunkCoord) error {
	switch format {
	case common.OutputFmtText:
		return WriteText(w, coords)
	case common.OutputFmtProtobuf:
		return WriteProtobuf(w, coords)
	}
	return fmt.Errorf("%w: unsupported output format %s", ErrEncoding, format)
}

// WriteText writes one "(x, z)" line per coordinate.
func WriteText(w io.Writer, coords []common.ChunkCoord) error {
	bw := bufio.NewWriter(w)
	for _, c := range coords {
		if _, err := fmt.Fprintln(bw, c.String()); err != nil {
			return fmt.Errorf("%w: %w", ErrEncoding, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return nil
}

// WriteProtobuf writes whole SearchResult message at once.
func WriteProtobuf(w io.Writer, coords []common.ChunkCoord) error {
	if _, err := w.Write(Marshal(coords)); err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return nil
}

// Marshal encodes coordinates as SearchResult message.
func Marshal(coords []common.ChunkCoord) []byte {
	var b []byte
	for _, c := range coords {
		b = protowire.AppendTag(b, fieldResult, protowire.BytesType)
		b = protowire.AppendBytes(b, appendChunk(nil, c))
	}
	return b
}

func appendChunk(b []byte, c common.ChunkCoord) []byte {
	b = protowire.AppendTag(b, fieldCoord, protowire.BytesType)
	return protowire.AppendBytes(b, appendCoord(nil, c))
}

func appendCoord(b []byte, c common.ChunkCoord) []byte {
	// default values are not serialized
	if c.X != 0 {
		b = protowire.AppendTag(b, fieldX, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(c.X)))
	}
	if c.Z != 0 {
		b = protowire.AppendTag(b, fieldZ, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(c.Z)))
	}
	return b
}

// Unmarshal decodes SearchResult message. Unknown fields are skipped, Chunk
// without coord decodes as (0, 0).
func Unmarshal(b []byte) ([]common.ChunkCoord, error) {
	coords := []common.ChunkCoord{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num != fieldResult || typ != protowire.BytesType {
			return nil
		}
		c, err := unmarshalChunk(v)
		if err != nil {
			return err
		}
		coords = append(coords, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to decode search result: %w", err)
	}
	return coords, nil
}

func unmarshalChunk(b []byte) (common.ChunkCoord, error) {
	var c common.ChunkCoord
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num != fieldCoord || typ != protowire.BytesType {
			return nil
		}
		// repeated coord fields are merged
		return walk(v, func(num protowire.Number, typ protowire.Type, v []byte) error {
			if typ != protowire.VarintType {
				return nil
			}
			x, n := protowire.ConsumeVarint(v)
			if n < 0 {
				return protowire.ParseError(n)
			}
			switch num {
			case fieldX:
				c.X = int32(x)
			case fieldZ:
				c.Z = int32(x)
			}
			return nil
		})
	})
	return c, err
}

// walk calls fn for every field of message. For length delimited fields v is
// field content, for others v starts with encoded value.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var v []byte
		if typ == protowire.BytesType {
			v, n = protowire.ConsumeBytes(b)
		} else {
			v = b
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		if err := fn(num, typ, v); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
