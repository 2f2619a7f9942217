package anvil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// Chunk compression methods.
const (
	methodGzip   byte = 1
	methodZlib   byte = 2
	methodNone   byte = 3
	methodLZ4    byte = 4
	externalFlag byte = 0x80
)

func decompress(method byte, payload []byte) (io.Reader, error) {
	switch method {
	case methodGzip:
		return gzip.NewReader(bytes.NewReader(payload))
	case methodZlib:
		return zlib.NewReader(bytes.NewReader(payload))
	case methodNone:
		return bytes.NewReader(payload), nil
	case methodLZ4:
		data, err := unpackLZ4Blocks(payload)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
	return nil, fmt.Errorf("unknown compression method %d", method)
}

// LZ4 chunks use block stream format of lz4-java LZ4BlockOutputStream.
const (
	lz4Magic       = "LZ4Block"
	lz4HeaderSize  = len(lz4Magic) + 13
	lz4MethodRaw   = 0x10
	lz4MethodLZ4   = 0x20
	lz4MaxBlockLen = 1 << 25
)

// unpackLZ4Blocks decodes block stream until empty end block. Block
// checksums are not verified.
func unpackLZ4Blocks(src []byte) ([]byte, error) {
	var out []byte
	for {
		if len(src) < lz4HeaderSize {
			return nil, fmt.Errorf("lz4 block header is truncated")
		}
		if string(src[:len(lz4Magic)]) != lz4Magic {
			return nil, fmt.Errorf("lz4 block has bad magic")
		}
		token := src[len(lz4Magic)]
		hdr := src[len(lz4Magic)+1:]
		compressed := int(int32(binary.LittleEndian.Uint32(hdr[0:])))
		decompressed := int(int32(binary.LittleEndian.Uint32(hdr[4:])))
		src = src[lz4HeaderSize:]

		if compressed < 0 || decompressed < 0 || decompressed > lz4MaxBlockLen || compressed > len(src) {
			return nil, fmt.Errorf("lz4 block has bad lengths %d/%d", compressed, decompressed)
		}
		if decompressed == 0 {
			if compressed != 0 {
				return nil, fmt.Errorf("lz4 end block is not empty")
			}
			return out, nil
		}

		block := src[:compressed]
		src = src[compressed:]

		switch token & 0xf0 {
		case lz4MethodRaw:
			if compressed != decompressed {
				return nil, fmt.Errorf("lz4 raw block lengths differ %d/%d", compressed, decompressed)
			}
			out = append(out, block...)
		case lz4MethodLZ4:
			buf := make([]byte, decompressed)
			n, err := lz4.UncompressBlock(block, buf)
			if err != nil {
				return nil, fmt.Errorf("lz4 block: %w", err)
			}
			if n != decompressed {
				return nil, fmt.Errorf("lz4 block decoded to %d bytes, expected %d", n, decompressed)
			}
			out = append(out, buf...)
		default:
			return nil, fmt.Errorf("lz4 block has unknown method 0x%x", token&0xf0)
		}
	}
}
