// Package fixture assembles tag trees and region containers byte by byte for
// tests.
package fixture

import (
	"bytes"
	"encoding/binary"
)

// Tag type identifiers of the tag tree format.
const (
	TagEnd byte = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

// NBT writes big-endian tag tree. Methods append named tags to the
// currently open compound.
type NBT struct {
	buf bytes.Buffer
}

// Root starts tree with unnamed root compound. Call End to close it.
func Root() *NBT {
	n := &NBT{}
	return n.Compound("")
}

func (n *NBT) head(tag byte, name string) {
	n.buf.WriteByte(tag)
	n.str(name)
}

func (n *NBT) str(s string) {
	_ = binary.Write(&n.buf, binary.BigEndian, uint16(len(s)))
	n.buf.WriteString(s)
}

func (n *NBT) Compound(name string) *NBT {
	n.head(TagCompound, name)
	return n
}

// End closes innermost open compound.
func (n *NBT) End() *NBT {
	n.buf.WriteByte(TagEnd)
	return n
}

func (n *NBT) Byte(name string, v int8) *NBT {
	n.head(TagByte, name)
	n.buf.WriteByte(byte(v))
	return n
}

func (n *NBT) Int(name string, v int32) *NBT {
	n.head(TagInt, name)
	_ = binary.Write(&n.buf, binary.BigEndian, v)
	return n
}

func (n *NBT) Long(name string, v int64) *NBT {
	n.head(TagLong, name)
	_ = binary.Write(&n.buf, binary.BigEndian, v)
	return n
}

func (n *NBT) String(name, v string) *NBT {
	n.head(TagString, name)
	n.str(v)
	return n
}

func (n *NBT) ByteArray(name string, v []byte) *NBT {
	n.head(TagByteArray, name)
	_ = binary.Write(&n.buf, binary.BigEndian, int32(len(v)))
	n.buf.Write(v)
	return n
}

// EmptyList writes list without elements, element type is TagEnd as the
// game does.
func (n *NBT) EmptyList(name string) *NBT {
	n.head(TagList, name)
	n.buf.WriteByte(TagEnd)
	_ = binary.Write(&n.buf, binary.BigEndian, int32(0))
	return n
}

// IntList writes list of integers.
func (n *NBT) IntList(name string, v ...int32) *NBT {
	n.head(TagList, name)
	n.buf.WriteByte(TagInt)
	_ = binary.Write(&n.buf, binary.BigEndian, int32(len(v)))
	for _, x := range v {
		_ = binary.Write(&n.buf, binary.BigEndian, x)
	}
	return n
}

// CompoundList writes list of compounds, each item fills one element.
func (n *NBT) CompoundList(name string, items ...func(*NBT)) *NBT {
	n.head(TagList, name)
	elem := TagCompound
	if len(items) == 0 {
		elem = TagEnd
	}
	n.buf.WriteByte(elem)
	_ = binary.Write(&n.buf, binary.BigEndian, int32(len(items)))
	for _, item := range items {
		item(n)
		n.End()
	}
	return n
}

// Bytes returns encoded tree. Caller is responsible for balancing
// Compound/End.
func (n *NBT) Bytes() []byte {
	return bytes.Clone(n.buf.Bytes())
}

// Entity fills one entity record.
func Entity(id string) func(*NBT) {
	return func(n *NBT) {
		n.String("id", id)
		n.Byte("OnGround", 1)
	}
}

// Chunk returns tag tree of pre-1.18 chunk with requested number of entity
// and tile entity records.
func Chunk(x, z int32, entities, tileEntities int) []byte {
	var ents, tiles []func(*NBT)
	for range entities {
		ents = append(ents, Entity("minecraft:pig"))
	}
	for range tileEntities {
		tiles = append(tiles, Entity("minecraft:chest"))
	}
	return Root().
		Int("DataVersion", 1343).
		Compound("Level").
		Int("xPos", x).
		Int("zPos", z).
		Long("LastUpdate", 4242).
		CompoundList("Entities", ents...).
		CompoundList("TileEntities", tiles...).
		End().
		End().
		Bytes()
}
