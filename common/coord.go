package common

import "fmt"

// ChunkCoord is chunk position in chunk grid space (not block space).
type ChunkCoord struct {
	X, Z int32
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Z)
}
