package scan

import (
	"errors"
	"fmt"

	"chunkscan/common"
	"chunkscan/tagtree"
)

// ErrMalformedChunk is returned when well-formed tag tree lacks fields every
// chunk should have.
var ErrMalformedChunk = errors.New("malformed chunk")

// EntityChunk returns position of the chunk stored in its tag tree if chunk
// has at least one entity or tile entity record.
func EntityChunk(root tagtree.Compound) (common.ChunkCoord, bool, error) {
	level, err := root.Compound("Level")
	if err != nil {
		return common.ChunkCoord{}, false, malformed(err)
	}
	x, err := level.Int32("xPos")
	if err != nil {
		return common.ChunkCoord{}, false, malformed(err)
	}
	z, err := level.Int32("zPos")
	if err != nil {
		return common.ChunkCoord{}, false, malformed(err)
	}
	entities, err := level.CompoundList("Entities")
	if err != nil {
		return common.ChunkCoord{}, false, malformed(err)
	}
	tiles, err := level.CompoundList("TileEntities")
	if err != nil {
		return common.ChunkCoord{}, false, malformed(err)
	}

	if len(entities) == 0 && len(tiles) == 0 {
		return common.ChunkCoord{}, false, nil
	}
	return common.ChunkCoord{X: x, Z: z}, true, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedChunk, err)
}
