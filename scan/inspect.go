package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"chunkscan/anvil"
	"chunkscan/output"
	"chunkscan/state"
	"chunkscan/tagtree"
)

// Explain prints tag tree of a single chunk, which is handy when figuring out
// why container does not produce expected results.
func Explain(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("explain")

	if cmd.Args().Len() != 3 {
		return errors.New("expected container path and chunk position within it")
	}
	fname := cmd.Args().Get(0)
	x, err := gridPos(cmd.Args().Get(1))
	if err != nil {
		return err
	}
	z, err := gridPos(cmd.Args().Get(2))
	if err != nil {
		return err
	}

	f, err := anvil.OpenFile(fname)
	if err != nil {
		return err
	}
	r, err := f.Chunk(x, z)
	if err != nil {
		return fmt.Errorf("unable to read chunk (%d, %d) of %s: %w", x, z, f.Name(), err)
	}
	name, root, err := tagtree.ParseNamed(r)
	if err != nil {
		return fmt.Errorf("unable to decode chunk (%d, %d) of %s: %w", x, z, f.Name(), err)
	}
	if err := tagtree.Explain(cmd.Root().Writer, name, root); err != nil {
		return fmt.Errorf("unable to print chunk: %w", err)
	}

	coord, found, err := EntityChunk(root)
	switch {
	case err != nil:
		log.Warn("Chunk would be rejected by scan", zap.Error(err))
	case found:
		log.Info("Chunk has entities", zap.Stringer("chunk", coord))
	default:
		log.Info("Chunk has no entities")
	}
	return nil
}

// Decode reads protobuf result from file (or stdin when no file is given) and
// prints it as text.
func Decode(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)

	var (
		data []byte
		err  error
	)
	if fname := cmd.Args().Get(0); len(fname) > 0 && fname != "-" {
		data, err = os.ReadFile(fname)
	} else {
		data, err = io.ReadAll(cmd.Root().Reader)
	}
	if err != nil {
		return fmt.Errorf("unable to read result: %w", err)
	}

	coords, err := output.Unmarshal(data)
	if err != nil {
		return err
	}
	env.Log.Debug("Result decoded", zap.Int("bytes", len(data)), zap.Int("chunks", len(coords)))
	return output.WriteText(cmd.Root().Writer, coords)
}

func gridPos(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n >= anvil.GridSize {
		return 0, fmt.Errorf("chunk position within container must be in [0, %d): %q", anvil.GridSize, s)
	}
	return n, nil
}
