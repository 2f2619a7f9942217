package scan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/schollz/progressbar/v3"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"chunkscan/anvil"
	"chunkscan/common"
	"chunkscan/config"
	"chunkscan/output"
	"chunkscan/state"
)

// Run is the action of the root command: scan world save and write found
// coordinates.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("unable to generate run id: %w", err)
	}
	log := env.Log.Named("scan").With(zap.Stringer("run", id))

	root := cmd.Args().Get(0)
	if len(root) == 0 {
		return errors.New("no world save has been specified")
	}
	if root, err = filepath.Abs(root); err != nil {
		return err
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many save roots", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	cfg := env.ScanConfig()
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	src, err := openSource(ctx, root, &cfg)
	if err != nil {
		return err
	}

	var cache *Cache
	if len(cfg.CachePath) > 0 {
		if cache, err = OpenCache(cfg.CachePath, src.String(), log); err != nil {
			return err
		}
		defer func() {
			if er := cache.Close(); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to close cache: %w", er))
			}
		}()
	}

	opts := Options{
		Workers: cfg.Workers,
		Policy:  cfg.OnError,
		Cache:   cache,
	}
	var bar *progressbar.ProgressBar
	if cfg.Progress && config.IsTerminal(os.Stderr) {
		bar = newProgressBar()
		opts.Observe = func(Result) {
			_ = bar.Add(1)
		}
	}

	log.Info("Scan starting", zap.Stringer("source", src), zap.Int("workers", cfg.Workers),
		zap.Stringer("on_error", cfg.OnError), zap.Stringer("output", cfg.Output))

	start := time.Now()
	agg, err := NewScanner(src, opts, log).Scan(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	reportFailures(env.Rpt, agg.Failed, log)
	if err != nil {
		return fmt.Errorf("unable to scan %s: %w", src, err)
	}

	if err := writeResult(cmd.Root().Writer, &cfg, agg.Coords, cmd.String("output"), log); err != nil {
		return err
	}
	if env.Rpt != nil {
		var buf bytes.Buffer
		if err := output.WriteText(&buf, agg.Coords); err == nil {
			env.Rpt.StoreResult(buf.Bytes())
		}
	}

	log.Info("Scan completed", zap.Int("containers", agg.Scanned), zap.Int("cached", agg.Cached),
		zap.Int("failed", len(agg.Failed)), zap.Int("chunks", agg.Chunks), zap.Int("found", len(agg.Coords)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// ParseWorkers interprets worker count given on command line. Anything which
// is not a positive number means a single worker.
func ParseWorkers(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func applyFlags(cmd *cli.Command, cfg *config.ScanConfig) error {
	if cmd.IsSet("threads") {
		cfg.Workers = ParseWorkers(cmd.String("threads"))
	}
	if cmd.Bool("protobuf") {
		cfg.Output = common.OutputFmtProtobuf
	}
	if cmd.IsSet("on-error") {
		policy, err := common.ParseErrorPolicy(cmd.String("on-error"))
		if err != nil {
			return fmt.Errorf("bad --on-error value, use one of %s: %w", strings.Join(common.ErrorPolicyNames(), ", "), err)
		}
		cfg.OnError = policy
	}
	if cmd.IsSet("cache") {
		cfg.CachePath = cmd.String("cache")
	}
	if cmd.IsSet("progress") {
		cfg.Progress = cmd.Bool("progress")
	}
	return nil
}

// openSource finds what world save root points to: either directory or zip
// archive, possibly followed by path inside it.
func openSource(ctx context.Context, src string, cfg *config.ScanConfig) (anvil.Source, error) {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail
				return nil, fmt.Errorf("world save was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			return &anvil.DirSource{
				Dir:      filepath.Join(head, cfg.RegionDir),
				Patterns: cfg.Patterns,
			}, nil
		}

		if !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		arc, err := isArchiveFile(head)
		if err != nil {
			return nil, fmt.Errorf("unable to check archive type: %w", err)
		}
		if !arc {
			return nil, fmt.Errorf("world save is neither directory nor zip archive (%s)", head)
		}
		inner := strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
		return &anvil.ArchiveSource{
			Archive:  head,
			Dir:      path.Join(filepath.ToSlash(inner), filepath.ToSlash(cfg.RegionDir)),
			Patterns: cfg.Patterns,
		}, nil
	}
	return nil, fmt.Errorf("world save was not found (%s)", src)
}

func isArchiveFile(fname string) (bool, error) {
	f, err := os.Open(fname)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// enough for any signature filetype knows about
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

// writeResult writes coordinates to file when name is given, to stdout
// otherwise.
func writeResult(stdout io.Writer, cfg *config.ScanConfig, coords []common.ChunkCoord, fname string, log *zap.Logger) (err error) {
	out := stdout
	if len(fname) > 0 {
		var f *os.File
		if f, err = os.Create(fname); err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer func() {
			if er := f.Close(); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to close destination file: %w", er))
			}
		}()
		out = f
	} else if f, ok := out.(*os.File); ok && cfg.Output.Binary() && config.IsTerminal(f) {
		log.Warn("Writing binary result to terminal, consider redirecting output")
	}

	if err := output.Write(out, cfg.Output, coords); err != nil {
		return fmt.Errorf("unable to write result: %w", err)
	}
	return nil
}

// reportFailures records containers which could not be scanned in debug
// report.
func reportFailures(rpt *config.Report, failed []Result, log *zap.Logger) {
	for _, r := range failed {
		if err := rpt.StoreFailure(r.Container.Name, r.Container.Path, r.Err); err != nil {
			log.Warn("Unable to store failed container in report", zap.String("container", r.Container.Name), zap.Error(err))
		}
	}
}

func newProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionSetItsString("containers"),
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
