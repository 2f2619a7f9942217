// Package scan finds chunks holding entities or tile entities in region
// containers of a world save.
package scan

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chunkscan/anvil"
	"chunkscan/common"
	"chunkscan/tagtree"
)

// Options control scanning.
type Options struct {
	// Workers is number of containers decoded concurrently, values below 1
	// mean 1.
	Workers int
	Policy  common.ErrorPolicy
	// Cache is optional.
	Cache *Cache
	// Observe, when set, is called by collector for every processed
	// container, never concurrently.
	Observe func(Result)
}

// Result is outcome of scanning a single container.
type Result struct {
	Container *anvil.Container
	Coords    []common.ChunkCoord
	// number of chunks decoded, zero for cached results
	Chunks  int
	Cached  bool
	Elapsed time.Duration
	Err     error
}

// Aggregate is combined outcome of all processed containers.
type Aggregate struct {
	// Coords has no particular order.
	Coords  []common.ChunkCoord
	Scanned int
	Cached  int
	Chunks  int
	// Failed has results of containers which could not be scanned.
	Failed []Result
}

// Scanner runs producer, workers and collector over containers of a single
// source.
type Scanner struct {
	src  anvil.Source
	opts Options
	log  *zap.Logger
}

func NewScanner(src anvil.Source, opts Options, log *zap.Logger) *Scanner {
	opts.Workers = max(opts.Workers, 1)
	return &Scanner{src: src, opts: opts, log: log}
}

// Scan processes every container of the source. Producer hands containers to
// workers and workers hand results to collector through channels with
// capacity of one, so only a few containers are in memory at any time.
//
// Aggregate collected so far is always returned, even with error. With skip
// policy failed containers are logged and listed in Aggregate.Failed. With
// abort policy the first failure stops the scan and is returned.
func (s *Scanner) Scan(ctx context.Context) (Aggregate, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	g, gctx := errgroup.WithContext(ctx)

	containers := make(chan *anvil.Container, 1)
	results := make(chan Result, 1)

	g.Go(func() error {
		defer close(containers)
		return s.src.Containers(gctx, func(c *anvil.Container) error {
			select {
			case containers <- c:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var wg sync.WaitGroup
	for range s.opts.Workers {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for c := range containers {
				r := s.scanContainer(c)
				select {
				case results <- r:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		agg      Aggregate
		abortErr error
	)
	for r := range results {
		s.collect(&agg, r)
		if r.Err != nil && s.opts.Policy == common.ErrorPolicyAbort && abortErr == nil {
			abortErr = fmt.Errorf("unable to scan container %s: %w", r.Container.Name, r.Err)
			cancel(abortErr)
		}
	}

	err := g.Wait()
	if abortErr != nil {
		return agg, abortErr
	}
	if err != nil {
		return agg, err
	}
	return agg, nil
}

func (s *Scanner) collect(agg *Aggregate, r Result) {
	if s.opts.Observe != nil {
		s.opts.Observe(r)
	}

	name := r.Container.Name
	if r.Err != nil {
		agg.Failed = append(agg.Failed, r)
		if s.opts.Policy == common.ErrorPolicySkip {
			s.log.Error("Unable to scan container, skipping", zap.String("container", name), zap.Error(r.Err))
		}
		return
	}

	agg.Scanned++
	agg.Chunks += r.Chunks
	agg.Coords = append(agg.Coords, r.Coords...)
	if r.Cached {
		agg.Cached++
		s.log.Debug("Container unchanged", zap.String("container", name), zap.Int("found", len(r.Coords)))
		return
	}
	s.opts.Cache.Put(r.Container, r.Coords)
	s.log.Debug("Container scanned", zap.String("container", name),
		zap.Int("chunks", r.Chunks), zap.Int("found", len(r.Coords)), zap.Duration("elapsed", r.Elapsed))
}

// scanContainer decodes every chunk of the container. Any failure discards
// the whole container.
func (s *Scanner) scanContainer(c *anvil.Container) (r Result) {
	r.Container = c

	defer func(start time.Time) {
		r.Elapsed = time.Since(start)
		if p := recover(); p != nil {
			s.log.Error("Container scan ended with panic",
				zap.String("container", c.Name), zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			r.Coords = nil
			r.Err = fmt.Errorf("container scan panic: %v", p)
		}
	}(time.Now())

	if coords, ok := s.opts.Cache.Lookup(c); ok {
		r.Coords, r.Cached = coords, true
		return r
	}

	f, err := c.Open()
	if err != nil {
		r.Err = err
		return r
	}

	err = f.Chunks(func(x, z int, rd io.Reader) error {
		r.Chunks++
		tree, err := tagtree.Parse(rd)
		if err != nil {
			return fmt.Errorf("chunk [%d, %d]: %w", x, z, err)
		}
		coord, ok, err := EntityChunk(tree)
		if err != nil {
			return fmt.Errorf("chunk [%d, %d]: %w", x, z, err)
		}
		if ok {
			r.Coords = append(r.Coords, coord)
		}
		return nil
	})
	if err != nil {
		r.Coords = nil
		r.Err = err
	}
	return r
}
