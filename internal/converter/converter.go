// Package converter turns OBJ source files into AOBJ containers, one file at a time.
package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/meshbuilder/internal/config"
	"github.com/Faultbox/meshbuilder/internal/model"
	"github.com/Faultbox/meshbuilder/pkg/formats"
)

// ErrOutputCollision reports an output path that is also the source or that
// another source in the same batch already writes to.
var ErrOutputCollision = errors.New("output path collision")

// Result describes one successful conversion.
type Result struct {
	Source   string
	Output   string
	Faces    int
	Vertices int
	Indices  int
	Bounds   model.Bounds
	Unknown  map[string]int // Keywords skipped as unknown, by count
	Duration time.Duration
}

// Summary collects the outcome of a batch run.
type Summary struct {
	Sources   []string
	Converted []*Result
	Failed    []string
}

// ConvertFile parses src, assembles its mesh and writes the container to dst.
// Nothing is written unless every step succeeds.
func ConvertFile(src, dst string) (*Result, error) {
	start := time.Now()

	if samePath(src, dst) {
		return nil, fmt.Errorf("%s: %w: output would replace the source", src, ErrOutputCollision)
	}

	obj, err := formats.ParseOBJFile(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}

	mesh, err := model.Assemble(obj)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}

	if err := mesh.AOBJ().WriteFile(dst); err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}

	return &Result{
		Source:   src,
		Output:   dst,
		Faces:    obj.FaceCount(),
		Vertices: len(mesh.Vertices),
		Indices:  len(mesh.Indices),
		Bounds:   mesh.Bounds,
		Unknown:  obj.Unknown,
		Duration: time.Since(start),
	}, nil
}

// Converter runs batch conversions for a configuration.
type Converter struct {
	cfg *config.Config
	log *zap.Logger
}

// New creates a converter. A nil logger discards output.
func New(cfg *config.Config, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{cfg: cfg, log: log}
}

// Run converts every source found in the input directory.
//
// A failing file is logged and recorded in the summary; the remaining files
// are still converted. The returned error combines all per-file errors.
// Up to Build.Jobs files are converted at once.
func (c *Converter) Run(ctx context.Context) (*Summary, error) {
	sources, err := Discover(c.cfg.Input.Dir, c.cfg.Input.Extension)
	if err != nil {
		return nil, err
	}

	c.log.Info("discovered sources",
		zap.String("dir", c.cfg.Input.Dir),
		zap.Int("count", len(sources)),
		zap.Int("jobs", c.cfg.Build.Jobs),
	)

	summary := &Summary{Sources: sources}

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(max(c.cfg.Build.Jobs, 1))

	// First source in name order owns each output path
	owners := make(map[string]string, len(sources))

	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}

		dst := OutputPath(src, c.cfg.Output)
		key := pathKey(dst)
		if owner, taken := owners[key]; taken {
			err := fmt.Errorf("%s: %w: %s already writes %s", src, ErrOutputCollision, owner, dst)
			c.log.Error("conversion skipped", zap.String("src", src), zap.Error(err))
			mu.Lock()
			summary.Failed = append(summary.Failed, src)
			errs = multierr.Append(errs, err)
			mu.Unlock()
			continue
		}
		owners[key] = src

		src := src
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, err := c.Convert(src)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed = append(summary.Failed, src)
				errs = multierr.Append(errs, err)
				return nil
			}
			summary.Converted = append(summary.Converted, res)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("conversion interrupted: %w", err))
	}

	// Workers finish in any order
	sort.Slice(summary.Converted, func(i, j int) bool {
		return summary.Converted[i].Source < summary.Converted[j].Source
	})
	sort.Strings(summary.Failed)

	c.log.Info("build finished",
		zap.Int("converted", len(summary.Converted)),
		zap.Int("failed", len(summary.Failed)),
	)

	return summary, errs
}

// Convert converts a single source to the output path derived from the config.
func (c *Converter) Convert(src string) (*Result, error) {
	dst := OutputPath(src, c.cfg.Output)
	c.log.Debug("converting", zap.String("src", src), zap.String("dst", dst))

	res, err := ConvertFile(src, dst)
	if err != nil {
		c.log.Error("conversion failed", zap.String("src", src), zap.Error(err))
		return nil, err
	}

	for keyword, count := range res.Unknown {
		c.log.Debug("skipped unknown directive",
			zap.String("src", src),
			zap.String("keyword", keyword),
			zap.Int("lines", count),
		)
	}
	if res.Faces == 0 {
		c.log.Warn("source has no faces, wrote empty container", zap.String("src", src))
	}

	c.log.Info("mesh written",
		zap.String("src", src),
		zap.String("dst", dst),
		zap.Int("faces", res.Faces),
		zap.Int("vertices", res.Vertices),
		zap.Int("indices", res.Indices),
		zap.Duration("took", res.Duration),
	)

	return res, nil
}

// pathKey normalises a path for comparison, falling back to the cleaned
// relative form when the working directory is unavailable.
func pathKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func samePath(a, b string) bool {
	return pathKey(a) == pathKey(b)
}
