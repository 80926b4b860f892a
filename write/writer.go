package write

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cholmes/geopartition/geom"
	"github.com/cholmes/geopartition/partition"
	"github.com/cholmes/geopartition/table"
)

// Compression selects the output file codec.
type Compression int

const (
	Zstd Compression = iota
	LZ4
	NoCompression
)

func (c Compression) ext() string {
	switch c {
	case Zstd:
		return ".jsonl.zst"
	case LZ4:
		return ".jsonl.lz4"
	default:
		return ".jsonl"
	}
}

// DefaultWorkers bounds concurrent file writes; very high partition counts
// must not exhaust file descriptors.
const DefaultWorkers = 8

// ErrOutputConflict reports an output path that already exists. Raised
// before any file is written.
type ErrOutputConflict struct {
	Path string
}

func (e *ErrOutputConflict) Error() string {
	return fmt.Sprintf("output path %q already exists (pass overwrite to replace)", e.Path)
}

// Summary reports what one write produced.
type Summary struct {
	Files int
	Rows  uint64
	Bytes int64
	Paths []string
}

// Option configures a Writer.
type Option func(*Writer)

// WithStyle selects flat or Hive naming. Default is Flat.
func WithStyle(s Style) Option { return func(w *Writer) { w.style = s } }

// WithOverwrite permits replacing existing output paths.
func WithOverwrite() Option { return func(w *Writer) { w.overwrite = true } }

// WithKeepColumn keeps the backing partition column in the output.
func WithKeepColumn() Option { return func(w *Writer) { w.keepColumn = true } }

// WithWorkers bounds the concurrent file writes.
func WithWorkers(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithCompression selects the output codec. Default is Zstd.
func WithCompression(c Compression) Option { return func(w *Writer) { w.compression = c } }

// WithHilbertOrder sorts each partition's rows by Hilbert curve position
// over the dataset extent before writing, improving spatial locality within
// files.
func WithHilbertOrder() Option { return func(w *Writer) { w.hilbert = true } }

// WithLogger sets the logger for write progress.
func WithLogger(logger *slog.Logger) Option { return func(w *Writer) { w.logger = logger } }

// Writer materializes partition mappings through a Sink. Nothing is written
// until every output path has been validated.
type Writer struct {
	sink        Sink
	style       Style
	compression Compression
	overwrite   bool
	keepColumn  bool
	hilbert     bool
	workers     int
	logger      *slog.Logger
}

// NewWriter creates a writer over sink.
func NewWriter(sink Sink, opts ...Option) *Writer {
	w := &Writer{
		sink:        sink,
		compression: Zstd,
		workers:     DefaultWorkers,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write emits one file per partition. Validate-all-then-write: every output
// path is checked for conflicts before the first byte is written, and each
// file appears at its final path only when complete.
func (w *Writer) Write(ctx context.Context, res *partition.Result) (*Summary, error) {
	files := planPaths(res.Mapping, w.style, w.compression.ext())

	if !w.overwrite {
		for _, f := range files {
			taken, err := w.sink.Exists(f.path)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, &ErrOutputConflict{Path: f.path}
			}
		}
	}

	drop := w.dropColumn(res)
	order, err := w.rowOrder(ctx, res)
	if err != nil {
		return nil, err
	}

	w.logger.Info("writing partitions",
		"partitions", len(files), "style", w.style.String(), "workers", w.workers)

	var (
		rows  atomic.Uint64
		bytes atomic.Int64
	)
	sem := semaphore.NewWeighted(int64(w.workers))
	g, gctx := errgroup.WithContext(ctx)
	var acquireErr error
	for _, f := range files {
		if err := sem.Acquire(gctx, 1); err != nil {
			acquireErr = err
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			refs := res.Mapping.Rows(f.key).ToArray()
			if order != nil {
				sort.SliceStable(refs, func(i, j int) bool {
					return order[refs[i]] < order[refs[j]]
				})
			}
			n, err := w.sink.Commit(gctx, f.path, func(dst io.Writer) error {
				return w.encode(dst, res.Source, refs, drop)
			})
			if err != nil {
				return fmt.Errorf("partition %s: %w", f.key, err)
			}
			rows.Add(uint64(len(refs)))
			bytes.Add(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if acquireErr != nil {
		return nil, acquireErr
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	s := &Summary{
		Files: len(files),
		Rows:  rows.Load(),
		Bytes: bytes.Load(),
		Paths: paths,
	}
	w.logger.Info("write complete", "files", s.Files, "rows", s.Rows, "bytes", s.Bytes)
	return s, nil
}

// dropColumn decides whether the backing partition column is stripped from
// output rows. Hive keys already encode H3 cells and KD leaves in the path,
// but those columns stay by default in Hive style; flat output drops them
// unless keeping is requested.
func (w *Writer) dropColumn(res *partition.Result) string {
	if res.Column == "" || w.keepColumn {
		return ""
	}
	if w.style == Hive {
		keys := res.Mapping.Keys()
		if len(keys) > 0 {
			switch keys[0].Kind() {
			case partition.KindH3, partition.KindKDLeaf:
				return ""
			}
		}
	}
	return res.Column
}

// rowOrder computes each row's Hilbert position over the dataset extent, or
// nil when Hilbert ordering is off.
func (w *Writer) rowOrder(ctx context.Context, res *partition.Result) ([]uint64, error) {
	if !w.hilbert {
		return nil, nil
	}

	n := res.Source.NumRows()
	points := make([]geom.Point, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, err := res.Source.Geometry(table.RowRef(i))
		if err != nil {
			return nil, err
		}
		points[i], err = geom.Centroid(g)
		if err != nil {
			return nil, err
		}
	}
	extent, ok := geom.Extent(points)
	if !ok {
		return nil, nil
	}

	order := make([]uint64, n)
	for i, p := range points {
		order[i] = geom.HilbertPosition(p, extent)
	}
	return order, nil
}

// encode writes refs as JSON lines, geometry rendered as GeoJSON, through
// the configured compressor.
func (w *Writer) encode(dst io.Writer, src table.Source, refs []uint32, drop string) error {
	var closer io.Closer
	switch w.compression {
	case Zstd:
		zw, err := zstd.NewWriter(dst)
		if err != nil {
			return err
		}
		dst, closer = zw, zw
	case LZ4:
		lw := lz4.NewWriter(dst)
		dst, closer = lw, lw
	}

	err := encodeRows(dst, src, refs, drop)
	if closer != nil {
		// Close even after a row error: the zstd encoder holds goroutines
		// until closed. The flush error only matters on the success path.
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func encodeRows(dst io.Writer, src table.Source, refs []uint32, drop string) error {
	enc := json.NewEncoder(dst)
	geomCol := src.GeometryColumn()
	for _, ref := range refs {
		rec, err := src.Record(table.RowRef(ref))
		if err != nil {
			return err
		}
		if drop != "" {
			delete(rec, drop)
		}
		if g, ok := rec[geomCol].(orb.Geometry); ok {
			rec[geomCol] = geojson.NewGeometry(g)
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
