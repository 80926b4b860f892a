package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/cholmes/geopartition/internal/flock"
	"github.com/cholmes/geopartition/internal/fs"
)

// State tracks a cache entry through its lifecycle.
type State int

const (
	StateAbsent State = iota
	StateDownloading
	StateReady
	StateCorrupt
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateDownloading:
		return "downloading"
	case StateReady:
		return "ready"
	case StateCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DatasetUnavailableError is returned when a dataset could not be made
// locally available after all retries.
type DatasetUnavailableError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *DatasetUnavailableError) Error() string {
	return fmt.Sprintf("dataset %q unavailable after %d attempts: %v", e.Name, e.Attempts, e.Err)
}

func (e *DatasetUnavailableError) Unwrap() error { return e.Err }

// manifest records the verified content of a cached entry. Its presence
// marks the entry complete; both it and the data file are written atomically.
type manifest struct {
	Size   int64  `json:"size"`
	XXHash uint64 `json:"xxhash"`
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithFetcher overrides the fetcher for one source kind.
func WithFetcher(kind SourceKind, f Fetcher) CacheOption {
	return func(c *Cache) { c.fetchers[kind] = f }
}

// WithRegistry replaces the built-in dataset registry.
func WithRegistry(r *Registry) CacheOption {
	return func(c *Cache) { c.registry = r }
}

// WithRetries bounds download attempts (minimum 1) and the base backoff
// between them.
func WithRetries(attempts int, backoff time.Duration) CacheOption {
	return func(c *Cache) {
		if attempts > 0 {
			c.attempts = attempts
		}
		c.backoff = backoff
	}
}

// WithDownloadRateLimit caps transfer throughput in bytes per second.
func WithDownloadRateLimit(bytesPerSec float64, burst int) CacheOption {
	return func(c *Cache) { c.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst) }
}

// DownloadObserver is notified after each download attempt with the dataset
// name, bytes transferred, elapsed time and the attempt's error (nil on
// success). The signature matches the root MetricsCollector.RecordDownload
// method so a collector wires in as a method value.
type DownloadObserver func(dataset string, bytes int64, elapsed time.Duration, err error)

// WithDownloadObserver registers an observer for download attempts.
func WithDownloadObserver(fn DownloadObserver) CacheOption {
	return func(c *Cache) { c.observer = fn }
}

// WithCacheLogger sets the logger for download lifecycle events.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

// WithFileSystem overrides the filesystem (fault-injection tests).
func WithFileSystem(fsys fs.FileSystem) CacheOption {
	return func(c *Cache) { c.fsys = fsys }
}

// Cache maintains verified local copies of boundary datasets under an
// explicit root directory. Entries are downloaded once per machine: callers
// in the same process coalesce through singleflight, and concurrent
// processes serialize on a per-dataset lock file.
type Cache struct {
	root     string
	fsys     fs.FileSystem
	registry *Registry
	fetchers map[SourceKind]Fetcher
	logger   *slog.Logger
	observer DownloadObserver
	limiter  *rate.Limiter
	attempts int
	backoff  time.Duration

	group singleflight.Group

	mu     sync.Mutex
	states map[string]State
}

// OpenCache opens (creating if needed) a cache rooted at dir.
func OpenCache(dir string, opts ...CacheOption) (*Cache, error) {
	c := &Cache{
		root:     dir,
		fsys:     fs.Default,
		registry: NewRegistry(),
		fetchers: map[SourceKind]Fetcher{
			SourceMinIO: NewMinIOFetcher(),
			SourceHTTP:  NewHTTPFetcher(nil),
		},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		attempts: 3,
		backoff:  500 * time.Millisecond,
		states:   make(map[string]State),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return c, nil
}

// Registry exposes the dataset registry for lookups and custom datasets.
func (c *Cache) Registry() *Registry { return c.registry }

// State reports the last observed state of a dataset's cache entry.
func (c *Cache) State(name string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[name]
}

func (c *Cache) setState(name string, s State) {
	c.mu.Lock()
	c.states[name] = s
	c.mu.Unlock()
}

func (c *Cache) entryDir(d Dataset) string {
	return filepath.Join(c.root, d.Name, d.Version)
}

func (c *Cache) dataPath(d Dataset) string {
	return filepath.Join(c.entryDir(d), d.Filename)
}

func (c *Cache) manifestPath(d Dataset) string {
	return filepath.Join(c.entryDir(d), "manifest.json")
}

func (c *Cache) lockPath(name string) string {
	return filepath.Join(c.root, name+".lock")
}

// EnsureAvailable returns the local path of the dataset's boundary file,
// downloading and verifying it first if needed. Concurrent callers for the
// same dataset share one download.
func (c *Cache) EnsureAvailable(ctx context.Context, name string) (string, error) {
	d, err := c.registry.Lookup(name)
	if err != nil {
		return "", err
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		return c.ensure(ctx, d)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) ensure(ctx context.Context, d Dataset) (string, error) {
	if err := c.fsys.MkdirAll(filepath.Join(c.root, d.Name), 0o755); err != nil {
		return "", err
	}

	lock := flock.New(c.lockPath(d.Name))
	if err := lock.Acquire(ctx); err != nil {
		return "", fmt.Errorf("lock dataset %q: %w", d.Name, err)
	}
	defer func() { _ = lock.Release() }()

	path := c.dataPath(d)
	switch err := c.verify(d); {
	case err == nil:
		c.setState(d.Name, StateReady)
		return path, nil
	case errors.Is(err, os.ErrNotExist):
		c.setState(d.Name, StateAbsent)
	default:
		// Failed verification: drop the entry and re-download.
		c.logger.Warn("cached dataset failed verification", "dataset", d.Name, "error", err)
		c.setState(d.Name, StateCorrupt)
		if err := c.fsys.RemoveAll(c.entryDir(d)); err != nil {
			return "", err
		}
	}

	fetcher, ok := c.fetchers[d.Source.Kind]
	if !ok && d.Source.Kind == SourceS3 {
		f, err := NewS3Fetcher(ctx, d.Source.Region)
		if err != nil {
			return "", err
		}
		fetcher, ok = f, true
		c.fetchers[SourceS3] = fetcher
	}
	if !ok {
		return "", fmt.Errorf("no fetcher for source kind %d", d.Source.Kind)
	}
	fetcher = RateLimited(fetcher, c.limiter)

	c.setState(d.Name, StateDownloading)
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				c.setState(d.Name, StateAbsent)
				return "", ctx.Err()
			case <-time.After(c.backoff * time.Duration(1<<(attempt-2))):
			}
		}
		c.logger.Info("downloading dataset", "dataset", d.Name, "version", d.Version, "attempt", attempt)

		start := time.Now()
		n, sum, err := c.download(ctx, d, fetcher)
		if c.observer != nil {
			c.observer(d.Name, n, time.Since(start), err)
		}
		if err != nil {
			lastErr = err
			c.logger.Warn("dataset download failed", "dataset", d.Name, "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				c.setState(d.Name, StateAbsent)
				return "", ctx.Err()
			}
			continue
		}

		if _, err := fs.WriteAtomic(c.fsys, c.manifestPath(d), func(w io.Writer) error {
			return json.NewEncoder(w).Encode(manifest{Size: n, XXHash: sum})
		}); err != nil {
			lastErr = err
			continue
		}
		if err := c.verify(d); err != nil {
			lastErr = err
			c.setState(d.Name, StateCorrupt)
			continue
		}
		c.setState(d.Name, StateReady)
		c.logger.Info("dataset ready", "dataset", d.Name, "bytes", n, "path", path)
		return path, nil
	}

	c.setState(d.Name, StateAbsent)
	return "", &DatasetUnavailableError{Name: d.Name, Attempts: c.attempts, Err: lastErr}
}

// download fetches the boundary file into place atomically, hashing as it
// streams. The file only appears at its final path fully written.
func (c *Cache) download(ctx context.Context, d Dataset, fetcher Fetcher) (int64, uint64, error) {
	h := xxhash.New()
	n, err := fs.WriteAtomic(c.fsys, c.dataPath(d), func(w io.Writer) error {
		_, err := fetcher.Fetch(ctx, d.Source, io.MultiWriter(w, h))
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return n, h.Sum64(), nil
}

// verify recomputes size and hash of the cached file against the manifest.
// os.ErrNotExist means the entry was never completed.
func (c *Cache) verify(d Dataset) error {
	mf, err := c.fsys.OpenFile(c.manifestPath(d), os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	var m manifest
	decErr := json.NewDecoder(mf).Decode(&m)
	_ = mf.Close()
	if decErr != nil {
		return fmt.Errorf("manifest: %w", decErr)
	}

	f, err := c.fsys.OpenFile(c.dataPath(d), os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return err
	}
	if n != m.Size {
		return fmt.Errorf("size mismatch: have %d, manifest says %d", n, m.Size)
	}
	if h.Sum64() != m.XXHash {
		return fmt.Errorf("checksum mismatch")
	}
	return nil
}

// Clear removes one dataset's cache entry, or every entry when name is
// empty. Absent entries clear silently.
func (c *Cache) Clear(ctx context.Context, name string) error {
	if name == "" {
		entries, err := c.fsys.ReadDir(c.root)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if err := c.Clear(ctx, e.Name()); err != nil {
				return err
			}
		}
		return nil
	}

	lock := flock.New(c.lockPath(name))
	if err := lock.Acquire(ctx); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	if err := c.fsys.RemoveAll(filepath.Join(c.root, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	c.setState(name, StateAbsent)
	return nil
}
