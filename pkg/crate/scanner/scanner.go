package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/crate/pkg/crate/logging"
	"github.com/jamesainslie/crate/pkg/crate/tags"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

var logger = logging.Get("scanner")

// Result is the outcome of a scan.
type Result struct {
	// Tracks is sorted by path.
	Tracks     []types.TrackFile
	Errors     []types.ScanError
	FilesFound int64
	BytesFound int64
	Elapsed    time.Duration
}

type job struct {
	path   string
	origin types.Origin
}

// Scanner performs a single scan. It is not reusable.
type Scanner struct {
	opts Options

	filesFound     atomic.Int64
	filesExtracted atomic.Int64
	bytesFound     atomic.Int64
	walkComplete   atomic.Bool
	currentPath    atomic.Value
	lastProgress   atomic.Int64

	seenMu sync.Mutex
	seen   map[string]struct{}

	errorsMu sync.Mutex
	errors   []types.ScanError

	tracksMu sync.Mutex
	tracks   []types.TrackFile
}

// New creates a Scanner. Options are validated and defaulted.
func New(opts Options) (*Scanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Scanner{
		opts: opts,
		seen: make(map[string]struct{}),
	}
	s.currentPath.Store("")
	return s, nil
}

// Scan walks every root and extracts a record for each audio file found.
// Per-file failures are collected in Result.Errors. It blocks until done or
// ctx is cancelled, in which case ctx's error is returned.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()

	roots, err := s.resolveRoots()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job, s.opts.QueueSize)

	var wg sync.WaitGroup
	for range s.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.extractWorker(ctx, jobs)
		}()
	}

	walkErr := s.walk(ctx, roots, jobs)
	close(jobs)
	wg.Wait()

	s.walkComplete.Store(true)
	s.reportProgressForce()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(s.tracks, func(i, j int) bool { return s.tracks[i].Path < s.tracks[j].Path })
	sort.Slice(s.errors, func(i, j int) bool { return s.errors[i].Path < s.errors[j].Path })

	res := &Result{
		Tracks:     s.tracks,
		Errors:     s.errors,
		FilesFound: s.filesFound.Load(),
		BytesFound: s.bytesFound.Load(),
		Elapsed:    time.Since(start),
	}
	logger.Info("scan complete",
		"tracks", len(res.Tracks),
		"errors", len(res.Errors),
		"elapsed", res.Elapsed)
	return res, nil
}

// resolveRoots makes every root absolute and checks it is a directory.
func (s *Scanner) resolveRoots() ([]Root, error) {
	roots := make([]Root, 0, len(s.opts.Roots))
	for _, r := range s.opts.Roots {
		abs, err := filepath.Abs(r.Path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: %w", abs, os.ErrInvalid)
		}
		roots = append(roots, Root{Path: abs, Origin: r.Origin})
	}
	return roots, nil
}

// walk feeds jobs for every root in order. Roots are walked one after the
// other so that overlapping roots attribute files deterministically.
func (s *Scanner) walk(ctx context.Context, roots []Root, jobs chan<- job) error {
	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: s.opts.Walkers,
	}
	for _, root := range roots {
		logger.Debug("walking root", "path", root.Path, "origin", root.Origin)
		err := fastwalk.Walk(&conf, root.Path, s.walkCallback(ctx, root, jobs))
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, fastwalk.ErrSkipFiles) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (s *Scanner) walkCallback(ctx context.Context, root Root, jobs chan<- job) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			s.addError(path, err)
			return nil
		}

		if path != root.Path && s.isExcluded(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			s.currentPath.Store(path)
			s.reportProgress()
			return nil
		}

		if !d.Type().IsRegular() || !tags.IsAudio(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.addError(path, err)
			return nil
		}
		if info.Size() < s.opts.MinSize {
			return nil
		}
		if !s.claim(path) {
			return nil
		}

		s.filesFound.Add(1)
		s.bytesFound.Add(info.Size())

		select {
		case jobs <- job{path: path, origin: root.Origin}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
}

// claim reports whether path has not been seen before and marks it.
func (s *Scanner) claim(path string) bool {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	if _, ok := s.seen[path]; ok {
		return false
	}
	s.seen[path] = struct{}{}
	return true
}

func (s *Scanner) extractWorker(ctx context.Context, jobs <-chan job) {
	for j := range jobs {
		if ctx.Err() != nil {
			continue
		}
		s.extract(j)
	}
}

func (s *Scanner) extract(j job) {
	rec, err := s.opts.Extractor.Extract(j.path, j.origin, s.opts.WithHash)
	s.filesExtracted.Add(1)
	s.reportProgress()

	if err != nil {
		s.addError(j.path, err)
		if !errors.Is(err, tags.ErrHashFailed) {
			return
		}
	}

	s.tracksMu.Lock()
	s.tracks = append(s.tracks, rec)
	s.tracksMu.Unlock()
}

func (s *Scanner) addError(path string, err error) {
	logger.Debug("scan error", "path", path, "error", err)
	s.errorsMu.Lock()
	s.errors = append(s.errors, types.ScanError{Path: path, Error: err.Error()})
	s.errorsMu.Unlock()
}

// reportProgress calls OnProgress at most every 50ms.
func (s *Scanner) reportProgress() {
	if s.opts.OnProgress == nil {
		return
	}
	now := time.Now().UnixMilli()
	last := s.lastProgress.Load()
	if now-last < 50 {
		return
	}
	if !s.lastProgress.CompareAndSwap(last, now) {
		return
	}
	s.sendProgress()
}

func (s *Scanner) reportProgressForce() {
	if s.opts.OnProgress == nil {
		return
	}
	s.lastProgress.Store(time.Now().UnixMilli())
	s.sendProgress()
}

func (s *Scanner) sendProgress() {
	current, _ := s.currentPath.Load().(string)
	s.opts.OnProgress(Progress{
		FilesFound:     s.filesFound.Load(),
		FilesExtracted: s.filesExtracted.Load(),
		BytesFound:     s.bytesFound.Load(),
		CurrentPath:    current,
		WalkComplete:   s.walkComplete.Load(),
	})
}

func (s *Scanner) isExcluded(path string) bool {
	for _, pattern := range s.opts.Exclude {
		if matchesExclusionPattern(path, pattern) {
			return true
		}
	}
	return false
}

// matchesExclusionPattern treats pattern as a path prefix first, then as a
// glob against the base name and the full path.
func matchesExclusionPattern(path, pattern string) bool {
	if pattern == "" {
		return false
	}

	if path == pattern {
		return true
	}
	if len(path) > len(pattern) && path[:len(pattern)+1] == pattern+string(filepath.Separator) {
		return true
	}

	if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
		return true
	}
	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}
	return false
}

// Scan is a convenience wrapper around New and Scanner.Scan.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	return s.Scan(ctx)
}
