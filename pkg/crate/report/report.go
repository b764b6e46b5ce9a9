// Package report renders the outcome of a duplicate run. It writes the
// CSV and JSON decision exports and provides the stdout formatters selected
// with -o (pretty, plain, json, csv, yaml, paths).
//
// Formatters are looked up by name from a registry:
//
//	f, err := report.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := f.Format(&buf, result); err != nil {
//	    return err
//	}
package report

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/crate/pkg/crate/logging"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

var logger = logging.Get("report")

// Summary holds the run totals printed after every run.
type Summary struct {
	FilesScanned     int           `json:"files_scanned" yaml:"files_scanned"`
	Groups           int           `json:"groups" yaml:"groups"`
	Duplicates       int           `json:"duplicates" yaml:"duplicates"`
	Moved            int           `json:"moved" yaml:"moved"`
	Deleted          int           `json:"deleted" yaml:"deleted"`
	Failed           int           `json:"failed" yaml:"failed"`
	ReclaimableBytes int64         `json:"reclaimable_bytes" yaml:"reclaimable_bytes"`
	Elapsed          time.Duration `json:"elapsed" yaml:"elapsed"`

	Action types.Action `json:"action" yaml:"action"`
	DryRun bool         `json:"dry_run" yaml:"dry_run"`
}

// Result is everything a formatter may render.
type Result struct {
	Decisions []types.Decision
	Summary   Summary
	Errors    []types.ScanError
	Warnings  []string
}

// DuplicatePaths returns the paths of every duplicate decision in order.
func (r *Result) DuplicatePaths() []string {
	var out []string
	for _, d := range r.Decisions {
		if d.Role == types.RoleDuplicate {
			out = append(out, d.Path)
		}
	}
	return out
}

// Formatter renders a Result.
type Formatter interface {
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a Formatter.
type FormatterFactory func() Formatter

// Registry maps names to formatter factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds or replaces a formatter.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format: %s", name)
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available lists the default registry's formatters.
func Available() []string {
	return DefaultRegistry.Available()
}
