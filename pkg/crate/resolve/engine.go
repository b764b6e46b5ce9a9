// Package resolve turns duplicate groups into per-file decisions and applies
// them to the filesystem.
//
// For every group the keeper is recorded first, followed by one decision per
// remaining member. With DryRun set the engine computes exactly the same
// decisions, including would-be move destinations, without mutating
// anything. A failed move or delete is recorded on its decision and the run
// continues with the next file.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jamesainslie/crate/pkg/crate/group"
	"github.com/jamesainslie/crate/pkg/crate/keeper"
	"github.com/jamesainslie/crate/pkg/crate/logging"
	"github.com/jamesainslie/crate/pkg/crate/trash"
	"github.com/jamesainslie/crate/pkg/crate/types"
)

var logger = logging.Get("resolve")

// ErrReviewDirRequired is returned when the move action has no review directory.
var ErrReviewDirRequired = errors.New("review directory is required for the move action")

// TrashFunc moves a file to a recoverable location.
type TrashFunc func(ctx context.Context, path string) error

// Options configures a resolution run.
type Options struct {
	// Action applied to every non-keeper member.
	Action types.Action

	// KeepStrategy picks each group's keeper. Empty means best.
	KeepStrategy types.KeepStrategy

	// PreferOrigin restricts keeper candidates to one origin when present.
	PreferOrigin types.Origin

	// ReviewDir receives moved duplicates.
	ReviewDir string

	// PruneRoots bounds empty-directory cleanup.
	PruneRoots []string

	// CleanupEmptyDirs removes directories emptied by a move or delete.
	CleanupEmptyDirs bool

	// DryRun computes decisions without touching the filesystem.
	DryRun bool

	// UseTrash sends deleted files to the system trash.
	UseTrash bool

	// FS overrides the filesystem. Nil uses OSFS.
	FS FS

	// Trash overrides the trash implementation. Nil uses trash.MoveToTrash.
	Trash TrashFunc
}

// Validate rejects option combinations that can never succeed.
func (o Options) Validate() error {
	switch o.Action {
	case types.ActionReport, types.ActionDelete:
	case types.ActionMove:
		if o.ReviewDir == "" {
			return ErrReviewDirRequired
		}
	default:
		return fmt.Errorf("%w: %q", types.ErrInvalidAction, o.Action)
	}

	switch o.KeepStrategy {
	case "", types.KeepBest, types.KeepNewest, types.KeepOldest:
	default:
		return fmt.Errorf("%w: %q", types.ErrInvalidKeepStrategy, o.KeepStrategy)
	}

	if _, err := types.ParseOrigin(string(o.PreferOrigin)); err != nil {
		return err
	}
	return nil
}

// Stats counts what a run did.
type Stats struct {
	Kept       int
	Duplicates int
	Moved      int
	Deleted    int
	Failed     int

	// Bytes is the size of the duplicates that were (or in a dry run,
	// would be) moved or deleted.
	Bytes int64

	// PrunedDirs lists directories removed by empty-parent cleanup.
	PrunedDirs []string
}

// Engine applies one resolution run.
type Engine struct {
	opts     Options
	fs       FS
	trash    TrashFunc
	strategy types.KeepStrategy
	reserved map[string]struct{}
	stats    Stats
}

// New validates opts and returns an engine.
func New(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		opts:     opts,
		fs:       opts.FS,
		trash:    opts.Trash,
		strategy: opts.KeepStrategy,
		reserved: make(map[string]struct{}),
	}
	if e.fs == nil {
		e.fs = OSFS{}
	}
	if e.trash == nil {
		e.trash = trash.MoveToTrash
	}
	if e.strategy == "" {
		e.strategy = types.KeepBest
	}
	return e, nil
}

// Stats returns the counters accumulated by Apply.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Apply resolves groups in order; group ids are 1-based positions. It
// returns early with the decisions made so far when ctx is cancelled
// between files.
func (e *Engine) Apply(ctx context.Context, groups []group.Group) ([]types.Decision, error) {
	var decisions []types.Decision

	for i, g := range groups {
		if len(g) == 0 {
			continue
		}
		id := i + 1
		keep := keeper.Choose(g, e.strategy, e.opts.PreferOrigin)

		decisions = append(decisions, types.Decision{
			GroupID:      id,
			Role:         types.RoleKeep,
			Action:       types.ActionKeep,
			Origin:       keep.Origin,
			Path:         keep.Path,
			TargetPath:   keep.Path,
			KeepPath:     keep.Path,
			KeepStrategy: e.strategy,
			Reason:       types.ReasonSelected,
		})
		e.stats.Kept++

		for _, t := range g {
			if t.Path == keep.Path {
				continue
			}
			if err := ctx.Err(); err != nil {
				return decisions, err
			}
			d := e.resolve(ctx, t)
			d.GroupID = id
			d.KeepPath = keep.Path
			decisions = append(decisions, d)
		}
	}

	logger.Info("resolution complete",
		"groups", len(groups),
		"action", e.opts.Action,
		"dry_run", e.opts.DryRun,
		"moved", e.stats.Moved,
		"deleted", e.stats.Deleted,
		"failed", e.stats.Failed,
	)
	return decisions, nil
}

// resolve produces the decision for one duplicate and performs its effect.
func (e *Engine) resolve(ctx context.Context, t types.TrackFile) types.Decision {
	d := types.Decision{
		Role:         types.RoleDuplicate,
		Action:       e.opts.Action,
		Origin:       t.Origin,
		Path:         t.Path,
		KeepStrategy: e.strategy,
	}
	e.stats.Duplicates++

	switch e.opts.Action {
	case types.ActionMove:
		e.move(t, &d)
	case types.ActionDelete:
		e.delete(ctx, t, &d)
	default:
		d.TargetPath = t.Path
		d.Reason = types.ReasonDuplicate
	}
	return d
}

func (e *Engine) move(t types.TrackFile, d *types.Decision) {
	dst, err := UniqueDestination(e.fs, e.opts.ReviewDir, t.Path, e.reserved)
	if err != nil {
		e.fail(d, types.ReasonMoveFailed, err)
		return
	}
	d.TargetPath = dst

	if !e.opts.DryRun {
		if err := e.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			e.fail(d, types.ReasonMoveFailed, err)
			return
		}
		if err := e.fs.Rename(t.Path, dst); err != nil {
			e.fail(d, types.ReasonMoveFailed, err)
			return
		}
		logger.Info("moved duplicate", "path", t.Path, "target", dst)
		e.prune(t.Path)
	}

	d.Reason = types.ReasonMoved
	e.stats.Moved++
	e.stats.Bytes += t.SizeBytes
}

func (e *Engine) delete(ctx context.Context, t types.TrackFile, d *types.Decision) {
	d.Reason = types.ReasonDeleted

	if !e.opts.DryRun {
		var err error
		if e.opts.UseTrash {
			err = e.trash(ctx, t.Path)
			d.Reason = types.ReasonTrashed
		} else {
			err = e.fs.Remove(t.Path)
		}
		if err != nil {
			e.fail(d, types.ReasonDeleteFailed, err)
			return
		}
		logger.Info("deleted duplicate", "path", t.Path, "trash", e.opts.UseTrash)
		e.prune(t.Path)
	}

	e.stats.Deleted++
	e.stats.Bytes += t.SizeBytes
}

func (e *Engine) prune(path string) {
	if !e.opts.CleanupEmptyDirs {
		return
	}
	removed := PruneEmptyParents(e.fs, path, e.opts.PruneRoots)
	for _, dir := range removed {
		logger.Debug("removed empty directory", "dir", dir)
	}
	e.stats.PrunedDirs = append(e.stats.PrunedDirs, removed...)
}

func (e *Engine) fail(d *types.Decision, reason string, err error) {
	d.Reason = reason + ": " + err.Error()
	e.stats.Failed++
	logger.Error("duplicate not resolved", "path", d.Path, "action", d.Action, "error", err)
}
