// Package syncer creates and updates registered views in dependency order.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thelabnyc/pgviews/ddl"
	"github.com/thelabnyc/pgviews/internal/logger"
	"github.com/thelabnyc/pgviews/view"
)

// maxPasses bounds the backlog loop. A view still in the backlog after this
// many passes has an undeclared or cyclic dependency.
const maxPasses = 10

// DDL is the slice of ddl.Operations the syncer needs.
type DDL interface {
	CreateOrUpdateView(ctx context.Context, opts ddl.CreateOptions) (ddl.Result, error)
}

// Event describes one successfully synced view.
type Event struct {
	// View is the qualified view name.
	View string
	// Result is the DDL outcome.
	Result ddl.Result
	// HasChanged is false when the database was left untouched (Exists or
	// ForceRequired).
	HasChanged bool
	// Update and Force echo the run's flags.
	Update bool
	Force  bool
}

// SyncError wraps a database error with the identity of the view whose sync
// failed.
type SyncError struct {
	View string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("syncing view %s: %v", e.View, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Syncer runs the dependency-ordered create/update pass over every
// registered view.
type Syncer struct {
	Registry *view.Registry
	DDL      DDL
	Logger   *slog.Logger

	// OnViewSynced fires after each successfully synced view.
	OnViewSynced func(Event)
	// OnAllSynced fires once when every view has been placed within the
	// pass limit.
	OnAllSynced func()
}

// New builds a Syncer over the given registry and DDL operations.
func New(reg *view.Registry, d DDL) *Syncer {
	return &Syncer{Registry: reg, DDL: d, Logger: logger.Get()}
}

// Run creates or updates every registered view, placing each view only after
// all of its declared dependencies have been synced in this run. Views whose
// dependencies never resolve within the pass limit are left un-synced with a
// warning; a database error aborts the run immediately.
func (s *Syncer) Run(ctx context.Context, force, update bool) error {
	synced := make(map[string]struct{})
	backlog := s.Registry.Views()

	for pass := 0; len(backlog) > 0 && pass < maxPasses; pass++ {
		var err error
		backlog, err = s.runBacklog(ctx, backlog, synced, force, update)
		if err != nil {
			return err
		}
	}

	if len(backlog) > 0 {
		names := make([]string, len(backlog))
		for i, d := range backlog {
			names[i] = d.QualifiedName()
		}
		s.Logger.Warn("view sync hit the pass limit; check that dependency declarations are correct",
			"passes", maxPasses, "unsynced", names)
		return nil
	}

	if s.OnAllSynced != nil {
		s.OnAllSynced()
	}
	return nil
}

// runBacklog attempts one pass over the backlog, returning the views that
// must wait for a dependency synced later.
func (s *Syncer) runBacklog(ctx context.Context, backlog []*view.Definition, synced map[string]struct{}, force, update bool) ([]*view.Definition, error) {
	var next []*view.Definition
	for _, d := range backlog {
		name := d.QualifiedName()

		blocked := false
		for _, dep := range d.Dependencies {
			if _, ok := synced[view.Qualify(dep)]; !ok {
				blocked = true
				break
			}
		}
		if blocked {
			s.Logger.Info("requeueing view behind unsynced dependency", "view", name)
			next = append(next, d)
			continue
		}

		result, err := s.DDL.CreateOrUpdateView(ctx, ddl.CreateOptions{
			Name:                   d.Name,
			SQL:                    d.SQL,
			Update:                 update,
			Force:                  force,
			Materialized:           d.Materialized,
			ConcurrentIndexColumns: d.ConcurrentIndexColumns,
		})
		if err != nil {
			return nil, &SyncError{View: name, Err: err}
		}

		synced[name] = struct{}{}
		if s.OnViewSynced != nil {
			s.OnViewSynced(Event{
				View:       name,
				Result:     result,
				HasChanged: result != ddl.Exists && result != ddl.ForceRequired,
				Update:     update,
				Force:      force,
			})
		}
		s.Logger.Info("view "+resultMessage(result), "view", name)
	}
	return next, nil
}

func resultMessage(r ddl.Result) string {
	switch r {
	case ddl.Created:
		return "created"
	case ddl.Updated:
		return "updated"
	case ddl.Exists:
		return "already exists, skipping"
	case ddl.Forced:
		return "forced overwrite of existing schema"
	case ddl.ForceRequired:
		return "exists with incompatible schema, force required to update"
	default:
		return string(r)
	}
}
