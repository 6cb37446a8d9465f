// Package pgviews manages PostgreSQL views declared by application code as
// first-class entities: dependency-ordered synchronization, migration-aware
// dropping, and materialized-view refresh.
package pgviews

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/thelabnyc/pgviews/ddl"
	"github.com/thelabnyc/pgviews/internal/logger"
	"github.com/thelabnyc/pgviews/syncer"
	"github.com/thelabnyc/pgviews/view"
)

// SyncOptions configures a sync pass.
type SyncOptions struct {
	// Force drops and recreates views whose new body is incompatible with
	// the existing one.
	Force bool
	// Update replaces existing views; when false, existing views are left
	// untouched.
	Update bool
	// OnViewSynced fires after each synced view.
	OnViewSynced func(syncer.Event)
	// OnAllSynced fires once after a full successful pass.
	OnAllSynced func()
}

// Sync creates or updates every view in the registry in dependency order.
func Sync(ctx context.Context, db *sql.DB, reg *view.Registry, opts SyncOptions) error {
	s := syncer.New(reg, ddl.NewOperations(db))
	s.OnViewSynced = opts.OnViewSynced
	s.OnAllSynced = opts.OnAllSynced
	return s.Run(ctx, opts.Force, opts.Update)
}

// Clear unconditionally drops every view in the registry. Use it before
// schema changes that the migration analyzer cannot see.
func Clear(ctx context.Context, db *sql.DB, reg *view.Registry) error {
	log := logger.Get()
	ops := ddl.NewOperations(db)
	for _, d := range reg.Views() {
		result, err := ops.DropView(ctx, d.Name, d.Materialized)
		if err != nil {
			return err
		}
		msg := "not dropped"
		if result == ddl.Dropped {
			msg = "dropped"
		}
		log.Info("view "+msg, "view", d.QualifiedName())
	}
	return nil
}

// RefreshOptions configures Refresh.
type RefreshOptions struct {
	// Names limits the refresh to the named views; empty means every
	// materialized view in the registry.
	Names []string
	// Concurrently refreshes without locking out readers; requires the
	// view to have been created with ConcurrentIndexColumns.
	Concurrently bool
	// Jobs is the number of refreshes run in parallel. Values below 1
	// mean sequential.
	Jobs int
}

// Refresh refreshes materialized views. Refreshes are independent of each
// other, so they may run in parallel under opts.Jobs.
func Refresh(ctx context.Context, db *sql.DB, reg *view.Registry, opts RefreshOptions) error {
	ops := ddl.NewOperations(db)

	var targets []*view.Definition
	if len(opts.Names) == 0 {
		for _, d := range reg.Views() {
			if d.Materialized {
				targets = append(targets, d)
			}
		}
	} else {
		for _, name := range opts.Names {
			d, ok := reg.ViewByName(name)
			if !ok {
				return &UnknownViewError{Name: name}
			}
			if !d.Materialized {
				return &NotMaterializedError{Name: d.QualifiedName()}
			}
			targets = append(targets, d)
		}
	}

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, d := range targets {
		g.Go(func() error {
			return ops.RefreshMaterializedView(gctx, d.Name, opts.Concurrently)
		})
	}
	return g.Wait()
}

// UnknownViewError reports a refresh target that is not registered.
type UnknownViewError struct {
	Name string
}

func (e *UnknownViewError) Error() string {
	return "unknown view: " + e.Name
}

// NotMaterializedError reports a refresh target that is a plain view.
type NotMaterializedError struct {
	Name string
}

func (e *NotMaterializedError) Error() string {
	return "view is not materialized: " + e.Name
}
