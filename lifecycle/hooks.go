// Package lifecycle coordinates the view subsystem with the surrounding
// migration driver: drop affected views before migrations run, resync every
// view after the last application finishes migrating.
package lifecycle

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"

	"github.com/thelabnyc/pgviews/ddl"
	"github.com/thelabnyc/pgviews/internal/logger"
	"github.com/thelabnyc/pgviews/migrate"
	"github.com/thelabnyc/pgviews/syncer"
	"github.com/thelabnyc/pgviews/view"
)

// Runner abstracts the syncer so tests can observe the post-migration
// trigger.
type Runner interface {
	Run(ctx context.Context, force, update bool) error
}

// Hooks owns the per-database lifecycle state. State is keyed by connection
// alias so multi-database migration runs never cross-contaminate.
type Hooks struct {
	registry  *view.Registry
	totalApps int
	disabled  bool
	log       *slog.Logger

	mu        sync.Mutex
	preRan    map[string]bool
	postCount map[string]int

	// Seams for tests; default to the real implementations.
	newDropper func(db *sql.DB) migrate.Dropper
	newSyncer  func(db *sql.DB) Runner
}

// Option configures Hooks.
type Option func(*Hooks)

// WithDisabled turns the pre-migration hook into a no-op; a deployment that
// always runs a full sync afterwards may prefer that.
func WithDisabled(disabled bool) Option {
	return func(h *Hooks) { h.disabled = disabled }
}

// WithLogger overrides the hook logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Hooks) { h.log = log }
}

// New builds lifecycle hooks over a registry. totalApps is the number of
// installed application components that define models; the post-migration
// hook fires its sync once per database after that many invocations.
func New(reg *view.Registry, totalApps int, opts ...Option) *Hooks {
	h := &Hooks{
		registry:  reg,
		totalApps: totalApps,
		log:       logger.Get(),
		preRan:    make(map[string]bool),
		postCount: make(map[string]int),
		newDropper: func(db *sql.DB) migrate.Dropper {
			return ddl.NewOperations(db)
		},
		newSyncer: nil,
	}
	h.newSyncer = func(db *sql.DB) Runner {
		return syncer.New(reg, ddl.NewOperations(db))
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// PreMigrate runs once per migration cycle per database alias, before the
// plan applies. An empty plan is a no-op that still marks the cycle as run.
func (h *Hooks) PreMigrate(ctx context.Context, alias string, db *sql.DB, plan migrate.Plan) error {
	if h.disabled {
		return nil
	}

	h.mu.Lock()
	if h.preRan[alias] {
		h.mu.Unlock()
		return nil
	}
	h.preRan[alias] = true
	h.mu.Unlock()

	if len(plan) == 0 {
		return nil
	}
	return migrate.DropAffectedViews(ctx, h.registry, h.newDropper(db), plan)
}

// PostMigrate runs once per installed application component as the framework
// completes migrations. When every component has reported in for a database,
// it resyncs all views in forced, update-enabled mode and resets that
// database's cycle state.
func (h *Hooks) PostMigrate(ctx context.Context, alias string, db *sql.DB, appLabel string) error {
	h.mu.Lock()
	h.postCount[alias]++
	done := h.postCount[alias] >= h.totalApps
	h.mu.Unlock()

	if !done {
		return nil
	}

	h.log.Info("all applications have migrated, syncing views", "database", alias, "app", appLabel)
	err := h.newSyncer(db).Run(ctx, true, true)

	h.mu.Lock()
	h.postCount[alias] = 0
	delete(h.preRan, alias)
	h.mu.Unlock()

	return err
}
