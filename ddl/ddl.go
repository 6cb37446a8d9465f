// Package ddl issues view DDL against PostgreSQL. It is the only package
// that executes CREATE/DROP/REFRESH statements for views.
package ddl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/thelabnyc/pgviews/internal/logger"
	"github.com/thelabnyc/pgviews/view"
)

// Result is the outcome of a single view DDL operation. Conflicts and
// already-exists states are results, not errors.
type Result string

const (
	Created       Result = "CREATED"
	Updated       Result = "UPDATED"
	Forced        Result = "FORCED"
	ForceRequired Result = "FORCE_REQUIRED"
	Exists        Result = "EXISTS"
	Dropped       Result = "DROPPED"
)

// conflictProbeView is the throwaway temporary view used to test whether a
// new body is structurally compatible with the existing view.
const conflictProbeView = "pgviews_conflict_check"

// Operations issues view DDL on a single database handle.
type Operations struct {
	db  *sql.DB
	log *slog.Logger
}

// NewOperations binds DDL operations to a database.
func NewOperations(db *sql.DB) *Operations {
	return &Operations{db: db, log: logger.Get()}
}

// CreateOptions configures CreateOrUpdateView.
type CreateOptions struct {
	// Name is the view's table name, optionally schema-qualified.
	Name string
	// SQL is the SELECT body.
	SQL string
	// Update allows replacing an existing view. When false an existing
	// view is left untouched and the result is Exists.
	Update bool
	// Force allows a destructive drop-and-recreate when the new body is
	// incompatible with the existing view's shape.
	Force bool
	// Materialized selects CREATE MATERIALIZED VIEW semantics.
	Materialized bool
	// ConcurrentIndexColumns names the unique index columns created after
	// a materialized view to permit concurrent refresh.
	ConcurrentIndexColumns []string
}

// quoteQualified quotes a possibly schema-qualified name for use in DDL.
func quoteQualified(name string) string {
	schema, bare := view.SplitName(name)
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(bare)
}

// CreateOrUpdateView creates the named view, or brings an existing one up to
// date. The whole operation runs in one transaction; the schema-conflict
// probe runs inside a savepoint so its failure rolls back only the probe.
func (o *Operations) CreateOrUpdateView(ctx context.Context, opts CreateOptions) (Result, error) {
	schema, bare := view.SplitName(opts.Name)
	qualified := quoteQualified(opts.Name)

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin view transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	exists, err := viewExists(ctx, tx, schema, bare, opts.Materialized)
	if err != nil {
		return "", err
	}
	if exists && !opts.Update {
		if err := tx.Commit(); err != nil {
			return "", err
		}
		return Exists, nil
	}

	forceRequired := false
	if exists {
		forceRequired, err = o.probeConflict(ctx, tx, qualified, opts.SQL)
		if err != nil {
			return "", err
		}
	}

	var ret Result
	switch {
	case opts.Materialized:
		// Materialized views cannot be replaced in place.
		if _, err := tx.ExecContext(ctx, "DROP MATERIALIZED VIEW IF EXISTS "+qualified+" CASCADE;"); err != nil {
			return "", fmt.Errorf("drop materialized view %s: %w", opts.Name, err)
		}
		if _, err := tx.ExecContext(ctx, "CREATE MATERIALIZED VIEW "+qualified+" AS "+opts.SQL+";"); err != nil {
			return "", fmt.Errorf("create materialized view %s: %w", opts.Name, err)
		}
		if len(opts.ConcurrentIndexColumns) > 0 {
			if _, err := tx.ExecContext(ctx, concurrentIndexSQL(bare, qualified, opts.ConcurrentIndexColumns)); err != nil {
				return "", fmt.Errorf("create concurrent-refresh index on %s: %w", opts.Name, err)
			}
		}
		ret = Created
		if exists {
			ret = Updated
		}
	case !forceRequired:
		if _, err := tx.ExecContext(ctx, "CREATE OR REPLACE VIEW "+qualified+" AS "+opts.SQL+";"); err != nil {
			return "", fmt.Errorf("create or replace view %s: %w", opts.Name, err)
		}
		ret = Created
		if exists {
			ret = Updated
		}
	case opts.Force:
		if _, err := tx.ExecContext(ctx, "DROP VIEW IF EXISTS "+qualified+" CASCADE;"); err != nil {
			return "", fmt.Errorf("drop view %s: %w", opts.Name, err)
		}
		if _, err := tx.ExecContext(ctx, "CREATE VIEW "+qualified+" AS "+opts.SQL+";"); err != nil {
			return "", fmt.Errorf("create view %s: %w", opts.Name, err)
		}
		ret = Forced
	default:
		// Incompatible body and no force: leave the existing view alone.
		ret = ForceRequired
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit view transaction: %w", err)
	}
	o.log.Debug("view DDL applied", "view", opts.Name, "result", string(ret), "materialized", opts.Materialized)
	return ret, nil
}

// viewExists consults the catalog for a view of the given name. Materialized
// views live in pg_matviews, plain views in information_schema.views.
func viewExists(ctx context.Context, tx *sql.Tx, schema, bare string, materialized bool) (bool, error) {
	query := "SELECT COUNT(*) FROM information_schema.views WHERE table_schema = $1 AND table_name = $2;"
	if materialized {
		query = "SELECT COUNT(*) FROM pg_matviews WHERE schemaname = $1 AND matviewname = $2;"
	}
	var count int
	if err := tx.QueryRowContext(ctx, query, schema, bare).Scan(&count); err != nil {
		return false, fmt.Errorf("check existence of view %s.%s: %w", schema, bare, err)
	}
	return count > 0, nil
}

// probeConflict copies the existing view into a temporary view and tries to
// redefine that copy with the new body. A server-side error from the
// redefinition means the new body is shape-incompatible with the old view.
// The probe never touches the real view and is always cleaned up.
func (o *Operations) probeConflict(ctx context.Context, tx *sql.Tx, qualified, body string) (conflict bool, err error) {
	if _, err := tx.ExecContext(ctx, "CREATE TEMPORARY VIEW "+conflictProbeView+" AS SELECT * FROM "+qualified+";"); err != nil {
		return false, fmt.Errorf("create conflict probe view: %w", err)
	}
	defer func() {
		if _, dropErr := tx.ExecContext(ctx, "DROP VIEW IF EXISTS "+conflictProbeView+";"); dropErr != nil && err == nil {
			err = fmt.Errorf("drop conflict probe view: %w", dropErr)
		}
	}()

	if _, err := tx.ExecContext(ctx, "SAVEPOINT conflict_probe;"); err != nil {
		return false, fmt.Errorf("open conflict probe savepoint: %w", err)
	}
	if _, execErr := tx.ExecContext(ctx, "CREATE OR REPLACE TEMPORARY VIEW "+conflictProbeView+" AS "+body+";"); execErr != nil {
		var pgErr *pgconn.PgError
		if !errors.As(execErr, &pgErr) {
			return false, execErr
		}
		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT conflict_probe;"); err != nil {
			return false, fmt.Errorf("roll back conflict probe: %w", err)
		}
		return true, nil
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT conflict_probe;"); err != nil {
		return false, fmt.Errorf("release conflict probe savepoint: %w", err)
	}
	return false, nil
}

// concurrentIndexSQL builds the unique index statement that permits
// REFRESH MATERIALIZED VIEW CONCURRENTLY.
func concurrentIndexSQL(bare, qualified string, columns []string) string {
	indexName := pq.QuoteIdentifier(bare + "_" + strings.Join(columns, "_") + "_index")
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return "CREATE UNIQUE INDEX " + indexName + " ON " + qualified + " (" + strings.Join(quoted, ", ") + ");"
}

// DropView removes the named view with CASCADE, so dependent views go with
// it. Dropping a view that does not exist is not an error.
func (o *Operations) DropView(ctx context.Context, name string, materialized bool) (Result, error) {
	qualified := quoteQualified(name)
	stmt := "DROP VIEW IF EXISTS " + qualified + " CASCADE;"
	if materialized {
		stmt = "DROP MATERIALIZED VIEW IF EXISTS " + qualified + " CASCADE;"
	}
	if _, err := o.db.ExecContext(ctx, stmt); err != nil {
		return "", fmt.Errorf("drop view %s: %w", name, err)
	}
	o.log.Debug("view dropped", "view", name, "materialized", materialized)
	return Dropped, nil
}

// RefreshMaterializedView refreshes the named materialized view. Concurrent
// refresh requires the unique index created via ConcurrentIndexColumns; the
// database enforces that precondition, not this package.
func (o *Operations) RefreshMaterializedView(ctx context.Context, name string, concurrently bool) error {
	stmt := "REFRESH MATERIALIZED VIEW "
	if concurrently {
		stmt = "REFRESH MATERIALIZED VIEW CONCURRENTLY "
	}
	if _, err := o.db.ExecContext(ctx, stmt+quoteQualified(name)+";"); err != nil {
		return fmt.Errorf("refresh materialized view %s: %w", name, err)
	}
	return nil
}
