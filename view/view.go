// Package view defines the declarative model for PostgreSQL views and the
// registry that tracks view definitions and their field projections.
package view

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/thelabnyc/pgviews/internal/sqlscan"
)

// ErrReadOnly is returned when a mutation is attempted against a view
// declared with ReadOnly set.
var ErrReadOnly = errors.New("view is read-only")

// Column is a single output column of a view. Columns are either declared
// explicitly on a Definition or copied from a source model via a projection.
type Column struct {
	Name string
	Type string
}

// Definition declares a PostgreSQL view. Applications populate a Definition
// and register it; the registry and synchronizer treat it as immutable from
// that point on.
type Definition struct {
	// Name is the view's table name, optionally schema-qualified
	// ("schema.name"). Unqualified names live in the "public" schema.
	Name string

	// SQL is the SELECT statement that defines the view body.
	SQL string

	// Dependencies lists the qualified names of other views that must be
	// synchronized before this one.
	Dependencies []string

	// Materialized marks this as a materialized view.
	Materialized bool

	// ConcurrentIndexColumns, when set on a materialized view, names the
	// columns of a unique index created after the view so that
	// REFRESH MATERIALIZED VIEW CONCURRENTLY is permitted.
	ConcurrentIndexColumns []string

	// ReadOnly rejects mutation operations issued through this definition.
	ReadOnly bool

	// Projections lists field specifiers ("app.Model.field" or
	// "app.Model.*") whose columns are copied from the named model once it
	// becomes available.
	Projections []string

	columns []Column
}

// SplitName splits a possibly schema-qualified name into its schema and bare
// parts, defaulting to the public schema.
func SplitName(name string) (schema, bare string) {
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "public", name
}

// Qualify returns the canonical schema-qualified form of a view name.
func Qualify(name string) string {
	schema, bare := SplitName(name)
	return schema + "." + bare
}

// QualifiedName returns the definition's canonical schema-qualified name.
func (d *Definition) QualifiedName() string {
	return Qualify(d.Name)
}

// Columns returns the view's declared and projected columns in order.
func (d *Definition) Columns() []Column {
	out := make([]Column, len(d.columns))
	copy(out, d.columns)
	return out
}

// HasColumn reports whether a column with the given name is already declared.
func (d *Definition) HasColumn(name string) bool {
	for _, c := range d.columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// AddColumn declares a column explicitly. Explicit columns take precedence
// over projected ones.
func (d *Definition) AddColumn(c Column) {
	d.columns = append(d.columns, c)
}

// EnsureWritable returns ErrReadOnly when the definition rejects mutations.
func (d *Definition) EnsureWritable() error {
	if d.ReadOnly {
		return fmt.Errorf("%s: %w", d.QualifiedName(), ErrReadOnly)
	}
	return nil
}

// Validate checks a definition before any database interaction: the body
// must parse as a single SELECT statement, must not reference the view's own
// table, and the option combination must be coherent.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.New("view definition has no name")
	}
	if strings.TrimSpace(d.SQL) == "" {
		return fmt.Errorf("view %s has no SQL body", d.Name)
	}
	if len(d.ConcurrentIndexColumns) > 0 && !d.Materialized {
		return fmt.Errorf("view %s: concurrent index columns require a materialized view", d.Name)
	}

	parsed, err := pg_query.Parse(d.SQL)
	if err != nil {
		return fmt.Errorf("view %s: invalid SQL: %w", d.Name, err)
	}
	if len(parsed.Stmts) != 1 {
		return fmt.Errorf("view %s: body must be a single statement, got %d", d.Name, len(parsed.Stmts))
	}
	if parsed.Stmts[0].Stmt.GetSelectStmt() == nil {
		return fmt.Errorf("view %s: body must be a SELECT statement", d.Name)
	}

	schema, bare := SplitName(d.Name)
	for _, ref := range sqlscan.Refs(d.SQL) {
		if ref.Name != bare {
			continue
		}
		// An unqualified reference resolves via the search path, so treat it
		// as the view's own schema. A qualified one must match exactly.
		if ref.Schema == "" || ref.Schema == schema {
			return fmt.Errorf("view %s: SQL references its own table", d.Name)
		}
	}
	return nil
}
