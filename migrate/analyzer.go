package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/thelabnyc/pgviews/ddl"
	"github.com/thelabnyc/pgviews/internal/logger"
	"github.com/thelabnyc/pgviews/internal/sqlscan"
	"github.com/thelabnyc/pgviews/internal/utils"
	"github.com/thelabnyc/pgviews/view"
)

// TableSet is a set of database table names.
type TableSet map[string]struct{}

// OperationTables resolves one operation to the tables it touches.
// conservative is true when the operation's impact cannot be determined
// statically (raw SQL or procedural code); an empty set means no schema
// impact.
func OperationTables(reg *view.Registry, appLabel string, op Operation) (tables TableSet, conservative bool) {
	switch op := op.(type) {
	case SeparateDatabaseAndState:
		// Only the database sub-operations touch the real schema; the
		// state sub-list never does, even when it contains raw code.
		return AffectedTables(reg, appLabel, op.Database)

	case RunSQL, RunCode:
		return nil, true

	case AddField:
		return TableSet{reg.TableFor(appLabel, strings.ToLower(op.Model)): {}}, false
	case RemoveField:
		return TableSet{reg.TableFor(appLabel, strings.ToLower(op.Model)): {}}, false
	case AlterField:
		return TableSet{reg.TableFor(appLabel, strings.ToLower(op.Model)): {}}, false
	case RenameField:
		return TableSet{reg.TableFor(appLabel, strings.ToLower(op.Model)): {}}, false

	case AlterModelTable:
		tables := TableSet{reg.TableFor(appLabel, strings.ToLower(op.Name)): {}}
		if op.Table != "" {
			tables[op.Table] = struct{}{}
		}
		return tables, false

	case AlterModelOptions, AlterModelManagers:
		return TableSet{}, false

	case RenameModel:
		return TableSet{
			reg.TableFor(appLabel, strings.ToLower(op.OldName)): {},
			reg.TableFor(appLabel, strings.ToLower(op.NewName)): {},
		}, false

	case CreateModel:
		tables := TableSet{reg.TableFor(appLabel, strings.ToLower(op.Name)): {}}
		if op.Table != "" {
			tables[op.Table] = struct{}{}
		}
		return tables, false

	case DeleteModel:
		return TableSet{reg.TableFor(appLabel, strings.ToLower(op.Name)): {}}, false
	}

	// Unknown operations are assumed to have no schema impact.
	return TableSet{}, false
}

// AffectedTables resolves a list of operations under one app label.
func AffectedTables(reg *view.Registry, appLabel string, ops []Operation) (TableSet, bool) {
	tables := make(TableSet)
	for _, op := range ops {
		opTables, conservative := OperationTables(reg, appLabel, op)
		if conservative {
			return nil, true
		}
		for t := range opTables {
			tables[t] = struct{}{}
		}
	}
	return tables, false
}

// CollectAffectedTables aggregates the plan into a map from affected table to
// the set of migration IDs that touch it, so callers can explain why a table
// is considered affected. conservative is true when any operation in the
// plan defeats static analysis.
func CollectAffectedTables(reg *view.Registry, plan Plan) (map[string]TableSet, bool) {
	affected := make(map[string]TableSet)
	for _, planned := range plan {
		m := planned.Migration
		tables, conservative := AffectedTables(reg, m.AppLabel, m.Operations)
		if conservative {
			return nil, true
		}
		for t := range tables {
			if affected[t] == nil {
				affected[t] = make(TableSet)
			}
			affected[t][m.ID()] = struct{}{}
		}
	}
	return affected, false
}

// Dropper is the slice of ddl.Operations the analyzer needs.
type Dropper interface {
	DropView(ctx context.Context, name string, materialized bool) (ddl.Result, error)
}

// DropAffectedViews analyzes the plan and drops every view whose SQL depends
// on a table the plan will change. When the plan contains operations that
// cannot be analyzed, every registered view is dropped instead: raw SQL can
// touch arbitrary tables, and a stale view surviving a schema change it
// depended on is worse than an unnecessary recreate.
//
// DropView uses CASCADE, so transitive view dependencies are handled by
// PostgreSQL itself.
func DropAffectedViews(ctx context.Context, reg *view.Registry, d Dropper, plan Plan) error {
	if len(plan) == 0 {
		return nil
	}

	log := logger.Get()
	affected, conservative := CollectAffectedTables(reg, plan)

	if conservative {
		ids := make([]string, len(plan))
		for i, planned := range plan {
			ids[i] = planned.Migration.ID()
		}
		log.Info("plan contains raw SQL or code operations; dropping all views",
			"conservative_mode_triggered_by", strings.Join(ids, ", "))
	}

	for _, def := range reg.Views() {
		name := def.QualifiedName()

		if conservative {
			log.Info("dropping view (conservative mode)", "view", name)
		} else {
			triggering := make(map[string]struct{})
			for table := range sqlscan.Tables(def.SQL) {
				for id := range affected[table] {
					triggering[id] = struct{}{}
				}
			}
			if len(triggering) == 0 {
				continue
			}
			log.Info("dropping view; depends on tables altered by migrations",
				"view", name, "migrations", strings.Join(utils.SortedKeys(triggering), ", "))
		}

		if _, err := d.DropView(ctx, name, def.Materialized); err != nil {
			return fmt.Errorf("dropping view %s ahead of migrations: %w", name, err)
		}
	}
	return nil
}
