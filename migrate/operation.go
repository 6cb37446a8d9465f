// Package migrate models a pending migration plan and decides which views to
// drop before the plan is applied.
package migrate

import (
	"context"
	"database/sql"
)

// Operation is one step of a migration. The analyzer resolves each concrete
// operation kind to the set of tables it touches.
type Operation interface {
	isOperation()
}

// AddField adds a column to a model's table.
type AddField struct {
	Model string
	Name  string
}

// RemoveField drops a column from a model's table.
type RemoveField struct {
	Model string
	Name  string
}

// AlterField changes a column's definition.
type AlterField struct {
	Model string
	Name  string
}

// RenameField renames a column.
type RenameField struct {
	Model   string
	OldName string
	NewName string
}

// CreateModel creates a model's table. Table optionally overrides the
// conventional table name.
type CreateModel struct {
	Name  string
	Table string
}

// DeleteModel drops a model's table.
type DeleteModel struct {
	Name string
}

// RenameModel renames a model, moving its table from the old conventional
// name to the new one.
type RenameModel struct {
	OldName string
	NewName string
}

// AlterModelTable moves a model to an explicitly named table.
type AlterModelTable struct {
	Name  string
	Table string
}

// AlterModelOptions changes presentation-only model options. No schema
// impact.
type AlterModelOptions struct {
	Name string
}

// AlterModelManagers changes the model's manager list. No schema impact.
type AlterModelManagers struct {
	Name string
}

// RunSQL executes raw SQL. Its impact cannot be determined statically.
type RunSQL struct {
	SQL        string
	ReverseSQL string
}

// RunCode executes arbitrary procedural code against the database. Its
// impact cannot be determined statically.
type RunCode struct {
	Forward func(context.Context, *sql.Tx) error
	Reverse func(context.Context, *sql.Tx) error
}

// SeparateDatabaseAndState pairs operations that only adjust bookkeeping
// state with the operations actually run against the database.
type SeparateDatabaseAndState struct {
	State    []Operation
	Database []Operation
}

func (AddField) isOperation()                 {}
func (RemoveField) isOperation()              {}
func (AlterField) isOperation()               {}
func (RenameField) isOperation()              {}
func (CreateModel) isOperation()              {}
func (DeleteModel) isOperation()              {}
func (RenameModel) isOperation()              {}
func (AlterModelTable) isOperation()          {}
func (AlterModelOptions) isOperation()        {}
func (AlterModelManagers) isOperation()       {}
func (RunSQL) isOperation()                   {}
func (RunCode) isOperation()                  {}
func (SeparateDatabaseAndState) isOperation() {}

// Migration is a named, ordered list of operations under one app label.
type Migration struct {
	AppLabel   string
	Name       string
	Operations []Operation
}

// ID identifies a migration in logs and affected-table maps.
func (m *Migration) ID() string {
	return m.AppLabel + "." + m.Name
}

// PlannedMigration is one entry of a migration plan.
type PlannedMigration struct {
	Migration *Migration
	Backward  bool
}

// Plan is the ordered list of migrations about to be applied.
type Plan []PlannedMigration
