package view

import "strings"

// Model is the narrow slice of an application model that the view subsystem
// needs: enough identity to resolve a table name, and the fields a view can
// project from it.
type Model struct {
	// AppLabel groups models the way the surrounding application does
	// (e.g. "catalogue").
	AppLabel string

	// Name is the model's declared name (e.g. "Product").
	Name string

	// TableName overrides the default "applabel_modelname" table name.
	TableName string

	Fields []Column
}

// Table returns the model's configured table name, falling back to the
// default naming convention.
func (m *Model) Table() string {
	if m.TableName != "" {
		return m.TableName
	}
	return DefaultTableName(m.AppLabel, m.Name)
}

// DefaultTableName is the conventional table name for a model that is not
// (or no longer) registered.
func DefaultTableName(appLabel, modelName string) string {
	return appLabel + "_" + strings.ToLower(modelName)
}

// Field returns the named field, if declared.
func (m *Model) Field(name string) (Column, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Column{}, false
}
