package view

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		bare   string
	}{
		{"myview", "public", "myview"},
		{"public.myview", "public", "myview"},
		{"reporting.orders", "reporting", "orders"},
	}
	for _, tt := range tests {
		schema, bare := SplitName(tt.name)
		if schema != tt.schema || bare != tt.bare {
			t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tt.name, schema, bare, tt.schema, tt.bare)
		}
	}
}

func TestQualify(t *testing.T) {
	if got := Qualify("myview"); got != "public.myview" {
		t.Errorf("Qualify(myview) = %q, want public.myview", got)
	}
	if got := Qualify("reporting.orders"); got != "reporting.orders" {
		t.Errorf("Qualify(reporting.orders) = %q, want reporting.orders", got)
	}
}

func TestDefinitionValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr string
	}{
		{
			name: "valid plain view",
			def:  Definition{Name: "product_summary", SQL: "SELECT id, title FROM catalogue_product"},
		},
		{
			name: "valid materialized view with index",
			def: Definition{
				Name:                   "product_counts",
				SQL:                    "SELECT category_id, COUNT(*) AS n FROM catalogue_product GROUP BY category_id",
				Materialized:           true,
				ConcurrentIndexColumns: []string{"category_id"},
			},
		},
		{
			name:    "missing name",
			def:     Definition{SQL: "SELECT 1"},
			wantErr: "no name",
		},
		{
			name:    "missing body",
			def:     Definition{Name: "v"},
			wantErr: "no SQL body",
		},
		{
			name: "concurrent index on plain view",
			def: Definition{
				Name:                   "v",
				SQL:                    "SELECT 1 AS one",
				ConcurrentIndexColumns: []string{"one"},
			},
			wantErr: "require a materialized view",
		},
		{
			name:    "unparseable body",
			def:     Definition{Name: "v", SQL: "SELEC wrong"},
			wantErr: "invalid SQL",
		},
		{
			name:    "multiple statements",
			def:     Definition{Name: "v", SQL: "SELECT 1; SELECT 2"},
			wantErr: "single statement",
		},
		{
			name:    "non-select body",
			def:     Definition{Name: "v", SQL: "UPDATE catalogue_product SET title = 'x'"},
			wantErr: "must be a SELECT",
		},
		{
			name:    "self reference",
			def:     Definition{Name: "product_summary", SQL: "SELECT * FROM product_summary"},
			wantErr: "references its own table",
		},
		{
			name:    "qualified self reference",
			def:     Definition{Name: "public.product_summary", SQL: "SELECT * FROM product_summary"},
			wantErr: "references its own table",
		},
		{
			name:    "self reference qualified in the body",
			def:     Definition{Name: "reporting.orders", SQL: "SELECT * FROM reporting.orders"},
			wantErr: "references its own table",
		},
		{
			name: "same-named table in another schema is not a self reference",
			def:  Definition{Name: "orders", SQL: "SELECT * FROM reporting.orders"},
		},
		{
			name: "same-named quoted table in another schema",
			def:  Definition{Name: "reporting.orders", SQL: `SELECT * FROM "archive"."orders"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEnsureWritable(t *testing.T) {
	writable := &Definition{Name: "v", SQL: "SELECT 1"}
	if err := writable.EnsureWritable(); err != nil {
		t.Errorf("EnsureWritable() on writable view: %v", err)
	}

	readonly := &Definition{Name: "v", SQL: "SELECT 1", ReadOnly: true}
	err := readonly.EnsureWritable()
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("EnsureWritable() = %v, want ErrReadOnly", err)
	}
}

func TestColumns(t *testing.T) {
	d := &Definition{Name: "v", SQL: "SELECT 1"}
	d.AddColumn(Column{Name: "id", Type: "integer"})
	if !d.HasColumn("id") {
		t.Error("HasColumn(id) = false after AddColumn")
	}
	if d.HasColumn("missing") {
		t.Error("HasColumn(missing) = true")
	}

	cols := d.Columns()
	cols[0].Name = "mutated"
	if d.Columns()[0].Name != "id" {
		t.Error("Columns() must return a copy")
	}
}
