package view

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// fieldSpecRe recognizes "app.Model.field" and "app.Model.*" projection
// specifiers.
var fieldSpecRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)\.(\*|(?:[A-Za-z_][A-Za-z0-9_]*))$`)

type modelKey struct {
	appLabel  string
	modelName string // lowercase
}

type pendingProjection struct {
	view      *Definition
	fieldName string // "*" projects every field
}

// Registry owns every view definition and model known to the application. It
// is constructed once at application start and passed to the components that
// need it; the pending-projection table it carries lives as long as the
// registry does, with entries removed as they resolve.
type Registry struct {
	mu      sync.Mutex
	views   []*Definition
	byName  map[string]*Definition
	models  map[modelKey]*Model
	pending map[modelKey][]pendingProjection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*Definition),
		models:  make(map[modelKey]*Model),
		pending: make(map[modelKey][]pendingProjection),
	}
}

// RegisterView validates and registers a view definition. Projection
// specifiers against already-registered models resolve immediately; the rest
// are deferred until RegisterModel sees the source model. A malformed
// specifier fails here, before any database interaction, and a failed
// registration leaves no trace in the registry.
func (r *Registry) RegisterView(d *Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}

	name := d.QualifiedName()

	// Parse every specifier before touching any registry state, so a bad
	// spec cannot leave pending projections pointing at a rejected view.
	type projection struct {
		key       modelKey
		fieldName string
	}
	projections := make([]projection, 0, len(d.Projections))
	for _, spec := range d.Projections {
		m := fieldSpecRe.FindStringSubmatch(spec)
		if m == nil {
			return fmt.Errorf("view %s: unrecognized field specifier %q", name, spec)
		}
		projections = append(projections, projection{
			key:       modelKey{appLabel: m[1], modelName: strings.ToLower(m[2])},
			fieldName: m[3],
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("view %s is already registered", name)
	}

	for _, p := range projections {
		if model, ok := r.models[p.key]; ok {
			projectFields(d, model, p.fieldName)
		} else {
			r.pending[p.key] = append(r.pending[p.key], pendingProjection{view: d, fieldName: p.fieldName})
		}
	}

	r.views = append(r.views, d)
	r.byName[name] = d
	return nil
}

// RegisterModel makes a model available for projection and table-name
// resolution, then resolves any projections that were waiting on it. The
// pending entry is removed on resolution, so repeat registrations are no-ops
// for projection purposes.
func (r *Registry) RegisterModel(m *Model) error {
	if m.AppLabel == "" || m.Name == "" {
		return fmt.Errorf("model registration requires an app label and a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := modelKey{appLabel: m.AppLabel, modelName: strings.ToLower(m.Name)}
	r.models[key] = m

	pending := r.pending[key]
	delete(r.pending, key)
	for _, p := range pending {
		projectFields(p.view, m, p.fieldName)
	}
	return nil
}

// projectFields copies the named field (or all fields under "*") from the
// model onto the view, skipping names the view already declares so explicit
// overrides win.
func projectFields(d *Definition, m *Model, fieldName string) {
	if fieldName == "*" {
		for _, f := range m.Fields {
			if !d.HasColumn(f.Name) {
				d.AddColumn(f)
			}
		}
		return
	}
	if f, ok := m.Field(fieldName); ok && !d.HasColumn(f.Name) {
		d.AddColumn(f)
	}
}

// Views returns every registered view definition in registration order.
func (r *Registry) Views() []*Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Definition, len(r.views))
	copy(out, r.views)
	return out
}

// ViewByName returns the definition registered under the given (possibly
// unqualified) name.
func (r *Registry) ViewByName(name string) (*Definition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byName[Qualify(name)]
	return d, ok
}

// Model resolves a registered model by app label and case-insensitive model
// name.
func (r *Registry) Model(appLabel, modelName string) (*Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[modelKey{appLabel: appLabel, modelName: strings.ToLower(modelName)}]
	return m, ok
}

// TableFor resolves a model reference to its table name, falling back to the
// default naming convention when the model is not registered (e.g. it has
// been removed from code but a migration still names it).
func (r *Registry) TableFor(appLabel, modelName string) string {
	if m, ok := r.Model(appLabel, modelName); ok {
		return m.Table()
	}
	return DefaultTableName(appLabel, modelName)
}

// PendingProjections reports how many source models still have unresolved
// projections.
func (r *Registry) PendingProjections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
