package metadata

import (
	"reflect"
	"sync"
)

// FieldConfig is the explicit per-field configuration record.
type FieldConfig struct {
	SQLName      string `yaml:"sql_name"`
	Identity     bool   `yaml:"identity"`
	AutoGenerate *bool  `yaml:"auto_generate"` // nil means true for identities
	Temporary    bool   `yaml:"temporary"`
}

// TypeConfig is the explicit per-type configuration record. Fields is keyed by
// Go field name or property name.
type TypeConfig struct {
	SQLName string                 `yaml:"sql_name"`
	Fields  map[string]FieldConfig `yaml:"fields"`
}

// Registry holds configuration records and the per-type metadata cache.
type Registry struct {
	naming NameConverter

	mu        sync.RWMutex
	configs   map[reflect.Type]TypeConfig
	overrides map[string]TypeConfig // keyed by qualified type name
	defaults  map[reflect.Type]TypeConfig
	version   uint64 // bumped on every configuration change

	cache sync.Map // reflect.Type -> *Entity
}

func NewRegistry(naming NameConverter) *Registry {
	return &Registry{
		naming:    naming,
		configs:   make(map[reflect.Type]TypeConfig),
		overrides: make(map[string]TypeConfig),
		defaults:  make(map[reflect.Type]TypeConfig),
	}
}

// Naming returns the converter applied to names without an override.
func (r *Registry) Naming() NameConverter {
	return r.naming
}

// Register records the configuration for the type of sample. A cached entity
// for that type is discarded and rebuilt on next use.
func (r *Registry) Register(sample any, cfg TypeConfig) error {
	t, err := TypeOf(sample)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[t] = cfg
	r.version++
	r.cache.Delete(t)
	return nil
}

// Default records a fallback configuration for the type of sample, used
// only when neither Register nor an override supplies one.
func (r *Registry) Default(sample any, cfg TypeConfig) error {
	t, err := TypeOf(sample)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults[t] = cfg
	r.version++
	r.cache.Delete(t)
	return nil
}

// ApplyOverrides adds configuration records keyed by qualified type name,
// either the full "import/path.Type" or the short "pkg.Type" form. Records
// set through Register take precedence.
func (r *Registry) ApplyOverrides(overrides map[string]TypeConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, cfg := range overrides {
		r.overrides[name] = cfg
	}
	r.version++
	r.cache.Clear()
}

// Entity returns the metadata for v, which may be a struct value, a pointer
// to one, or a reflect.Type. It is built on first use and cached.
func (r *Registry) Entity(v any) (*Entity, error) {
	t, err := TypeOf(v)
	if err != nil {
		return nil, err
	}
	for {
		if e, ok := r.cache.Load(t); ok {
			return e.(*Entity), nil
		}

		cfg, version := r.configFor(t)
		e, err := build(t, cfg, r.naming)
		if err != nil {
			return nil, err
		}
		if r.storeIfCurrent(t, e, version) {
			return e, nil
		}
	}
}

// storeIfCurrent caches e unless the configuration changed while it was
// being built.
func (r *Registry) storeIfCurrent(t reflect.Type, e *Entity, version uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.version != version {
		return false
	}
	r.cache.Store(t, e)
	return true
}

func (r *Registry) configFor(t reflect.Type) (TypeConfig, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cfg, ok := r.configs[t]; ok {
		return cfg, r.version
	}
	if cfg, ok := r.overrides[t.PkgPath()+"."+t.Name()]; ok {
		return cfg, r.version
	}
	if cfg, ok := r.overrides[t.String()]; ok {
		return cfg, r.version
	}
	return r.defaults[t], r.version
}

// TypeOf resolves the struct type behind v.
func TypeOf(v any) (reflect.Type, error) {
	if v == nil {
		return nil, ConfigError("", "nil entity type")
	}
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, ConfigError(t.String(), "entity must be a struct, got %s", t.Kind())
	}
	return t, nil
}

func build(t reflect.Type, cfg TypeConfig, naming NameConverter) (*Entity, error) {
	e := &Entity{
		Name:    t.Name(),
		SQLName: naming.ResolveName(cfg.SQLName, t.Name()),
		Type:    t,
		byName:  make(map[string]*Property),
	}

	used := make(map[string]bool, len(cfg.Fields))
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		// Unexported fields have no accessors; embedded structs are not flattened.
		if !sf.IsExported() || sf.Anonymous {
			continue
		}

		name := propertyName(sf.Name)
		fc, ok := cfg.Fields[sf.Name]
		if ok {
			used[sf.Name] = true
		} else if fc, ok = cfg.Fields[name]; ok {
			used[name] = true
		}
		if fc.Temporary {
			continue
		}

		p := &Property{
			Name:    name,
			SQLName: naming.ResolveName(fc.SQLName, name),
			Type:    kindOf(sf.Type),
			GoType:  sf.Type,
			owner:   t,
			entity:  e.Name,
			index:   i,
		}
		if fc.Identity {
			p.Identity = true
			p.AutoGenerate = fc.AutoGenerate == nil || *fc.AutoGenerate
		}
		if p.AutoGenerate && !generatable(sf.Type) {
			return nil, ConfigError(e.Name, "auto-generated identity %s must be string, *string or *big.Int, got %s", name, sf.Type)
		}

		if prev := e.byName[name]; prev != nil {
			return nil, ConfigError(e.Name, "fields %s and %s both map to property %q", t.Field(prev.index).Name, sf.Name, name)
		}
		e.Properties = append(e.Properties, p)
		e.byName[name] = p
		if p.Identity {
			e.Identities = append(e.Identities, p)
		}
	}

	for key := range cfg.Fields {
		if !used[key] {
			return nil, ConfigError(e.Name, "configured field %q does not exist", key)
		}
	}
	if len(e.Properties) == 0 {
		return nil, ConfigError(e.Name, "no usable properties")
	}
	return e, nil
}

func generatable(t reflect.Type) bool {
	switch {
	case t.Kind() == reflect.String:
		return true
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.String:
		return true
	case t.Kind() == reflect.Pointer && t.Elem() == bigIntType:
		return true
	}
	return false
}
