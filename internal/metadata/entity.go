package metadata

import (
	"reflect"
	"strings"
)

// Entity is the cached, immutable persistable shape of one struct type.
type Entity struct {
	Name       string
	SQLName    string
	Type       reflect.Type
	Properties []*Property
	Identities []*Property

	byName map[string]*Property
}

// Property returns the property with the given name, or nil.
func (e *Entity) Property(name string) *Property {
	return e.byName[name]
}

// HasProperty returns true if the entity has a property with the given name.
func (e *Entity) HasProperty(name string) bool {
	return e.byName[name] != nil
}

// PropertyNames returns all property names in declaration order.
func (e *Entity) PropertyNames() []string {
	names := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		names[i] = p.Name
	}
	return names
}

// Columns returns the SQL names of all properties in declaration order.
func (e *Entity) Columns() []string {
	cols := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		cols[i] = p.SQLName
	}
	return cols
}

// Normals returns the properties that are not part of the identity.
func (e *Entity) Normals() []*Property {
	props := make([]*Property, 0, len(e.Properties)-len(e.Identities))
	for _, p := range e.Properties {
		if !p.Identity {
			props = append(props, p)
		}
	}
	return props
}

// RequireIdentity fails for entities without identity properties.
func (e *Entity) RequireIdentity() error {
	if len(e.Identities) == 0 {
		return ConfigError(e.Name, "no identity properties declared")
	}
	return nil
}

// PropertyForColumn matches a result-set column against SQL names first and
// property names second, ignoring case.
func (e *Entity) PropertyForColumn(column string) *Property {
	for _, p := range e.Properties {
		if strings.EqualFold(p.SQLName, column) {
			return p
		}
	}
	for _, p := range e.Properties {
		if strings.EqualFold(p.Name, column) {
			return p
		}
	}
	return nil
}
