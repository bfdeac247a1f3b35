// Package sqlgen synthesizes CRUD statement text from entity metadata.
//
// Named statements bind ":property" placeholders, positional statements bind
// "?". Nothing in this package performs I/O.
package sqlgen

import (
	"math/big"
	"strings"

	"entitysql/internal/metadata"
)

// IDSource hands out identifiers for blank auto-generated identities.
type IDSource interface {
	NextBig() *big.Int
	NextBase36() string
}

// Statement is generated SQL text plus its bindings.
type Statement struct {
	SQL string
	// Params lists the property names bound to placeholders, in placeholder order.
	Params []string
	// Args holds placeholder values when the statement was built from an instance.
	Args []any
	// Named is set when placeholders are ":name" rather than "?".
	Named bool
}

type Generator struct {
	reg *metadata.Registry
	ids IDSource
}

func New(reg *metadata.Registry, ids IDSource) *Generator {
	return &Generator{reg: reg, ids: ids}
}

// Registry returns the metadata registry statements are built from.
func (g *Generator) Registry() *metadata.Registry {
	return g.reg
}

func columns(props []*metadata.Property) string {
	cols := make([]string, len(props))
	for i, p := range props {
		cols[i] = p.SQLName
	}
	return strings.Join(cols, ",")
}

func names(props []*metadata.Property) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.Name
	}
	return out
}

// idPredicate ANDs every identity column: "a=? AND b=?" or "a=:a AND b=:b".
func idPredicate(e *metadata.Entity, named bool) string {
	parts := make([]string, len(e.Identities))
	for i, p := range e.Identities {
		parts[i] = assignment(p, named)
	}
	return strings.Join(parts, " AND ")
}

func assignment(p *metadata.Property, named bool) string {
	if named {
		return p.SQLName + "=:" + p.Name
	}
	return p.SQLName + "=?"
}

// batchPredicate matches n identity keys. A single identity column becomes an
// IN list, composite identities become OR-joined groups.
func batchPredicate(e *metadata.Entity, n int) (string, []string) {
	params := make([]string, 0, n*len(e.Identities))
	if len(e.Identities) == 1 {
		id := e.Identities[0]
		marks := make([]string, n)
		for i := range marks {
			marks[i] = "?"
			params = append(params, id.Name)
		}
		return id.SQLName + " IN (" + strings.Join(marks, ",") + ")", params
	}

	group := "(" + idPredicate(e, false) + ")"
	ids := names(e.Identities)
	groups := make([]string, n)
	for i := range groups {
		groups[i] = group
		params = append(params, ids...)
	}
	return strings.Join(groups, " OR "), params
}

// values reads props from instance in order.
func values(instance any, props []*metadata.Property) ([]any, error) {
	args := make([]any, len(props))
	for i, p := range props {
		v, err := p.Get(instance)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// matching keeps the props whose positivity on instance equals positive.
func matching(instance any, props []*metadata.Property, positive bool) ([]*metadata.Property, error) {
	var out []*metadata.Property
	for _, p := range props {
		v, err := p.Get(instance)
		if err != nil {
			return nil, err
		}
		if metadata.Positive(v) == positive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (g *Generator) identified(v any) (*metadata.Entity, error) {
	e, err := g.reg.Entity(v)
	if err != nil {
		return nil, err
	}
	if err := e.RequireIdentity(); err != nil {
		return nil, err
	}
	return e, nil
}

func batchSize(e *metadata.Entity, n int) error {
	if n < 1 {
		return metadata.ConfigError(e.Name, "batch size must be positive, got %d", n)
	}
	return nil
}
