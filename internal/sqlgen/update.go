package sqlgen

import (
	"strings"

	"entitysql/internal/metadata"
)

// UpdateWhereIDEquals builds
//
//	UPDATE <table> SET <col>=:<name>,... WHERE <id>=:<id> AND ...
//
// Identity columns never appear in SET.
func (g *Generator) UpdateWhereIDEquals(v any) (Statement, error) {
	e, err := g.identified(v)
	if err != nil {
		return Statement{}, err
	}
	normals := e.Normals()
	if len(normals) == 0 {
		return Statement{}, metadata.ConfigError(e.Name, "no updatable properties")
	}
	return updateStatement(e, normals), nil
}

// UpdateByConfig sets only the normal properties whose positivity on cfg
// equals positive. The WHERE clause always covers every identity.
func (g *Generator) UpdateByConfig(cfg any, positive bool) (Statement, error) {
	e, err := g.identified(cfg)
	if err != nil {
		return Statement{}, err
	}
	set, err := matching(cfg, e.Normals(), positive)
	if err != nil {
		return Statement{}, err
	}
	if len(set) == 0 {
		return Statement{}, metadata.ConfigError(e.Name, "no columns to update (positive=%t)", positive)
	}

	stmt := updateStatement(e, set)
	bound := append(append([]*metadata.Property{}, set...), e.Identities...)
	if stmt.Args, err = values(cfg, bound); err != nil {
		return Statement{}, err
	}
	return stmt, nil
}

func updateStatement(e *metadata.Entity, set []*metadata.Property) Statement {
	parts := make([]string, len(set))
	for i, p := range set {
		parts[i] = assignment(p, true)
	}
	return Statement{
		SQL:    "UPDATE " + e.SQLName + " SET " + strings.Join(parts, ",") + " WHERE " + idPredicate(e, true),
		Params: append(names(set), names(e.Identities)...),
		Named:  true,
	}
}
