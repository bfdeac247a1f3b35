package sqlgen

import (
	"entitysql/internal/metadata"
)

// SelectWhereIDEquals builds
//
//	SELECT <cols> FROM <table> WHERE <id>=? AND ...
//
// with placeholders in identity declaration order.
func (g *Generator) SelectWhereIDEquals(v any) (Statement, error) {
	e, err := g.identified(v)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:    selectFrom(e, e.Properties) + " WHERE " + idPredicate(e, false),
		Params: names(e.Identities),
	}, nil
}

// SelectWhereBatchIDs looks up n keys at once. Keys are bound in caller order
// and repeated keys are not collapsed.
func (g *Generator) SelectWhereBatchIDs(v any, n int) (Statement, error) {
	e, err := g.identified(v)
	if err != nil {
		return Statement{}, err
	}
	if err := batchSize(e, n); err != nil {
		return Statement{}, err
	}
	where, params := batchPredicate(e, n)
	return Statement{
		SQL:    selectFrom(e, e.Properties) + " WHERE " + where,
		Params: params,
	}, nil
}

// SelectByConfig selects the properties whose positivity on cfg equals
// positive, filtered by every identity of cfg.
func (g *Generator) SelectByConfig(cfg any, positive bool) (Statement, error) {
	e, err := g.identified(cfg)
	if err != nil {
		return Statement{}, err
	}
	props, err := matching(cfg, e.Properties, positive)
	if err != nil {
		return Statement{}, err
	}
	if len(props) == 0 {
		return Statement{}, metadata.ConfigError(e.Name, "no columns to select (positive=%t)", positive)
	}
	args, err := values(cfg, e.Identities)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:    selectFrom(e, props) + " WHERE " + idPredicate(e, false),
		Params: names(e.Identities),
		Args:   args,
	}, nil
}

// SelectWhereTrue ends in "WHERE 1=1" so conditions can be appended verbatim.
func (g *Generator) SelectWhereTrue(v any) (Statement, error) {
	e, err := g.reg.Entity(v)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: selectFrom(e, e.Properties) + " WHERE 1=1"}, nil
}

// CountWhereTrue ends in "WHERE 1=1" so conditions can be appended verbatim.
func (g *Generator) CountWhereTrue(v any) (Statement, error) {
	e, err := g.reg.Entity(v)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "SELECT COUNT(*) FROM " + e.SQLName + " WHERE 1=1"}, nil
}

func selectFrom(e *metadata.Entity, props []*metadata.Property) string {
	return "SELECT " + columns(props) + " FROM " + e.SQLName
}
