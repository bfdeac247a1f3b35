package sqlgen

// DeleteWhereTrue ends in "WHERE 1=1" so conditions can be appended verbatim.
func (g *Generator) DeleteWhereTrue(v any) (Statement, error) {
	e, err := g.reg.Entity(v)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "DELETE FROM " + e.SQLName + " WHERE 1=1"}, nil
}

// DeleteWhereIDEquals deletes by identity with positional placeholders.
func (g *Generator) DeleteWhereIDEquals(v any) (Statement, error) {
	return g.deleteByID(v, false)
}

// DeleteNamedIDEquals deletes by identity with ":name" placeholders.
func (g *Generator) DeleteNamedIDEquals(v any) (Statement, error) {
	return g.deleteByID(v, true)
}

func (g *Generator) deleteByID(v any, named bool) (Statement, error) {
	e, err := g.identified(v)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:    "DELETE FROM " + e.SQLName + " WHERE " + idPredicate(e, named),
		Params: names(e.Identities),
		Named:  named,
	}, nil
}

// DeleteWhereBatchIDs deletes n keys with the same predicate as
// SelectWhereBatchIDs. Duplicate keys are passed through as given.
func (g *Generator) DeleteWhereBatchIDs(v any, n int) (Statement, error) {
	e, err := g.identified(v)
	if err != nil {
		return Statement{}, err
	}
	if err := batchSize(e, n); err != nil {
		return Statement{}, err
	}
	where, params := batchPredicate(e, n)
	return Statement{
		SQL:    "DELETE FROM " + e.SQLName + " WHERE " + where,
		Params: params,
	}, nil
}
