package sqlgen

import (
	"strings"

	"entitysql/internal/metadata"
)

// InsertValues builds
//
//	INSERT INTO <table> (<col>,...) VALUES (:<name>,...)
//
// over every property of the entity in declaration order.
func (g *Generator) InsertValues(v any) (Statement, error) {
	e, err := g.reg.Entity(v)
	if err != nil {
		return Statement{}, err
	}
	return insertStatement(e, e.Properties), nil
}

// InsertByConfig inserts every identity plus the normal properties whose
// positivity on cfg equals positive. Args carries the values read from cfg.
func (g *Generator) InsertByConfig(cfg any, positive bool) (Statement, error) {
	e, err := g.reg.Entity(cfg)
	if err != nil {
		return Statement{}, err
	}

	normals, err := matching(cfg, e.Normals(), positive)
	if err != nil {
		return Statement{}, err
	}
	props := make([]*metadata.Property, 0, len(e.Identities)+len(normals))
	for _, p := range e.Properties {
		if p.Identity || contains(normals, p) {
			props = append(props, p)
		}
	}
	if len(props) == 0 {
		return Statement{}, metadata.ConfigError(e.Name, "no columns to insert (positive=%t)", positive)
	}

	stmt := insertStatement(e, props)
	if stmt.Args, err = values(cfg, props); err != nil {
		return Statement{}, err
	}
	return stmt, nil
}

func insertStatement(e *metadata.Entity, props []*metadata.Property) Statement {
	marks := make([]string, len(props))
	for i, p := range props {
		marks[i] = ":" + p.Name
	}
	return Statement{
		SQL:    "INSERT INTO " + e.SQLName + " (" + columns(props) + ") VALUES (" + strings.Join(marks, ",") + ")",
		Params: names(props),
		Named:  true,
	}
}

func contains(props []*metadata.Property, p *metadata.Property) bool {
	for _, q := range props {
		if q == p {
			return true
		}
	}
	return false
}
