package store

import (
	"context"
	"fmt"
	"strings"

	"entitysql/internal/metadata"
)

type Migrator struct {
	store *Store
}

func NewMigrator(store *Store) *Migrator {
	return &Migrator{store: store}
}

// EnsureTable creates the entity's table if it does not exist yet. Existing
// tables are left untouched.
func (m *Migrator) EnsureTable(ctx context.Context, entity *metadata.Entity) error {
	if _, err := Exec(ctx, m.store.DB, CreateTableSQL(entity)); err != nil {
		return fmt.Errorf("create table %s: %w", entity.SQLName, err)
	}
	return nil
}

// CreateTableSQL returns the DDL for the entity. Column types are chosen to
// be accepted by both PostgreSQL and SQLite.
func CreateTableSQL(entity *metadata.Entity) string {
	cols := make([]string, 0, len(entity.Properties)+1)
	for _, p := range entity.Properties {
		col := p.SQLName + " " + columnType(p)
		if p.Identity {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	if len(entity.Identities) > 0 {
		ids := make([]string, len(entity.Identities))
		for i, p := range entity.Identities {
			ids[i] = p.SQLName
		}
		cols = append(cols, "PRIMARY KEY ("+strings.Join(ids, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", entity.SQLName, strings.Join(cols, ",\n\t"))
}

func columnType(p *metadata.Property) string {
	if p.IsBigInt() {
		// Packed identifiers exceed 64 bits; keep them as decimal text.
		return "VARCHAR(40)"
	}
	switch p.Type {
	case metadata.KindBool:
		return "BOOLEAN"
	case metadata.KindInt:
		return "BIGINT"
	case metadata.KindFloat:
		return "DOUBLE PRECISION"
	case metadata.KindDecimal:
		return "NUMERIC"
	case metadata.KindBytes:
		return "BYTEA"
	case metadata.KindDate:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}
