package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entitysql/internal/instrument"
	"entitysql/internal/metadata"
	"entitysql/internal/sqlgen"
)

// Dao runs generated statements for one entity type against a Store.
type Dao[T any] struct {
	store  *Store
	gen    *sqlgen.Generator
	entity *metadata.Entity
	rec    instrument.Recorder
}

func NewDao[T any](s *Store, gen *sqlgen.Generator) (*Dao[T], error) {
	var zero *T
	e, err := gen.Registry().Entity(zero)
	if err != nil {
		return nil, err
	}
	return &Dao[T]{store: s, gen: gen, entity: e, rec: instrument.Noop{}}, nil
}

// WithRecorder reports every executed statement to rec.
func (d *Dao[T]) WithRecorder(rec instrument.Recorder) *Dao[T] {
	if rec == nil {
		rec = instrument.Noop{}
	}
	d.rec = rec
	return d
}

// Entity returns the metadata the DAO was built for.
func (d *Dao[T]) Entity() *metadata.Entity {
	return d.entity
}

// Insert assigns blank auto-generated identities and inserts every property.
func (d *Dao[T]) Insert(ctx context.Context, v *T) (int64, error) {
	if err := d.gen.AssignGeneratedIdentity(v); err != nil {
		return 0, err
	}
	stmt, err := d.gen.InsertValues(v)
	if err != nil {
		return 0, err
	}
	return d.exec(ctx, stmt, v, nil)
}

// InsertByConfig inserts the identities plus the properties of v whose
// positivity equals positive.
func (d *Dao[T]) InsertByConfig(ctx context.Context, v *T, positive bool) (int64, error) {
	if err := d.gen.AssignGeneratedIdentity(v); err != nil {
		return 0, err
	}
	stmt, err := d.gen.InsertByConfig(v, positive)
	if err != nil {
		return 0, err
	}
	return d.exec(ctx, stmt, v, nil)
}

// Update writes every normal property of v, matched by identity.
func (d *Dao[T]) Update(ctx context.Context, v *T) (int64, error) {
	stmt, err := d.gen.UpdateWhereIDEquals(v)
	if err != nil {
		return 0, err
	}
	return d.exec(ctx, stmt, v, nil)
}

// UpdateByConfig writes the normal properties of v whose positivity equals positive.
func (d *Dao[T]) UpdateByConfig(ctx context.Context, v *T, positive bool) (int64, error) {
	stmt, err := d.gen.UpdateByConfig(v, positive)
	if err != nil {
		return 0, err
	}
	return d.exec(ctx, stmt, v, nil)
}

// Get loads one row by identity values given in declaration order.
func (d *Dao[T]) Get(ctx context.Context, ids ...any) (*T, error) {
	stmt, err := d.gen.SelectWhereIDEquals(d.entity.Type)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(d.entity.Identities) {
		return nil, fmt.Errorf("%s: %d identity values, want %d", d.entity.Name, len(ids), len(d.entity.Identities))
	}
	items, err := d.query(ctx, stmt.SQL, ids)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

// GetBatch loads the rows matching keys, each key holding one value per
// identity property. Result order follows the database.
func (d *Dao[T]) GetBatch(ctx context.Context, keys ...[]any) ([]*T, error) {
	args, err := d.flatten(keys)
	if err != nil {
		return nil, err
	}
	stmt, err := d.gen.SelectWhereBatchIDs(d.entity.Type, len(keys))
	if err != nil {
		return nil, err
	}
	return d.query(ctx, stmt.SQL, args)
}

// SelectByConfig loads the row identified by v, reading back only the
// properties whose positivity on v equals positive.
func (d *Dao[T]) SelectByConfig(ctx context.Context, v *T, positive bool) (*T, error) {
	stmt, err := d.gen.SelectByConfig(v, positive)
	if err != nil {
		return nil, err
	}
	items, err := d.query(ctx, stmt.SQL, stmt.Args)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

// Delete removes the row identified by v.
func (d *Dao[T]) Delete(ctx context.Context, v *T) (int64, error) {
	stmt, err := d.gen.DeleteNamedIDEquals(v)
	if err != nil {
		return 0, err
	}
	return d.exec(ctx, stmt, v, nil)
}

// DeleteByID removes one row by identity values given in declaration order.
func (d *Dao[T]) DeleteByID(ctx context.Context, ids ...any) (int64, error) {
	stmt, err := d.gen.DeleteWhereIDEquals(d.entity.Type)
	if err != nil {
		return 0, err
	}
	return d.exec(ctx, stmt, nil, ids)
}

// DeleteBatch removes the rows matching keys.
func (d *Dao[T]) DeleteBatch(ctx context.Context, keys ...[]any) (int64, error) {
	args, err := d.flatten(keys)
	if err != nil {
		return 0, err
	}
	stmt, err := d.gen.DeleteWhereBatchIDs(d.entity.Type, len(keys))
	if err != nil {
		return 0, err
	}
	return d.exec(ctx, stmt, nil, args)
}

// Count appends cond verbatim after "WHERE 1=1", e.g. "AND name=?".
func (d *Dao[T]) Count(ctx context.Context, cond string, args ...any) (int64, error) {
	stmt, err := d.gen.CountWhereTrue(d.entity.Type)
	if err != nil {
		return 0, err
	}
	return d.count(ctx, appendCond(stmt.SQL, cond), args)
}

// List appends cond verbatim after "WHERE 1=1".
func (d *Dao[T]) List(ctx context.Context, cond string, args ...any) ([]*T, error) {
	stmt, err := d.gen.SelectWhereTrue(d.entity.Type)
	if err != nil {
		return nil, err
	}
	return d.query(ctx, appendCond(stmt.SQL, cond), args)
}

// DeleteWhere appends cond verbatim after "WHERE 1=1".
func (d *Dao[T]) DeleteWhere(ctx context.Context, cond string, args ...any) (int64, error) {
	stmt, err := d.gen.DeleteWhereTrue(d.entity.Type)
	if err != nil {
		return 0, err
	}
	stmt.SQL = appendCond(stmt.SQL, cond)
	return d.exec(ctx, stmt, nil, args)
}

// Page lists one page of the rows matching cond along with their total count.
func (d *Dao[T]) Page(ctx context.Context, limit, offset int, cond string, args ...any) (*Page[T], error) {
	stmt, err := d.gen.SelectWhereTrue(d.entity.Type)
	if err != nil {
		return nil, err
	}
	query := appendCond(stmt.SQL, cond)

	total, err := d.count(ctx, CountSQL(query), args)
	if err != nil {
		return nil, err
	}
	items, err := d.query(ctx, PageSQL(query, limit, offset), args)
	if err != nil {
		return nil, err
	}
	return &Page[T]{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (d *Dao[T]) exec(ctx context.Context, stmt sqlgen.Statement, instance *T, args []any) (int64, error) {
	var lookup func(string) (any, error)
	if stmt.Named && instance != nil {
		lookup = d.lookup(instance)
	}
	sqlStr, params, err := Rebind(d.store.Dialect, stmt.SQL, args, lookup)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	n, err := Exec(ctx, d.store.DB, sqlStr, params...)
	d.rec.Record(instrument.NewEvent(d.entity.Name, sqlStr, start, n, err))
	if err != nil {
		return 0, d.store.Dialect.MapError(err)
	}
	return n, nil
}

func (d *Dao[T]) query(ctx context.Context, sqlStr string, args []any) ([]*T, error) {
	sqlStr, params, err := Rebind(d.store.Dialect, sqlStr, args, nil)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := QueryRows(ctx, d.store.DB, sqlStr, params...)
	d.rec.Record(instrument.NewEvent(d.entity.Name, sqlStr, start, int64(len(rows)), err))
	if err != nil {
		return nil, d.store.Dialect.MapError(err)
	}
	return mapRows[T](d.entity, rows)
}

func (d *Dao[T]) count(ctx context.Context, sqlStr string, args []any) (int64, error) {
	sqlStr, params, err := Rebind(d.store.Dialect, sqlStr, args, nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	row, err := QueryRow(ctx, d.store.DB, sqlStr, params...)
	d.rec.Record(instrument.NewEvent(d.entity.Name, sqlStr, start, 1, err))
	if err != nil {
		return 0, err
	}
	for _, v := range row {
		return toInt64(v)
	}
	return 0, errors.New("count returned no columns")
}

func (d *Dao[T]) lookup(instance *T) func(string) (any, error) {
	return func(name string) (any, error) {
		p := d.entity.Property(name)
		if p == nil {
			return nil, fmt.Errorf("%s has no property %q", d.entity.Name, name)
		}
		return p.Get(instance)
	}
}

func (d *Dao[T]) flatten(keys [][]any) ([]any, error) {
	width := len(d.entity.Identities)
	args := make([]any, 0, len(keys)*width)
	for i, key := range keys {
		if len(key) != width {
			return nil, fmt.Errorf("%s: key %d has %d values, want %d", d.entity.Name, i, len(key), width)
		}
		args = append(args, key...)
	}
	return args, nil
}

func appendCond(sqlStr, cond string) string {
	if cond == "" {
		return sqlStr
	}
	return sqlStr + " " + cond
}
