package store

import (
	"fmt"
	"math/big"
	"reflect"

	"entitysql/internal/metadata"
)

var ratPtrType = reflect.TypeOf((*big.Rat)(nil))

// mapRow builds a new T from a row keyed by column name. Columns without a
// matching property are ignored.
func mapRow[T any](e *metadata.Entity, row map[string]any) (*T, error) {
	out := new(T)
	for col, raw := range row {
		p := e.PropertyForColumn(col)
		if p == nil {
			continue
		}
		v, err := fromDriver(p, raw)
		if err != nil {
			return nil, metadata.AccessError(e.Name, p.Name, err)
		}
		if err := p.Set(out, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func mapRows[T any](e *metadata.Entity, rows []map[string]any) ([]*T, error) {
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		v, err := mapRow[T](e, row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// fromDriver adapts what drivers return to the declared property type.
func fromDriver(p *metadata.Property, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if b, ok := raw.([]byte); ok && p.Type != metadata.KindBytes {
		raw = string(b)
	}

	switch {
	case p.IsBigInt():
		switch v := raw.(type) {
		case int64:
			return big.NewInt(v), nil
		case string:
			n, ok := new(big.Int).SetString(v, 10)
			if !ok {
				return nil, fmt.Errorf("invalid integer %q", v)
			}
			return n, nil
		}
	case p.Type == metadata.KindDecimal:
		s := fmt.Sprint(raw)
		if p.GoType == ratPtrType {
			r, ok := new(big.Rat).SetString(s)
			if !ok {
				return nil, fmt.Errorf("invalid decimal %q", s)
			}
			return r, nil
		}
		f, _, err := big.ParseFloat(s, 10, 0, big.ToNearestEven)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %q: %w", s, err)
		}
		return f, nil
	case p.Type == metadata.KindBool:
		if v, ok := raw.(int64); ok {
			return v != 0, nil
		}
	case p.Type == metadata.KindBytes:
		if v, ok := raw.(string); ok {
			return []byte(v), nil
		}
	}
	return raw, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		var out int64
		_, err := fmt.Sscan(string(n), &out)
		return out, err
	case string:
		var out int64
		_, err := fmt.Sscan(n, &out)
		return out, err
	}
	return 0, fmt.Errorf("unexpected count type %T", v)
}
