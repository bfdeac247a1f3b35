package store

import (
	"fmt"
	"math/big"
	"strings"
)

// Rebind rewrites the "?" and ":name" placeholders of sqlStr into the
// dialect's numbered form. Positional values are taken from args in order and
// named values are resolved through lookup. Quoted literals and "::" casts are
// left alone.
func Rebind(d Dialect, sqlStr string, args []any, lookup func(name string) (any, error)) (string, []any, error) {
	pb := d.NewParamBuilder()
	var b strings.Builder
	b.Grow(len(sqlStr) + 8)

	next := 0
	quoted := false
	for i := 0; i < len(sqlStr); i++ {
		c := sqlStr[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case quoted:
			b.WriteByte(c)
		case c == '?':
			if next >= len(args) {
				return "", nil, fmt.Errorf("missing value for placeholder %d", next+1)
			}
			b.WriteString(pb.Add(driverValue(args[next])))
			next++
		case c == ':' && i+1 < len(sqlStr) && isNameStart(sqlStr[i+1]) && (i == 0 || sqlStr[i-1] != ':'):
			j := i + 1
			for j < len(sqlStr) && isNameChar(sqlStr[j]) {
				j++
			}
			name := sqlStr[i+1 : j]
			if lookup == nil {
				return "", nil, fmt.Errorf("no binding for :%s", name)
			}
			v, err := lookup(name)
			if err != nil {
				return "", nil, err
			}
			b.WriteString(pb.Add(driverValue(v)))
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	if next < len(args) {
		return "", nil, fmt.Errorf("%d values for %d placeholders", len(args), next)
	}
	return b.String(), pb.Params(), nil
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// driverValue converts values database/sql cannot bind on its own.
func driverValue(v any) any {
	switch t := v.(type) {
	case *big.Int:
		if t == nil {
			return nil
		}
		return t.String()
	case *big.Float:
		if t == nil {
			return nil
		}
		return t.Text('f', -1)
	case *big.Rat:
		if t == nil {
			return nil
		}
		return t.FloatString(18)
	}
	return v
}
