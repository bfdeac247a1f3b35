package metadata

import (
	"database/sql/driver"
	"math/big"
	"reflect"
	"strings"
	"time"
)

// ValueKind is the closed set of shapes a live property value can take.
type ValueKind uint8

const (
	Null ValueKind = iota
	Bool
	Integer
	Float
	Text
	Bytes
	Other
)

func (k ValueKind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Text:
		return "text"
	case Bytes:
		return "bytes"
	default:
		return "other"
	}
}

// Value is a classified property value. Numeric values only keep their sign.
type Value struct {
	kind ValueKind
	b    bool
	sign int
	s    string
	raw  any
}

func (v Value) Kind() ValueKind { return v.kind }

// Raw returns the value that was classified.
func (v Value) Raw() any { return v.raw }

// Positive reports whether the value carries a meaningfully set value.
func (v Value) Positive() bool {
	switch v.kind {
	case Null:
		return false
	case Bool:
		return v.b
	case Integer, Float:
		return v.sign > 0
	case Text:
		return strings.TrimSpace(v.s) != ""
	default:
		return true
	}
}

// Blank reports whether an identity holding this value needs a generated one.
func (v Value) Blank() bool {
	return v.kind == Null || (v.kind == Text && strings.TrimSpace(v.s) == "")
}

// Positive classifies x and reports its positivity.
func Positive(x any) bool {
	return ValueOf(x).Positive()
}

var timeType = reflect.TypeOf(time.Time{})

// ValueOf classifies x. Nil pointers and interfaces are Null, other pointers
// are dereferenced and driver.Valuer implementations are classified by the
// value they hand to the database driver.
func ValueOf(x any) Value {
	if x == nil {
		return Value{kind: Null}
	}
	switch t := x.(type) {
	case *big.Int:
		if t == nil {
			return Value{kind: Null}
		}
		return Value{kind: Integer, sign: t.Sign(), raw: x}
	case *big.Float:
		if t == nil {
			return Value{kind: Null}
		}
		return Value{kind: Float, sign: t.Sign(), raw: x}
	case *big.Rat:
		if t == nil {
			return Value{kind: Null}
		}
		return Value{kind: Float, sign: t.Sign(), raw: x}
	case []byte:
		if t == nil {
			return Value{kind: Null}
		}
		return Value{kind: Bytes, raw: x}
	case time.Time:
		return Value{kind: Other, raw: x}
	case driver.Valuer:
		rv := reflect.ValueOf(x)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return Value{kind: Null}
		}
		dv, err := t.Value()
		if err != nil {
			return Value{kind: Other, raw: x}
		}
		v := ValueOf(dv)
		v.raw = x
		return v
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Value{kind: Null}
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.Bool:
		return Value{kind: Bool, b: rv.Bool(), raw: x}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{kind: Integer, sign: signOf(float64(rv.Int())), raw: x}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sign := 0
		if rv.Uint() > 0 {
			sign = 1
		}
		return Value{kind: Integer, sign: sign, raw: x}
	case reflect.Float32, reflect.Float64:
		return Value{kind: Float, sign: signOf(rv.Float()), raw: x}
	case reflect.String:
		return Value{kind: Text, s: rv.String(), raw: x}
	case reflect.Slice:
		if rv.IsNil() {
			return Value{kind: Null}
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Value{kind: Bytes, raw: x}
		}
	case reflect.Map, reflect.Chan, reflect.Func:
		if rv.IsNil() {
			return Value{kind: Null}
		}
	}
	return Value{kind: Other, raw: x}
}

func signOf(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}
