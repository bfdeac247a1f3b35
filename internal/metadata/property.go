package metadata

import (
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"reflect"
)

// Kind is the declared semantic type of a property.
type Kind uint8

const (
	KindOther Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindBytes
	KindDate
	KindDecimal
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindDecimal:
		return "decimal"
	default:
		return "other"
	}
}

var (
	bigIntType   = reflect.TypeOf(big.Int{})
	bigFloatType = reflect.TypeOf(big.Float{})
	bigRatType   = reflect.TypeOf(big.Rat{})
	scannerType  = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// kindOf classifies a Go field type, looking through pointers.
func kindOf(t reflect.Type) Kind {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case timeType, reflect.TypeOf(sql.NullTime{}):
		return KindDate
	case bigIntType:
		return KindInt
	case bigFloatType, bigRatType:
		return KindDecimal
	case reflect.TypeOf(sql.NullString{}):
		return KindText
	case reflect.TypeOf(sql.NullBool{}):
		return KindBool
	case reflect.TypeOf(sql.NullInt64{}), reflect.TypeOf(sql.NullInt32{}), reflect.TypeOf(sql.NullInt16{}), reflect.TypeOf(sql.NullByte{}):
		return KindInt
	case reflect.TypeOf(sql.NullFloat64{}):
		return KindFloat
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindText
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes
		}
	}
	return KindOther
}

// Property describes one persistable field. It is built once with its Entity
// and never modified afterwards.
type Property struct {
	Name         string
	SQLName      string
	Type         Kind
	GoType       reflect.Type
	Identity     bool
	AutoGenerate bool

	owner  reflect.Type
	entity string
	index  int
}

// IsBigInt reports whether the property holds a *big.Int.
func (p *Property) IsBigInt() bool {
	return p.GoType.Kind() == reflect.Pointer && p.GoType.Elem() == bigIntType
}

var (
	errNilInstance = errors.New("nil instance")
	errNotPointer  = errors.New("instance must be a non-nil pointer to be written")
)

func (p *Property) structValue(instance any, write bool) (reflect.Value, error) {
	rv := reflect.ValueOf(instance)
	if !rv.IsValid() {
		return rv, errNilInstance
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return rv, errNilInstance
		}
		rv = rv.Elem()
	} else if write {
		return rv, errNotPointer
	}
	if rv.Type() != p.owner {
		return rv, fmt.Errorf("instance of type %s, want %s", rv.Type(), p.owner)
	}
	return rv, nil
}

// Get reads the property from instance, which may be a struct or a pointer to one.
func (p *Property) Get(instance any) (any, error) {
	sv, err := p.structValue(instance, false)
	if err != nil {
		return nil, AccessError(p.entity, p.Name, err)
	}
	return sv.Field(p.index).Interface(), nil
}

// Set writes value into the property of the struct instance points to.
// Nil resets the field to its zero value.
func (p *Property) Set(instance any, value any) error {
	sv, err := p.structValue(instance, true)
	if err != nil {
		return AccessError(p.entity, p.Name, err)
	}
	fv := sv.Field(p.index)
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	if err := assign(fv, reflect.ValueOf(value)); err != nil {
		return AccessError(p.entity, p.Name, err)
	}
	return nil
}

func assign(dst, src reflect.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("assign %s to %s: %v", src.Type(), dst.Type(), r)
		}
	}()

	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
		return nil
	case dst.Addr().Type().Implements(scannerType):
		return dst.Addr().Interface().(sql.Scanner).Scan(src.Interface())
	case src.Kind() == reflect.Pointer:
		if src.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		return assign(dst, src.Elem())
	case dst.Kind() == reflect.Pointer:
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	case isNumeric(dst.Kind()) && isNumeric(src.Kind()),
		dst.Kind() == reflect.String && src.Kind() == reflect.String:
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
