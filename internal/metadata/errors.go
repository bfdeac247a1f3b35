package metadata

import (
	"errors"
	"fmt"
)

const (
	CodeConfiguration = "CONFIGURATION"
	CodeValueAccess   = "VALUE_ACCESS"
)

// Sentinels for errors.Is checks against *Error values.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValueAccess   = errors.New("value access error")
)

// Error is returned by metadata construction and by everything that reads or
// writes properties through it.
type Error struct {
	Code     string
	Entity   string
	Property string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Property != "" {
		msg = fmt.Sprintf("%s.%s: %s", e.Entity, e.Property, msg)
	} else if e.Entity != "" {
		msg = fmt.Sprintf("%s: %s", e.Entity, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Code == CodeConfiguration
	case ErrValueAccess:
		return e.Code == CodeValueAccess
	}
	return false
}

// ConfigError reports an entity whose shape does not support the requested operation.
func ConfigError(entity string, format string, args ...any) *Error {
	return &Error{
		Code:    CodeConfiguration,
		Entity:  entity,
		Message: fmt.Sprintf(format, args...),
	}
}

// AccessError wraps a failure to read or write a property.
func AccessError(entity, property string, err error) *Error {
	return &Error{
		Code:     CodeValueAccess,
		Entity:   entity,
		Property: property,
		Message:  "cannot access property",
		Err:      err,
	}
}
