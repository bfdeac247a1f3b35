package metadata

import (
	"fmt"
	"strings"
	"unicode"
)

// NameConverter maps a Go type or property name to its SQL-visible form.
type NameConverter int

const (
	// Identity leaves names untouched.
	Identity NameConverter = iota
	// UnderscoreUpper splits on case transitions and upper-cases: myId -> MY_ID.
	UnderscoreUpper
)

// ParseNameConverter accepts the names used in configuration files.
func ParseNameConverter(s string) (NameConverter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "identity":
		return Identity, nil
	case "underscore_upper", "underscore-upper":
		return UnderscoreUpper, nil
	default:
		return Identity, fmt.Errorf("unknown naming mode %q", s)
	}
}

func (c NameConverter) String() string {
	switch c {
	case UnderscoreUpper:
		return "underscore_upper"
	default:
		return "identity"
	}
}

// Convert returns the SQL name for name.
func (c NameConverter) Convert(name string) string {
	if c == UnderscoreUpper {
		return underscoreUpper(name)
	}
	return name
}

// ResolveName prefers an explicit override over conversion.
func (c NameConverter) ResolveName(override, name string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	return c.Convert(name)
}

// underscoreUpper keeps acronyms together: HTTPServer -> HTTP_SERVER, userID -> USER_ID.
func underscoreUpper(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// propertyName lower-cases the leading upper-case run of a Go field name:
// MyId -> myId, ID -> id, URLPath -> urlPath.
func propertyName(field string) string {
	runes := []rune(field)
	for i := 0; i < len(runes) && unicode.IsUpper(runes[i]); i++ {
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
