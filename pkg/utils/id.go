package utils

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

// Identifiable is implemented by values that carry their own platform id.
type Identifiable interface {
	GetID() snowflake.ID
}

// ToID turns a value into an identifier made only of lowercase ASCII letters and digits.
// Values exposing an id use that id. Strings and numbers are converted directly and
// anything else, nil included, yields the empty identifier.
func ToID(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case Identifiable:
		return ToID(val.GetID())
	case snowflake.ID:
		return strconv.FormatUint(uint64(val), 10)
	case string:
		return normalizeID(val)
	}

	// Fall back to reflection for numeric kinds and id-bearing structs
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return normalizeID(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return normalizeID(strconv.FormatFloat(rv.Float(), 'f', -1, 64))
	case reflect.String:
		return normalizeID(rv.String())
	case reflect.Struct:
		field := rv.FieldByName("ID")
		if !field.IsValid() || !field.CanInterface() || field.Kind() == reflect.Struct {
			return ""
		}
		return ToID(field.Interface())
	default:
		return ""
	}
}

// normalizeID lowercases s and drops every character outside [a-z0-9].
func normalizeID(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := range len(s) {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}

	return b.String()
}
