package ir

import (
	"fmt"
	"slices"
)

// Type is the semantic type tag attached to every compiled expression.
//
// The tag drives implicit coercion (see the cast table in querysql) and is
// reported to callers as the output type of each selected column.
type Type string

const (
	// TypeUnset marks a named parameter whose type has not been inferred yet.
	TypeUnset Type = ""

	TypeNull      Type = "null"
	TypeString    Type = "string"
	TypeInteger   Type = "integer"
	TypeFloat     Type = "float"
	TypeBoolean   Type = "boolean"
	TypeDate      Type = "date"
	TypeDateMonth Type = "date-month"
	TypeDateYear  Type = "date-year"
	TypeID        Type = "id"
	TypeArray     Type = "array"
	TypeParam     Type = "param"
	TypeAny       Type = "any"
)

// schemaTypes are the tags a schema field may declare.
// null, array and param only ever arise from expressions.
var schemaTypes = []Type{
	TypeString,
	TypeInteger,
	TypeFloat,
	TypeBoolean,
	TypeDate,
	TypeDateMonth,
	TypeDateYear,
	TypeID,
	TypeAny,
}

// String returns the tag as written in schemas and error messages.
func (t Type) String() string {
	if t == TypeUnset {
		return "unset"
	}
	return string(t)
}

// IsDate reports whether t is one of the integer-encoded date tags.
func (t Type) IsDate() bool {
	return t == TypeDate || t == TypeDateMonth || t == TypeDateYear
}

// ParseSchemaType validates a field type name from a schema definition.
func ParseSchemaType(name string) (Type, error) {
	t := Type(name)
	if slices.Contains(schemaTypes, t) {
		return t, nil
	}
	return TypeUnset, fmt.Errorf("unknown field type %q (expected one of %v)", name, schemaTypes)
}
