package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchemaType(t *testing.T) {
	for _, name := range []string{"string", "integer", "float", "boolean", "date", "date-month", "date-year", "id", "any"} {
		t.Run(name, func(t *testing.T) {
			typ, err := ParseSchemaType(name)
			require.NoError(t, err)
			assert.Equal(t, name, typ.String())
		})
	}
}

func TestParseSchemaTypeRejectsExpressionOnlyTags(t *testing.T) {
	for _, name := range []string{"null", "array", "param", "", "json"} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchemaType(name)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "unknown field type")
		})
	}
}

func TestTypeIsDate(t *testing.T) {
	assert.True(t, TypeDate.IsDate())
	assert.True(t, TypeDateMonth.IsDate())
	assert.True(t, TypeDateYear.IsDate())
	assert.False(t, TypeString.IsDate())
	assert.False(t, TypeInteger.IsDate())
}

func TestTypeUnsetString(t *testing.T) {
	assert.Equal(t, "unset", TypeUnset.String())
}
