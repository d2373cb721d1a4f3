package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Verify all types implement Value (compile-time check via assignment)
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Float(1.5)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
}

func TestFromNative(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected Value
	}{
		{"nil", nil, Null{}},
		{"string", "hello", String("hello")},
		{"bool", true, Bool(true)},
		{"int", 7, Int(7)},
		{"whole float is integer", float64(12), Int(12)},
		{"fractional float", 1.25, Float(1.25)},
		{"negative whole float", float64(-3), Int(-3)},
		{"json integer", json.Number("42"), Int(42)},
		{"json float", json.Number("4.5"), Float(4.5)},
		{"date", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Int(20240315)},
		{"array", []any{"a", float64(1)}, Array{String("a"), Int(1)}},
		{"object", map[string]any{"k": nil}, Object{"k": Null{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FromNative(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestFromNativeUnsupported(t *testing.T) {
	_, err := FromNative(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported value type")

	_, err = FromNative([]any{"ok", make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[1]")
}

func TestNativeRoundTrip(t *testing.T) {
	v := Array{String("a"), Int(2), Float(2.5), Bool(false), Null{}}
	assert.Equal(t, []any{"a", int64(2), 2.5, false, nil}, Native(v))
}

func TestDateToInt(t *testing.T) {
	assert.Equal(t, int64(20240315), DateToInt(time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, int64(19991231), DateToInt(time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{"zebra": Int(1), "apple": Int(2), "banana": Int(3)}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}
