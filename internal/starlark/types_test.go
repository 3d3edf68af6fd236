package starlark

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestGoToStarlark(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantStr string
		wantErr bool
	}{
		{name: "string", input: "hello", wantStr: `"hello"`},
		{name: "int", input: 42, wantStr: "42"},
		{name: "int64", input: int64(123456789), wantStr: "123456789"},
		{name: "float64", input: 3.14, wantStr: "3.14"},
		{name: "bool true", input: true, wantStr: "True"},
		{name: "nil", input: nil, wantStr: "None"},
		{name: "json integer", input: json.Number("17"), wantStr: "17"},
		{name: "json float", input: json.Number("1.5"), wantStr: "1.5"},
		{name: "string slice", input: []string{"a", "b"}, wantStr: `["a", "b"]`},
		{name: "int slice", input: []int{0, 10}, wantStr: "[0, 10]"},
		{name: "empty string slice", input: []string{}, wantStr: "[]"},
		{name: "any slice", input: []any{"x", 1, true}, wantStr: `["x", 1, True]`},
		{name: "map", input: map[string]any{"key": "value"}, wantStr: `{"key": "value"}`},
		{name: "unsupported", input: struct{}{}, wantErr: true},
		{name: "nested unsupported", input: []any{complex(1, 2)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GoToStarlark(tt.input)
			if tt.wantErr {
				assert.Error(t, err, "expected error")
				return
			}
			require.NoError(t, err, "unexpected error")
			assert.Equal(t, tt.wantStr, got.String(), "GoToStarlark()")
		})
	}
}

func TestToGo(t *testing.T) {
	dict := starlark.NewDict(1)
	require.NoError(t, dict.SetKey(starlark.String("n"), starlark.MakeInt(1)))

	badDict := starlark.NewDict(1)
	require.NoError(t, badDict.SetKey(starlark.MakeInt(1), starlark.None))

	tests := []struct {
		name    string
		input   starlark.Value
		want    any
		wantErr bool
	}{
		{name: "string", input: starlark.String("hello"), want: "hello"},
		{name: "int", input: starlark.MakeInt(42), want: int64(42)},
		{name: "float", input: starlark.Float(3.14), want: 3.14},
		{name: "bool", input: starlark.Bool(false), want: false},
		{name: "none", input: starlark.None, want: nil},
		{name: "list", input: starlark.NewList([]starlark.Value{starlark.String("a")}), want: []any{"a"}},
		{name: "tuple", input: starlark.Tuple{starlark.MakeInt(1), starlark.True}, want: []any{int64(1), true}},
		{name: "dict", input: dict, want: map[string]any{"n": int64(1)}},
		{name: "non-string key", input: badDict, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToGo(tt.input)
			if tt.wantErr {
				assert.Error(t, err, "expected error")
				return
			}
			require.NoError(t, err, "unexpected error")
			assert.Equal(t, tt.want, got, "ToGo()")
		})
	}
}

func TestToInt(t *testing.T) {
	n, err := ToInt(starlark.MakeInt(7))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = ToInt(starlark.String("7"))
	assert.Error(t, err)

	huge := starlark.MakeInt64(math.MaxInt64).Mul(starlark.MakeInt(4))
	_, err = ToInt(huge)
	assert.Error(t, err)
}

func TestToStrings(t *testing.T) {
	got, err := ToStrings(starlark.NewList([]starlark.Value{starlark.String("a"), starlark.String("b")}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, err = ToStrings(starlark.NewList([]starlark.Value{starlark.MakeInt(1)}))
	assert.Error(t, err)

	_, err = ToStrings(starlark.String("ab"))
	assert.Error(t, err)
}
