package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnify(t *testing.T) {
	tests := []struct {
		a, b Type
		want Type
		ok   bool
	}{
		{Int, Int, Int, true},
		{Bytes, Bytes, Bytes, true},
		{Expr, Int, Int, true},
		{Int, Expr, Int, true},
		{Expr, Bytes, Bytes, true},
		{Expr, Expr, Expr, true},
		{Int, Bytes, 0, false},
		{Bytes, Int, 0, false},
	}
	for _, tt := range tests {
		got, ok := Unify(tt.a, tt.b)
		require.Equal(t, tt.ok, ok, "%s/%s", tt.a, tt.b)
		if ok {
			require.Equal(t, tt.want, got)
		}
	}
}

func TestRequireIntBytes(t *testing.T) {
	require.True(t, RequireInt(Int))
	require.True(t, RequireInt(Expr))
	require.False(t, RequireInt(Bytes))

	require.True(t, RequireBytes(Bytes))
	require.True(t, RequireBytes(Expr))
	require.False(t, RequireBytes(Int))
}

func TestFromName(t *testing.T) {
	tests := []struct {
		name string
		want Type
		ok   bool
	}{
		{"int", Int, true},
		{"bytes", Bytes, true},
		{"expr", Expr, true},
		{"bogus", 0, false},
	}
	for _, tt := range tests {
		got, ok := FromName(tt.name)
		require.Equal(t, tt.ok, ok)
		if ok {
			require.Equal(t, tt.want, got)
		}
	}
}

func TestAssignable(t *testing.T) {
	require.True(t, Assignable(Int, Int))
	require.True(t, Assignable(Int, Expr))
	require.True(t, Assignable(Expr, Bytes))
	require.False(t, Assignable(Int, Bytes))
}

func TestString(t *testing.T) {
	require.Equal(t, "int", Int.String())
	require.Equal(t, "bytes", Bytes.String())
	require.Equal(t, "expr", Expr.String())
}
