package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddVariableAssignsIncreasingOffsets(t *testing.T) {
	table := New("main", 0)
	require.NoError(t, table.AddVariable("x", 1))
	require.NoError(t, table.AddVariable("y", 2))

	xAddr, err := table.GetAddress("x", 3)
	require.NoError(t, err)
	require.Equal(t, 0, xAddr)

	yAddr, err := table.GetAddress("y", 3)
	require.NoError(t, err)
	require.Equal(t, 1, yAddr)
	require.Equal(t, 2, table.MemoryOffset)
}

func TestRedeclarationIsRejected(t *testing.T) {
	table := New("main", 0)
	require.NoError(t, table.AddVariable("x", 1))
	err := table.AddVariable("x", 2)
	require.Error(t, err)
	redecl, ok := err.(*RedeclarationError)
	require.True(t, ok)
	require.Equal(t, "x", redecl.Name)
}

func TestZeroSizedArrayIsRejected(t *testing.T) {
	table := New("main", 0)
	err := table.AddArray("arr", 0, 1)
	require.Error(t, err)
	_, ok := err.(*ZeroSizedArrayError)
	require.True(t, ok)
}

func TestArrayLayoutReservesConsecutiveCells(t *testing.T) {
	table := New("main", 0)
	require.NoError(t, table.AddVariable("x", 1))
	require.NoError(t, table.AddArray("arr", 10, 1))
	require.NoError(t, table.AddVariable("y", 1))

	require.Equal(t, 12, table.MemoryOffset)

	addr, err := table.GetArrayElementAddress("arr", 5, 1)
	require.NoError(t, err)
	require.Equal(t, 6, addr)

	yAddr, err := table.GetAddress("y", 1)
	require.NoError(t, err)
	require.Equal(t, 11, yAddr)
}

func TestArrayIndexOutOfRange(t *testing.T) {
	table := New("main", 0)
	require.NoError(t, table.AddArray("arr", 3, 1))

	_, err := table.GetArrayElementAddress("arr", 3, 1)
	require.Error(t, err)
	_, ok := err.(*ArrayIndexOutOfRangeError)
	require.True(t, ok)
}

func TestUndeclaredNameUse(t *testing.T) {
	table := New("main", 0)
	_, err := table.GetAddress("ghost", 1)
	require.Error(t, err)
	_, ok := err.(*UndeclaredNameError)
	require.True(t, ok)
}

func TestRefParameterBindingPerCall(t *testing.T) {
	table := New("p", 0)
	require.NoError(t, table.AddArgsVariable("a", 1))
	require.NoError(t, table.AddArgsArray("b", 1))

	sym, ok := table.Get("a")
	require.True(t, ok)
	require.Equal(t, KindRefVariable, sym.Kind)
	require.False(t, sym.Bound)

	table.SetArgsVariableAddress(0, 42)
	sym, _ = table.Get("a")
	require.True(t, sym.Bound)
	require.True(t, sym.Initialized)
	require.Equal(t, 42, sym.Offset)

	table.SetArgsArrayAddressAndSize(1, 100, 7)
	sym, _ = table.Get("b")
	require.True(t, sym.Bound)
	require.Equal(t, 100, sym.Offset)
	require.Equal(t, 7, sym.Size)
}

func TestConstInterningIsIdempotent(t *testing.T) {
	table := New("main", 0)
	next := 50
	nextAddr := func() int {
		addr := next
		next++
		return addr
	}

	a1 := table.AddConst(7, nextAddr)
	a2 := table.AddConst(7, nextAddr)
	require.Equal(t, a1, a2)

	addr, ok := table.GetConst(7)
	require.True(t, ok)
	require.Equal(t, a1, addr)

	_, ok = table.GetConst(8)
	require.False(t, ok)
}
