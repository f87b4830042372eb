package mutable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagvalue/tvf/errs"
	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/mutable"
	"github.com/tagvalue/tvf/value"
	"github.com/tagvalue/tvf/writer"
)

func encodeArray(t *testing.T, vs ...int64) value.Array {
	t.Helper()

	w := writer.New()
	require.NoError(t, w.BeginArray(len(vs)))
	for _, v := range vs {
		require.NoError(t, w.WriteInt(v))
	}
	require.NoError(t, w.EndArray())

	out, _, err := w.Finish()
	require.NoError(t, err)

	root := value.FromData(out)
	require.True(t, root.IsValid())

	return root.AsArray()
}

func TestHeapArray_FallsThroughToSource(t *testing.T) {
	src := encodeArray(t, 10, 20, 30)

	a := mutable.NewArray(src, 0)
	assert.Equal(t, 3, a.Count())
	assert.Equal(t, int64(10), a.Get(0).AsInt())
	assert.Equal(t, int64(20), a.Get(1).AsInt())
	assert.Equal(t, int64(30), a.Get(2).AsInt())
	assert.False(t, a.Changed())
}

func TestHeapArray_SetOverridesSource(t *testing.T) {
	src := encodeArray(t, 10, 20, 30)

	a := mutable.NewArray(src, 0)
	require.NoError(t, a.Set(1, value.Value{}))
	require.True(t, a.Changed())

	// Setting to the zero Value is a legitimate edit (distinct from unset):
	// Get on it returns the zero Value instead of falling through.
	assert.False(t, a.Get(1).IsValid())
	assert.Equal(t, int64(10), a.Get(0).AsInt())
	assert.Equal(t, int64(30), a.Get(2).AsInt())
}

func TestHeapArray_SetOutOfRange(t *testing.T) {
	a := mutable.NewArray(value.Array{}, 0)
	err := a.Set(0, value.Value{})
	assert.ErrorIs(t, err, errs.ErrIndexOutOfRange)
}

func TestHeapArray_InsertAndRemove(t *testing.T) {
	src := encodeArray(t, 1, 2, 3)
	a := mutable.NewArray(src, 0)

	w := writer.New()
	require.NoError(t, w.WriteInt(99))
	raw, _, err := w.Finish()
	require.NoError(t, err)
	ninetyNine := value.FromData(raw)

	require.NoError(t, a.Insert(1, ninetyNine))
	require.Equal(t, 4, a.Count())
	assert.Equal(t, int64(1), a.Get(0).AsInt())
	assert.Equal(t, int64(99), a.Get(1).AsInt())
	assert.Equal(t, int64(2), a.Get(2).AsInt())
	assert.Equal(t, int64(3), a.Get(3).AsInt())

	require.NoError(t, a.Remove(0, 2))
	require.Equal(t, 2, a.Count())
	assert.Equal(t, int64(2), a.Get(0).AsInt())
	assert.Equal(t, int64(3), a.Get(1).AsInt())
}

func TestHeapArray_InsertAppend(t *testing.T) {
	a := mutable.NewArray(value.Array{}, 0)

	w := writer.New()
	require.NoError(t, w.WriteInt(7))
	raw, _, err := w.Finish()
	require.NoError(t, err)
	seven := value.FromData(raw)

	require.NoError(t, a.Insert(0, seven))
	require.Equal(t, 1, a.Count())
	assert.Equal(t, int64(7), a.Get(0).AsInt())
}

func TestHeapArray_GetMutableArrayPromotionIsStable(t *testing.T) {
	w := writer.New()
	require.NoError(t, w.BeginArray(1))
	require.NoError(t, w.BeginArray(2))
	require.NoError(t, w.WriteInt(1))
	require.NoError(t, w.WriteInt(2))
	require.NoError(t, w.EndArray())
	require.NoError(t, w.EndArray())
	out, _, err := w.Finish()
	require.NoError(t, err)

	src := value.FromData(out).AsArray()
	a := mutable.NewArray(src, 0)

	child1, err := a.GetMutableArray(0, 0)
	require.NoError(t, err)
	require.NoError(t, child1.Set(0, value.Value{}))

	child2, err := a.GetMutableArray(0, 0)
	require.NoError(t, err)
	assert.Same(t, child1, child2)
	assert.True(t, a.Changed())
	assert.True(t, a.IsMutable(0))
}

func TestHeapArray_IterationPanicsOnInvalidation(t *testing.T) {
	src := encodeArray(t, 1, 2, 3)
	a := mutable.NewArray(src, 0)

	assert.Panics(t, func() {
		for i := range a.All() {
			if i == 0 {
				require.NoError(t, a.Set(1, value.Value{}))
			}
		}
	})
}

func TestHeapArray_WriteToRoundTrip(t *testing.T) {
	src := encodeArray(t, 1, 2, 3)
	a := mutable.NewArray(src, 0)
	require.NoError(t, a.Set(1, value.Value{}))
	require.NoError(t, a.Insert(3, func() value.Value {
		w := writer.New()
		require.NoError(t, w.WriteString("tail"))
		raw, _, err := w.Finish()
		require.NoError(t, err)
		return value.FromData(raw)
	}()))

	w := writer.New()
	require.NoError(t, a.WriteTo(w))
	out, _, err := w.Finish()
	require.NoError(t, err)

	root := value.FromData(out)
	require.True(t, root.IsValid())
	got := root.AsArray()
	require.True(t, got.IsValid())
	require.Equal(t, 4, got.Count())
	assert.Equal(t, int64(1), got.Get(0).AsInt())
	assert.Equal(t, format.TypeNull, got.Get(1).Type())
	assert.Equal(t, int64(3), got.Get(2).AsInt())
	assert.Equal(t, "tail", got.Get(3).AsString())
}
