package dropvalue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqual_PrimitivesAndKindMismatch(t *testing.T) {
	t.Parallel()

	require.True(t, Equal(Int(3), Int(3)))
	require.True(t, Equal(Float(3.5), Float(3.5)))
	require.False(t, Equal(Int(3), Str("3")))
	require.True(t, Equal(Str("a"), Str("a")))
	require.True(t, Equal(Null, Null))
}

func TestEqual_ArraysAndObjectsRespectOrderAgnosticKeys(t *testing.T) {
	t.Parallel()

	a := NewObject()
	a.Set("x", Int(1))
	a.Set("y", Int(2))

	b := NewObject()
	b.Set("y", Int(2))
	b.Set("x", Int(1))

	require.True(t, Equal(ObjectValue(a), ObjectValue(b)), "object equality must not depend on insertion order")

	arr1 := Array([]Value{Int(1), Int(2)})
	arr2 := Array([]Value{Int(2), Int(1)})
	require.False(t, Equal(arr1, arr2), "array equality is order sensitive")
}

func TestFromJSON_PreservesKeyOrder(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"z": 1, "a": 2, "m": {"q": 3, "p": 4}}`)
	v, err := FromJSON(raw)
	require.NoError(t, err)

	obj, ok := v.AsObject()
	require.True(t, ok)
	require.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	nested, ok := obj.Get("m")
	require.True(t, ok)
	nestedObj, ok := nested.AsObject()
	require.True(t, ok)
	require.Equal(t, []string{"q", "p"}, nestedObj.Keys())
}

func TestMarshalJSON_RoundTripsOrder(t *testing.T) {
	t.Parallel()

	obj := NewObject()
	obj.Set("second", Str("b"))
	obj.Set("first", Str("a"))

	out, err := ObjectValue(obj).MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `{"second":"b","first":"a"}`, string(out))
}

func TestNumberFromString_IntegerAndFloatFormatting(t *testing.T) {
	t.Parallel()

	v, err := NumberFromString("42")
	require.NoError(t, err)
	require.Equal(t, "42", v.String())

	v2, err := NumberFromString("3.1400")
	require.NoError(t, err)
	require.Equal(t, "3.14", v2.String())
}

func TestAsInt64_RejectsFraction(t *testing.T) {
	t.Parallel()

	v := Float(3.5)
	_, ok := v.AsInt64()
	require.False(t, ok)

	v2 := Float(4.0)
	n, ok := v2.AsInt64()
	require.True(t, ok)
	require.Equal(t, int64(4), n)
}

func TestObject_FirstWriteWinsOrdering(t *testing.T) {
	t.Parallel()

	obj := NewObject()
	obj.Set("a", Int(1))
	obj.Set("b", Int(2))
	obj.Set("a", Int(99))

	require.Equal(t, []string{"a", "b"}, obj.Keys())
	v, ok := obj.Get("a")
	require.True(t, ok)
	require.Equal(t, int64(99), func() int64 { n, _ := v.AsInt64(); return n }())
}
