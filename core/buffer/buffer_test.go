package buffer

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-slice/api"
)

func TestAllocate_LengthEqualsCapacity(t *testing.T) {
	b, err := New[int32](10)
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, 10, b.Len())
	assert.Equal(t, 10, b.Cap())
	assert.Equal(t, uint64(1), b.Version())

	span, err := b.Span()
	require.NoError(t, err)
	for _, v := range span {
		assert.Zero(t, v)
	}
}

func TestAllocate_NegativeLength(t *testing.T) {
	_, err := Allocate[int32](-1, true)
	assert.ErrorIs(t, err, api.ErrInvalidSize)
	assert.Equal(t, api.ErrCodeInvalidSize, api.CodeOf(err))
}

func TestAllocate_ZeroLengthHasNilPointer(t *testing.T) {
	b, err := New[int64](0)
	require.NoError(t, err)
	defer b.Release()
	p, err := b.Ptr()
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, b.EnsureCapacity(1))
	p, err = b.Ptr()
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestEnsureCapacity_DoublesFromBaseFour(t *testing.T) {
	b, err := New[int32](0)
	require.NoError(t, err)
	defer b.Release()

	require.NoError(t, b.EnsureCapacity(5))
	assert.Equal(t, 8, b.Cap())
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, uint64(2), b.Version())

	// no-op when already large enough
	require.NoError(t, b.EnsureCapacity(8))
	assert.Equal(t, uint64(2), b.Version())

	require.NoError(t, b.EnsureCapacity(9))
	assert.Equal(t, 16, b.Cap())
	assert.Equal(t, uint64(3), b.Version())
}

func TestEnsureCapacity_PreservesContents(t *testing.T) {
	b, err := FromSlice([]int32{1, 2, 3})
	require.NoError(t, err)
	defer b.Release()

	require.NoError(t, b.EnsureCapacity(100))
	assert.Equal(t, 192, b.Cap())
	span, err := b.Span()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, span)
}

func TestResize_ClearsExposedRange(t *testing.T) {
	b, err := FromSlice([]int32{7, 7, 7, 7})
	require.NoError(t, err)
	defer b.Release()

	require.NoError(t, b.Resize(2, true))
	require.NoError(t, b.Resize(4, true))
	span, _ := b.Span()
	assert.Equal(t, []int32{7, 7, 0, 0}, span)

	require.NoError(t, b.Resize(6, true))
	assert.Equal(t, 8, b.Cap())
	span, _ = b.Span()
	assert.Equal(t, []int32{7, 7, 0, 0, 0, 0}, span)
}

func TestResize_SameLengthRoundTrip(t *testing.T) {
	b, err := New[int32](12)
	require.NoError(t, err)
	defer b.Release()

	ver := b.Version()
	require.NoError(t, b.Resize(12, true))
	assert.Equal(t, 12, b.Len())
	assert.Equal(t, 12, b.Cap())
	assert.Equal(t, ver, b.Version())
}

func TestNegativeArguments(t *testing.T) {
	b, err := New[int32](1)
	require.NoError(t, err)
	defer b.Release()

	assert.ErrorIs(t, b.EnsureCapacity(-1), api.ErrInvalidSize)
	assert.ErrorIs(t, b.Resize(-3, true), api.ErrInvalidSize)
	_, err = b.SpanRange(-1, 1)
	assert.ErrorIs(t, err, api.ErrInvalidSize)
	_, err = b.SpanRange(0, 2)
	assert.ErrorIs(t, err, api.ErrInvalidSize)
}

func TestRelease_IdempotentAndGuardsAccess(t *testing.T) {
	before := Live()
	b, err := New[int32](4)
	require.NoError(t, err)
	assert.Equal(t, before+1, Live())

	v := b.Version()
	b.Release()
	assert.Equal(t, v+1, b.Version())
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 0, b.Cap())
	assert.Equal(t, before, Live())

	b.Release()
	assert.Equal(t, v+1, b.Version(), "second release must be a no-op")
	assert.Equal(t, before, Live())

	_, err = b.Span()
	assert.ErrorIs(t, err, api.ErrUseAfterRelease)
	_, err = b.Ptr()
	assert.ErrorIs(t, err, api.ErrUseAfterRelease)
	assert.ErrorIs(t, b.Resize(1, true), api.ErrUseAfterRelease)
	assert.ErrorIs(t, b.EnsureCapacity(1), api.ErrUseAfterRelease)
	assert.ErrorIs(t, b.Set(0, 1), api.ErrUseAfterRelease)
	assert.Equal(t, "Buffer(released)", b.String())
}

func TestSpanRange_AliasesRegion(t *testing.T) {
	b, err := FromSlice([]int32{0, 1, 2, 3, 4, 5})
	require.NoError(t, err)
	defer b.Release()

	sub, err := b.SpanRange(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int32{2, 3, 4}, sub)
	assert.Equal(t, 3, cap(sub))
	sub[0] = 42

	got, err := b.At(2)
	require.NoError(t, err)
	assert.Equal(t, int32(42), got)

	empty, err := b.SpanRange(6, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAppend(t *testing.T) {
	b, err := New[int64](0)
	require.NoError(t, err)
	defer b.Release()

	for i := int64(0); i < 9; i++ {
		require.NoError(t, b.Append(i))
	}
	assert.Equal(t, 9, b.Len())
	assert.Equal(t, 16, b.Cap())
	last, err := b.At(8)
	require.NoError(t, err)
	assert.Equal(t, int64(8), last)
}

func TestLargeRegionMapping(t *testing.T) {
	n := MapThreshold
	b, err := New[int32](n)
	require.NoError(t, err)

	span, err := b.Span()
	require.NoError(t, err)
	for i := range span {
		span[i] = int32(i)
	}
	require.NoError(t, b.EnsureCapacity(n+1))
	span, _ = b.Span()
	assert.Equal(t, int32(n-1), span[n-1])

	b.Release()
	if b.Mapped() {
		t.Fatal("released buffer still reports a mapping")
	}
}

type withPointer struct {
	p *int
	n int
}

type flat struct {
	a int32
	b [4]uint8
}

func TestPointerFree(t *testing.T) {
	b, err := New[withPointer](MapThreshold)
	require.NoError(t, err)
	defer b.Release()
	assert.False(t, b.Mapped())

	assert.True(t, pointerFree(reflect.TypeFor[flat]()))
	assert.False(t, pointerFree(reflect.TypeFor[withPointer]()))
	assert.False(t, pointerFree(reflect.TypeFor[[]int]()))
}

func TestString(t *testing.T) {
	b, err := New[int32](3)
	require.NoError(t, err)
	defer b.Release()
	s := b.String()
	assert.True(t, strings.HasPrefix(s, "Buffer(T=int32, Len=3, Cap=3, Ptr=0x"), s)
	assert.True(t, strings.HasSuffix(s, ", Ver=1)"), s)
}

func TestErrorsCarryContext(t *testing.T) {
	_, err := Allocate[int32](-7, true)
	var e *api.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, -7, e.Context["length"])
}
