package reduce

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-slice/api"
	"github.com/momentics/hioload-slice/backend"
	"github.com/momentics/hioload-slice/core/buffer"
	"github.com/momentics/hioload-slice/core/callback"
	"github.com/momentics/hioload-slice/core/kernel"
	"github.com/momentics/hioload-slice/core/partition"
)

func withBackends(t *testing.T, fn func(t *testing.T, b api.Backend)) {
	t.Helper()
	for _, kind := range backend.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			b, err := backend.New(kind, backend.WithWorkers(4))
			require.NoError(t, err)
			defer func() { require.NoError(t, backend.Close(b)) }()
			fn(t, b)
		})
	}
}

func indexBuffer(t *testing.T, n int) *buffer.Buffer[int32] {
	t.Helper()
	b, err := buffer.Allocate[int32](n, false)
	require.NoError(t, err)
	data, err := b.Span()
	require.NoError(t, err)
	kernel.FillIndex(data, 0)
	return b
}

func TestAddOneAndSum_EightElements(t *testing.T) {
	withBackends(t, func(t *testing.T, b api.Backend) {
		for _, workers := range []int{1, 4} {
			buf := indexBuffer(t, 8)
			total, err := Reducer{Backend: b, Workers: workers}.AddOneAndSum(buf)
			require.NoError(t, err)
			assert.Equal(t, int64(36), total, "workers=%d", workers)

			data, err := buf.Span()
			require.NoError(t, err)
			assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, data)
			buf.Release()
		}
	})
}

func TestAddOneAndSum_CrossBackendDeterminism(t *testing.T) {
	const n = 100_003
	ref := indexBuffer(t, n)
	defer ref.Release()
	refData, _ := ref.Span()
	want := kernel.AddOneAndSum(refData)

	withBackends(t, func(t *testing.T, b api.Backend) {
		for _, workers := range []int{1, 2, 8, n} {
			buf := indexBuffer(t, n)
			got, err := Reducer{Backend: b, Workers: workers}.AddOneAndSum(buf)
			require.NoError(t, err)
			assert.Equal(t, want, got, "workers=%d", workers)

			data, _ := buf.Span()
			assert.Equal(t, refData, data, "workers=%d", workers)
			buf.Release()
		}
	})
}

func TestAddOneAndSum_Wraps(t *testing.T) {
	buf, err := buffer.FromSlice([]int32{2147483647, 0})
	require.NoError(t, err)
	defer buf.Release()

	total, err := Reducer{Backend: backend.NewInline(), Workers: 2}.AddOneAndSum(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(-2147483648+1), total)
}

func TestBuffer_EmptyAndReleased(t *testing.T) {
	r := Reducer{Backend: backend.NewInline()}
	empty, err := buffer.New[int32](0)
	require.NoError(t, err)
	total, err := r.AddOneAndSum(empty)
	require.NoError(t, err)
	assert.Zero(t, total)

	empty.Release()
	_, err = r.AddOneAndSum(empty)
	assert.ErrorIs(t, err, api.ErrUseAfterRelease)
}

func TestBuffer_WorkersFromBackend(t *testing.T) {
	g := backend.NewGraph(backend.WithWorkers(3))
	defer g.Close()
	buf := indexBuffer(t, 10)
	defer buf.Release()

	var calls int
	total, err := Reducer{Backend: g}.Buffer(buf, func(data []int32) int64 {
		return kernel.Sum(data)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(45), total)

	_, err = Reducer{Backend: backend.NewInline()}.Buffer(buf, func(data []int32) int64 {
		calls++
		return 0
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "inline backend has a single worker")
}

func TestOverSlices_Faults(t *testing.T) {
	withBackends(t, func(t *testing.T, b api.Backend) {
		boom := errors.New("slice failed")
		slices := partition.FromRanges([]partition.Range{{Start: 0, End: 4}, {Start: 4, End: 8}, {Start: 8, End: 12}})
		total, err := OverSlices(b, slices, func(s partition.Slice) (int64, error) {
			if s.Start == 4 {
				return 0, boom
			}
			return int64(s.Length), nil
		})
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, api.ErrBackendFault)
		assert.Zero(t, total)
	})
}

func TestOverSlices_Validation(t *testing.T) {
	r := Reducer{Backend: backend.NewInline()}
	bad := []partition.Slice{{Source: 0, Start: 5, Length: 10}}
	_, err := r.OverSlices(bad, []int{8}, func(partition.Slice) (int64, error) { return 1, nil })
	assert.ErrorIs(t, err, api.ErrInvalidSize)

	r.Lenient = true
	total, err := r.OverSlices(bad, []int{8}, func(partition.Slice) (int64, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, err = Reducer{}.OverSlices(bad, nil, func(partition.Slice) (int64, error) { return 1, nil })
	assert.ErrorIs(t, err, api.ErrNotSupported)

	_, err = r.OverSlices(bad, nil, nil)
	assert.ErrorIs(t, err, api.ErrInvalidCallbackShape)
}

func TestOverSlices_UsesGivenTable(t *testing.T) {
	tbl := callback.NewTable(1)
	var seen int
	_, err := Reducer{Backend: backend.NewInline(), Handles: tbl}.OverSlices(
		[]partition.Slice{{Length: 1}}, nil,
		func(partition.Slice) (int64, error) { seen = tbl.Len(); return 0, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
	assert.Equal(t, 0, tbl.Len())
}

// expectedArchetypeSum is the closed form of sum(i + (i&1) + 1) for i < n.
func expectedArchetypeSum(lengths []int) int64 {
	var s int64
	for _, n := range lengths {
		l := int64(n)
		s += l*(l-1)/2 + l + l/2
	}
	return s
}

func TestArchetypes_CrossBackendDeterminism(t *testing.T) {
	lengths := []int{5, 100000, 3, 0, 9999}
	want := expectedArchetypeSum(lengths)

	withBackends(t, func(t *testing.T, b api.Backend) {
		for _, workers := range []int{1, 2, 8, 64} {
			set, err := NewArchetypeSet(lengths)
			require.NoError(t, err)

			got, err := Reducer{Backend: b, Workers: workers}.Archetypes(set, 10000, 1)
			require.NoError(t, err)
			assert.Equal(t, want, got, "workers=%d", workers)

			seq, err := set.SumPositions()
			require.NoError(t, err)
			assert.Equal(t, want, seq, "workers=%d", workers)
			set.Release()
		}
	})
}

func TestArchetypes_DefaultSet(t *testing.T) {
	set, err := NewArchetypeSet(nil)
	require.NoError(t, err)
	defer set.Release()
	assert.Equal(t, DefaultArchetypeLengths, set.Lengths())

	g := backend.NewGraph()
	defer g.Close()
	got, err := Reducer{Backend: g}.Archetypes(set, 4096, 1)
	require.NoError(t, err)
	assert.Equal(t, expectedArchetypeSum(DefaultArchetypeLengths), got)

	require.NoError(t, set.Reset())
	pos, err := set.Positions(3)
	require.NoError(t, err)
	assert.Equal(t, int32(2499), pos[2499])
}

func TestArchetypeSlices_Defensive(t *testing.T) {
	set, err := NewArchetypeSet([]int{4, 6})
	require.NoError(t, err)
	defer set.Release()

	slices := []partition.Slice{
		{Source: 0, Start: 0, Length: 100}, // clamped to 4
		{Source: 7, Start: 0, Length: 1},   // unknown archetype
		{Source: 1, Start: 6, Length: 2},   // starts past the end
		{Source: 1, Start: 0, Length: 0},   // empty
	}
	strict := Reducer{Backend: backend.NewInline()}
	_, err = strict.ArchetypeSlices(set, slices, 1)
	assert.ErrorIs(t, err, api.ErrInvalidSize)

	lenient := Reducer{Backend: backend.NewInline(), Lenient: true}
	got, err := lenient.ArchetypeSlices(set, slices, 1)
	require.NoError(t, err)
	// positions 0..3 plus velocities 1,2,1,2
	assert.Equal(t, int64(0+1+2+3+1+2+1+2), got)
}

func TestArchetypes_Released(t *testing.T) {
	set, err := NewArchetypeSet([]int{3})
	require.NoError(t, err)
	set.Release()
	set.Release()

	_, err = Reducer{Backend: backend.NewInline()}.Archetypes(set, 1, 1)
	assert.ErrorIs(t, err, api.ErrUseAfterRelease)
	_, err = set.SumPositions()
	assert.ErrorIs(t, err, api.ErrUseAfterRelease)
}

func TestNewArchetypeSet_InvalidLength(t *testing.T) {
	live := buffer.Live()
	_, err := NewArchetypeSet([]int{3, -1})
	assert.ErrorIs(t, err, api.ErrInvalidSize)
	assert.Equal(t, live, buffer.Live(), "partial allocations are released")
}

func ExampleReducer_AddOneAndSum() {
	buf, _ := buffer.FromSlice([]int32{0, 1, 2, 3, 4, 5, 6, 7})
	defer buf.Release()

	total, _ := Reducer{Backend: backend.NewInline(), Workers: 4}.AddOneAndSum(buf)
	fmt.Println(total)
	// Output: 36
}
