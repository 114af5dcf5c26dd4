package compute

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-terror/databend-sub000/pkg/chunk"
	"github.com/code-terror/databend-sub000/pkg/common"
	"github.com/code-terror/databend-sub000/pkg/util"
)

func newInt32Vector(lt common.LType, vals []int32, nulls []bool) *chunk.Vector {
	vec := chunk.NewFlatVector(lt, max(len(vals), util.DefaultVectorSize))
	data := chunk.GetSliceInPhyFormatFlat[int32](vec)
	for i, v := range vals {
		data[i] = v
		if nulls != nil && nulls[i] {
			chunk.SetNullInPhyFormatFlat(vec, uint64(i), true)
		}
	}
	return vec
}

func newFloat64Vector(vals []float64, nulls []bool) *chunk.Vector {
	vec := chunk.NewFlatVector(common.DoubleType(), max(len(vals), util.DefaultVectorSize))
	data := chunk.GetSliceInPhyFormatFlat[float64](vec)
	for i, v := range vals {
		data[i] = v
		if nulls != nil && nulls[i] {
			chunk.SetNullInPhyFormatFlat(vec, uint64(i), true)
		}
	}
	return vec
}

func newChunk(card int, vecs ...*chunk.Vector) *chunk.Chunk {
	data := &chunk.Chunk{Data: vecs}
	data.SetCap(util.DefaultVectorSize)
	data.SetCard(card)
	return data
}

// drainRows runs GetData to completion and returns every produced row.
func drainRows(t *testing.T, ha *HashAggr) [][]*chunk.Value {
	output := &chunk.Chunk{}
	output.Init(ha.OutputTypes(), util.DefaultVectorSize)
	var rows [][]*chunk.Value
	for {
		res, err := ha.GetData(output)
		require.NoError(t, err)
		if res == Done {
			break
		}
		require.Equal(t, HaveMoreOutput, res)
		for i := 0; i < output.Card(); i++ {
			row := make([]*chunk.Value, output.ColumnCount())
			for j := range row {
				row[j] = output.Data[j].GetValue(i)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func keyOf(val *chunk.Value) string {
	if val.IsNull {
		return "NULL"
	}
	return val.String()
}

func TestHashAggrCountSum(t *testing.T) {
	descs := []*AggrDesc{
		{Name: "count", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}},
		{Name: "sum", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}},
	}
	ha, err := NewHashAggr(
		[]common.LType{common.IntegerType()},
		[]int{0},
		descs,
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	keys := []int32{1, 1, 1, 2, 2, 3}
	vals := []int32{10, 20, 30, 5, 5, 7}
	input := newChunk(len(keys),
		newInt32Vector(common.IntegerType(), keys, nil),
		newInt32Vector(common.IntegerType(), vals, nil),
	)
	require.NoError(t, ha.Sink(input))
	require.NoError(t, ha.Finalize())

	assert.Equal(t, 3, ha.GroupCount())
	rows := drainRows(t, ha)
	require.Len(t, rows, 3)

	counts := make(map[int64]int64)
	sums := make(map[int64]string)
	for _, row := range rows {
		counts[row[0].I64] = row[1].I64
		sums[row[0].I64] = row[2].String()
	}
	assert.Equal(t, map[int64]int64{1: 3, 2: 2, 3: 1}, counts)
	assert.Equal(t, map[int64]string{1: "60", 2: "10", 3: "7"}, sums)
}

func TestHashAggrNullGroupKey(t *testing.T) {
	keyTyp := common.IntegerType()
	keyTyp.Nullable = true
	ha, err := NewHashAggr(
		[]common.LType{keyTyp},
		[]int{0},
		[]*AggrDesc{
			{Name: "count", RetType: common.BigintType()},
		},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	keys := []int32{1, 0, 1, 0}
	nulls := []bool{false, true, false, true}
	input := newChunk(len(keys), newInt32Vector(keyTyp, keys, nulls))
	require.NoError(t, ha.Sink(input))
	require.NoError(t, ha.Finalize())

	rows := drainRows(t, ha)
	require.Len(t, rows, 2)
	counts := make(map[string]int64)
	for _, row := range rows {
		counts[keyOf(row[0])] = row[1].I64
	}
	assert.Equal(t, map[string]int64{"1": 2, "NULL": 2}, counts)
}

func TestHashAggrNullValues(t *testing.T) {
	//count skips NULL payloads and finalizes to 0, sum finalizes to NULL
	ha, err := NewHashAggr(
		[]common.LType{common.IntegerType()},
		[]int{0},
		[]*AggrDesc{
			{Name: "count", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}},
			{Name: "sum", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}},
		},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	keys := []int32{1, 1, 2}
	vals := []int32{10, 0, 0}
	nulls := []bool{false, true, true}
	input := newChunk(len(keys),
		newInt32Vector(common.IntegerType(), keys, nil),
		newInt32Vector(common.IntegerType(), vals, nulls),
	)
	require.NoError(t, ha.Sink(input))
	require.NoError(t, ha.Finalize())

	rows := drainRows(t, ha)
	require.Len(t, rows, 2)
	for _, row := range rows {
		switch row[0].I64 {
		case 1:
			assert.Equal(t, int64(1), row[1].I64)
			require.False(t, row[2].IsNull)
			assert.Equal(t, "10", row[2].String())
		case 2:
			assert.Equal(t, int64(0), row[1].I64)
			assert.True(t, row[2].IsNull)
		default:
			t.Fatalf("unexpected group %d", row[0].I64)
		}
	}
}

func TestHashAggrGlobal(t *testing.T) {
	ha, err := NewHashAggr(
		nil,
		nil,
		[]*AggrDesc{
			{Name: "count"},
			{Name: "sum", ArgTypes: []common.LType{common.DoubleType()}, ArgIdx: []int{0}},
		},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	require.NoError(t, ha.Sink(newChunk(3, newFloat64Vector([]float64{1.5, 2.5, 4.0}, nil))))
	require.NoError(t, ha.Sink(newChunk(2, newFloat64Vector([]float64{1.0, 1.0}, nil))))
	require.NoError(t, ha.Finalize())

	rows := drainRows(t, ha)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(5), rows[0][0].I64)
	assert.InDelta(t, 10.0, rows[0][1].F64, 1e-9)
}

func TestHashAggrGlobalEmptyInput(t *testing.T) {
	ha, err := NewHashAggr(
		nil,
		nil,
		[]*AggrDesc{
			{Name: "count"},
			{Name: "sum", ArgTypes: []common.LType{common.DoubleType()}, ArgIdx: []int{0}},
		},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	require.NoError(t, ha.Finalize())
	rows := drainRows(t, ha)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(0), rows[0][0].I64)
	assert.True(t, rows[0][1].IsNull)
}

func TestHashAggrGroupedEmptyInput(t *testing.T) {
	ha, err := NewHashAggr(
		[]common.LType{common.IntegerType()},
		[]int{0},
		[]*AggrDesc{{Name: "count"}},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	require.NoError(t, ha.Finalize())
	rows := drainRows(t, ha)
	assert.Len(t, rows, 0)
	assert.Equal(t, 0, ha.GroupCount())
}

func TestHashAggrVarcharKeys(t *testing.T) {
	keyTyp := common.VarcharType()
	keyTyp.Nullable = true
	ha, err := NewHashAggr(
		[]common.LType{keyTyp},
		[]int{0},
		[]*AggrDesc{{Name: "count"}},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	keyVec := chunk.NewVarcharFlatVector(
		[]string{"a", "bb", "a", "", "a long string that does not inline"}, util.DefaultVectorSize)
	chunk.SetNullInPhyFormatFlat(keyVec, 3, true)
	require.NoError(t, ha.Sink(newChunk(5, keyVec)))

	keyVec2 := chunk.NewVarcharFlatVector(
		[]string{"bb", "a long string that does not inline"}, util.DefaultVectorSize)
	require.NoError(t, ha.Sink(newChunk(2, keyVec2)))
	require.NoError(t, ha.Finalize())

	rows := drainRows(t, ha)
	require.Len(t, rows, 4)
	counts := make(map[string]int64)
	for _, row := range rows {
		counts[keyOf(row[0])] = row[1].I64
	}
	assert.Equal(t, map[string]int64{
		"a":    2,
		"bb":   2,
		"NULL": 1,
		"a long string that does not inline": 2,
	}, counts)
}

func TestHashAggrMultiColumnKeys(t *testing.T) {
	ha, err := NewHashAggr(
		[]common.LType{common.IntegerType(), common.IntegerType()},
		[]int{0, 1},
		[]*AggrDesc{{Name: "count"}},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	k0 := []int32{1, 1, 2, 1}
	k1 := []int32{7, 8, 7, 7}
	input := newChunk(len(k0),
		newInt32Vector(common.IntegerType(), k0, nil),
		newInt32Vector(common.IntegerType(), k1, nil),
	)
	require.NoError(t, ha.Sink(input))
	require.NoError(t, ha.Finalize())

	rows := drainRows(t, ha)
	require.Len(t, rows, 3)
	counts := make(map[string]int64)
	for _, row := range rows {
		counts[fmt.Sprintf("%d/%d", row[0].I64, row[1].I64)] = row[2].I64
	}
	assert.Equal(t, map[string]int64{"1/7": 2, "1/8": 1, "2/7": 1}, counts)
}

func TestHashAggrMinMaxAvg(t *testing.T) {
	ha, err := NewHashAggr(
		[]common.LType{common.IntegerType()},
		[]int{0},
		[]*AggrDesc{
			{Name: "min", ArgTypes: []common.LType{common.DoubleType()}, ArgIdx: []int{1}},
			{Name: "max", ArgTypes: []common.LType{common.DoubleType()}, ArgIdx: []int{1}},
			{Name: "avg", ArgTypes: []common.LType{common.DoubleType()}, ArgIdx: []int{1}},
		},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	keys := []int32{1, 1, 1, 2}
	vals := []float64{2.5, 1.5, 5.0, -3.0}
	input := newChunk(len(keys),
		newInt32Vector(common.IntegerType(), keys, nil),
		newFloat64Vector(vals, nil),
	)
	require.NoError(t, ha.Sink(input))
	require.NoError(t, ha.Finalize())

	rows := drainRows(t, ha)
	require.Len(t, rows, 2)
	for _, row := range rows {
		switch row[0].I64 {
		case 1:
			assert.InDelta(t, 1.5, row[1].F64, 1e-9)
			assert.InDelta(t, 5.0, row[2].F64, 1e-9)
			assert.InDelta(t, 3.0, row[3].F64, 1e-9)
		case 2:
			assert.InDelta(t, -3.0, row[1].F64, 1e-9)
			assert.InDelta(t, -3.0, row[2].F64, 1e-9)
			assert.InDelta(t, -3.0, row[3].F64, 1e-9)
		default:
			t.Fatalf("unexpected group %d", row[0].I64)
		}
	}
}

func TestHashAggrManyGroupsTwoLevel(t *testing.T) {
	opts := &util.AggrOptions{
		TwoLevelThreshold: 64,
		NumPartitions:     16,
	}
	ha, err := NewHashAggr(
		[]common.LType{common.IntegerType()},
		[]int{0},
		[]*AggrDesc{
			{Name: "count"},
			{Name: "sum", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}},
		},
		opts,
	)
	require.NoError(t, err)
	defer ha.Close()

	const numGroups = 1000
	keys := make([]int32, 0, util.DefaultVectorSize)
	vals := make([]int32, 0, util.DefaultVectorSize)
	sink := func() {
		if len(keys) == 0 {
			return
		}
		input := newChunk(len(keys),
			newInt32Vector(common.IntegerType(), keys, nil),
			newInt32Vector(common.IntegerType(), vals, nil),
		)
		require.NoError(t, ha.Sink(input))
		keys = keys[:0]
		vals = vals[:0]
	}
	for round := 0; round < 3; round++ {
		for g := 0; g < numGroups; g++ {
			keys = append(keys, int32(g))
			vals = append(vals, int32(g)+int32(round))
			if len(keys) == util.DefaultVectorSize {
				sink()
			}
		}
	}
	sink()
	require.NoError(t, ha.Finalize())

	assert.Equal(t, numGroups, ha.GroupCount())
	rows := drainRows(t, ha)
	require.Len(t, rows, numGroups)
	for _, row := range rows {
		g := row[0].I64
		assert.Equal(t, int64(3), row[1].I64)
		assert.Equal(t, fmt.Sprintf("%d", 3*g+3), row[2].String())
	}
}

func TestHashAggrMerge(t *testing.T) {
	build := func() *HashAggr {
		ha, err := NewHashAggr(
			[]common.LType{common.IntegerType()},
			[]int{0},
			[]*AggrDesc{
				{Name: "count"},
				{Name: "sum", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}},
			},
			nil,
		)
		require.NoError(t, err)
		return ha
	}
	left := build()
	defer left.Close()
	right := build()
	defer right.Close()

	//key 1 only on the left, key 3 only on the right, key 2 on both
	require.NoError(t, left.Sink(newChunk(3,
		newInt32Vector(common.IntegerType(), []int32{1, 1, 2}, nil),
		newInt32Vector(common.IntegerType(), []int32{10, 20, 30}, nil),
	)))
	require.NoError(t, right.Sink(newChunk(3,
		newInt32Vector(common.IntegerType(), []int32{2, 3, 3}, nil),
		newInt32Vector(common.IntegerType(), []int32{40, 50, 60}, nil),
	)))

	require.NoError(t, left.Merge(right))
	require.NoError(t, left.Finalize())

	assert.Equal(t, 3, left.GroupCount())
	rows := drainRows(t, left)
	require.Len(t, rows, 3)
	counts := make(map[int64]int64)
	sums := make(map[int64]string)
	for _, row := range rows {
		counts[row[0].I64] = row[1].I64
		sums[row[0].I64] = row[2].String()
	}
	assert.Equal(t, map[int64]int64{1: 2, 2: 2, 3: 2}, counts)
	assert.Equal(t, map[int64]string{1: "30", 2: "70", 3: "110"}, sums)
}

func TestHashAggrMergeTwoLevelParallel(t *testing.T) {
	opts := &util.AggrOptions{
		TwoLevelThreshold: 32,
		NumPartitions:     8,
		MergeParallelism:  4,
	}
	build := func() *HashAggr {
		ha, err := NewHashAggr(
			[]common.LType{common.IntegerType()},
			[]int{0},
			[]*AggrDesc{
				{Name: "count"},
				{Name: "sum", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}},
			},
			opts,
		)
		require.NoError(t, err)
		return ha
	}
	left := build()
	defer left.Close()
	right := build()
	defer right.Close()

	const numGroups = 500
	sinkRange := func(ha *HashAggr, lo, hi int) {
		keys := make([]int32, 0, hi-lo)
		vals := make([]int32, 0, hi-lo)
		for g := lo; g < hi; g++ {
			keys = append(keys, int32(g))
			vals = append(vals, 1)
		}
		input := newChunk(len(keys),
			newInt32Vector(common.IntegerType(), keys, nil),
			newInt32Vector(common.IntegerType(), vals, nil),
		)
		require.NoError(t, ha.Sink(input))
	}
	//left holds [0, 300), right holds [200, 500): [200, 300) overlaps
	sinkRange(left, 0, 300)
	sinkRange(right, 200, 500)

	require.NoError(t, left.Merge(right))
	require.NoError(t, left.Finalize())

	assert.Equal(t, numGroups, left.GroupCount())
	rows := drainRows(t, left)
	require.Len(t, rows, numGroups)
	for _, row := range rows {
		g := row[0].I64
		want := int64(1)
		if g >= 200 && g < 300 {
			want = 2
		}
		assert.Equal(t, want, row[1].I64, "group %d", g)
		assert.Equal(t, fmt.Sprintf("%d", want), row[2].String())
	}
}

func TestHashAggrMultiBatchSink(t *testing.T) {
	ha, err := NewHashAggr(
		[]common.LType{common.IntegerType()},
		[]int{0},
		[]*AggrDesc{
			{Name: "count"},
			{Name: "sum", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}},
		},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	//the same groups arriving over several batches accumulate into the
	//same states
	for batch := 0; batch < 3; batch++ {
		input := newChunk(4,
			newInt32Vector(common.IntegerType(), []int32{1, 2, 3, 4}, nil),
			newInt32Vector(common.IntegerType(), []int32{1, 1, 1, 1}, nil),
		)
		require.NoError(t, ha.Sink(input))
	}
	require.NoError(t, ha.Finalize())

	assert.Equal(t, 4, ha.GroupCount())
	rows := drainRows(t, ha)
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Equal(t, int64(3), row[1].I64, "group %d", row[0].I64)
		assert.Equal(t, "3", row[2].String())
	}
}

func TestHashAggrVarcharTwoLevelMerge(t *testing.T) {
	keyTyp := common.VarcharType()
	keyTyp.Nullable = true
	opts := &util.AggrOptions{
		TwoLevelThreshold: 16,
		NumPartitions:     8,
		MergeParallelism:  4,
	}
	build := func() *HashAggr {
		ha, err := NewHashAggr(
			[]common.LType{keyTyp},
			[]int{0},
			[]*AggrDesc{
				{Name: "count"},
				{Name: "sum", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}},
			},
			opts,
		)
		require.NoError(t, err)
		return ha
	}
	left := build()
	defer left.Close()
	right := build()
	defer right.Close()

	groupKey := func(g int) string {
		return fmt.Sprintf("group %04d padded so it does not inline", g)
	}
	sinkRange := func(ha *HashAggr, lo, hi int) {
		keys := make([]string, 0, hi-lo+1)
		vals := make([]int32, 0, hi-lo+1)
		for g := lo; g < hi; g++ {
			keys = append(keys, groupKey(g))
			vals = append(vals, 1)
		}
		keys = append(keys, "")
		vals = append(vals, 1)
		keyVec := chunk.NewVarcharFlatVector(keys, util.DefaultVectorSize)
		chunk.SetNullInPhyFormatFlat(keyVec, uint64(len(keys)-1), true)
		input := newChunk(len(keys), keyVec,
			newInt32Vector(common.IntegerType(), vals, nil))
		require.NoError(t, ha.Sink(input))
	}
	//left holds [0, 300), right holds [200, 500): [200, 300) overlaps,
	//and both sides contribute a null-key row
	sinkRange(left, 0, 300)
	sinkRange(right, 200, 500)

	require.NoError(t, left.Merge(right))
	require.NoError(t, left.Finalize())

	const numGroups = 500 + 1
	assert.Equal(t, numGroups, left.GroupCount())
	rows := drainRows(t, left)
	require.Len(t, rows, numGroups)
	counts := make(map[string]int64)
	sums := make(map[string]string)
	for _, row := range rows {
		counts[keyOf(row[0])] = row[1].I64
		sums[keyOf(row[0])] = row[2].String()
	}
	assert.Equal(t, int64(2), counts["NULL"])
	assert.Equal(t, "2", sums["NULL"])
	for g := 0; g < 500; g++ {
		want := int64(1)
		if g >= 200 && g < 300 {
			want = 2
		}
		assert.Equal(t, want, counts[groupKey(g)], "group %d", g)
		assert.Equal(t, fmt.Sprintf("%d", want), sums[groupKey(g)])
	}
}

func TestHashAggrMergeGlobal(t *testing.T) {
	build := func() *HashAggr {
		ha, err := NewHashAggr(nil, nil,
			[]*AggrDesc{
				{Name: "count"},
				{Name: "sum", ArgTypes: []common.LType{common.DoubleType()}, ArgIdx: []int{0}},
			},
			nil,
		)
		require.NoError(t, err)
		return ha
	}
	left := build()
	defer left.Close()
	right := build()
	defer right.Close()

	require.NoError(t, left.Sink(newChunk(2, newFloat64Vector([]float64{1, 2}, nil))))
	require.NoError(t, right.Sink(newChunk(3, newFloat64Vector([]float64{3, 4, 5}, nil))))

	require.NoError(t, left.Merge(right))
	require.NoError(t, left.Finalize())

	rows := drainRows(t, left)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(5), rows[0][0].I64)
	assert.InDelta(t, 15.0, rows[0][1].F64, 1e-9)
}

func TestHashAggrPureDistinctGroups(t *testing.T) {
	//no aggregates at all, the table only deduplicates keys
	ha, err := NewHashAggr(
		[]common.LType{common.IntegerType()},
		[]int{0},
		nil,
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	input := newChunk(5, newInt32Vector(common.IntegerType(), []int32{3, 1, 3, 2, 1}, nil))
	require.NoError(t, ha.Sink(input))
	require.NoError(t, ha.Finalize())

	rows := drainRows(t, ha)
	require.Len(t, rows, 3)
	seen := make(map[int64]bool)
	for _, row := range rows {
		seen[row[0].I64] = true
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: true}, seen)
}

func TestHashAggrLifecycleErrors(t *testing.T) {
	ha, err := NewHashAggr(
		[]common.LType{common.IntegerType()},
		[]int{0},
		[]*AggrDesc{{Name: "count"}},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	output := &chunk.Chunk{}
	output.Init(ha.OutputTypes(), util.DefaultVectorSize)
	_, err = ha.GetData(output)
	assert.ErrorIs(t, err, ErrNotFinalized)

	require.NoError(t, ha.Finalize())
	assert.ErrorIs(t, ha.Finalize(), ErrFinalized)

	input := newChunk(1, newInt32Vector(common.IntegerType(), []int32{1}, nil))
	assert.ErrorIs(t, ha.Sink(input), ErrFinalized)

	_, err = NewHashAggr(
		[]common.LType{common.IntegerType()},
		[]int{0},
		[]*AggrDesc{{Name: "nope", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}}},
		nil,
	)
	assert.ErrorIs(t, err, ErrUnknownAggr)

	_, err = NewHashAggr(
		[]common.LType{common.IntegerType()},
		[]int{0},
		[]*AggrDesc{{Name: "count", Distinct: true}},
		nil,
	)
	assert.Error(t, err)
}

func newNumericVector[T any](lt common.LType, vals []T, nulls []bool) *chunk.Vector {
	vec := chunk.NewFlatVector(lt, max(len(vals), util.DefaultVectorSize))
	data := chunk.GetSliceInPhyFormatFlat[T](vec)
	for i, v := range vals {
		data[i] = v
		if nulls != nil && nulls[i] {
			chunk.SetNullInPhyFormatFlat(vec, uint64(i), true)
		}
	}
	return vec
}

func TestHashAggrTinyKeys(t *testing.T) {
	//u8 keys address states directly, no hashing involved
	ha, err := NewHashAggr(
		[]common.LType{common.UtinyintType()},
		[]int{0},
		[]*AggrDesc{{Name: "count"}},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	input := newChunk(6, newNumericVector(common.UtinyintType(), []uint8{1, 2, 1, 3, 2, 1}, nil))
	require.NoError(t, ha.Sink(input))
	require.NoError(t, ha.Finalize())

	rows := drainRows(t, ha)
	require.Len(t, rows, 3)
	counts := make(map[uint64]int64)
	for _, row := range rows {
		counts[row[0].U64] = row[1].I64
	}
	assert.Equal(t, map[uint64]int64{1: 3, 2: 2, 3: 1}, counts)
}

func TestHashAggrTinyKeysMerge(t *testing.T) {
	build := func(keys []uint8) *HashAggr {
		ha, err := NewHashAggr(
			[]common.LType{common.UtinyintType()},
			[]int{0},
			[]*AggrDesc{{Name: "count"}},
			nil,
		)
		require.NoError(t, err)
		input := newChunk(len(keys), newNumericVector(common.UtinyintType(), keys, nil))
		require.NoError(t, ha.Sink(input))
		return ha
	}
	left := build([]uint8{1, 1, 2})
	defer left.Close()
	right := build([]uint8{2, 3})
	defer right.Close()

	require.NoError(t, left.Merge(right))
	require.NoError(t, left.Finalize())

	rows := drainRows(t, left)
	require.Len(t, rows, 3)
	counts := make(map[uint64]int64)
	for _, row := range rows {
		counts[row[0].U64] = row[1].I64
	}
	assert.Equal(t, map[uint64]int64{1: 2, 2: 2, 3: 1}, counts)
}

func TestHashAggrSmallintKeys(t *testing.T) {
	ha, err := NewHashAggr(
		[]common.LType{common.SmallintType()},
		[]int{0},
		[]*AggrDesc{{Name: "count"}},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	input := newChunk(5, newNumericVector(common.SmallintType(), []int16{-1, 300, -1, 0, 300}, nil))
	require.NoError(t, ha.Sink(input))
	require.NoError(t, ha.Finalize())

	rows := drainRows(t, ha)
	require.Len(t, rows, 3)
	counts := make(map[int64]int64)
	for _, row := range rows {
		counts[row[0].I64] = row[1].I64
	}
	assert.Equal(t, map[int64]int64{-1: 2, 300: 2, 0: 1}, counts)
}

func TestHashAggrWideFixedKeys(t *testing.T) {
	//two bigint columns pack into a 16 byte key
	ha, err := NewHashAggr(
		[]common.LType{common.BigintType(), common.BigintType()},
		[]int{0, 1},
		[]*AggrDesc{{Name: "count"}},
		nil,
	)
	require.NoError(t, err)
	defer ha.Close()

	k0 := []int64{1 << 40, 1 << 40, 2, 1 << 40}
	k1 := []int64{-5, -5, -5, 6}
	input := newChunk(len(k0),
		newNumericVector(common.BigintType(), k0, nil),
		newNumericVector(common.BigintType(), k1, nil),
	)
	require.NoError(t, ha.Sink(input))
	require.NoError(t, ha.Finalize())

	rows := drainRows(t, ha)
	require.Len(t, rows, 3)
	counts := make(map[string]int64)
	for _, row := range rows {
		counts[fmt.Sprintf("%d/%d", row[0].I64, row[1].I64)] = row[2].I64
	}
	assert.Equal(t, map[string]int64{
		fmt.Sprintf("%d/-5", int64(1<<40)): 2,
		"2/-5":                             1,
		fmt.Sprintf("%d/6", int64(1<<40)):  1,
	}, counts)
}

func TestHashAggrMergeAssociativity(t *testing.T) {
	build := func(keys []int32) *HashAggr {
		ha, err := NewHashAggr(
			[]common.LType{common.IntegerType()},
			[]int{0},
			[]*AggrDesc{
				{Name: "count"},
				{Name: "sum", ArgTypes: []common.LType{common.IntegerType()}, ArgIdx: []int{1}},
			},
			nil,
		)
		require.NoError(t, err)
		vals := make([]int32, len(keys))
		for i := range vals {
			vals[i] = keys[i] * 10
		}
		input := newChunk(len(keys),
			newInt32Vector(common.IntegerType(), keys, nil),
			newInt32Vector(common.IntegerType(), vals, nil),
		)
		require.NoError(t, ha.Sink(input))
		return ha
	}
	a := []int32{1, 2, 2}
	b := []int32{2, 3}
	c := []int32{1, 3, 4}

	gather := func(ha *HashAggr) map[int64]string {
		require.NoError(t, ha.Finalize())
		out := make(map[int64]string)
		for _, row := range drainRows(t, ha) {
			out[row[0].I64] = fmt.Sprintf("%d:%s", row[1].I64, row[2].String())
		}
		return out
	}

	//(a+b)+c
	x := build(a)
	defer x.Close()
	xb := build(b)
	defer xb.Close()
	xc := build(c)
	defer xc.Close()
	require.NoError(t, x.Merge(xb))
	require.NoError(t, x.Merge(xc))

	//c+(b+a)
	y := build(c)
	defer y.Close()
	yb := build(b)
	defer yb.Close()
	ya := build(a)
	defer ya.Close()
	require.NoError(t, yb.Merge(ya))
	require.NoError(t, y.Merge(yb))

	want := map[int64]string{
		1: "2:20",
		2: "3:60",
		3: "2:60",
		4: "1:40",
	}
	assert.Equal(t, want, gather(x))
	assert.Equal(t, want, gather(y))
}
