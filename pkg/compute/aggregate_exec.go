package compute

import (
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/code-terror/databend-sub000/pkg/chunk"
	"github.com/code-terror/databend-sub000/pkg/common"
	"github.com/code-terror/databend-sub000/pkg/util"
)

func InitStates(
	layout *aggrLayout,
	addresses *chunk.Vector,
	sel *chunk.SelectVector,
	cnt int,
) {
	if cnt == 0 {
		return
	}
	pointers := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](addresses)
	for i, aggr := range layout._aggregates {
		offset := layout._offsets[i]
		for j := 0; j < cnt; j++ {
			rowIdx := sel.GetIndex(j)
			row := pointers[rowIdx]
			aggr._func._init(util.PointerAdd(row, offset))
		}
	}
}

func UpdateStates(
	aggr *AggrObject,
	addresses *chunk.Vector,
	payload *chunk.Chunk,
	cnt int,
) {
	inputData := NewAggrInputData()
	var input []*chunk.Vector
	if len(aggr._childIdx) != 0 {
		input = []*chunk.Vector{payload.Data[aggr._childIdx[0]]}
	}
	aggr._func._update(
		input,
		inputData,
		len(aggr._childIdx),
		addresses,
		cnt,
	)
}

// FinalizeStates writes each aggregate's result column. The addresses
// vector starts at the row bases and is advanced through the state row
// as the aggregates are emitted.
func FinalizeStates(
	layout *aggrLayout,
	addresses *chunk.Vector,
	result *chunk.Chunk,
	aggrColStart int,
) {
	for i, aggr := range layout._aggregates {
		target := result.Data[aggrColStart+i]
		util.AssertFunc(target.Typ().Id == aggr._retType.Id)
		aggr._func._finalize(addresses, NewAggrInputData(), target, result.Card(), 0)
		AddInPlace(addresses, int64(util.AlignValue8(aggr._payloadSize)), result.Card())
	}
}

// HashAggr drives one grouped aggregation: Sink input chunks, Merge
// sibling partial results, Finalize, then drain with GetData.
type HashAggr struct {
	_groupTypes []common.LType
	_groupIdx   []int
	_aggrObjs   []*AggrObject
	_layout     *aggrLayout
	_opts       *util.AggrOptions

	_ht    *aggrHashTable
	_probe *aggrProbeState

	// global aggregation, no group columns
	_simpleArena  *util.Arena
	_simpleStates unsafe.Pointer

	_finalized  bool
	_outputDone bool
	_closed     bool

	_scanPart      int
	_scan          *tableScanState
	_scanAddresses *chunk.Vector
	_groupScratch  *chunk.Chunk
}

func NewHashAggr(
	groupTypes []common.LType,
	groupIdx []int,
	descs []*AggrDesc,
	opts *util.AggrOptions,
) (*HashAggr, error) {
	util.AssertFunc(len(groupTypes) == len(groupIdx))
	if opts == nil {
		cfg := util.DefaultConfig()
		opts = &cfg.Aggr
	}
	for _, desc := range descs {
		if desc.Distinct {
			return nil, errors.Wrapf(ErrUnknownAggr, "distinct %s not supported", desc.Name)
		}
	}
	objs, err := CreateAggrObjects(descs)
	if err != nil {
		return nil, err
	}
	ha := &HashAggr{
		_groupTypes:    common.CopyLTypes(groupTypes...),
		_groupIdx:      groupIdx,
		_aggrObjs:      objs,
		_layout:        newAggrLayout(objs),
		_opts:          opts,
		_probe:         newAggrProbeState(),
		_scanAddresses: chunk.NewFlatVector(common.PointerType(), util.DefaultVectorSize),
	}
	if len(groupTypes) == 0 {
		ha._simpleArena = util.NewArena()
		ha._simpleStates = ha._simpleArena.Alloc(max(1, ha._layout.rowWidth()), 8)
		for i, aggr := range objs {
			aggr._func._init(util.PointerAdd(ha._simpleStates, ha._layout.offset(i)))
		}
		return ha, nil
	}
	ha._ht, err = newAggrHashTable(ha._groupTypes, ha._layout, opts.NumPartitions)
	if err != nil {
		return nil, err
	}
	ha._groupScratch = &chunk.Chunk{}
	ha._groupScratch.Data = make([]*chunk.Vector, len(groupIdx))
	ha._groupScratch.SetCap(util.DefaultVectorSize)
	return ha, nil
}

// OutputTypes is the schema GetData fills: group columns first, then
// one column per aggregate.
func (ha *HashAggr) OutputTypes() []common.LType {
	ret := common.CopyLTypes(ha._groupTypes...)
	for _, aggr := range ha._aggrObjs {
		ret = append(ret, aggr._retType)
	}
	return ret
}

func (ha *HashAggr) GroupCount() int {
	if ha._ht == nil {
		return 1
	}
	return ha._ht.Count()
}

func (ha *HashAggr) MemoryUsage() int {
	if ha._ht == nil {
		return ha._simpleArena.AllocatedBytes()
	}
	return ha._ht.MemoryUsage()
}

// recoverAllocFailure turns arena exhaustion, raised as a panic deep in
// the probe loop, into ErrAllocationFailure. Other panics pass through.
func recoverAllocFailure(err *error) {
	if r := recover(); r != nil {
		if s, ok := r.(string); ok && s == util.ArenaAllocFailed {
			*err = ErrAllocationFailure
			return
		}
		panic(r)
	}
}

func (ha *HashAggr) Sink(input *chunk.Chunk) (err error) {
	defer recoverAllocFailure(&err)
	if ha._finalized {
		return ErrFinalized
	}
	cnt := input.Card()
	if cnt == 0 {
		return nil
	}
	if ha._ht == nil {
		data := NewAggrInputData()
		for i, aggr := range ha._aggrObjs {
			var funcInput []*chunk.Vector
			if len(aggr._childIdx) != 0 {
				funcInput = []*chunk.Vector{input.Data[aggr._childIdx[0]]}
			}
			statePtr := util.PointerAdd(ha._simpleStates, ha._layout.offset(i))
			aggr._func._simpleUpdate(funcInput, data, len(aggr._childIdx), statePtr, cnt)
		}
		return nil
	}

	for i, gi := range ha._groupIdx {
		ha._groupScratch.Data[i] = input.Data[gi]
	}
	ha._groupScratch.SetCard(cnt)
	ha._ht.Probe(ha._probe, ha._groupScratch, cnt)

	for _, aggr := range ha._aggrObjs {
		UpdateStates(aggr, ha._probe._addresses, input, cnt)
		AddInPlace(ha._probe._addresses, int64(util.AlignValue8(aggr._payloadSize)), cnt)
	}

	if !ha._ht.IsTwoLevel() && ha._ht.Count() > ha._opts.TwoLevelThreshold {
		util.Debug("hash aggr converting to two level",
			zap.Int("groups", ha._ht.Count()),
			zap.Int("threshold", ha._opts.TwoLevelThreshold))
		ha._ht.ConvertToTwoLevel()
	}
	return nil
}

// combineBatch merges the state rows in src into the rows in dst,
// pairwise. Both vectors hold row base pointers and end up advanced
// past every aggregate state.
func (ha *HashAggr) combineBatch(src, dst *chunk.Vector, cnt int) {
	data := NewAggrInputData()
	for _, aggr := range ha._aggrObjs {
		aggr._func._combine(src, dst, data, cnt)
		sz := int64(util.AlignValue8(aggr._payloadSize))
		AddInPlace(src, sz, cnt)
		AddInPlace(dst, sz, cnt)
	}
}

// Merge folds other's partial aggregation into this one. Other's state
// rows are either stolen or combined; other should be Closed afterwards
// and never sunk into again.
func (ha *HashAggr) Merge(other *HashAggr) (err error) {
	defer recoverAllocFailure(&err)
	if ha._finalized || other._finalized {
		return ErrFinalized
	}
	if len(ha._groupTypes) != len(other._groupTypes) ||
		len(ha._aggrObjs) != len(other._aggrObjs) {
		return errors.Wrapf(ErrTypeMismatch, "merge of different aggregations")
	}

	if ha._ht == nil {
		srcVec := chunk.NewFlatVector(common.PointerType(), 1)
		dstVec := chunk.NewFlatVector(common.PointerType(), 1)
		srcPtrs := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](srcVec)
		dstPtrs := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](dstVec)
		data := NewAggrInputData()
		for i, aggr := range ha._aggrObjs {
			srcPtrs[0] = util.PointerAdd(other._simpleStates, other._layout.offset(i))
			dstPtrs[0] = util.PointerAdd(ha._simpleStates, ha._layout.offset(i))
			aggr._func._combine(srcVec, dstVec, data, 1)
		}
		return nil
	}

	if ha._ht.IsTwoLevel() || other._ht.IsTwoLevel() ||
		ha._ht.Count()+other._ht.Count() > ha._opts.TwoLevelThreshold {
		ha._ht.ConvertToTwoLevel()
		other._ht.ConvertToTwoLevel()
	}
	parts := ha._ht.PartitionCount()
	if parts != other._ht.PartitionCount() {
		return errors.Wrapf(ErrTypeMismatch, "merge of different partition layouts")
	}
	if parts == 1 {
		ha._ht.MergePartition(other._ht, 0, ha.combineBatch)
		ha._ht.AdoptArenas(other._ht)
		return nil
	}

	par := ha._opts.MergeParallelism
	if par <= 0 {
		par = runtime.GOMAXPROCS(0)
	}
	g := &errgroup.Group{}
	g.SetLimit(par)
	for p := 0; p < parts; p++ {
		part := p
		g.Go(func() error {
			ha._ht.MergePartition(other._ht, part, ha.combineBatch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	ha._ht.AdoptArenas(other._ht)
	return nil
}

func (ha *HashAggr) Finalize() error {
	if ha._finalized {
		return ErrFinalized
	}
	ha._finalized = true
	util.Debug("hash aggr finalized",
		zap.Int("groups", ha.GroupCount()),
		zap.Int("memoryBytes", ha.MemoryUsage()))
	return nil
}

// GetData fills output with the next batch of finished groups. Returns
// HaveMoreOutput while rows were produced and Done once the table is
// drained. The output chunk must match OutputTypes.
func (ha *HashAggr) GetData(output *chunk.Chunk) (OperatorResult, error) {
	if !ha._finalized {
		return InvalidOpResult, ErrNotFinalized
	}
	output.Reset()
	if ha._outputDone {
		return Done, nil
	}

	if ha._ht == nil {
		addrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](ha._scanAddresses)
		addrSlice[0] = ha._simpleStates
		output.SetCard(1)
		FinalizeStates(ha._layout, ha._scanAddresses, output, 0)
		ha._outputDone = true
		return HaveMoreOutput, nil
	}

	maxRows := min(util.DefaultVectorSize, output.Cap())
	for {
		if ha._scan == nil {
			ha._scan = newTableScanState(ha._scanPart)
		}
		n := ha._ht.ScanPartition(ha._scan, output.Data[:len(ha._groupTypes)], ha._scanAddresses, maxRows)
		if n == 0 {
			ha._scanPart++
			ha._scan = nil
			if ha._scanPart >= ha._ht.PartitionCount() {
				ha._outputDone = true
				return Done, nil
			}
			continue
		}
		output.SetCard(n)
		FinalizeStates(ha._layout, ha._scanAddresses, output, len(ha._groupTypes))
		return HaveMoreOutput, nil
	}
}

func (ha *HashAggr) Close() {
	if ha._closed {
		return
	}
	ha._closed = true
	if ha._ht != nil {
		ha._ht.Close()
	}
	if ha._simpleArena != nil {
		ha._simpleArena.Close()
		ha._simpleArena = nil
	}
}
