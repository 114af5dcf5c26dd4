package compute

import (
	"unsafe"

	"github.com/code-terror/databend-sub000/pkg/chunk"
	"github.com/code-terror/databend-sub000/pkg/common"
	"github.com/code-terror/databend-sub000/pkg/util"
)

type OperatorResult int

const (
	InvalidOpResult OperatorResult = 0
	NeedMoreInput   OperatorResult = 1
	HaveMoreOutput  OperatorResult = 2
	Done            OperatorResult = 3
)

// aggrProbeState is the reusable scratch of one probe batch. Allocated
// once per hash table and recycled across chunks.
type aggrProbeState struct {
	// row base address per input row, filled by Probe
	_addresses *chunk.Vector
	// rows that created a new group in this batch
	_newGroups *chunk.SelectVector
	_newCount  int

	_emptyVector   *chunk.SelectVector
	_compareVector *chunk.SelectVector
	_noMatchVector *chunk.SelectVector
	_hashes        []uint64

	_keyScratch []byte
	_keyCache   any
	_serialized serializedKeys
	_groupData  []*chunk.UnifiedFormat
}

func newAggrProbeState() *aggrProbeState {
	return &aggrProbeState{
		_addresses:     chunk.NewFlatVector(common.PointerType(), util.DefaultVectorSize),
		_newGroups:     chunk.NewSelectVector(util.DefaultVectorSize),
		_emptyVector:   chunk.NewSelectVector(util.DefaultVectorSize),
		_compareVector: chunk.NewSelectVector(util.DefaultVectorSize),
		_noMatchVector: chunk.NewSelectVector(util.DefaultVectorSize),
		_hashes:        make([]uint64, util.DefaultVectorSize),
	}
}

func (state *aggrProbeState) prepareGroupData(groups *chunk.Chunk) {
	cnt := groups.ColumnCount()
	if len(state._groupData) != cnt {
		state._groupData = make([]*chunk.UnifiedFormat, cnt)
		for i := 0; i < cnt; i++ {
			state._groupData[i] = &chunk.UnifiedFormat{}
		}
	}
	for i := 0; i < cnt; i++ {
		groups.Data[i].ToUnifiedFormat(groups.Card(), state._groupData[i])
	}
}

func (state *aggrProbeState) addressSlice() []unsafe.Pointer {
	return chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](state._addresses)
}

type AggrInputData struct {
}

func NewAggrInputData() *AggrInputData {
	return &AggrInputData{}
}

type AggrUnaryInput struct {
	_input     *AggrInputData
	_inputMask *util.Bitmap
	_inputIdx  int
}

func NewAggrUnaryInput(input *AggrInputData, mask *util.Bitmap) *AggrUnaryInput {
	return &AggrUnaryInput{
		_input:     input,
		_inputMask: mask,
	}
}

type AggrFinalizeData struct {
	_result    *chunk.Vector
	_input     *AggrInputData
	_resultIdx int
}

func NewAggrFinalizeData(result *chunk.Vector, input *AggrInputData) *AggrFinalizeData {
	return &AggrFinalizeData{
		_result: result,
		_input:  input,
	}
}

func (data *AggrFinalizeData) ReturnNull() {
	util.AssertFunc(data._result.PhyFormat().IsFlat())
	chunk.SetNullInPhyFormatFlat(data._result, uint64(data._resultIdx), true)
}
