package compute

import (
	"unsafe"

	"github.com/code-terror/databend-sub000/pkg/chunk"
	"github.com/code-terror/databend-sub000/pkg/util"
)

// UnaryScatter feeds one input vector into per-row states. The states
// vector holds a pointer to each row's state.
func UnaryScatter[ResultT any, InputT any](
	input *chunk.Vector,
	states *chunk.Vector,
	data *AggrInputData,
	count int,
	aop AggrOp[ResultT, InputT],
	sop StateOp[ResultT],
	addOp AddOp[ResultT, InputT],
	top TypeOp[ResultT],
) {
	if input.PhyFormat().IsConst() &&
		states.PhyFormat().IsConst() {
		if aop.IgnoreNull() && chunk.IsNullInPhyFormatConst(input) {
			return
		}
		inputSlice := chunk.GetSliceInPhyFormatConst[InputT](input)
		statesPtrSlice := chunk.GetSliceInPhyFormatConst[unsafe.Pointer](states)
		inputData := NewAggrUnaryInput(data, chunk.GetMaskInPhyFormatConst(input))
		aop.ConstantOperation((*State[ResultT])(statesPtrSlice[0]), &inputSlice[0], inputData, count, sop, addOp, top)
	} else if input.PhyFormat().IsFlat() && states.PhyFormat().IsFlat() {
		inputSlice := chunk.GetSliceInPhyFormatFlat[InputT](input)
		statesPtrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](states)
		UnaryFlatLoop[ResultT, InputT](
			inputSlice,
			data,
			statesPtrSlice,
			chunk.GetMaskInPhyFormatFlat(input),
			count,
			aop,
			sop,
			addOp,
			top,
		)
	} else {
		var idata, sdata chunk.UnifiedFormat
		input.ToUnifiedFormat(count, &idata)
		states.ToUnifiedFormat(count, &sdata)
		UnaryScatterLoop[ResultT, InputT](
			chunk.GetSliceInPhyFormatUnifiedFormat[InputT](&idata),
			data,
			chunk.GetSliceInPhyFormatUnifiedFormat[unsafe.Pointer](&sdata),
			idata.Sel,
			sdata.Sel,
			idata.Mask,
			count,
			aop,
			sop,
			addOp,
			top,
		)
	}
}

func UnaryFlatLoop[ResultT any, InputT any](
	inputSlice []InputT,
	data *AggrInputData,
	statesPtrSlice []unsafe.Pointer,
	mask *util.Bitmap,
	count int,
	aop AggrOp[ResultT, InputT],
	sop StateOp[ResultT],
	addOp AddOp[ResultT, InputT],
	top TypeOp[ResultT],
) {
	if aop.IgnoreNull() && !mask.AllValid() {
		input := NewAggrUnaryInput(data, mask)
		baseIdx := &input._inputIdx
		*baseIdx = 0
		eCnt := util.EntryCount(count)
		for eIdx := 0; eIdx < eCnt; eIdx++ {
			e := mask.GetEntry(uint64(eIdx))
			next := min(*baseIdx+8, count)
			if util.AllValidInEntry(e) {
				for ; *baseIdx < next; *baseIdx++ {
					aop.Operation((*State[ResultT])(statesPtrSlice[*baseIdx]), &inputSlice[*baseIdx], input, sop, addOp, top)
				}
			} else if util.NoneValidInEntry(e) {
				*baseIdx = next
				continue
			} else {
				start := *baseIdx
				for ; *baseIdx < next; *baseIdx++ {
					if util.RowIsValidInEntry(e, uint64(*baseIdx-start)) {
						aop.Operation((*State[ResultT])(statesPtrSlice[*baseIdx]), &inputSlice[*baseIdx], input, sop, addOp, top)
					}
				}
			}
		}
	} else {
		input := NewAggrUnaryInput(data, mask)
		i := &input._inputIdx
		for *i = 0; *i < count; *i++ {
			aop.Operation((*State[ResultT])(statesPtrSlice[*i]), &inputSlice[*i], input, sop, addOp, top)
		}
	}
}

func UnaryScatterLoop[ResultT any, InputT any](
	inputSlice []InputT,
	data *AggrInputData,
	statesPtrSlice []unsafe.Pointer,
	isel *chunk.SelectVector,
	ssel *chunk.SelectVector,
	mask *util.Bitmap,
	count int,
	aop AggrOp[ResultT, InputT],
	sop StateOp[ResultT],
	addOp AddOp[ResultT, InputT],
	top TypeOp[ResultT],
) {
	if aop.IgnoreNull() && !mask.AllValid() {
		input := NewAggrUnaryInput(data, mask)
		for i := 0; i < count; i++ {
			input._inputIdx = isel.GetIndex(i)
			sidx := ssel.GetIndex(i)
			if mask.RowIsValid(uint64(input._inputIdx)) {
				aop.Operation((*State[ResultT])(statesPtrSlice[sidx]), &inputSlice[input._inputIdx], input, sop, addOp, top)
			}
		}
	} else {
		input := NewAggrUnaryInput(data, mask)
		for i := 0; i < count; i++ {
			input._inputIdx = isel.GetIndex(i)
			sidx := ssel.GetIndex(i)
			aop.Operation((*State[ResultT])(statesPtrSlice[sidx]), &inputSlice[input._inputIdx], input, sop, addOp, top)
		}
	}
}

// Combine merges source states into target states, pairwise.
func Combine[ResultT any, InputT any](
	source *chunk.Vector,
	target *chunk.Vector,
	data *AggrInputData,
	count int,
	aop AggrOp[ResultT, InputT],
	sop StateOp[ResultT],
	addOp AddOp[ResultT, InputT],
	top TypeOp[ResultT],
) {
	util.AssertFunc(source.Typ().IsPointer())
	util.AssertFunc(target.Typ().IsPointer())
	sourcePtrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](source)
	targetPtrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](target)
	for i := 0; i < count; i++ {
		aop.Combine((*State[ResultT])(sourcePtrSlice[i]),
			(*State[ResultT])(targetPtrSlice[i]),
			data,
			sop,
			top,
		)
	}
}

func Finalize[ResultT any, InputT any](
	states *chunk.Vector,
	data *AggrInputData,
	result *chunk.Vector,
	count int,
	offset int,
	aop AggrOp[ResultT, InputT],
	sop StateOp[ResultT],
	addOp AddOp[ResultT, InputT],
	top TypeOp[ResultT],
) {
	if states.PhyFormat().IsConst() {
		result.SetPhyFormat(chunk.PF_CONST)
		statePtrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](states)
		resultSlice := chunk.GetSliceInPhyFormatFlat[ResultT](result)
		final := NewAggrFinalizeData(result, data)
		aop.Finalize((*State[ResultT])(statePtrSlice[0]), &resultSlice[0], final)
	} else {
		util.AssertFunc(states.PhyFormat().IsFlat())
		result.SetPhyFormat(chunk.PF_FLAT)
		statePtrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](states)
		resultSlice := chunk.GetSliceInPhyFormatFlat[ResultT](result)
		final := NewAggrFinalizeData(result, data)
		for i := 0; i < count; i++ {
			final._resultIdx = i + offset
			aop.Finalize((*State[ResultT])(statePtrSlice[i]), &resultSlice[final._resultIdx], final)
		}
	}
}

// UnaryUpdate folds a whole input vector into a single state.
func UnaryUpdate[ResultT any, InputT any](
	input *chunk.Vector,
	data *AggrInputData,
	statePtr unsafe.Pointer,
	count int,
	aop AggrOp[ResultT, InputT],
	sop StateOp[ResultT],
	addOp AddOp[ResultT, InputT],
	top TypeOp[ResultT],
) {
	switch input.PhyFormat() {
	case chunk.PF_CONST:
		if aop.IgnoreNull() && chunk.IsNullInPhyFormatConst(input) {
			return
		}
		inputSlice := chunk.GetSliceInPhyFormatFlat[InputT](input)
		inputData := NewAggrUnaryInput(data, chunk.GetMaskInPhyFormatConst(input))
		aop.ConstantOperation((*State[ResultT])(statePtr), &inputSlice[0], inputData, count, sop, addOp, top)
	case chunk.PF_FLAT:
		inputSlice := chunk.GetSliceInPhyFormatFlat[InputT](input)
		UnaryFlatUpdateLoop[ResultT, InputT](
			inputSlice,
			data,
			statePtr,
			count,
			chunk.GetMaskInPhyFormatFlat(input),
			aop,
			sop,
			addOp,
			top,
		)
	default:
		var idata chunk.UnifiedFormat
		input.ToUnifiedFormat(count, &idata)
		UnaryUpdateLoop[ResultT, InputT](
			chunk.GetSliceInPhyFormatUnifiedFormat[InputT](&idata),
			data,
			statePtr,
			count,
			idata.Mask,
			idata.Sel,
			aop,
			sop,
			addOp,
			top,
		)
	}
}

func UnaryFlatUpdateLoop[ResultT any, InputT any](
	inputSlice []InputT,
	data *AggrInputData,
	statePtr unsafe.Pointer,
	count int,
	mask *util.Bitmap,
	aop AggrOp[ResultT, InputT],
	sop StateOp[ResultT],
	addOp AddOp[ResultT, InputT],
	top TypeOp[ResultT],
) {
	input := NewAggrUnaryInput(data, mask)
	baseIdx := &input._inputIdx
	*baseIdx = 0
	eCnt := util.EntryCount(count)
	for eIdx := 0; eIdx < eCnt; eIdx++ {
		e := mask.GetEntry(uint64(eIdx))
		next := min(*baseIdx+8, count)
		if !aop.IgnoreNull() || util.AllValidInEntry(e) {
			for ; *baseIdx < next; *baseIdx++ {
				aop.Operation((*State[ResultT])(statePtr), &inputSlice[*baseIdx], input, sop, addOp, top)
			}
		} else if util.NoneValidInEntry(e) {
			*baseIdx = next
			continue
		} else {
			start := *baseIdx
			for ; *baseIdx < next; *baseIdx++ {
				if util.RowIsValidInEntry(e, uint64(*baseIdx-start)) {
					aop.Operation((*State[ResultT])(statePtr), &inputSlice[*baseIdx], input, sop, addOp, top)
				}
			}
		}
	}
}

func UnaryUpdateLoop[ResultT any, InputT any](
	inputSlice []InputT,
	data *AggrInputData,
	statePtr unsafe.Pointer,
	count int,
	mask *util.Bitmap,
	selVec *chunk.SelectVector,
	aop AggrOp[ResultT, InputT],
	sop StateOp[ResultT],
	addOp AddOp[ResultT, InputT],
	top TypeOp[ResultT],
) {
	input := NewAggrUnaryInput(data, mask)
	if aop.IgnoreNull() && !mask.AllValid() {
		for i := 0; i < count; i++ {
			input._inputIdx = selVec.GetIndex(i)
			if mask.RowIsValid(uint64(input._inputIdx)) {
				aop.Operation((*State[ResultT])(statePtr), &inputSlice[input._inputIdx], input, sop, addOp, top)
			}
		}
	} else {
		for i := 0; i < count; i++ {
			input._inputIdx = selVec.GetIndex(i)
			aop.Operation((*State[ResultT])(statePtr), &inputSlice[input._inputIdx], input, sop, addOp, top)
		}
	}
}
