package compute

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/code-terror/databend-sub000/pkg/common"
	"github.com/code-terror/databend-sub000/pkg/util"
)

const (
	LOAD_FACTOR = 1.5
)

type AggrType int

const (
	NON_DISTINCT AggrType = iota
	DISTINCT
)

// AggrDesc is the caller-facing description of one aggregate in a
// GROUP BY: the function name, the payload columns it reads and the
// types it was bound with.
type AggrDesc struct {
	Name     string
	ArgTypes []common.LType
	ArgIdx   []int
	RetType  common.LType
	Distinct bool
}

type AggrObject struct {
	_name        string
	_func        *FunctionV2
	_childIdx    []int
	_payloadSize int
	_aggrType    AggrType
	_retType     common.LType
}

func NewAggrObject(fun *FunctionV2, desc *AggrDesc) *AggrObject {
	util.AssertFunc(fun._stateSize != nil)
	aggrType := NON_DISTINCT
	if desc.Distinct {
		aggrType = DISTINCT
	}
	return &AggrObject{
		_name:        fun._name,
		_func:        fun,
		_childIdx:    desc.ArgIdx,
		_payloadSize: fun._stateSize(),
		_aggrType:    aggrType,
		_retType:     fun._retType,
	}
}

func CreateAggrObjects(descs []*AggrDesc) ([]*AggrObject, error) {
	objs := make([]*AggrObject, 0, len(descs))
	for _, desc := range descs {
		fun, err := GetAggr(strings.ToLower(desc.Name), desc.ArgTypes)
		if err != nil {
			return nil, err
		}
		if len(desc.ArgIdx) != len(desc.ArgTypes) {
			return nil, errors.Wrapf(ErrTypeMismatch,
				"aggregate %s has %d args but %d arg columns",
				desc.Name, len(desc.ArgTypes), len(desc.ArgIdx))
		}
		objs = append(objs, NewAggrObject(fun, desc))
	}
	return objs, nil
}

// aggrLayout fixes the byte layout of one group's state row: the
// states of all aggregates, back to back, each aligned to 8 bytes.
// Offsets never change once the layout is built, so addresses handed
// out by the hash table stay interpretable for the whole aggregation.
type aggrLayout struct {
	_aggregates []*AggrObject
	_offsets    []int
	_rowWidth   int
}

func newAggrLayout(aggregates []*AggrObject) *aggrLayout {
	layout := &aggrLayout{
		_aggregates: aggregates,
		_offsets:    make([]int, len(aggregates)),
	}
	offset := 0
	for i, aggr := range aggregates {
		layout._offsets[i] = offset
		offset += util.AlignValue8(aggr._payloadSize)
	}
	layout._rowWidth = offset
	return layout
}

func (layout *aggrLayout) rowWidth() int {
	return layout._rowWidth
}

func (layout *aggrLayout) offset(i int) int {
	return layout._offsets[i]
}
