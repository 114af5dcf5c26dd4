package compute

import (
	"unsafe"

	"github.com/code-terror/databend-sub000/pkg/chunk"
	"github.com/code-terror/databend-sub000/pkg/common"
)

type FuncType int

const (
	ScalarFuncType FuncType = iota
	AggregateFuncType
)

type FuncNullHandling int

const (
	DefaultNullHandling FuncNullHandling = iota
	SpecialNullHandling
)

type (
	aggrStateSize func() int
	aggrInit      func(pointer unsafe.Pointer)
	aggrUpdate    func(inputs []*chunk.Vector, data *AggrInputData, inputCount int, states *chunk.Vector, count int)
	aggrCombine   func(source *chunk.Vector, target *chunk.Vector, data *AggrInputData, count int)
	aggrFinalize  func(states *chunk.Vector, data *AggrInputData, result *chunk.Vector, count int, offset int)
	// simpleUpdate folds a whole batch into one state. Used when there
	// are no group columns.
	aggrSimpleUpdate func(inputs []*chunk.Vector, data *AggrInputData, inputCount int, state unsafe.Pointer, count int)
)

// FunctionV2 is the closure table of one aggregate function instance,
// bound to concrete argument types.
type FunctionV2 struct {
	_name         string
	_args         []common.LType
	_retType      common.LType
	_funcTyp      FuncType
	_nullHandling FuncNullHandling

	_stateSize    aggrStateSize
	_init         aggrInit
	_update       aggrUpdate
	_combine      aggrCombine
	_finalize     aggrFinalize
	_simpleUpdate aggrSimpleUpdate
}
