package compute

import (
	"unsafe"

	dec "github.com/govalues/decimal"
	"github.com/pkg/errors"

	"github.com/code-terror/databend-sub000/pkg/chunk"
	"github.com/code-terror/databend-sub000/pkg/common"
	"github.com/code-terror/databend-sub000/pkg/util"
)

type StateType int

const (
	STATE_SUM StateType = iota
	STATE_AVG
	STATE_COUNT
	STATE_MAX
	STATE_MIN
)

// State is the in-table representation of one aggregate for one group.
// It lives in arena memory, so it must stay free of Go pointers.
type State[T any] struct {
	_typ   StateType
	_isset bool
	_value T
	_count uint64
}

func (state *State[T]) Init() {
	switch state._typ {
	case STATE_SUM, STATE_MAX, STATE_MIN:
		state._isset = false
	case STATE_AVG, STATE_COUNT:
		state._count = 0
	default:
		panic("usp")
	}
}

// Combine merges other into the receiver.
func (state *State[T]) Combine(other *State[T], add TypeOp[T]) {
	switch state._typ {
	case STATE_SUM:
		if !other._isset {
			return
		}
		state._isset = true
		add.Add(&state._value, &other._value)
	case STATE_AVG:
		add.Add(&state._value, &other._value)
		state._count += other._count
	case STATE_COUNT:
		state._count += other._count
	default:
		panic("usp")
	}
}

func (state *State[T]) SetIsset(b bool) {
	state._isset = b
}

func (state *State[T]) SetValue(val T) {
	state._value = val
}

func (state *State[T]) GetIsset() bool {
	return state._isset
}

func (state *State[T]) GetValue() T {
	return state._value
}

type StateOp[T any] interface {
	Init(*State[T])
	// Combine(src, target) merges src into target.
	Combine(*State[T], *State[T], *AggrInputData, TypeOp[T])
	AddValues(*State[T], int)
}

type TypeOp[T any] interface {
	Add(*T, *T)
	Mul(*T, *T)
	Less(*T, *T) bool
	Greater(*T, *T) bool
}

type AddOp[ResultT any, InputT any] interface {
	AddNumber(*State[ResultT], *InputT, TypeOp[ResultT])
	AddConstant(*State[ResultT], *InputT, int, TypeOp[ResultT])
	Assign(*State[ResultT], *InputT)
	Execute(*State[ResultT], *InputT, TypeOp[ResultT])
}

type AggrOp[ResultT any, InputT any] interface {
	Init(*State[ResultT], StateOp[ResultT])
	Combine(*State[ResultT], *State[ResultT], *AggrInputData, StateOp[ResultT], TypeOp[ResultT])
	Operation(*State[ResultT], *InputT, *AggrUnaryInput, StateOp[ResultT], AddOp[ResultT, InputT], TypeOp[ResultT])
	ConstantOperation(*State[ResultT], *InputT, *AggrUnaryInput, int, StateOp[ResultT], AddOp[ResultT, InputT], TypeOp[ResultT])
	Finalize(*State[ResultT], *ResultT, *AggrFinalizeData)
	IgnoreNull() bool
}

type SumStateOp[T any] struct {
}

func (SumStateOp[T]) Init(s *State[T]) {
	s._typ = STATE_SUM
	s.Init()
}

func (SumStateOp[T]) Combine(
	src *State[T],
	target *State[T],
	_ *AggrInputData,
	top TypeOp[T]) {
	target.Combine(src, top)
}

func (SumStateOp[T]) AddValues(s *State[T], _ int) {
	s.SetIsset(true)
}

type AvgStateOp[T any] struct {
}

func (as *AvgStateOp[T]) Init(s *State[T]) {
	s._typ = STATE_AVG
	s.Init()
}

func (as *AvgStateOp[T]) Combine(
	src *State[T],
	target *State[T],
	_ *AggrInputData,
	top TypeOp[T]) {
	target.Combine(src, top)
}

func (as *AvgStateOp[T]) AddValues(s *State[T], cnt int) {
	s._count += uint64(cnt)
}

type CountStateOp[T any] struct {
}

func (as *CountStateOp[T]) Init(s *State[T]) {
	s._typ = STATE_COUNT
	s.Init()
}

func (as *CountStateOp[T]) Combine(
	src *State[T],
	target *State[T],
	_ *AggrInputData,
	top TypeOp[T]) {
	target.Combine(src, top)
}

func (as *CountStateOp[T]) AddValues(s *State[T], cnt int) {
	s._count += uint64(cnt)
}

type MaxStateOp[T any] struct {
}

func (as *MaxStateOp[T]) Init(s *State[T]) {
	s._typ = STATE_MAX
	s.Init()
}

func (as *MaxStateOp[T]) Combine(
	src *State[T],
	target *State[T],
	_ *AggrInputData,
	top TypeOp[T]) {
	if !src._isset {
		return
	}
	if !target._isset {
		target._isset = true
		target._value = src._value
	} else if top.Less(&target._value, &src._value) {
		target._value = src._value
	}
}

func (as *MaxStateOp[T]) AddValues(s *State[T], cnt int) {
}

type MinStateOp[T any] struct {
}

func (as *MinStateOp[T]) Init(s *State[T]) {
	s._typ = STATE_MIN
	s.Init()
}

func (as *MinStateOp[T]) Combine(
	src *State[T],
	target *State[T],
	_ *AggrInputData,
	top TypeOp[T]) {
	if !src._isset {
		return
	}
	if !target._isset {
		target._isset = true
		target._value = src._value
	} else if top.Greater(&target._value, &src._value) {
		target._value = src._value
	}
}

func (as *MinStateOp[T]) AddValues(s *State[T], cnt int) {
}

type numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// NumberOp is the TypeOp of plain machine numbers.
type NumberOp[T numeric] struct{}

func (NumberOp[T]) Add(lhs, rhs *T) {
	*lhs = *lhs + *rhs
}

func (NumberOp[T]) Mul(lhs, rhs *T) {
	*lhs = *lhs * *rhs
}

func (NumberOp[T]) Less(lhs, rhs *T) bool {
	return *lhs < *rhs
}

func (NumberOp[T]) Greater(lhs, rhs *T) bool {
	return *lhs > *rhs
}

// NumberAdd accumulates a machine number into a state of the same
// type. Also carries the assign/execute pair used by min and max.
type NumberAdd[T numeric] struct{}

func (NumberAdd[T]) AddNumber(state *State[T], input *T, top TypeOp[T]) {
	state._value = state._value + *input
}

func (NumberAdd[T]) AddConstant(state *State[T], input *T, count int, top TypeOp[T]) {
	state._value = state._value + *input*T(count)
}

func (NumberAdd[T]) Assign(state *State[T], input *T) {
	state._value = *input
}

func (NumberAdd[T]) Execute(state *State[T], input *T, top TypeOp[T]) {
	switch state._typ {
	case STATE_MAX:
		if top.Greater(input, &state._value) {
			state._value = *input
		}
	case STATE_MIN:
		if top.Less(input, &state._value) {
			state._value = *input
		}
	default:
		panic("usp")
	}
}

// NoopAdd ignores the value entirely. count only cares that a row
// arrived.
type NoopAdd[ResultT any, InputT any] struct{}

func (NoopAdd[ResultT, InputT]) AddNumber(*State[ResultT], *InputT, TypeOp[ResultT])        {}
func (NoopAdd[ResultT, InputT]) AddConstant(*State[ResultT], *InputT, int, TypeOp[ResultT]) {}
func (NoopAdd[ResultT, InputT]) Assign(*State[ResultT], *InputT)                            { panic("usp") }
func (NoopAdd[ResultT, InputT]) Execute(*State[ResultT], *InputT, TypeOp[ResultT])          { panic("usp") }

type HugeintAdd struct {
}

func (*HugeintAdd) addValue(result *common.Hugeint, value uint64, positive int) {
	result.Lower += value
	overflow := 0
	if result.Lower < value {
		overflow = 1
	}
	if overflow^positive == 0 {
		result.Upper += -1 + 2*int64(positive)
	}
}

func (hadd *HugeintAdd) AddNumber(state *State[common.Hugeint], input *int32, top TypeOp[common.Hugeint]) {
	pos := 0
	if *input >= 0 {
		pos = 1
	}
	hadd.addValue(&state._value, uint64(*input), pos)
}

func (hadd *HugeintAdd) AddConstant(state *State[common.Hugeint], input *int32, count int, top TypeOp[common.Hugeint]) {
	prod := int64(*input) * int64(count)
	pos := 0
	if prod >= 0 {
		pos = 1
	}
	hadd.addValue(&state._value, uint64(prod), pos)
}

func (*HugeintAdd) Assign(*State[common.Hugeint], *int32)                          { panic("usp") }
func (*HugeintAdd) Execute(*State[common.Hugeint], *int32, TypeOp[common.Hugeint]) { panic("usp") }

type HugeintAddInt64 struct {
}

func (hadd *HugeintAddInt64) AddNumber(state *State[common.Hugeint], input *int64, top TypeOp[common.Hugeint]) {
	pos := 0
	if *input >= 0 {
		pos = 1
	}
	(&HugeintAdd{}).addValue(&state._value, uint64(*input), pos)
}

func (hadd *HugeintAddInt64) AddConstant(state *State[common.Hugeint], input *int64, count int, top TypeOp[common.Hugeint]) {
	prod := *input * int64(count)
	pos := 0
	if prod >= 0 {
		pos = 1
	}
	(&HugeintAdd{}).addValue(&state._value, uint64(prod), pos)
}

func (*HugeintAddInt64) Assign(*State[common.Hugeint], *int64)                          { panic("usp") }
func (*HugeintAddInt64) Execute(*State[common.Hugeint], *int64, TypeOp[common.Hugeint]) { panic("usp") }

type DecimalAdd struct {
}

func (dAdd *DecimalAdd) AddNumber(state *State[common.Decimal], input *common.Decimal, top TypeOp[common.Decimal]) {
	state._value.Add(&state._value, input)
}

func (*DecimalAdd) AddConstant(state *State[common.Decimal], input *common.Decimal, count int, top TypeOp[common.Decimal]) {
	cnt := common.Decimal{Decimal: dec.MustNew(int64(count), 0)}
	prod := *input
	prod.Mul(&prod, &cnt)
	state._value.Add(&state._value, &prod)
}

func (*DecimalAdd) Assign(s *State[common.Decimal], input *common.Decimal) {
	s._value = *input
}

func (*DecimalAdd) Execute(s *State[common.Decimal], input *common.Decimal, top TypeOp[common.Decimal]) {
	switch s._typ {
	case STATE_MAX:
		if top.Greater(input, &s._value) {
			s._value = *input
		}
	case STATE_MIN:
		if top.Less(input, &s._value) {
			s._value = *input
		}
	default:
		panic("usp")
	}
}

type DoubleInt32Add struct{}

func (DoubleInt32Add) AddNumber(state *State[float64], input *int32, top TypeOp[float64]) {
	state._value = state._value + float64(*input)
}

func (DoubleInt32Add) AddConstant(state *State[float64], input *int32, count int, top TypeOp[float64]) {
	state._value = state._value + float64(*input)*float64(count)
}

func (DoubleInt32Add) Assign(*State[float64], *int32)                   { panic("usp") }
func (DoubleInt32Add) Execute(*State[float64], *int32, TypeOp[float64]) { panic("usp") }

type DoubleInt64Add struct{}

func (DoubleInt64Add) AddNumber(state *State[float64], input *int64, top TypeOp[float64]) {
	state._value = state._value + float64(*input)
}

func (DoubleInt64Add) AddConstant(state *State[float64], input *int64, count int, top TypeOp[float64]) {
	state._value = state._value + float64(*input)*float64(count)
}

func (DoubleInt64Add) Assign(*State[float64], *int64)                   { panic("usp") }
func (DoubleInt64Add) Execute(*State[float64], *int64, TypeOp[float64]) { panic("usp") }

// DateOp only orders. Sums and products of dates are meaningless.
type DateOp struct{}

func (DateOp) Add(*common.Date, *common.Date) { panic("usp") }
func (DateOp) Mul(*common.Date, *common.Date) { panic("usp") }

func (DateOp) Less(lhs, rhs *common.Date) bool {
	return lhs.Less(rhs)
}

func (DateOp) Greater(lhs, rhs *common.Date) bool {
	return rhs.Less(lhs)
}

type DateAssign struct{}

func (DateAssign) AddNumber(*State[common.Date], *common.Date, TypeOp[common.Date]) { panic("usp") }
func (DateAssign) AddConstant(*State[common.Date], *common.Date, int, TypeOp[common.Date]) {
	panic("usp")
}

func (DateAssign) Assign(s *State[common.Date], input *common.Date) {
	s._value = *input
}

func (DateAssign) Execute(s *State[common.Date], input *common.Date, top TypeOp[common.Date]) {
	switch s._typ {
	case STATE_MAX:
		if top.Greater(input, &s._value) {
			s._value = *input
		}
	case STATE_MIN:
		if top.Less(input, &s._value) {
			s._value = *input
		}
	default:
		panic("usp")
	}
}

type SumOp[ResultT any, InputT any] struct {
}

func (s SumOp[ResultT, InputT]) Init(
	s2 *State[ResultT],
	sop StateOp[ResultT]) {
	var val ResultT
	s2.SetValue(val)
	sop.Init(s2)
}

func (s SumOp[ResultT, InputT]) Combine(
	src *State[ResultT],
	target *State[ResultT],
	data *AggrInputData,
	sop StateOp[ResultT],
	top TypeOp[ResultT]) {
	sop.Combine(src, target, data, top)
}

func (s SumOp[ResultT, InputT]) Operation(
	s3 *State[ResultT],
	input *InputT,
	data *AggrUnaryInput,
	sop StateOp[ResultT],
	aop AddOp[ResultT, InputT],
	top TypeOp[ResultT]) {
	sop.AddValues(s3, 1)
	aop.AddNumber(s3, input, top)
}

func (s SumOp[ResultT, InputT]) ConstantOperation(
	s3 *State[ResultT],
	input *InputT,
	data *AggrUnaryInput,
	count int,
	sop StateOp[ResultT],
	aop AddOp[ResultT, InputT],
	top TypeOp[ResultT]) {
	sop.AddValues(s3, count)
	aop.AddConstant(s3, input, count, top)
}

func (s SumOp[ResultT, InputT]) Finalize(
	s3 *State[ResultT],
	target *ResultT,
	data *AggrFinalizeData) {
	if !s3.GetIsset() {
		data.ReturnNull()
	} else {
		*target = s3.GetValue()
	}
}

func (s SumOp[ResultT, InputT]) IgnoreNull() bool {
	return true
}

type AvgOp[ResultT any, InputT any] struct {
}

func (AvgOp[ResultT, InputT]) Init(
	s2 *State[ResultT],
	sop StateOp[ResultT]) {
	var val ResultT
	s2.SetValue(val)
	sop.Init(s2)
}

func (AvgOp[ResultT, InputT]) Combine(
	src *State[ResultT],
	target *State[ResultT],
	data *AggrInputData,
	sop StateOp[ResultT],
	top TypeOp[ResultT]) {
	sop.Combine(src, target, data, top)
}

func (AvgOp[ResultT, InputT]) Operation(
	s3 *State[ResultT],
	input *InputT,
	data *AggrUnaryInput,
	sop StateOp[ResultT],
	aop AddOp[ResultT, InputT],
	top TypeOp[ResultT]) {
	sop.AddValues(s3, 1)
	aop.AddNumber(s3, input, top)
}

func (AvgOp[ResultT, InputT]) ConstantOperation(
	s3 *State[ResultT],
	input *InputT,
	data *AggrUnaryInput,
	count int,
	sop StateOp[ResultT],
	aop AddOp[ResultT, InputT],
	top TypeOp[ResultT]) {
	sop.AddValues(s3, count)
	aop.AddConstant(s3, input, count, top)
}

func (AvgOp[ResultT, InputT]) Finalize(
	s3 *State[ResultT],
	target *ResultT,
	data *AggrFinalizeData) {
	if s3._count == 0 {
		data.ReturnNull()
	} else {
		var rt = s3.GetValue()
		switch v := any(rt).(type) {
		case float64:
			c := float64(s3._count)
			r := v / c
			*target = any(r).(ResultT)
		case common.Decimal:
			c := dec.MustNew(int64(s3._count), 0)
			quo, err := v.Quo(c)
			if err != nil {
				panic(err)
			}
			res := common.Decimal{
				Decimal: quo,
			}
			*target = any(res).(ResultT)
		default:
			panic("unmatched cast")
		}
	}
}

func (AvgOp[ResultT, InputT]) IgnoreNull() bool {
	return true
}

type CountOp[ResultT any, InputT any] struct {
}

func (CountOp[ResultT, InputT]) Init(
	s2 *State[ResultT],
	sop StateOp[ResultT]) {
	var val ResultT
	s2.SetValue(val)
	sop.Init(s2)
}

func (CountOp[ResultT, InputT]) Combine(
	src *State[ResultT],
	target *State[ResultT],
	data *AggrInputData,
	sop StateOp[ResultT],
	top TypeOp[ResultT]) {
	sop.Combine(src, target, data, top)
}

func (CountOp[ResultT, InputT]) Operation(
	s3 *State[ResultT],
	input *InputT,
	data *AggrUnaryInput,
	sop StateOp[ResultT],
	aop AddOp[ResultT, InputT],
	top TypeOp[ResultT]) {
	sop.AddValues(s3, 1)
}

func (CountOp[ResultT, InputT]) ConstantOperation(
	s3 *State[ResultT],
	input *InputT,
	data *AggrUnaryInput,
	count int,
	sop StateOp[ResultT],
	aop AddOp[ResultT, InputT],
	top TypeOp[ResultT]) {
	sop.AddValues(s3, count)
}

// Finalize writes the count itself. A group that saw only nulls counts
// zero, it does not return null.
func (CountOp[ResultT, InputT]) Finalize(
	s3 *State[ResultT],
	target *ResultT,
	data *AggrFinalizeData) {
	*target = any(int64(s3._count)).(ResultT)
}

func (CountOp[ResultT, InputT]) IgnoreNull() bool {
	return true
}

type MinMaxOp[ResultT any, InputT any] struct {
}

func (MinMaxOp[ResultT, InputT]) Init(
	s2 *State[ResultT],
	sop StateOp[ResultT]) {
	var val ResultT
	s2.SetValue(val)
	sop.Init(s2)
}

func (MinMaxOp[ResultT, InputT]) Combine(
	src *State[ResultT],
	target *State[ResultT],
	data *AggrInputData,
	sop StateOp[ResultT],
	top TypeOp[ResultT]) {
	sop.Combine(src, target, data, top)
}

func (MinMaxOp[ResultT, InputT]) Operation(
	s3 *State[ResultT],
	input *InputT,
	data *AggrUnaryInput,
	sop StateOp[ResultT],
	aop AddOp[ResultT, InputT],
	top TypeOp[ResultT]) {
	if !s3._isset {
		aop.Assign(s3, input)
		s3._isset = true
	} else {
		aop.Execute(s3, input, top)
	}
}

func (MinMaxOp[ResultT, InputT]) ConstantOperation(
	s3 *State[ResultT],
	input *InputT,
	data *AggrUnaryInput,
	count int,
	sop StateOp[ResultT],
	aop AddOp[ResultT, InputT],
	top TypeOp[ResultT]) {
	if !s3._isset {
		aop.Assign(s3, input)
		s3._isset = true
	} else {
		aop.Execute(s3, input, top)
	}
}

func (MinMaxOp[ResultT, InputT]) Finalize(
	s3 *State[ResultT],
	target *ResultT,
	data *AggrFinalizeData) {
	if !s3._isset {
		data.ReturnNull()
	} else {
		*target = s3._value
	}
}

func (MinMaxOp[ResultT, InputT]) IgnoreNull() bool {
	return true
}

func StateSize[T any]() int {
	var val State[T]
	return int(unsafe.Sizeof(val))
}

func UnaryAggregate[ResultT any, InputT any](
	inputTyp common.LType,
	retTyp common.LType,
	nullHandling FuncNullHandling,
	aop AggrOp[ResultT, InputT],
	sop StateOp[ResultT],
	addOp AddOp[ResultT, InputT],
	top TypeOp[ResultT],
) *FunctionV2 {
	size := func() int {
		return StateSize[ResultT]()
	}
	init := func(pointer unsafe.Pointer) {
		aop.Init((*State[ResultT])(pointer), sop)
	}
	update := func(inputs []*chunk.Vector, data *AggrInputData, inputCount int, states *chunk.Vector, count int) {
		util.AssertFunc(inputCount == 1)
		UnaryScatter[ResultT, InputT](inputs[0], states, data, count, aop, sop, addOp, top)
	}
	combine := func(source *chunk.Vector, target *chunk.Vector, data *AggrInputData, count int) {
		Combine[ResultT, InputT](source, target, data, count, aop, sop, addOp, top)
	}
	finalize := func(states *chunk.Vector, data *AggrInputData, result *chunk.Vector, count int, offset int) {
		Finalize[ResultT, InputT](states, data, result, count, offset, aop, sop, addOp, top)
	}
	simpleUpdate := func(inputs []*chunk.Vector, data *AggrInputData, inputCount int, state unsafe.Pointer, count int) {
		util.AssertFunc(inputCount == 1)
		UnaryUpdate[ResultT, InputT](inputs[0], data, state, count, aop, sop, addOp, top)
	}
	return &FunctionV2{
		_funcTyp:      AggregateFuncType,
		_args:         []common.LType{inputTyp},
		_retType:      retTyp,
		_stateSize:    size,
		_init:         init,
		_update:       update,
		_combine:      combine,
		_finalize:     finalize,
		_nullHandling: nullHandling,
		_simpleUpdate: simpleUpdate,
	}
}

func GetSumAggr(inputTyp common.LType) (*FunctionV2, error) {
	switch inputTyp.GetInternalType() {
	case common.INT32:
		fun := UnaryAggregate[common.Hugeint, int32](
			common.IntegerType(),
			common.HugeintType(),
			DefaultNullHandling,
			SumOp[common.Hugeint, int32]{},
			&SumStateOp[common.Hugeint]{},
			&HugeintAdd{},
			&common.Hugeint{},
		)
		return fun, nil
	case common.INT64:
		fun := UnaryAggregate[common.Hugeint, int64](
			common.BigintType(),
			common.HugeintType(),
			DefaultNullHandling,
			SumOp[common.Hugeint, int64]{},
			&SumStateOp[common.Hugeint]{},
			&HugeintAddInt64{},
			&common.Hugeint{},
		)
		return fun, nil
	case common.DOUBLE:
		fun := UnaryAggregate[float64, float64](
			common.DoubleType(),
			common.DoubleType(),
			DefaultNullHandling,
			SumOp[float64, float64]{},
			&SumStateOp[float64]{},
			NumberAdd[float64]{},
			NumberOp[float64]{},
		)
		return fun, nil
	case common.DECIMAL:
		fun := UnaryAggregate[common.Decimal, common.Decimal](
			common.DecimalType(common.DecimalMaxWidth, inputTyp.Scale),
			common.DecimalType(common.DecimalMaxWidth, inputTyp.Scale),
			DefaultNullHandling,
			SumOp[common.Decimal, common.Decimal]{},
			&SumStateOp[common.Decimal]{},
			&DecimalAdd{},
			&common.Decimal{},
		)
		return fun, nil
	default:
		return nil, errors.Wrapf(ErrUnknownAggr, "sum(%s)", inputTyp.String())
	}
}

func GetAvgAggr(inputTyp common.LType) (*FunctionV2, error) {
	switch inputTyp.GetInternalType() {
	case common.INT32:
		fun := UnaryAggregate[float64, int32](
			common.IntegerType(),
			common.DoubleType(),
			DefaultNullHandling,
			AvgOp[float64, int32]{},
			&AvgStateOp[float64]{},
			DoubleInt32Add{},
			NumberOp[float64]{},
		)
		return fun, nil
	case common.INT64:
		fun := UnaryAggregate[float64, int64](
			common.BigintType(),
			common.DoubleType(),
			DefaultNullHandling,
			AvgOp[float64, int64]{},
			&AvgStateOp[float64]{},
			DoubleInt64Add{},
			NumberOp[float64]{},
		)
		return fun, nil
	case common.DOUBLE:
		fun := UnaryAggregate[float64, float64](
			common.DoubleType(),
			common.DoubleType(),
			DefaultNullHandling,
			AvgOp[float64, float64]{},
			&AvgStateOp[float64]{},
			NumberAdd[float64]{},
			NumberOp[float64]{},
		)
		return fun, nil
	case common.DECIMAL:
		fun := UnaryAggregate[common.Decimal, common.Decimal](
			common.DecimalType(common.DecimalMaxWidth, inputTyp.Scale),
			common.DecimalType(common.DecimalMaxWidth, inputTyp.Scale),
			DefaultNullHandling,
			AvgOp[common.Decimal, common.Decimal]{},
			&AvgStateOp[common.Decimal]{},
			&DecimalAdd{},
			&common.Decimal{},
		)
		return fun, nil
	default:
		return nil, errors.Wrapf(ErrUnknownAggr, "avg(%s)", inputTyp.String())
	}
}

func countAggr[InputT any](inputTyp common.LType) *FunctionV2 {
	return UnaryAggregate[int64, InputT](
		inputTyp,
		common.BigintType(),
		DefaultNullHandling,
		CountOp[int64, InputT]{},
		&CountStateOp[int64]{},
		NoopAdd[int64, InputT]{},
		NumberOp[int64]{},
	)
}

func GetCountAggr(inputTyp common.LType) (*FunctionV2, error) {
	switch inputTyp.GetInternalType() {
	case common.BOOL:
		return countAggr[bool](inputTyp), nil
	case common.INT8:
		return countAggr[int8](inputTyp), nil
	case common.INT16:
		return countAggr[int16](inputTyp), nil
	case common.INT32:
		return countAggr[int32](inputTyp), nil
	case common.INT64:
		return countAggr[int64](inputTyp), nil
	case common.UINT8:
		return countAggr[uint8](inputTyp), nil
	case common.UINT16:
		return countAggr[uint16](inputTyp), nil
	case common.UINT32:
		return countAggr[uint32](inputTyp), nil
	case common.UINT64:
		return countAggr[uint64](inputTyp), nil
	case common.FLOAT:
		return countAggr[float32](inputTyp), nil
	case common.DOUBLE:
		return countAggr[float64](inputTyp), nil
	case common.INT128:
		return countAggr[common.Hugeint](inputTyp), nil
	case common.DECIMAL:
		return countAggr[common.Decimal](inputTyp), nil
	case common.VARCHAR:
		return countAggr[common.String](inputTyp), nil
	case common.DATE:
		return countAggr[common.Date](inputTyp), nil
	default:
		return nil, errors.Wrapf(ErrUnknownAggr, "count(%s)", inputTyp.String())
	}
}

// GetCountStarAggr counts rows without reading any column. Built by
// hand because the unary machinery wants an input vector.
func GetCountStarAggr() *FunctionV2 {
	size := func() int {
		return StateSize[int64]()
	}
	init := func(pointer unsafe.Pointer) {
		state := (*State[int64])(pointer)
		state._typ = STATE_COUNT
		state.Init()
	}
	update := func(inputs []*chunk.Vector, data *AggrInputData, inputCount int, states *chunk.Vector, count int) {
		util.AssertFunc(inputCount == 0)
		statesPtrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](states)
		for i := 0; i < count; i++ {
			state := (*State[int64])(statesPtrSlice[i])
			state._count++
		}
	}
	combine := func(source *chunk.Vector, target *chunk.Vector, data *AggrInputData, count int) {
		sourcePtrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](source)
		targetPtrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](target)
		for i := 0; i < count; i++ {
			src := (*State[int64])(sourcePtrSlice[i])
			dst := (*State[int64])(targetPtrSlice[i])
			dst._count += src._count
		}
	}
	finalize := func(states *chunk.Vector, data *AggrInputData, result *chunk.Vector, count int, offset int) {
		statePtrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](states)
		resultSlice := chunk.GetSliceInPhyFormatFlat[int64](result)
		for i := 0; i < count; i++ {
			state := (*State[int64])(statePtrSlice[i])
			resultSlice[i+offset] = int64(state._count)
		}
	}
	simpleUpdate := func(inputs []*chunk.Vector, data *AggrInputData, inputCount int, state unsafe.Pointer, count int) {
		util.AssertFunc(inputCount == 0)
		(*State[int64])(state)._count += uint64(count)
	}
	return &FunctionV2{
		_name:         "count",
		_funcTyp:      AggregateFuncType,
		_args:         nil,
		_retType:      common.BigintType(),
		_stateSize:    size,
		_init:         init,
		_update:       update,
		_combine:      combine,
		_finalize:     finalize,
		_nullHandling: DefaultNullHandling,
		_simpleUpdate: simpleUpdate,
	}
}

func minMaxAggr[T numeric](inputTyp common.LType, isMin bool) *FunctionV2 {
	var sop StateOp[T]
	if isMin {
		sop = &MinStateOp[T]{}
	} else {
		sop = &MaxStateOp[T]{}
	}
	return UnaryAggregate[T, T](
		inputTyp,
		inputTyp,
		DefaultNullHandling,
		MinMaxOp[T, T]{},
		sop,
		NumberAdd[T]{},
		NumberOp[T]{},
	)
}

func getMinMaxAggr(inputTyp common.LType, isMin bool) (*FunctionV2, error) {
	switch inputTyp.GetInternalType() {
	case common.INT8:
		return minMaxAggr[int8](inputTyp, isMin), nil
	case common.INT16:
		return minMaxAggr[int16](inputTyp, isMin), nil
	case common.INT32:
		return minMaxAggr[int32](inputTyp, isMin), nil
	case common.INT64:
		return minMaxAggr[int64](inputTyp, isMin), nil
	case common.UINT8:
		return minMaxAggr[uint8](inputTyp, isMin), nil
	case common.UINT16:
		return minMaxAggr[uint16](inputTyp, isMin), nil
	case common.UINT32:
		return minMaxAggr[uint32](inputTyp, isMin), nil
	case common.UINT64:
		return minMaxAggr[uint64](inputTyp, isMin), nil
	case common.FLOAT:
		return minMaxAggr[float32](inputTyp, isMin), nil
	case common.DOUBLE:
		return minMaxAggr[float64](inputTyp, isMin), nil
	case common.DECIMAL:
		var sop StateOp[common.Decimal]
		if isMin {
			sop = &MinStateOp[common.Decimal]{}
		} else {
			sop = &MaxStateOp[common.Decimal]{}
		}
		fun := UnaryAggregate[common.Decimal, common.Decimal](
			inputTyp,
			inputTyp,
			DefaultNullHandling,
			MinMaxOp[common.Decimal, common.Decimal]{},
			sop,
			&DecimalAdd{},
			&common.Decimal{},
		)
		return fun, nil
	case common.DATE:
		var sop StateOp[common.Date]
		if isMin {
			sop = &MinStateOp[common.Date]{}
		} else {
			sop = &MaxStateOp[common.Date]{}
		}
		fun := UnaryAggregate[common.Date, common.Date](
			inputTyp,
			inputTyp,
			DefaultNullHandling,
			MinMaxOp[common.Date, common.Date]{},
			sop,
			DateAssign{},
			DateOp{},
		)
		return fun, nil
	default:
		name := "max"
		if isMin {
			name = "min"
		}
		return nil, errors.Wrapf(ErrUnknownAggr, "%s(%s)", name, inputTyp.String())
	}
}

func GetMinAggr(inputTyp common.LType) (*FunctionV2, error) {
	return getMinMaxAggr(inputTyp, true)
}

func GetMaxAggr(inputTyp common.LType) (*FunctionV2, error) {
	return getMinMaxAggr(inputTyp, false)
}

// GetAggr binds an aggregate by name to concrete argument types.
func GetAggr(name string, argTypes []common.LType) (*FunctionV2, error) {
	var fun *FunctionV2
	var err error
	switch name {
	case "count":
		if len(argTypes) == 0 {
			return GetCountStarAggr(), nil
		}
		fun, err = GetCountAggr(argTypes[0])
	case "sum":
		if len(argTypes) != 1 {
			return nil, errors.Wrapf(ErrUnknownAggr, "sum wants 1 arg, got %d", len(argTypes))
		}
		fun, err = GetSumAggr(argTypes[0])
	case "avg":
		if len(argTypes) != 1 {
			return nil, errors.Wrapf(ErrUnknownAggr, "avg wants 1 arg, got %d", len(argTypes))
		}
		fun, err = GetAvgAggr(argTypes[0])
	case "min":
		if len(argTypes) != 1 {
			return nil, errors.Wrapf(ErrUnknownAggr, "min wants 1 arg, got %d", len(argTypes))
		}
		fun, err = GetMinAggr(argTypes[0])
	case "max":
		if len(argTypes) != 1 {
			return nil, errors.Wrapf(ErrUnknownAggr, "max wants 1 arg, got %d", len(argTypes))
		}
		fun, err = GetMaxAggr(argTypes[0])
	default:
		return nil, errors.Wrapf(ErrUnknownAggr, "%s", name)
	}
	if err != nil {
		return nil, err
	}
	fun._name = name
	return fun, nil
}
