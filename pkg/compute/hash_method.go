package compute

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-terror/databend-sub000/pkg/common"
	"github.com/code-terror/databend-sub000/pkg/util"
)

// HashMethodKind picks how a set of group columns is packed into keys.
// All-fixed-size columns get packed into a single integer wide enough to
// hold every value plus one null byte per nullable column. Anything else
// falls back to serialized variable-length keys.
type HashMethodKind int

const (
	HashMethodSerialized HashMethodKind = iota
	HashMethodFixedU8
	HashMethodFixedU16
	HashMethodFixedU32
	HashMethodFixedU64
	HashMethodFixedU128
	HashMethodFixedU256
	HashMethodFixedU512
)

func (k HashMethodKind) String() string {
	switch k {
	case HashMethodSerialized:
		return "serialized"
	case HashMethodFixedU8:
		return "fixed_u8"
	case HashMethodFixedU16:
		return "fixed_u16"
	case HashMethodFixedU32:
		return "fixed_u32"
	case HashMethodFixedU64:
		return "fixed_u64"
	case HashMethodFixedU128:
		return "fixed_u128"
	case HashMethodFixedU256:
		return "fixed_u256"
	case HashMethodFixedU512:
		return "fixed_u512"
	}
	panic(fmt.Sprintf("usp %d", k))
}

func (k HashMethodKind) IsFixed() bool {
	return k != HashMethodSerialized
}

// KeyWidth is the packed key size in bytes.
func (k HashMethodKind) KeyWidth() int {
	switch k {
	case HashMethodFixedU8:
		return 1
	case HashMethodFixedU16:
		return 2
	case HashMethodFixedU32:
		return 4
	case HashMethodFixedU64:
		return 8
	case HashMethodFixedU128:
		return 16
	case HashMethodFixedU256:
		return 32
	case HashMethodFixedU512:
		return 64
	default:
		return 0
	}
}

// fixedKeyLayout records where each group column lands inside the packed
// key. The null byte of a nullable column sits right after its value.
type fixedKeyLayout struct {
	_types       []common.LType
	_offsets     []int
	_nullOffsets []int //-1 when the column is not nullable
	_sizes       []int
	_width       int
	_keyWidth    int
}

// fixedSizeOfType returns the packed byte size of a group column, or
// false when the column must go through the serialized path.
func fixedSizeOfType(lt common.LType) (int, bool) {
	switch lt.GetInternalType() {
	case common.BOOL, common.BIT, common.INT8, common.UINT8:
		return 1, true
	case common.INT16, common.UINT16:
		return 2, true
	case common.INT32, common.UINT32, common.FLOAT:
		return 4, true
	case common.INT64, common.UINT64, common.DOUBLE:
		return 8, true
	case common.INT128:
		return 16, true
	case common.DATE, common.INTERVAL:
		return 12, true
	default:
		//VARCHAR, DECIMAL
		return 0, false
	}
}

// ChooseHashMethod inspects the group column types and selects the
// narrowest fixed key that fits, or the serialized fallback. The layout
// result is nil for the serialized method.
func ChooseHashMethod(types []common.LType) (HashMethodKind, *fixedKeyLayout, error) {
	if len(types) == 0 {
		//no grouping columns. a single sentinel key covers all rows
		return HashMethodFixedU8, &fixedKeyLayout{_keyWidth: 1, _width: 1}, nil
	}

	allFixed := true
	width := 0
	for _, lt := range types {
		if lt.Id == common.LTID_INVALID {
			return 0, nil, errors.Wrapf(ErrUnsupportedKeyType, "type %s", lt.String())
		}
		sz, ok := fixedSizeOfType(lt)
		if !ok {
			allFixed = false
			break
		}
		width += sz
		if lt.Nullable {
			width += 1
		}
	}
	if !allFixed || width > 64 {
		return HashMethodSerialized, nil, nil
	}

	layout := &fixedKeyLayout{
		_types:       common.CopyLTypes(types...),
		_offsets:     make([]int, len(types)),
		_nullOffsets: make([]int, len(types)),
		_sizes:       make([]int, len(types)),
		_width:       width,
	}
	cur := 0
	for i, lt := range types {
		sz, _ := fixedSizeOfType(lt)
		layout._offsets[i] = cur
		layout._sizes[i] = sz
		cur += sz
		if lt.Nullable {
			layout._nullOffsets[i] = cur
			cur += 1
		} else {
			layout._nullOffsets[i] = -1
		}
	}
	util.AssertFunc(cur == width)

	switch {
	case width <= 1:
		return HashMethodFixedU8, layout.round(1), nil
	case width <= 2:
		return HashMethodFixedU16, layout.round(2), nil
	case width <= 4:
		return HashMethodFixedU32, layout.round(4), nil
	case width <= 8:
		return HashMethodFixedU64, layout.round(8), nil
	case width <= 16:
		return HashMethodFixedU128, layout.round(16), nil
	case width <= 32:
		return HashMethodFixedU256, layout.round(32), nil
	default:
		return HashMethodFixedU512, layout.round(64), nil
	}
}

func (layout *fixedKeyLayout) round(keyWidth int) *fixedKeyLayout {
	layout._keyWidth = keyWidth
	return layout
}
