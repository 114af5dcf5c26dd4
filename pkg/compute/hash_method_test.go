package compute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-terror/databend-sub000/pkg/common"
)

func TestChooseHashMethodFixedWidths(t *testing.T) {
	kases := []struct {
		types []common.LType
		want  HashMethodKind
	}{
		{[]common.LType{common.TinyintType()}, HashMethodFixedU8},
		{[]common.LType{common.SmallintType()}, HashMethodFixedU16},
		{[]common.LType{common.IntegerType()}, HashMethodFixedU32},
		{[]common.LType{common.BigintType()}, HashMethodFixedU64},
		{[]common.LType{common.IntegerType(), common.IntegerType()}, HashMethodFixedU64},
		{[]common.LType{common.BigintType(), common.IntegerType()}, HashMethodFixedU128},
		{[]common.LType{common.HugeintType()}, HashMethodFixedU128},
		{[]common.LType{common.BigintType(), common.BigintType(), common.BigintType()}, HashMethodFixedU256},
		{[]common.LType{common.DateType(), common.DateType(), common.DateType()}, HashMethodFixedU512},
	}
	for _, kase := range kases {
		kind, layout, err := ChooseHashMethod(kase.types)
		require.NoError(t, err)
		assert.Equal(t, kase.want, kind, kase.want.String())
		require.NotNil(t, layout)
		assert.Equal(t, kind.KeyWidth(), layout._keyWidth)
		assert.LessOrEqual(t, layout._width, layout._keyWidth)
	}
}

func TestChooseHashMethodNullableWidens(t *testing.T) {
	//a nullable column costs one extra byte, pushing the key wider
	lt := common.TinyintType()
	kind, _, err := ChooseHashMethod([]common.LType{lt})
	require.NoError(t, err)
	assert.Equal(t, HashMethodFixedU8, kind)

	lt.Nullable = true
	kind, layout, err := ChooseHashMethod([]common.LType{lt})
	require.NoError(t, err)
	assert.Equal(t, HashMethodFixedU16, kind)
	assert.Equal(t, 2, layout._width)
	assert.Equal(t, 1, layout._nullOffsets[0])

	i32 := common.IntegerType()
	i32.Nullable = true
	i64 := common.BigintType()
	kind, layout, err = ChooseHashMethod([]common.LType{i64, i32})
	require.NoError(t, err)
	assert.Equal(t, HashMethodFixedU128, kind)
	assert.Equal(t, []int{0, 8}, layout._offsets)
	assert.Equal(t, []int{-1, 12}, layout._nullOffsets)
	assert.Equal(t, 13, layout._width)
}

func TestChooseHashMethodSerialized(t *testing.T) {
	kind, layout, err := ChooseHashMethod([]common.LType{common.VarcharType()})
	require.NoError(t, err)
	assert.Equal(t, HashMethodSerialized, kind)
	assert.Nil(t, layout)
	assert.False(t, kind.IsFixed())
	assert.Equal(t, 0, kind.KeyWidth())

	kind, _, err = ChooseHashMethod([]common.LType{common.DecimalType(15, 2)})
	require.NoError(t, err)
	assert.Equal(t, HashMethodSerialized, kind)

	//fixed columns mixed with variable ones serialize too
	kind, _, err = ChooseHashMethod([]common.LType{common.IntegerType(), common.VarcharType()})
	require.NoError(t, err)
	assert.Equal(t, HashMethodSerialized, kind)

	//too wide for the largest packed key
	wide := make([]common.LType, 9)
	for i := range wide {
		wide[i] = common.BigintType()
	}
	kind, _, err = ChooseHashMethod(wide)
	require.NoError(t, err)
	assert.Equal(t, HashMethodSerialized, kind)
}

func TestChooseHashMethodNoGroups(t *testing.T) {
	kind, layout, err := ChooseHashMethod(nil)
	require.NoError(t, err)
	assert.Equal(t, HashMethodFixedU8, kind)
	require.NotNil(t, layout)
	assert.Equal(t, 1, layout._keyWidth)
}

func TestChooseHashMethodInvalidType(t *testing.T) {
	_, _, err := ChooseHashMethod([]common.LType{{Id: common.LTID_INVALID}})
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestFixedKeyLayoutOffsets(t *testing.T) {
	types := []common.LType{
		common.TinyintType(),
		common.IntegerType(),
		common.SmallintType(),
	}
	kind, layout, err := ChooseHashMethod(types)
	require.NoError(t, err)
	assert.Equal(t, HashMethodFixedU64, kind)
	assert.Equal(t, []int{0, 1, 5}, layout._offsets)
	assert.Equal(t, []int{1, 4, 2}, layout._sizes)
	assert.Equal(t, 7, layout._width)
	assert.Equal(t, 8, layout._keyWidth)
}
