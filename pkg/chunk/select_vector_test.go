package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectVectorIdentityWhenEmpty(t *testing.T) {
	var sel SelectVector
	assert.True(t, sel.Invalid())
	assert.Equal(t, 7, sel.GetIndex(7))
}

func TestSelectVectorSlice(t *testing.T) {
	base := NewSelectVector(4)
	base.Init3([]int{3, 2, 1, 0})
	inner := NewSelectVector(2)
	inner.Init3([]int{1, 3})
	assert.Equal(t, []int{2, 0}, base.Slice(inner, 2))
}
