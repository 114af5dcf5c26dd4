package util

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestHashU64MatchesHashBytes(t *testing.T) {
	//a uint64 key hashes the same whether it goes through the scalar
	//fast path or the byte path
	for _, k := range []uint64{0, 1, 42, 0xdeadbeef, 1 << 63, ^uint64(0)} {
		v := k
		assert.Equal(t, HashBytes(unsafe.Pointer(&v), 8), HashU64(k))
	}
}

func TestHashU64Spreads(t *testing.T) {
	seen := make(map[uint64]bool)
	for k := uint64(0); k < 1000; k++ {
		seen[HashU64(k)] = true
	}
	assert.Len(t, seen, 1000)
}
