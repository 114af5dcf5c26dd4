package util

import (
	"unsafe"
)

const (
	arenaMinBlockSize = 4096

	//panic payload when malloc refuses a block. callers that want to
	//turn exhaustion into an error match on this exact value
	ArenaAllocFailed = "arena block allocation failed"
)

type arenaBlock struct {
	ptr  unsafe.Pointer
	size int
	used int
}

// Arena is a bump allocator on top of CMalloc blocks. Allocations are never
// freed individually; Close releases every block at once. Addresses handed
// out stay valid until Close, no matter how much the arena grows afterwards.
type Arena struct {
	blocks []arenaBlock
}

func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) Alloc(sz int, align int) unsafe.Pointer {
	AssertFunc(sz > 0 && align > 0 && IsPowerOfTwo(uint64(align)))
	if len(a.blocks) > 0 {
		blk := &a.blocks[len(a.blocks)-1]
		offset := (blk.used + align - 1) & (^(align - 1))
		if offset+sz <= blk.size {
			blk.used = offset + sz
			return PointerAdd(blk.ptr, offset)
		}
	}
	blkSize := arenaMinBlockSize
	//allocations larger than a block get their own block
	for blkSize < sz+align {
		blkSize *= 2
	}
	ptr := CMalloc(blkSize)
	if !PointerValid(ptr) {
		panic(ArenaAllocFailed)
	}
	CMemset(ptr, 0, blkSize)
	a.blocks = append(a.blocks, arenaBlock{ptr: ptr, size: blkSize})
	blk := &a.blocks[len(a.blocks)-1]
	//block start is malloc aligned. recheck alignment anyway
	offset := 0
	base := uintptr(blk.ptr)
	if rem := int(base) & (align - 1); rem != 0 {
		offset = align - rem
	}
	blk.used = offset + sz
	return PointerAdd(blk.ptr, offset)
}

// AllocSlice copies data into the arena and returns the stable copy.
func (a *Arena) AllocSlice(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return a.Alloc(1, 1)
	}
	ptr := a.Alloc(len(data), 1)
	PointerCopy2(ptr, data, len(data))
	return ptr
}

func (a *Arena) AllocatedBytes() int {
	total := 0
	for i := range a.blocks {
		total += a.blocks[i].size
	}
	return total
}

func (a *Arena) Close() {
	for i := range a.blocks {
		CFree(a.blocks[i].ptr)
	}
	a.blocks = nil
}
