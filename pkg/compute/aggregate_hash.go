package compute

import (
	"bytes"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/code-terror/databend-sub000/pkg/chunk"
	"github.com/code-terror/databend-sub000/pkg/common"
	"github.com/code-terror/databend-sub000/pkg/util"
)

const (
	// two level routing uses the top byte of the hash, so 256 is the
	// ceiling for partition counts
	maxPartitions   = 256
	initialCapacity = 1024
)

// tableScanState walks one partition of a hash table. The caches are
// per-scan so concurrent scans of different partitions never share
// scratch memory.
type tableScanState struct {
	_part     int
	_idx      int
	_keyCache any
	_strCache []common.String
}

func newTableScanState(part int) *tableScanState {
	return &tableScanState{_part: part}
}

type hashTableImpl interface {
	// probe maps each row of groups to its state row, creating and
	// initializing states for unseen keys. Fills state._addresses and
	// state._newGroups.
	probe(state *aggrProbeState, groups *chunk.Chunk, count int)
	count() int
	isTwoLevel() bool
	convertToTwoLevel()
	partitionCount() int
	// scanPartition emits up to maxRows groups with their state row
	// addresses. Returns 0 once the partition is exhausted.
	scanPartition(scan *tableScanState, groups []*chunk.Vector, addresses *chunk.Vector, maxRows int) int
	memoryUsage() int
	close()
}

type aggrHTEntry[K comparable] struct {
	_filled bool
	_hash   uint64
	_key    K
	_states unsafe.Pointer
}

func probeKeyCache[K comparable](state *aggrProbeState) []K {
	if c, ok := state._keyCache.([]K); ok {
		return c
	}
	c := make([]K, util.DefaultVectorSize)
	state._keyCache = c
	return c
}

func scanKeyCache[K comparable](scan *tableScanState) []K {
	if c, ok := scan._keyCache.([]K); ok {
		return c
	}
	c := make([]K, util.DefaultVectorSize)
	scan._keyCache = c
	return c
}

// fixedKeysState is an open addressing table over fixed-width packed
// keys. State rows live in the arena and never move, so their
// addresses survive resizes and the two-level conversion.
type fixedKeysState[K comparable] struct {
	_layout   *aggrLayout
	_fixed    *fixedKeyLayout
	_entries  []aggrHTEntry[K]
	_capacity int
	_count    int
	_arena    *util.Arena

	_numParts    int
	_twoLevel    bool
	_subs        []*fixedKeysState[K]
	_extraArenas []*util.Arena
}

func newFixedKeysState[K comparable](layout *aggrLayout, fixed *fixedKeyLayout, numParts int) *fixedKeysState[K] {
	return &fixedKeysState[K]{
		_layout:   layout,
		_fixed:    fixed,
		_entries:  make([]aggrHTEntry[K], initialCapacity),
		_capacity: initialCapacity,
		_arena:    util.NewArena(),
		_numParts: numParts,
	}
}

func (ht *fixedKeysState[K]) probe(state *aggrProbeState, groups *chunk.Chunk, count int) {
	state.prepareGroupData(groups)
	keys := probeKeyCache[K](state)
	state._keyScratch = buildFixedKeys(ht._fixed, state._groupData, count, state._keyScratch, keys)
	kw := ht._fixed._keyWidth
	for i := 0; i < count; i++ {
		state._hashes[i] = hashFixedKey(&keys[i], kw)
	}
	addresses := state.addressSlice()
	state._newCount = 0
	if ht._twoLevel {
		for i := 0; i < count; i++ {
			sub := ht._subs[ht.partitionOf(state._hashes[i])]
			addresses[i] = sub.findOrCreate(keys[i], state._hashes[i], i, state)
		}
	} else {
		for i := 0; i < count; i++ {
			addresses[i] = ht.findOrCreate(keys[i], state._hashes[i], i, state)
		}
	}
	InitStates(ht._layout, state._addresses, state._newGroups, state._newCount)
}

func (ht *fixedKeysState[K]) findOrCreate(key K, hash uint64, row int, state *aggrProbeState) unsafe.Pointer {
	if float64(ht._count+1) > float64(ht._capacity)/LOAD_FACTOR {
		ht.resize(ht._capacity * 2)
	}
	mask := uint64(ht._capacity - 1)
	idx := hash & mask
	for {
		e := &ht._entries[idx]
		if !e._filled {
			e._filled = true
			e._hash = hash
			e._key = key
			e._states = ht._arena.Alloc(max(1, ht._layout.rowWidth()), 8)
			ht._count++
			state._newGroups.SetIndex(state._newCount, row)
			state._newCount++
			return e._states
		}
		if e._hash == hash && e._key == key {
			return e._states
		}
		idx = (idx + 1) & mask
	}
}

// insertExisting moves an already built entry into this table. The
// state row keeps its old address.
func (ht *fixedKeysState[K]) insertExisting(hash uint64, key K, states unsafe.Pointer) {
	if float64(ht._count+1) > float64(ht._capacity)/LOAD_FACTOR {
		ht.resize(ht._capacity * 2)
	}
	mask := uint64(ht._capacity - 1)
	idx := hash & mask
	for ht._entries[idx]._filled {
		idx = (idx + 1) & mask
	}
	ht._entries[idx] = aggrHTEntry[K]{_filled: true, _hash: hash, _key: key, _states: states}
	ht._count++
}

func (ht *fixedKeysState[K]) resize(newCap int) {
	util.AssertFunc(util.IsPowerOfTwo(uint64(newCap)))
	old := ht._entries
	ht._entries = make([]aggrHTEntry[K], newCap)
	ht._capacity = newCap
	mask := uint64(newCap - 1)
	for i := range old {
		if !old[i]._filled {
			continue
		}
		idx := old[i]._hash & mask
		for ht._entries[idx]._filled {
			idx = (idx + 1) & mask
		}
		ht._entries[idx] = old[i]
	}
}

func (ht *fixedKeysState[K]) count() int {
	if !ht._twoLevel {
		return ht._count
	}
	total := 0
	for _, sub := range ht._subs {
		total += sub._count
	}
	return total
}

func (ht *fixedKeysState[K]) isTwoLevel() bool {
	return ht._twoLevel
}

func (ht *fixedKeysState[K]) partitionOf(hash uint64) int {
	return int(hash>>56) % ht._numParts
}

func (ht *fixedKeysState[K]) convertToTwoLevel() {
	if ht._twoLevel {
		return
	}
	subs := make([]*fixedKeysState[K], ht._numParts)
	for p := range subs {
		subs[p] = newFixedKeysState[K](ht._layout, ht._fixed, ht._numParts)
	}
	for i := range ht._entries {
		e := &ht._entries[i]
		if !e._filled {
			continue
		}
		subs[ht.partitionOf(e._hash)].insertExisting(e._hash, e._key, e._states)
	}
	// existing state rows stay in the old arena
	ht._extraArenas = append(ht._extraArenas, ht._arena)
	ht._arena = nil
	ht._entries = nil
	ht._subs = subs
	ht._twoLevel = true
}

func (ht *fixedKeysState[K]) partitionCount() int {
	if ht._twoLevel {
		return ht._numParts
	}
	return 1
}

func (ht *fixedKeysState[K]) scanPartition(scan *tableScanState, groups []*chunk.Vector, addresses *chunk.Vector, maxRows int) int {
	src := ht
	if ht._twoLevel {
		src = ht._subs[scan._part]
	} else {
		util.AssertFunc(scan._part == 0)
	}
	keys := scanKeyCache[K](scan)
	addrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](addresses)
	n := 0
	for scan._idx < src._capacity && n < maxRows {
		e := &src._entries[scan._idx]
		scan._idx++
		if !e._filled {
			continue
		}
		keys[n] = e._key
		addrSlice[n] = e._states
		n++
	}
	if n > 0 {
		appendFixedKeys(ht._fixed, keys, n, groups)
	}
	return n
}

func (ht *fixedKeysState[K]) lookup(hash uint64, key K) unsafe.Pointer {
	mask := uint64(ht._capacity - 1)
	idx := hash & mask
	for {
		e := &ht._entries[idx]
		if !e._filled {
			return nil
		}
		if e._hash == hash && e._key == key {
			return e._states
		}
		idx = (idx + 1) & mask
	}
}

// mergeFrom folds one partition of other into this table. Unseen keys
// steal the source state row outright; shared keys get their states
// combined in batches. The source arenas move here so the stolen rows
// outlive the source table.
func (ht *fixedKeysState[K]) mergeFrom(other *fixedKeysState[K], part int, combineBatch func(src, dst *chunk.Vector, cnt int)) {
	src := other
	if other._twoLevel {
		src = other._subs[part]
	} else {
		util.AssertFunc(part == 0)
	}
	dst := ht
	if ht._twoLevel {
		dst = ht._subs[part]
	}
	srcVec := chunk.NewFlatVector(common.PointerType(), util.DefaultVectorSize)
	dstVec := chunk.NewFlatVector(common.PointerType(), util.DefaultVectorSize)
	srcPtrs := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](srcVec)
	dstPtrs := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](dstVec)
	n := 0
	for i := range src._entries {
		e := &src._entries[i]
		if !e._filled {
			continue
		}
		target := dst.lookup(e._hash, e._key)
		if target == nil {
			dst.insertExisting(e._hash, e._key, e._states)
			continue
		}
		srcPtrs[n] = e._states
		dstPtrs[n] = target
		n++
		if n == util.DefaultVectorSize {
			combineBatch(srcVec, dstVec, n)
			n = 0
		}
	}
	if n > 0 {
		combineBatch(srcVec, dstVec, n)
	}
	if src._arena != nil {
		dst._extraArenas = append(dst._extraArenas, src._arena)
		src._arena = nil
	}
	dst._extraArenas = append(dst._extraArenas, src._extraArenas...)
	src._extraArenas = nil
}

func (ht *fixedKeysState[K]) adoptArenas(other *fixedKeysState[K]) {
	if other._arena != nil {
		ht._extraArenas = append(ht._extraArenas, other._arena)
		other._arena = nil
	}
	ht._extraArenas = append(ht._extraArenas, other._extraArenas...)
	other._extraArenas = nil
}

func (ht *fixedKeysState[K]) memoryUsage() int {
	var e aggrHTEntry[K]
	total := len(ht._entries) * int(unsafe.Sizeof(e))
	if ht._arena != nil {
		total += ht._arena.AllocatedBytes()
	}
	for _, a := range ht._extraArenas {
		total += a.AllocatedBytes()
	}
	for _, sub := range ht._subs {
		total += sub.memoryUsage()
	}
	return total
}

func (ht *fixedKeysState[K]) close() {
	if ht._arena != nil {
		ht._arena.Close()
		ht._arena = nil
	}
	for _, a := range ht._extraArenas {
		a.Close()
	}
	ht._extraArenas = nil
	for _, sub := range ht._subs {
		sub.close()
	}
	ht._subs = nil
	ht._entries = nil
}

type shortKey interface {
	~uint8 | ~uint16
}

// shortFixedKeysState addresses states directly by the key value. With
// at most 65536 possible keys there is nothing to hash.
type shortFixedKeysState[K shortKey] struct {
	_layout *aggrLayout
	_fixed  *fixedKeyLayout
	_states []unsafe.Pointer
	_count  int
	_arena  *util.Arena

	_extraArenas []*util.Arena
}

func newShortFixedKeysState[K shortKey](layout *aggrLayout, fixed *fixedKeyLayout) *shortFixedKeysState[K] {
	size := 1 << (8 * fixed._keyWidth)
	return &shortFixedKeysState[K]{
		_layout: layout,
		_fixed:  fixed,
		_states: make([]unsafe.Pointer, size),
		_arena:  util.NewArena(),
	}
}

func (ht *shortFixedKeysState[K]) probe(state *aggrProbeState, groups *chunk.Chunk, count int) {
	state.prepareGroupData(groups)
	keys := probeKeyCache[K](state)
	state._keyScratch = buildFixedKeys(ht._fixed, state._groupData, count, state._keyScratch, keys)
	addresses := state.addressSlice()
	state._newCount = 0
	for i := 0; i < count; i++ {
		idx := int(keys[i])
		if ht._states[idx] == nil {
			ht._states[idx] = ht._arena.Alloc(max(1, ht._layout.rowWidth()), 8)
			ht._count++
			state._newGroups.SetIndex(state._newCount, i)
			state._newCount++
		}
		addresses[i] = ht._states[idx]
	}
	InitStates(ht._layout, state._addresses, state._newGroups, state._newCount)
}

func (ht *shortFixedKeysState[K]) count() int {
	return ht._count
}

func (ht *shortFixedKeysState[K]) isTwoLevel() bool {
	return false
}

func (ht *shortFixedKeysState[K]) convertToTwoLevel() {
}

func (ht *shortFixedKeysState[K]) partitionCount() int {
	return 1
}

func (ht *shortFixedKeysState[K]) scanPartition(scan *tableScanState, groups []*chunk.Vector, addresses *chunk.Vector, maxRows int) int {
	util.AssertFunc(scan._part == 0)
	keys := scanKeyCache[K](scan)
	addrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](addresses)
	n := 0
	for scan._idx < len(ht._states) && n < maxRows {
		idx := scan._idx
		scan._idx++
		if ht._states[idx] == nil {
			continue
		}
		keys[n] = K(idx)
		addrSlice[n] = ht._states[idx]
		n++
	}
	if n > 0 {
		appendFixedKeys(ht._fixed, keys, n, groups)
	}
	return n
}

func (ht *shortFixedKeysState[K]) mergeFrom(other *shortFixedKeysState[K], part int, combineBatch func(src, dst *chunk.Vector, cnt int)) {
	util.AssertFunc(part == 0)
	srcVec := chunk.NewFlatVector(common.PointerType(), util.DefaultVectorSize)
	dstVec := chunk.NewFlatVector(common.PointerType(), util.DefaultVectorSize)
	srcPtrs := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](srcVec)
	dstPtrs := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](dstVec)
	n := 0
	for idx, sp := range other._states {
		if sp == nil {
			continue
		}
		if ht._states[idx] == nil {
			ht._states[idx] = sp
			ht._count++
			continue
		}
		srcPtrs[n] = sp
		dstPtrs[n] = ht._states[idx]
		n++
		if n == util.DefaultVectorSize {
			combineBatch(srcVec, dstVec, n)
			n = 0
		}
	}
	if n > 0 {
		combineBatch(srcVec, dstVec, n)
	}
	ht._extraArenas = append(ht._extraArenas, other._arena)
	other._arena = nil
	ht._extraArenas = append(ht._extraArenas, other._extraArenas...)
	other._extraArenas = nil
}

func (ht *shortFixedKeysState[K]) adoptArenas(other *shortFixedKeysState[K]) {
	if other._arena != nil {
		ht._extraArenas = append(ht._extraArenas, other._arena)
		other._arena = nil
	}
	ht._extraArenas = append(ht._extraArenas, other._extraArenas...)
	other._extraArenas = nil
}

func (ht *shortFixedKeysState[K]) memoryUsage() int {
	total := len(ht._states) * int(unsafe.Sizeof(unsafe.Pointer(nil)))
	if ht._arena != nil {
		total += ht._arena.AllocatedBytes()
	}
	for _, a := range ht._extraArenas {
		total += a.AllocatedBytes()
	}
	return total
}

func (ht *shortFixedKeysState[K]) close() {
	if ht._arena != nil {
		ht._arena.Close()
		ht._arena = nil
	}
	for _, a := range ht._extraArenas {
		a.Close()
	}
	ht._extraArenas = nil
	ht._states = nil
}

type serializedHTEntry struct {
	_filled bool
	_hash   uint64
	// key bytes live in the table's key arena
	_key    common.String
	_states unsafe.Pointer
}

// serializedKeysState handles group keys with no usable fixed width:
// strings, decimals and oversized tuples.
type serializedKeysState struct {
	_layout   *aggrLayout
	_types    []common.LType
	_entries  []serializedHTEntry
	_capacity int
	_count    int
	_arena    *util.Arena
	_keyArena *util.Arena

	_numParts    int
	_twoLevel    bool
	_subs        []*serializedKeysState
	_extraArenas []*util.Arena
}

func newSerializedKeysState(layout *aggrLayout, types []common.LType, numParts int) *serializedKeysState {
	return &serializedKeysState{
		_layout:   layout,
		_types:    types,
		_entries:  make([]serializedHTEntry, initialCapacity),
		_capacity: initialCapacity,
		_arena:    util.NewArena(),
		_keyArena: util.NewArena(),
		_numParts: numParts,
	}
}

func (ht *serializedKeysState) probe(state *aggrProbeState, groups *chunk.Chunk, count int) {
	state.prepareGroupData(groups)
	buildSerializedKeys(ht._types, state._groupData, count, &state._serialized)
	for i := 0; i < count; i++ {
		state._hashes[i] = xxhash.Sum64(state._serialized.keyBytes(i))
	}
	addresses := state.addressSlice()
	state._newCount = 0
	if ht._twoLevel {
		for i := 0; i < count; i++ {
			sub := ht._subs[ht.partitionOf(state._hashes[i])]
			addresses[i] = sub.findOrCreate(state._serialized.keyBytes(i), state._hashes[i], i, state)
		}
	} else {
		for i := 0; i < count; i++ {
			addresses[i] = ht.findOrCreate(state._serialized.keyBytes(i), state._hashes[i], i, state)
		}
	}
	InitStates(ht._layout, state._addresses, state._newGroups, state._newCount)
}

func (ht *serializedKeysState) findOrCreate(key []byte, hash uint64, row int, state *aggrProbeState) unsafe.Pointer {
	if float64(ht._count+1) > float64(ht._capacity)/LOAD_FACTOR {
		ht.resize(ht._capacity * 2)
	}
	mask := uint64(ht._capacity - 1)
	idx := hash & mask
	for {
		e := &ht._entries[idx]
		if !e._filled {
			e._filled = true
			e._hash = hash
			e._key = common.String{Data: ht._keyArena.AllocSlice(key), Len: len(key)}
			e._states = ht._arena.Alloc(max(1, ht._layout.rowWidth()), 8)
			ht._count++
			state._newGroups.SetIndex(state._newCount, row)
			state._newCount++
			return e._states
		}
		if e._hash == hash && e._key.Length() == len(key) &&
			bytes.Equal(e._key.DataSlice(), key) {
			return e._states
		}
		idx = (idx + 1) & mask
	}
}

func (ht *serializedKeysState) insertExisting(e *serializedHTEntry) {
	if float64(ht._count+1) > float64(ht._capacity)/LOAD_FACTOR {
		ht.resize(ht._capacity * 2)
	}
	mask := uint64(ht._capacity - 1)
	idx := e._hash & mask
	for ht._entries[idx]._filled {
		idx = (idx + 1) & mask
	}
	ht._entries[idx] = *e
	ht._count++
}

func (ht *serializedKeysState) resize(newCap int) {
	util.AssertFunc(util.IsPowerOfTwo(uint64(newCap)))
	old := ht._entries
	ht._entries = make([]serializedHTEntry, newCap)
	ht._capacity = newCap
	mask := uint64(newCap - 1)
	for i := range old {
		if !old[i]._filled {
			continue
		}
		idx := old[i]._hash & mask
		for ht._entries[idx]._filled {
			idx = (idx + 1) & mask
		}
		ht._entries[idx] = old[i]
	}
}

func (ht *serializedKeysState) count() int {
	if !ht._twoLevel {
		return ht._count
	}
	total := 0
	for _, sub := range ht._subs {
		total += sub._count
	}
	return total
}

func (ht *serializedKeysState) isTwoLevel() bool {
	return ht._twoLevel
}

func (ht *serializedKeysState) partitionOf(hash uint64) int {
	return int(hash>>56) % ht._numParts
}

func (ht *serializedKeysState) convertToTwoLevel() {
	if ht._twoLevel {
		return
	}
	subs := make([]*serializedKeysState, ht._numParts)
	for p := range subs {
		subs[p] = newSerializedKeysState(ht._layout, ht._types, ht._numParts)
	}
	for i := range ht._entries {
		e := &ht._entries[i]
		if !e._filled {
			continue
		}
		subs[ht.partitionOf(e._hash)].insertExisting(e)
	}
	ht._extraArenas = append(ht._extraArenas, ht._arena, ht._keyArena)
	ht._arena = nil
	ht._keyArena = nil
	ht._entries = nil
	ht._subs = subs
	ht._twoLevel = true
}

func (ht *serializedKeysState) partitionCount() int {
	if ht._twoLevel {
		return ht._numParts
	}
	return 1
}

func (ht *serializedKeysState) scanPartition(scan *tableScanState, groups []*chunk.Vector, addresses *chunk.Vector, maxRows int) int {
	src := ht
	if ht._twoLevel {
		src = ht._subs[scan._part]
	} else {
		util.AssertFunc(scan._part == 0)
	}
	if cap(scan._strCache) < maxRows {
		scan._strCache = make([]common.String, max(maxRows, util.DefaultVectorSize))
	}
	strs := scan._strCache[:maxRows]
	addrSlice := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](addresses)
	n := 0
	for scan._idx < src._capacity && n < maxRows {
		e := &src._entries[scan._idx]
		scan._idx++
		if !e._filled {
			continue
		}
		strs[n] = e._key
		addrSlice[n] = e._states
		n++
	}
	if n > 0 {
		appendSerializedKeys(ht._types, strs, n, groups)
	}
	return n
}

func (ht *serializedKeysState) lookup(hash uint64, key common.String) unsafe.Pointer {
	mask := uint64(ht._capacity - 1)
	idx := hash & mask
	for {
		e := &ht._entries[idx]
		if !e._filled {
			return nil
		}
		if e._hash == hash && e._key.Length() == key.Length() &&
			bytes.Equal(e._key.DataSlice(), key.DataSlice()) {
			return e._states
		}
		idx = (idx + 1) & mask
	}
}

func (ht *serializedKeysState) mergeFrom(other *serializedKeysState, part int, combineBatch func(src, dst *chunk.Vector, cnt int)) {
	src := other
	if other._twoLevel {
		src = other._subs[part]
	} else {
		util.AssertFunc(part == 0)
	}
	dst := ht
	if ht._twoLevel {
		dst = ht._subs[part]
	}
	srcVec := chunk.NewFlatVector(common.PointerType(), util.DefaultVectorSize)
	dstVec := chunk.NewFlatVector(common.PointerType(), util.DefaultVectorSize)
	srcPtrs := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](srcVec)
	dstPtrs := chunk.GetSliceInPhyFormatFlat[unsafe.Pointer](dstVec)
	n := 0
	for i := range src._entries {
		e := &src._entries[i]
		if !e._filled {
			continue
		}
		target := dst.lookup(e._hash, e._key)
		if target == nil {
			dst.insertExisting(e)
			continue
		}
		srcPtrs[n] = e._states
		dstPtrs[n] = target
		n++
		if n == util.DefaultVectorSize {
			combineBatch(srcVec, dstVec, n)
			n = 0
		}
	}
	if n > 0 {
		combineBatch(srcVec, dstVec, n)
	}
	// stolen entries keep their key bytes and state rows in the source
	// arenas, so those move too
	if src._arena != nil {
		dst._extraArenas = append(dst._extraArenas, src._arena)
		src._arena = nil
	}
	if src._keyArena != nil {
		dst._extraArenas = append(dst._extraArenas, src._keyArena)
		src._keyArena = nil
	}
	dst._extraArenas = append(dst._extraArenas, src._extraArenas...)
	src._extraArenas = nil
}

func (ht *serializedKeysState) adoptArenas(other *serializedKeysState) {
	if other._arena != nil {
		ht._extraArenas = append(ht._extraArenas, other._arena)
		other._arena = nil
	}
	if other._keyArena != nil {
		ht._extraArenas = append(ht._extraArenas, other._keyArena)
		other._keyArena = nil
	}
	ht._extraArenas = append(ht._extraArenas, other._extraArenas...)
	other._extraArenas = nil
}

func (ht *serializedKeysState) memoryUsage() int {
	var e serializedHTEntry
	total := len(ht._entries) * int(unsafe.Sizeof(e))
	if ht._arena != nil {
		total += ht._arena.AllocatedBytes()
	}
	if ht._keyArena != nil {
		total += ht._keyArena.AllocatedBytes()
	}
	for _, a := range ht._extraArenas {
		total += a.AllocatedBytes()
	}
	for _, sub := range ht._subs {
		total += sub.memoryUsage()
	}
	return total
}

func (ht *serializedKeysState) close() {
	if ht._arena != nil {
		ht._arena.Close()
		ht._arena = nil
	}
	if ht._keyArena != nil {
		ht._keyArena.Close()
		ht._keyArena = nil
	}
	for _, a := range ht._extraArenas {
		a.Close()
	}
	ht._extraArenas = nil
	for _, sub := range ht._subs {
		sub.close()
	}
	ht._subs = nil
	ht._entries = nil
}

// aggrHashTable dispatches to the key representation picked for the
// group column types.
type aggrHashTable struct {
	_method HashMethodKind
	_fixed  *fixedKeyLayout
	_types  []common.LType
	_layout *aggrLayout
	_impl   hashTableImpl
}

func newAggrHashTable(groupTypes []common.LType, layout *aggrLayout, numParts int) (*aggrHashTable, error) {
	method, fixed, err := ChooseHashMethod(groupTypes)
	if err != nil {
		return nil, err
	}
	if numParts <= 0 || numParts > maxPartitions {
		numParts = maxPartitions
	}
	ht := &aggrHashTable{
		_method: method,
		_fixed:  fixed,
		_types:  groupTypes,
		_layout: layout,
	}
	switch method {
	case HashMethodFixedU8:
		ht._impl = newShortFixedKeysState[uint8](layout, fixed)
	case HashMethodFixedU16:
		ht._impl = newShortFixedKeysState[uint16](layout, fixed)
	case HashMethodFixedU32:
		ht._impl = newFixedKeysState[uint32](layout, fixed, numParts)
	case HashMethodFixedU64:
		ht._impl = newFixedKeysState[uint64](layout, fixed, numParts)
	case HashMethodFixedU128:
		ht._impl = newFixedKeysState[keyU128](layout, fixed, numParts)
	case HashMethodFixedU256:
		ht._impl = newFixedKeysState[keyU256](layout, fixed, numParts)
	case HashMethodFixedU512:
		ht._impl = newFixedKeysState[keyU512](layout, fixed, numParts)
	case HashMethodSerialized:
		ht._impl = newSerializedKeysState(layout, groupTypes, numParts)
	default:
		panic("usp")
	}
	return ht, nil
}

func (ht *aggrHashTable) Probe(state *aggrProbeState, groups *chunk.Chunk, count int) {
	util.AssertFunc(count <= util.DefaultVectorSize)
	ht._impl.probe(state, groups, count)
}

func (ht *aggrHashTable) Count() int {
	return ht._impl.count()
}

func (ht *aggrHashTable) IsTwoLevel() bool {
	return ht._impl.isTwoLevel()
}

func (ht *aggrHashTable) ConvertToTwoLevel() {
	ht._impl.convertToTwoLevel()
}

func (ht *aggrHashTable) PartitionCount() int {
	return ht._impl.partitionCount()
}

func (ht *aggrHashTable) ScanPartition(scan *tableScanState, groups []*chunk.Vector, addresses *chunk.Vector, maxRows int) int {
	return ht._impl.scanPartition(scan, groups, addresses, maxRows)
}

// MergePartition folds one partition of other into this table. Both
// tables must have been built over the same group types.
func (ht *aggrHashTable) MergePartition(other *aggrHashTable, part int, combineBatch func(src, dst *chunk.Vector, cnt int)) {
	util.AssertFunc(ht._method == other._method)
	switch dst := ht._impl.(type) {
	case *shortFixedKeysState[uint8]:
		dst.mergeFrom(other._impl.(*shortFixedKeysState[uint8]), part, combineBatch)
	case *shortFixedKeysState[uint16]:
		dst.mergeFrom(other._impl.(*shortFixedKeysState[uint16]), part, combineBatch)
	case *fixedKeysState[uint32]:
		dst.mergeFrom(other._impl.(*fixedKeysState[uint32]), part, combineBatch)
	case *fixedKeysState[uint64]:
		dst.mergeFrom(other._impl.(*fixedKeysState[uint64]), part, combineBatch)
	case *fixedKeysState[keyU128]:
		dst.mergeFrom(other._impl.(*fixedKeysState[keyU128]), part, combineBatch)
	case *fixedKeysState[keyU256]:
		dst.mergeFrom(other._impl.(*fixedKeysState[keyU256]), part, combineBatch)
	case *fixedKeysState[keyU512]:
		dst.mergeFrom(other._impl.(*fixedKeysState[keyU512]), part, combineBatch)
	case *serializedKeysState:
		dst.mergeFrom(other._impl.(*serializedKeysState), part, combineBatch)
	default:
		panic("usp")
	}
}

// AdoptArenas moves other's remaining arenas here after every partition
// of other has been merged, so stolen state rows survive other's Close.
func (ht *aggrHashTable) AdoptArenas(other *aggrHashTable) {
	util.AssertFunc(ht._method == other._method)
	switch dst := ht._impl.(type) {
	case *shortFixedKeysState[uint8]:
		dst.adoptArenas(other._impl.(*shortFixedKeysState[uint8]))
	case *shortFixedKeysState[uint16]:
		dst.adoptArenas(other._impl.(*shortFixedKeysState[uint16]))
	case *fixedKeysState[uint32]:
		dst.adoptArenas(other._impl.(*fixedKeysState[uint32]))
	case *fixedKeysState[uint64]:
		dst.adoptArenas(other._impl.(*fixedKeysState[uint64]))
	case *fixedKeysState[keyU128]:
		dst.adoptArenas(other._impl.(*fixedKeysState[keyU128]))
	case *fixedKeysState[keyU256]:
		dst.adoptArenas(other._impl.(*fixedKeysState[keyU256]))
	case *fixedKeysState[keyU512]:
		dst.adoptArenas(other._impl.(*fixedKeysState[keyU512]))
	case *serializedKeysState:
		dst.adoptArenas(other._impl.(*serializedKeysState))
	default:
		panic("usp")
	}
}

func (ht *aggrHashTable) MemoryUsage() int {
	return ht._impl.memoryUsage()
}

func (ht *aggrHashTable) Close() {
	ht._impl.close()
}
