package compute

import (
	"encoding/binary"
	"unsafe"

	"github.com/govalues/decimal"

	"github.com/code-terror/databend-sub000/pkg/chunk"
	"github.com/code-terror/databend-sub000/pkg/common"
	"github.com/code-terror/databend-sub000/pkg/util"
)

// fixed key integers wider than a machine word
type (
	keyU128 = [2]uint64
	keyU256 = [4]uint64
	keyU512 = [8]uint64
)

// buildFixedKeys packs the group columns of one chunk into fixed-width
// keys. The scratch buffer is zeroed first so the padding bytes beyond
// the packed width never leak garbage into key comparison. Returns the
// scratch buffer so the caller can reuse its growth.
func buildFixedKeys[K comparable](
	layout *fixedKeyLayout,
	groupData []*chunk.UnifiedFormat,
	count int,
	scratch []byte,
	keys []K,
) []byte {
	var zero K
	kw := layout._keyWidth
	util.AssertFunc(kw == int(unsafe.Sizeof(zero)))
	util.AssertFunc(len(keys) >= count)

	need := count * kw
	if cap(scratch) < need {
		scratch = make([]byte, need)
	}
	scratch = scratch[:need]
	for i := range scratch {
		scratch[i] = 0
	}

	for j := range layout._offsets {
		uni := groupData[j]
		off := layout._offsets[j]
		sz := layout._sizes[j]
		nullOff := layout._nullOffsets[j]
		util.AssertFunc(sz == uni.PTypSize)
		for i := 0; i < count; i++ {
			idx := uni.Sel.GetIndex(i)
			if nullOff >= 0 && !uni.Mask.RowIsValid(uint64(idx)) {
				scratch[i*kw+nullOff] = 1
				continue
			}
			copy(scratch[i*kw+off:i*kw+off+sz], uni.Data[idx*sz:idx*sz+sz])
		}
	}

	for i := 0; i < count; i++ {
		keys[i] = util.Load[K](util.BytesSliceToPointer(scratch[i*kw:]))
	}
	return scratch
}

func hashFixedKey[K comparable](key *K, kw int) uint64 {
	if kw <= 8 {
		var v uint64
		switch kw {
		case 1:
			v = uint64(*(*uint8)(unsafe.Pointer(key)))
		case 2:
			v = uint64(*(*uint16)(unsafe.Pointer(key)))
		case 4:
			v = uint64(*(*uint32)(unsafe.Pointer(key)))
		default:
			v = *(*uint64)(unsafe.Pointer(key))
		}
		return util.HashU64(v)
	}
	return util.HashBytes(unsafe.Pointer(key), uint64(kw))
}

// appendFixedKeys unpacks keys back into flat group column vectors,
// one output row per key.
func appendFixedKeys[K comparable](
	layout *fixedKeyLayout,
	keys []K,
	count int,
	groups []*chunk.Vector,
) {
	kw := layout._keyWidth
	for j := range layout._offsets {
		vec := groups[j]
		util.AssertFunc(vec.PhyFormat().IsFlat())
		off := layout._offsets[j]
		sz := layout._sizes[j]
		nullOff := layout._nullOffsets[j]
		dstData := chunk.GetDataInPhyFormatFlat(vec)
		for i := 0; i < count; i++ {
			keyPtr := unsafe.Pointer(&keys[i])
			if nullOff >= 0 && util.Load2[uint8](keyPtr, nullOff) != 0 {
				chunk.SetNullInPhyFormatFlat(vec, uint64(i), true)
				continue
			}
			keyBytes := util.PointerToSlice[byte](keyPtr, kw)
			copy(dstData[i*sz:i*sz+sz], keyBytes[off:off+sz])
		}
	}
}

// serializedKeys holds the variable-length keys of one probed chunk,
// packed back to back in a single reusable buffer.
type serializedKeys struct {
	_buf     []byte
	_offsets []int
	_rows    [][]byte
}

func (sk *serializedKeys) keyBytes(i int) []byte {
	return sk._buf[sk._offsets[i]:sk._offsets[i+1]]
}

// buildSerializedKeys encodes each row's group columns into one
// contiguous byte key. Encoding per column: nullable columns lead with
// a null flag byte (1 means null, value omitted); fixed-size values are
// raw bytes; varchar and decimal are a little-endian u32 length plus
// bytes. Equal tuples always produce equal byte strings.
func buildSerializedKeys(
	types []common.LType,
	groupData []*chunk.UnifiedFormat,
	count int,
	out *serializedKeys,
) {
	if cap(out._rows) < count {
		out._rows = make([][]byte, count)
	}
	out._rows = out._rows[:count]
	for i := range out._rows {
		out._rows[i] = out._rows[i][:0]
	}

	var lenBuf [4]byte
	for j, lt := range types {
		uni := groupData[j]
		nullable := lt.Nullable
		switch lt.GetInternalType() {
		case common.VARCHAR:
			strSlice := chunk.GetSliceInPhyFormatUnifiedFormat[common.String](uni)
			for i := 0; i < count; i++ {
				idx := uni.Sel.GetIndex(i)
				valid := uni.Mask.RowIsValid(uint64(idx))
				if nullable {
					out._rows[i] = appendNullFlag(out._rows[i], valid)
					if !valid {
						continue
					}
				}
				util.AssertFunc(valid)
				str := &strSlice[idx]
				binary.LittleEndian.PutUint32(lenBuf[:], uint32(str.Length()))
				out._rows[i] = append(out._rows[i], lenBuf[:]...)
				out._rows[i] = append(out._rows[i], str.DataSlice()...)
			}
		case common.DECIMAL:
			decSlice := chunk.GetSliceInPhyFormatUnifiedFormat[common.Decimal](uni)
			for i := 0; i < count; i++ {
				idx := uni.Sel.GetIndex(i)
				valid := uni.Mask.RowIsValid(uint64(idx))
				if nullable {
					out._rows[i] = appendNullFlag(out._rows[i], valid)
					if !valid {
						continue
					}
				}
				util.AssertFunc(valid)
				str := decSlice[idx].String()
				binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(str)))
				out._rows[i] = append(out._rows[i], lenBuf[:]...)
				out._rows[i] = append(out._rows[i], str...)
			}
		default:
			sz := uni.PTypSize
			for i := 0; i < count; i++ {
				idx := uni.Sel.GetIndex(i)
				valid := uni.Mask.RowIsValid(uint64(idx))
				if nullable {
					out._rows[i] = appendNullFlag(out._rows[i], valid)
					if !valid {
						continue
					}
				}
				util.AssertFunc(valid)
				out._rows[i] = append(out._rows[i], uni.Data[idx*sz:idx*sz+sz]...)
			}
		}
	}

	out._buf = out._buf[:0]
	if cap(out._offsets) < count+1 {
		out._offsets = make([]int, count+1)
	}
	out._offsets = out._offsets[:count+1]
	for i := 0; i < count; i++ {
		out._offsets[i] = len(out._buf)
		out._buf = append(out._buf, out._rows[i]...)
	}
	out._offsets[count] = len(out._buf)
}

func appendNullFlag(row []byte, valid bool) []byte {
	if valid {
		return append(row, 0)
	}
	return append(row, 1)
}

// appendSerializedKeys decodes byte keys back into flat group column
// vectors. The inverse of buildSerializedKeys.
func appendSerializedKeys(
	types []common.LType,
	keys []common.String,
	count int,
	groups []*chunk.Vector,
) {
	for i := 0; i < count; i++ {
		key := keys[i].DataSlice()
		off := 0
		for j, lt := range types {
			vec := groups[j]
			util.AssertFunc(vec.PhyFormat().IsFlat())
			if lt.Nullable {
				isNull := key[off] != 0
				off++
				if isNull {
					chunk.SetNullInPhyFormatFlat(vec, uint64(i), true)
					continue
				}
			}
			switch lt.GetInternalType() {
			case common.VARCHAR:
				strLen := int(binary.LittleEndian.Uint32(key[off:]))
				off += 4
				dstMem := util.CMalloc(max(1, strLen))
				util.PointerCopy2(dstMem, key[off:off+strLen], strLen)
				strSlice := chunk.GetSliceInPhyFormatFlat[common.String](vec)
				strSlice[i] = common.String{Data: dstMem, Len: strLen}
				off += strLen
			case common.DECIMAL:
				strLen := int(binary.LittleEndian.Uint32(key[off:]))
				off += 4
				decVal, err := decimal.Parse(string(key[off : off+strLen]))
				if err != nil {
					panic(err)
				}
				decSlice := chunk.GetSliceInPhyFormatFlat[common.Decimal](vec)
				decSlice[i] = common.Decimal{Decimal: decVal}
				off += strLen
			default:
				sz := lt.GetInternalType().Size()
				dstData := chunk.GetDataInPhyFormatFlat(vec)
				copy(dstData[i*sz:i*sz+sz], key[off:off+sz])
				off += sz
			}
		}
		util.AssertFunc(off == keys[i].Length())
	}
}
