package chunk

import (
	"fmt"
	"math/big"
	"time"

	"github.com/govalues/decimal"

	"github.com/code-terror/databend-sub000/pkg/common"
)

type Value struct {
	Typ    common.LType
	IsNull bool
	//value
	Bool  bool
	I64   int64
	I64_1 int64
	I64_2 int64
	U64   uint64
	F64   float64
	Str   string
}

func (val *Value) GetDecimal() common.Decimal {
	if len(val.Str) != 0 {
		decVal, err := decimal.ParseExact(val.Str, val.Typ.Scale)
		if err != nil {
			panic(err)
		}
		return common.Decimal{Decimal: decVal}
	}
	nDec, err := decimal.NewFromInt64(val.I64, val.I64_1, val.Typ.Scale)
	if err != nil {
		panic(err)
	}
	return common.Decimal{Decimal: nDec}
}

func (val Value) String() string {
	if val.IsNull {
		return "NULL"
	}
	switch val.Typ.Id {
	case common.LTID_BOOLEAN:
		return fmt.Sprintf("%v", val.Bool)
	case common.LTID_TINYINT, common.LTID_SMALLINT,
		common.LTID_INTEGER, common.LTID_BIGINT:
		return fmt.Sprintf("%d", val.I64)
	case common.LTID_UTINYINT, common.LTID_USMALLINT,
		common.LTID_UINTEGER, common.LTID_UBIGINT:
		return fmt.Sprintf("%d", val.U64)
	case common.LTID_VARCHAR:
		return val.Str
	case common.LTID_DECIMAL:
		if len(val.Str) != 0 {
			return val.Str
		}
		d, err := decimal.NewFromInt64(val.I64, val.I64_1, val.Typ.Scale)
		if err != nil {
			panic(err)
		}
		return d.String()
	case common.LTID_DATE:
		dat := time.Date(int(val.I64), time.Month(val.I64_1), int(val.I64_2),
			0, 0, 0, 0, time.UTC)
		return dat.Format(time.DateOnly)
	case common.LTID_DOUBLE, common.LTID_FLOAT:
		return fmt.Sprintf("%v", val.F64)
	case common.LTID_POINTER:
		return fmt.Sprintf("0x%x", val.U64)
	case common.LTID_HUGEINT:
		h := big.NewInt(val.I64)
		l := new(big.Int).SetUint64(uint64(val.I64_1))
		h.Lsh(h, 64)
		h.Add(h, l)
		return h.String()
	default:
		panic("usp")
	}
}
