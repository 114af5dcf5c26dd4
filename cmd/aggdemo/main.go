package main

import (
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"

	"github.com/code-terror/databend-sub000/pkg/chunk"
	"github.com/code-terror/databend-sub000/pkg/common"
	"github.com/code-terror/databend-sub000/pkg/compute"
	"github.com/code-terror/databend-sub000/pkg/util"
)

var defCfgFilePaths = []string{".", "etc"}
var cfgFileName = "aggdemo.toml"

// Runs SELECT k, count(v), sum(v) GROUP BY k over generated chunks and
// prints the per-group results.
func main() {
	cfg := util.LoadConfig(defCfgFilePaths, cfgFileName)

	groupTypes := []common.LType{common.IntegerType()}
	descs := []*compute.AggrDesc{
		{
			Name:     "count",
			ArgTypes: []common.LType{common.IntegerType()},
			ArgIdx:   []int{1},
		},
		{
			Name:     "sum",
			ArgTypes: []common.LType{common.IntegerType()},
			ArgIdx:   []int{1},
		},
	}
	ha, err := compute.NewHashAggr(groupTypes, []int{0}, descs, &cfg.Aggr)
	if err != nil {
		util.Error("create hash aggr failed", zap.Error(err))
		os.Exit(1)
	}
	defer ha.Close()

	rng := rand.New(rand.NewSource(42))
	input := &chunk.Chunk{}
	input.Init([]common.LType{common.IntegerType(), common.IntegerType()}, util.DefaultVectorSize)
	const chunks = 64
	for c := 0; c < chunks; c++ {
		input.Reset()
		keys := chunk.GetSliceInPhyFormatFlat[int32](input.Data[0])
		vals := chunk.GetSliceInPhyFormatFlat[int32](input.Data[1])
		for i := 0; i < util.DefaultVectorSize; i++ {
			keys[i] = rng.Int31n(1000)
			vals[i] = rng.Int31n(100)
		}
		input.SetCard(util.DefaultVectorSize)
		if err = ha.Sink(input); err != nil {
			util.Error("sink failed", zap.Error(err))
			os.Exit(1)
		}
	}
	if err = ha.Finalize(); err != nil {
		util.Error("finalize failed", zap.Error(err))
		os.Exit(1)
	}
	util.Info("aggregation done",
		zap.Int("groups", ha.GroupCount()),
		zap.Int("memoryBytes", ha.MemoryUsage()))

	output := &chunk.Chunk{}
	output.Init(ha.OutputTypes(), util.DefaultVectorSize)
	rows := 0
	for {
		res, err := ha.GetData(output)
		if err != nil {
			util.Error("get data failed", zap.Error(err))
			os.Exit(1)
		}
		if res == compute.Done {
			break
		}
		for i := 0; i < output.Card(); i++ {
			rows++
			if cfg.Debug.PrintResult &&
				(cfg.Debug.MaxOutputRowCount <= 0 || rows <= cfg.Debug.MaxOutputRowCount) {
				key := output.Data[0].GetValue(i)
				cnt := output.Data[1].GetValue(i)
				sum := output.Data[2].GetValue(i)
				fmt.Printf("%v\t%v\t%v\n", key, cnt, sum)
			}
		}
	}
	util.Info("drained", zap.Int("rows", rows))
}
