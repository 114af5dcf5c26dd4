package util

import (
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

type AggrOptions struct {
	TwoLevelThreshold int `toml:"twoLevelThreshold"`
	NumPartitions     int `toml:"numPartitions"`
	MergeParallelism  int `toml:"mergeParallelism"`
}

type DebugOptions struct {
	PrintResult       bool `toml:"printResult"`
	MaxOutputRowCount int  `toml:"maxOutputRowCount"`
}

type Config struct {
	Aggr  AggrOptions  `toml:"aggr"`
	Debug DebugOptions `toml:"debug"`
}

func DefaultConfig() *Config {
	return &Config{
		Aggr: AggrOptions{
			TwoLevelThreshold: 1 << 17,
			NumPartitions:     256,
			MergeParallelism:  0, //0 means GOMAXPROCS
		},
	}
}

// LoadConfig reads fileName from the first directory in dirPaths that has
// it. Missing files are not an error. Defaults fill whatever the file
// leaves out.
func LoadConfig(dirPaths []string, fileName string) *Config {
	cfg := DefaultConfig()
	for _, dirPath := range dirPaths {
		fpath := filepath.Join(dirPath, fileName)
		if FileIsValid(fpath) {
			_, err := toml.DecodeFile(fpath, cfg)
			if err != nil {
				Error("load config file failed",
					zap.String("fpath", fpath),
					zap.Error(err))
				continue
			}
			break
		}
	}
	if cfg.Aggr.NumPartitions <= 0 {
		cfg.Aggr.NumPartitions = 256
	}
	if cfg.Aggr.TwoLevelThreshold <= 0 {
		cfg.Aggr.TwoLevelThreshold = 1 << 17
	}
	return cfg
}
