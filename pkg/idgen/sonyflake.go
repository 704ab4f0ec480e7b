package idgen

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/sonyflake"
)

// Config 配置
type Config struct {
	MachineID uint16    `mapstructure:"machine_id"`
	StartTime time.Time `mapstructure:"-"`
}

type sonyflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflake 创建基于 Sonyflake 的ID生成器
// machineID: 机器ID (0-65535)
func NewSonyflake(cfg Config) (Generator, error) {
	start := cfg.StartTime
	if start.IsZero() {
		start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	settings := sonyflake.Settings{
		StartTime: start,
		MachineID: func() (uint16, error) {
			return cfg.MachineID, nil
		},
	}

	sf := sonyflake.NewSonyflake(settings)
	if sf == nil {
		return nil, errors.New("failed to create sonyflake generator")
	}

	return &sonyflakeGenerator{sf: sf}, nil
}

func (g *sonyflakeGenerator) NextID() (int64, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return 0, errors.Wrap(err, "failed to generate id")
	}
	return int64(id), nil
}

type sequenceGenerator struct {
	next atomic.Int64
}

// NewSequence 从 start 开始递增的生成器，用于内存存储与测试
func NewSequence(start int64) Generator {
	g := &sequenceGenerator{}
	g.next.Store(start - 1)
	return g
}

func (g *sequenceGenerator) NextID() (int64, error) {
	return g.next.Add(1), nil
}
