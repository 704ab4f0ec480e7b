package shard

import (
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/sampler"
)

// Ledger 融合碎片账本，只在调用方已锁定的 ShardPool 上操作
type Ledger struct {
	RedemptionThreshold int64
	GrantMin            int64
	GrantMax            int64
}

// NewLedger 根据碎片参数创建账本
func NewLedger(cfg gameconfig.ShardConfig) Ledger {
	return Ledger{
		RedemptionThreshold: cfg.RedemptionThreshold,
		GrantMin:            cfg.GrantMin,
		GrantMax:            cfg.GrantMax,
	}
}

// Credit 入账，余额无上限
func (l Ledger) Credit(pool *model.ShardPool, amount int64) error {
	if amount < 0 {
		return errcode.Validation("amount", "shard credit must be >= 0, got %d", amount)
	}
	pool.Balance += amount
	pool.UpdatedAt = time.Now().UTC()
	return nil
}

// Debit 扣减，余额不足返回 InsufficientShards 且不修改余额
func (l Ledger) Debit(pool *model.ShardPool, amount int64) error {
	if amount < 0 {
		return errcode.Validation("amount", "shard debit must be >= 0, got %d", amount)
	}
	if pool.Balance < amount {
		return errcode.InsufficientShards(amount, pool.Balance)
	}
	pool.Balance -= amount
	pool.UpdatedAt = time.Now().UTC()
	return nil
}

// CanRedeem 余额是否足够兑换一次必定成功的融合
func (l Ledger) CanRedeem(pool *model.ShardPool) bool {
	return pool.Balance >= l.RedemptionThreshold
}

// Redeem 扣除一次兑换所需碎片，超出部分保留
func (l Ledger) Redeem(pool *model.ShardPool) error {
	return l.Debit(pool, l.RedemptionThreshold)
}

// RollGrant 融合失败时补偿的碎片数量，[GrantMin, GrantMax] 均匀分布
func (l Ledger) RollGrant(rnd sampler.RandomSource) int64 {
	return sampler.IntRange(rnd, l.GrantMin, l.GrantMax)
}
