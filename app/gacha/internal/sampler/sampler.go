package sampler

import (
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/rates"
)

// ItemLookup 按品阶查询可抽取的角色
type ItemLookup interface {
	ByTier(tier int) []model.MaidenDefinition
}

// Draw 一次加权抽取的结果
type Draw struct {
	Tier   int
	Maiden model.MaidenDefinition
}

// Sample 先按概率表选品阶，再在品阶内均匀选择角色，不修改任何状态
func Sample(table *rates.Table, items ItemLookup, rnd RandomSource) (Draw, error) {
	tier := SelectTier(table, rnd.Float64())
	candidates := items.ByTier(tier)
	if len(candidates) == 0 {
		return Draw{}, errcode.Configuration("roster", "no maiden defined for unlocked tier %d", tier)
	}
	return Draw{Tier: tier, Maiden: Pick(candidates, rnd)}, nil
}

// SelectTier 按品阶升序累加概率，返回第一个累计值 >= r 的品阶
// 浮点误差导致 r 超过总和时返回最后一个品阶
func SelectTier(table *rates.Table, r float64) int {
	var cumulative float64
	for _, e := range table.Entries {
		cumulative += e.Rate
		if cumulative >= r {
			return e.Tier
		}
	}
	return table.Newest()
}

// Pick 均匀选择一个元素，items 不能为空
func Pick[T any](items []T, rnd RandomSource) T {
	return items[rnd.IntN(len(items))]
}
