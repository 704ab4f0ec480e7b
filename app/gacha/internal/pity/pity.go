package pity

import (
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/sampler"
)

// Reason 保底选择路径
type Reason string

const (
	ReasonUnowned   Reason = "unowned"
	ReasonNextTier  Reason = "next_tier"
	ReasonDuplicate Reason = "duplicate"
)

// Fallback 标记保底是否退化为终极兜底策略
type Fallback string

const (
	FallbackNone Fallback = ""
	// FallbackDuplicate 已解锁品阶全部拥有且图鉴中没有更高品阶，发放最高品阶的重复角色
	FallbackDuplicate Fallback = "duplicate"
)

// Tracker 保底计数状态机
type Tracker struct {
	Threshold int
}

// Advance 完成一次抽取后的计数迁移
// 自增后达到阈值的这一抽为保底抽，计数归零；否则返回自增后的计数
// 阈值热更新调小后计数可能已越过阈值，同样按保底处理
func (t Tracker) Advance(counter int) (next int, forced bool) {
	next = counter + 1
	if next >= t.Threshold {
		return 0, true
	}
	return next, false
}

// Roster 保底选择所需的图鉴视图
type Roster interface {
	ByTier(tier int) []model.MaidenDefinition
	Tiers() []int
}

// Selection 保底选择结果
type Selection struct {
	Maiden   model.MaidenDefinition
	Reason   Reason
	Fallback Fallback
}

// Select 保底选择：
//  1. 已解锁品阶中尚未拥有的角色里均匀选择
//  2. 全部拥有时，选择高于已解锁最高品阶的最低图鉴品阶
//  3. 图鉴中不存在更高品阶时，发放不高于已解锁最高品阶的最高图鉴品阶的重复角色
func Select(unlocked []int, roster Roster, owned map[int64]int64, rnd sampler.RandomSource) (Selection, error) {
	if len(unlocked) == 0 {
		return Selection{}, errcode.Configuration("tier_unlock_levels", "no unlocked tier for pity selection")
	}

	var candidates []model.MaidenDefinition
	maxUnlocked := 0
	for _, tier := range unlocked {
		if tier > maxUnlocked {
			maxUnlocked = tier
		}
		for _, d := range roster.ByTier(tier) {
			if owned[d.ID] == 0 {
				candidates = append(candidates, d)
			}
		}
	}
	if len(candidates) > 0 {
		return Selection{Maiden: sampler.Pick(candidates, rnd), Reason: ReasonUnowned}, nil
	}

	tiers := roster.Tiers()
	for _, tier := range tiers {
		if tier > maxUnlocked {
			if items := roster.ByTier(tier); len(items) > 0 {
				return Selection{Maiden: sampler.Pick(items, rnd), Reason: ReasonNextTier}, nil
			}
		}
	}

	for i := len(tiers) - 1; i >= 0; i-- {
		if tiers[i] <= maxUnlocked {
			if items := roster.ByTier(tiers[i]); len(items) > 0 {
				return Selection{
					Maiden:   sampler.Pick(items, rnd),
					Reason:   ReasonDuplicate,
					Fallback: FallbackDuplicate,
				}, nil
			}
		}
	}

	return Selection{}, errcode.Configuration("roster", "roster has no maiden for pity selection")
}
