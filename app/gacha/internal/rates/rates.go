package rates

import (
	"math"
	"sort"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
)

// Config 概率分布参数
type Config struct {
	TierUnlockLevels map[int]int
	DecayFactor      float64
	HighestTierBase  float64
}

// FromTunables 从全局参数中提取概率分布参数
func FromTunables(t *gameconfig.Tunables) Config {
	return Config{
		TierUnlockLevels: t.TierUnlockLevels,
		DecayFactor:      t.DecayFactor,
		HighestTierBase:  t.HighestTierBase,
	}
}

// Entry 单个品阶的权重与归一化概率
type Entry struct {
	Tier   int     `json:"tier"`
	Weight float64 `json:"weight"`
	Rate   float64 `json:"rate"`
}

// Table 某等级下的品阶概率表，按品阶升序，只包含已解锁品阶
type Table struct {
	Level   int     `json:"level"`
	Entries []Entry `json:"entries"`
}

// Calculate 计算指定等级的品阶概率
// 最新解锁品阶权重为 HighestTierBase，每往下一个品阶乘以 DecayFactor，最后归一化
func Calculate(level int, cfg Config) (*Table, error) {
	if level < 1 {
		return nil, errcode.Validation("level", "must be >= 1, got %d", level)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	unlocked := make([]int, 0, len(cfg.TierUnlockLevels))
	for tier, minLevel := range cfg.TierUnlockLevels {
		if minLevel <= level {
			unlocked = append(unlocked, tier)
		}
	}
	sort.Ints(unlocked)
	newest := unlocked[len(unlocked)-1]

	entries := make([]Entry, len(unlocked))
	var total float64
	for i, tier := range unlocked {
		w := cfg.HighestTierBase * math.Pow(cfg.DecayFactor, float64(newest-tier))
		entries[i] = Entry{Tier: tier, Weight: w}
		total += w
	}
	for i := range entries {
		entries[i].Rate = entries[i].Weight / total
	}

	return &Table{Level: level, Entries: entries}, nil
}

func (c Config) validate() error {
	if c.HighestTierBase <= 0 || c.HighestTierBase > 100 || math.IsNaN(c.HighestTierBase) {
		return errcode.Configuration("highest_tier_base", "must be in (0,100], got %v", c.HighestTierBase)
	}
	if c.DecayFactor <= 0 || c.DecayFactor >= 1 || math.IsNaN(c.DecayFactor) {
		return errcode.Configuration("decay_factor", "must be in (0,1), got %v", c.DecayFactor)
	}
	if lvl, ok := c.TierUnlockLevels[1]; !ok || lvl != 1 {
		return errcode.Configuration("tier_unlock_levels", "tier 1 must unlock at level 1")
	}
	return nil
}

// Tiers 已解锁品阶，升序
func (t *Table) Tiers() []int {
	tiers := make([]int, len(t.Entries))
	for i, e := range t.Entries {
		tiers[i] = e.Tier
	}
	return tiers
}

// Newest 最高已解锁品阶
func (t *Table) Newest() int {
	return t.Entries[len(t.Entries)-1].Tier
}

// Rate 指定品阶的概率，未解锁返回 0
func (t *Table) Rate(tier int) float64 {
	for _, e := range t.Entries {
		if e.Tier == tier {
			return e.Rate
		}
	}
	return 0
}

// Percentages 品阶 -> 百分比，用于展示
func (t *Table) Percentages() map[int]float64 {
	out := make(map[int]float64, len(t.Entries))
	for _, e := range t.Entries {
		out[e.Tier] = e.Rate * 100
	}
	return out
}
