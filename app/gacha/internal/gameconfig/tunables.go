package gameconfig

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/pkg/config"
)

// MaxTier 最高品阶，该品阶无法再融合
const MaxTier = 12

// Tunables 抽卡与融合的全部可调参数，对应配置文件 gacha 段
type Tunables struct {
	// TierUnlockLevels 品阶 -> 解锁所需玩家等级，品阶 1 必须在 1 级解锁
	TierUnlockLevels map[int]int `mapstructure:"tier_unlock_levels" json:"tier_unlock_levels" yaml:"tier_unlock_levels"`
	// DecayFactor 相邻品阶的权重衰减系数，取值 (0,1)
	DecayFactor float64 `mapstructure:"decay_factor" json:"decay_factor" yaml:"decay_factor"`
	// HighestTierBase 最新解锁品阶的原始权重，取值 (0,100]
	HighestTierBase float64 `mapstructure:"highest_tier_base" json:"highest_tier_base" yaml:"highest_tier_base"`

	Summon SummonConfig `mapstructure:"summon" json:"summon" yaml:"summon"`
	Shard  ShardConfig  `mapstructure:"shard" json:"shard" yaml:"shard"`
	Fusion FusionConfig `mapstructure:"fusion" json:"fusion" yaml:"fusion"`
}

// SummonConfig 召唤参数
type SummonConfig struct {
	GraceCost     int64 `mapstructure:"grace_cost" json:"grace_cost" yaml:"grace_cost"`
	PityThreshold int   `mapstructure:"pity_threshold" json:"pity_threshold" yaml:"pity_threshold"`
	BatchSizes    []int `mapstructure:"batch_sizes" json:"batch_sizes" yaml:"batch_sizes"`
}

// ShardConfig 碎片参数
type ShardConfig struct {
	RedemptionThreshold int64 `mapstructure:"redemption_threshold" json:"redemption_threshold" yaml:"redemption_threshold"`
	GrantMin            int64 `mapstructure:"grant_min" json:"grant_min" yaml:"grant_min"`
	GrantMax            int64 `mapstructure:"grant_max" json:"grant_max" yaml:"grant_max"`
}

// FusionConfig 融合参数
type FusionConfig struct {
	// SuccessRates 品阶 -> 成功率百分比，需覆盖 1..MaxTier-1 且随品阶单调不增
	SuccessRates map[int]float64 `mapstructure:"success_rates" json:"success_rates" yaml:"success_rates"`
	// RateBonus 活动加成百分比，叠加后封顶 100
	RateBonus float64          `mapstructure:"rate_bonus" json:"rate_bonus" yaml:"rate_bonus"`
	Cost      FusionCostConfig `mapstructure:"cost" json:"cost" yaml:"cost"`
}

// FusionCostConfig 融合 rikis 费用：min(Base * Multiplier^(tier-1), Max)
type FusionCostConfig struct {
	Disabled   bool    `mapstructure:"disabled" json:"disabled" yaml:"disabled"`
	Base       int64   `mapstructure:"base" json:"base" yaml:"base"`
	Multiplier float64 `mapstructure:"multiplier" json:"multiplier" yaml:"multiplier"`
	Max        int64   `mapstructure:"max" json:"max" yaml:"max"`
}

// Default 默认参数
func Default() *Tunables {
	return &Tunables{
		TierUnlockLevels: map[int]int{
			1: 1, 2: 1, 3: 1, 4: 10, 5: 20, 6: 30,
			7: 40, 8: 50, 9: 60, 10: 70, 11: 80, 12: 90,
		},
		DecayFactor:     0.75,
		HighestTierBase: 22,
		Summon: SummonConfig{
			GraceCost:     5,
			PityThreshold: 25,
			BatchSizes:    []int{1, 5, 10},
		},
		Shard: ShardConfig{
			RedemptionThreshold: 100,
			GrantMin:            1,
			GrantMax:            12,
		},
		Fusion: FusionConfig{
			SuccessRates: map[int]float64{
				1: 70, 2: 65, 3: 60, 4: 55, 5: 50, 6: 45,
				7: 40, 8: 35, 9: 30, 10: 25, 11: 20,
			},
			Cost: FusionCostConfig{
				Base:       1000,
				Multiplier: 2.5,
				Max:        10_000_000,
			},
		},
	}
}

// Decode 在默认参数之上解码配置文件的 key 段，文件中未出现的字段保持默认值
// map 与切片字段一旦出现即整体替换，零值照常生效
func Decode(mgr config.Manager, key string) (*Tunables, error) {
	t := Default()
	if !mgr.IsSet(key) {
		return t, nil
	}
	if mgr.IsSet(key + ".tier_unlock_levels") {
		t.TierUnlockLevels = nil
	}
	if mgr.IsSet(key + ".summon.batch_sizes") {
		t.Summon.BatchSizes = nil
	}
	if mgr.IsSet(key + ".fusion.success_rates") {
		t.Fusion.SuccessRates = nil
	}
	if err := mgr.UnmarshalKey(key, t); err != nil {
		return nil, fmt.Errorf("failed to decode gacha config: %w", err)
	}
	return t, nil
}

// Resolve 复制并校验参数，nil 时使用默认参数
// 不再补齐零值字段，缺失或越界一律返回 ConfigurationError
func Resolve(src *Tunables) (*Tunables, error) {
	if src == nil {
		return Default(), nil
	}
	t := src.Clone()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Clone 深拷贝，快照之间不共享 map 与切片
func (t *Tunables) Clone() *Tunables {
	c := *t
	c.TierUnlockLevels = maps.Clone(t.TierUnlockLevels)
	c.Summon.BatchSizes = slices.Clone(t.Summon.BatchSizes)
	c.Fusion.SuccessRates = maps.Clone(t.Fusion.SuccessRates)
	return &c
}

// Validate 校验参数，任何缺失或越界都返回 ConfigurationError
func (t *Tunables) Validate() error {
	if len(t.TierUnlockLevels) == 0 {
		return errcode.Configuration("tier_unlock_levels", "must not be empty")
	}
	if lvl, ok := t.TierUnlockLevels[1]; !ok || lvl != 1 {
		return errcode.Configuration("tier_unlock_levels", "tier 1 must unlock at level 1")
	}
	tiers := t.Tiers()
	prevLevel := 0
	for _, tier := range tiers {
		if tier < 1 || tier > MaxTier {
			return errcode.Configuration("tier_unlock_levels", "tier %d out of range [1,%d]", tier, MaxTier)
		}
		lvl := t.TierUnlockLevels[tier]
		if lvl < 1 {
			return errcode.Configuration("tier_unlock_levels", "tier %d unlock level must be >= 1, got %d", tier, lvl)
		}
		if lvl < prevLevel {
			return errcode.Configuration("tier_unlock_levels", "tier %d unlocks before a lower tier", tier)
		}
		prevLevel = lvl
	}

	if t.DecayFactor <= 0 || t.DecayFactor >= 1 || math.IsNaN(t.DecayFactor) {
		return errcode.Configuration("decay_factor", "must be in (0,1), got %v", t.DecayFactor)
	}
	if t.HighestTierBase <= 0 || t.HighestTierBase > 100 || math.IsNaN(t.HighestTierBase) {
		return errcode.Configuration("highest_tier_base", "must be in (0,100], got %v", t.HighestTierBase)
	}

	if t.Summon.GraceCost < 0 {
		return errcode.Configuration("summon.grace_cost", "must be >= 0, got %d", t.Summon.GraceCost)
	}
	if t.Summon.PityThreshold < 1 {
		return errcode.Configuration("summon.pity_threshold", "must be >= 1, got %d", t.Summon.PityThreshold)
	}
	if len(t.Summon.BatchSizes) == 0 {
		return errcode.Configuration("summon.batch_sizes", "must not be empty")
	}
	for _, n := range t.Summon.BatchSizes {
		if n < 1 {
			return errcode.Configuration("summon.batch_sizes", "batch size must be >= 1, got %d", n)
		}
	}

	if t.Shard.RedemptionThreshold <= 0 {
		return errcode.Configuration("shard.redemption_threshold", "must be > 0, got %d", t.Shard.RedemptionThreshold)
	}
	if t.Shard.GrantMin < 1 || t.Shard.GrantMax < t.Shard.GrantMin {
		return errcode.Configuration("shard.grant_min", "invalid grant range [%d,%d]", t.Shard.GrantMin, t.Shard.GrantMax)
	}

	prevRate := 100.0
	for tier := 1; tier < MaxTier; tier++ {
		rate, ok := t.Fusion.SuccessRates[tier]
		if !ok {
			return errcode.Configuration("fusion.success_rates", "missing rate for tier %d", tier)
		}
		if rate < 0 || rate > 100 {
			return errcode.Configuration("fusion.success_rates", "tier %d rate %v out of [0,100]", tier, rate)
		}
		if rate > prevRate {
			return errcode.Configuration("fusion.success_rates", "tier %d rate %v exceeds lower tier rate %v", tier, rate, prevRate)
		}
		prevRate = rate
	}
	if t.Fusion.RateBonus < 0 || t.Fusion.RateBonus > 100 {
		return errcode.Configuration("fusion.rate_bonus", "must be in [0,100], got %v", t.Fusion.RateBonus)
	}
	if c := t.Fusion.Cost; !c.Disabled {
		if c.Base < 0 || c.Multiplier < 1 || c.Max < c.Base {
			return errcode.Configuration("fusion.cost", "invalid cost curve base=%d multiplier=%v max=%d", c.Base, c.Multiplier, c.Max)
		}
	}

	return nil
}

// Tiers 配置中出现的全部品阶，升序
func (t *Tunables) Tiers() []int {
	tiers := make([]int, 0, len(t.TierUnlockLevels))
	for tier := range t.TierUnlockLevels {
		tiers = append(tiers, tier)
	}
	sort.Ints(tiers)
	return tiers
}

// UnlockedTiers 指定等级下已解锁的品阶，升序
func (t *Tunables) UnlockedTiers(level int) []int {
	var tiers []int
	for _, tier := range t.Tiers() {
		if t.TierUnlockLevels[tier] <= level {
			tiers = append(tiers, tier)
		}
	}
	return tiers
}

// IsBatchSize 是否为允许的批量召唤次数
func (t *Tunables) IsBatchSize(n int) bool {
	return slices.Contains(t.Summon.BatchSizes, n)
}

// FusionCost 融合指定品阶需要的 rikis
func (t *Tunables) FusionCost(tier int) int64 {
	c := t.Fusion.Cost
	if c.Disabled || c.Base == 0 {
		return 0
	}
	cost := float64(c.Base) * math.Pow(c.Multiplier, float64(tier-1))
	if cost >= float64(c.Max) {
		return c.Max
	}
	return int64(cost)
}

// FusionSuccessRate 指定品阶的最终成功率百分比（含活动加成，封顶 100）
func (t *Tunables) FusionSuccessRate(tier int) float64 {
	return math.Min(100, t.Fusion.SuccessRates[tier]+t.Fusion.RateBonus)
}
