package model

import "sort"

// Roster 角色图鉴的只读索引，按 id 与品阶检索
type Roster struct {
	byID   map[int64]MaidenDefinition
	byTier map[int][]MaidenDefinition
	tiers  []int
}

// NewRoster 建立索引，同品阶内按 id 升序保证抽取结果可复现
func NewRoster(defs []MaidenDefinition) *Roster {
	r := &Roster{
		byID:   make(map[int64]MaidenDefinition, len(defs)),
		byTier: make(map[int][]MaidenDefinition),
	}
	for _, d := range defs {
		r.byID[d.ID] = d
		r.byTier[d.Tier] = append(r.byTier[d.Tier], d)
	}
	for tier, items := range r.byTier {
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		r.tiers = append(r.tiers, tier)
	}
	sort.Ints(r.tiers)
	return r
}

// Get 按 id 查找定义
func (r *Roster) Get(id int64) (MaidenDefinition, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// ByTier 指定品阶的全部定义，按 id 升序
func (r *Roster) ByTier(tier int) []MaidenDefinition {
	return r.byTier[tier]
}

// Tiers 图鉴中存在的品阶，升序
func (r *Roster) Tiers() []int {
	return r.tiers
}

// HasTier 图鉴中是否存在该品阶
func (r *Roster) HasTier(tier int) bool {
	return len(r.byTier[tier]) > 0
}

// Len 定义总数
func (r *Roster) Len() int {
	return len(r.byID)
}
