package model

import "time"

// Player 玩家账户，对应 players 表
type Player struct {
	ID    int64 `db:"id" json:"id"`
	Level int   `db:"level" json:"level"`

	// 经济系统
	Grace int64 `db:"grace" json:"grace"` // 召唤货币
	Rikis int64 `db:"rikis" json:"rikis"` // 融合货币

	// 保底计数，取值 [0, threshold)
	PityCounter int `db:"pity_counter" json:"pity_counter"`

	// 统计
	TotalSummons      int64 `db:"total_summons" json:"total_summons"`
	TotalFusions      int64 `db:"total_fusions" json:"total_fusions"`
	SuccessfulFusions int64 `db:"successful_fusions" json:"successful_fusions"`
	FailedFusions     int64 `db:"failed_fusions" json:"failed_fusions"`
	HighestTier       int   `db:"highest_tier" json:"highest_tier"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewPlayer 创建 1 级新玩家
func NewPlayer(id int64) *Player {
	now := time.Now().UTC()
	return &Player{
		ID:        id,
		Level:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ObserveTier 记录获得的品阶，刷新历史最高品阶
func (p *Player) ObserveTier(tier int) {
	if tier > p.HighestTier {
		p.HighestTier = tier
	}
}
