package model

import "time"

// MaidenDefinition 角色定义（图鉴），对应 maiden_definitions 表
// 品阶在定义创建后不可变
type MaidenDefinition struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Tier    int    `db:"tier" json:"tier"`
	Element string `db:"element" json:"element"`
	BaseAtk int64  `db:"base_atk" json:"base_atk"`
	BaseDef int64  `db:"base_def" json:"base_def"`
}

// 获取来源
const (
	AcquiredFromSummon     = "summon"
	AcquiredFromPitySummon = "pity_summon"
	AcquiredFromFusion     = "fusion"
)

// InventoryEntry 玩家持有的角色，对应 player_maidens 表
// 数量降为 0 时删除该行
type InventoryEntry struct {
	PlayerID     int64     `db:"player_id" json:"player_id"`
	MaidenID     int64     `db:"maiden_id" json:"maiden_id"`
	Tier         int       `db:"tier" json:"tier"`
	Quantity     int64     `db:"quantity" json:"quantity"`
	AcquiredFrom string    `db:"acquired_from" json:"acquired_from"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ShardPool 玩家某品阶的融合碎片余额，对应 shard_pools 表
// 首次入账时创建，不会删除
type ShardPool struct {
	PlayerID  int64     `db:"player_id" json:"player_id"`
	Tier      int       `db:"tier" json:"tier"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
