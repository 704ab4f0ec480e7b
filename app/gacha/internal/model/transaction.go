package model

import (
	"encoding/json"
	"time"
)

// TransactionType 流水类型
type TransactionType string

const (
	TxSummon           TransactionType = "summon"
	TxSummonBatch      TransactionType = "summon_batch"
	TxFusionSuccess    TransactionType = "fusion_success"
	TxFusionFailed     TransactionType = "fusion_failed"
	TxFusionRedeemed   TransactionType = "fusion_redeemed"
	TxPlayerRegistered TransactionType = "player_registered"
)

// TransactionRecord 只追加的流水记录，对应 transactions 表
// 与其描述的状态变更在同一事务内写入
type TransactionRecord struct {
	ID        int64           `db:"id" json:"id,string"`
	PlayerID  int64           `db:"player_id" json:"player_id"`
	Type      TransactionType `db:"type" json:"type"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	Context   string          `db:"context" json:"context,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
