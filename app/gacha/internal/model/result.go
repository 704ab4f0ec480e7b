package model

// SummonResult 单次抽取结果
type SummonResult struct {
	MaidenID int64  `json:"maiden_id"`
	Name     string `json:"name"`
	Tier     int    `json:"tier"`
	WasPity  bool   `json:"was_pity"`
	// PityReason 保底选择路径：unowned / next_tier / duplicate
	PityReason string `json:"pity_reason,omitempty"`
}

// SummonOutcome 一次召唤请求（单抽或批量）的完整结果
type SummonOutcome struct {
	PlayerID       int64          `json:"player_id"`
	Results        []SummonResult `json:"results"`
	GraceSpent     int64          `json:"grace_spent"`
	GraceRemaining int64          `json:"grace_remaining"`
	PityCounter    int            `json:"pity_counter"`
	TransactionID  int64          `json:"transaction_id,string"`
}

// FusionOutcome 融合结果类型
type FusionOutcome string

const (
	FusionSuccess  FusionOutcome = "success"
	FusionFailed   FusionOutcome = "failed"
	FusionRedeemed FusionOutcome = "redeemed"
)

// FusionRequest 融合请求
type FusionRequest struct {
	PlayerID  int64
	MaidenID  int64
	Quantity  int64
	UseShards bool
}

// FusionResult 融合结果
// GrantedMaidenID 仅在成功/兑换时非零，ShardsGranted 仅在失败时非零
type FusionResult struct {
	Outcome         FusionOutcome `json:"outcome"`
	SourceTier      int           `json:"source_tier"`
	GrantedMaidenID int64         `json:"granted_maiden_id,omitempty"`
	GrantedTier     int           `json:"granted_tier,omitempty"`
	ShardsGranted   int64         `json:"shards_granted,omitempty"`
	ShardBalance    int64         `json:"shard_balance"`
	RikisSpent      int64         `json:"rikis_spent"`
	TransactionID   int64         `json:"transaction_id,string"`
}
