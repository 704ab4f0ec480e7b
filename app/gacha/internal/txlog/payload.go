package txlog

// DrawEntry 单次抽取明细
type DrawEntry struct {
	MaidenID   int64  `json:"maiden_id"`
	Tier       int    `json:"tier"`
	WasPity    bool   `json:"was_pity"`
	PityReason string `json:"pity_reason,omitempty"`
}

// SummonPayload summon / summon_batch 流水内容
type SummonPayload struct {
	Count       int         `json:"count"`
	GraceCost   int64       `json:"grace_cost"`
	Draws       []DrawEntry `json:"draws"`
	PityCounter int         `json:"pity_counter"`
	Level       int         `json:"level"`
}

// RegistrationPayload player_registered 流水内容
type RegistrationPayload struct {
	Level         int   `json:"level"`
	StartingGrace int64 `json:"starting_grace"`
	StartingRikis int64 `json:"starting_rikis"`
}

// FusionPayload fusion_* 流水内容
type FusionPayload struct {
	MaidenID        int64   `json:"maiden_id"`
	Tier            int     `json:"tier"`
	Quantity        int64   `json:"quantity"`
	SuccessRate     float64 `json:"success_rate,omitempty"`
	GrantedMaidenID int64   `json:"granted_maiden_id,omitempty"`
	ShardsGranted   int64   `json:"shards_granted,omitempty"`
	ShardsSpent     int64   `json:"shards_spent,omitempty"`
	ShardBalance    int64   `json:"shard_balance"`
	RikisSpent      int64   `json:"rikis_spent"`
}
