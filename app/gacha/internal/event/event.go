package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
)

// Type 事件类型
type Type string

const (
	TypeSummonCompleted Type = "summon_completed"
	TypeFusionCompleted Type = "fusion_completed"
)

// Event 核心操作提交后发布的结果事件，订阅方只读
type Event struct {
	ID            string           `json:"id"`
	Type          Type             `json:"type"`
	PlayerID      int64            `json:"player_id"`
	TransactionID int64            `json:"transaction_id,string"`
	OccurredAt    time.Time        `json:"occurred_at"`
	Summon        *SummonCompleted `json:"summon,omitempty"`
	Fusion        *FusionCompleted `json:"fusion,omitempty"`
}

// SummonCompleted 一次单抽或十连的结果
type SummonCompleted struct {
	Results        []model.SummonResult `json:"results"`
	GraceSpent     int64                `json:"grace_spent"`
	GraceRemaining int64                `json:"grace_remaining"`
}

// FusionCompleted 一次融合的结果
type FusionCompleted struct {
	MaidenID int64              `json:"maiden_id"`
	Quantity int64              `json:"quantity"`
	Result   model.FusionResult `json:"result"`
}

// NewSummonCompleted 根据抽取结果构建事件
func NewSummonCompleted(out *model.SummonOutcome) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          TypeSummonCompleted,
		PlayerID:      out.PlayerID,
		TransactionID: out.TransactionID,
		OccurredAt:    time.Now().UTC(),
		Summon: &SummonCompleted{
			Results:        out.Results,
			GraceSpent:     out.GraceSpent,
			GraceRemaining: out.GraceRemaining,
		},
	}
}

// NewFusionCompleted 根据融合结果构建事件
func NewFusionCompleted(req model.FusionRequest, res *model.FusionResult) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          TypeFusionCompleted,
		PlayerID:      req.PlayerID,
		TransactionID: res.TransactionID,
		OccurredAt:    time.Now().UTC(),
		Fusion: &FusionCompleted{
			MaidenID: req.MaidenID,
			Quantity: req.Quantity,
			Result:   *res,
		},
	}
}

// WasPity 本次抽取是否包含保底
func (c *SummonCompleted) WasPity() bool {
	for _, r := range c.Results {
		if r.WasPity {
			return true
		}
	}
	return false
}
