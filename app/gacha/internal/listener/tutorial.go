package listener

import (
	"context"
	"strconv"
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/event"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// 新手引导步骤
const (
	StepFirstSummon = "first_summon"
	StepFirstFusion = "first_fusion"
)

// flagStore 引导标记所需的 Redis 能力
type flagStore interface {
	Key(parts ...string) string
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
}

// TutorialTracker 记录玩家首次抽取和首次融合，只写一次
type TutorialTracker struct {
	store  flagStore
	logger logger.Logger
}

var _ event.Subscriber = (*TutorialTracker)(nil)

// NewTutorialTracker 创建引导订阅方
func NewTutorialTracker(store flagStore, l logger.Logger) *TutorialTracker {
	return &TutorialTracker{
		store:  store,
		logger: l.Named("listener.tutorial"),
	}
}

func (t *TutorialTracker) Name() string {
	return "tutorial"
}

// Key 玩家某个引导步骤的标记键
func (t *TutorialTracker) Key(playerID int64, step string) string {
	return t.store.Key("tutorial", strconv.FormatInt(playerID, 10), step)
}

func (t *TutorialTracker) Handle(ctx context.Context, evt event.Event) error {
	var step string
	switch evt.Type {
	case event.TypeSummonCompleted:
		step = StepFirstSummon
	case event.TypeFusionCompleted:
		step = StepFirstFusion
	default:
		return nil
	}

	first, err := t.store.SetNX(ctx, t.Key(evt.PlayerID, step), evt.ID, 0)
	if err != nil {
		return err
	}
	if first {
		t.logger.Info("tutorial step completed", "player_id", evt.PlayerID, "step", step, "event_id", evt.ID)
	}
	return nil
}
