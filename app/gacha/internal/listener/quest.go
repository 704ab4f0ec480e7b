package listener

import (
	"context"
	"strconv"
	"time"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/event"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// 每日任务进度字段
const (
	FieldSummons       = "summons"
	FieldPitySummons   = "pity_summons"
	FieldFusions       = "fusions"
	FieldFusionSuccess = "fusion_success"
	FieldShardRedeemed = "shard_redeemed"
	FieldShardsEarned  = "shards_earned"
)

const (
	questCounterTTL = 48 * time.Hour
	questDateLayout = "20060102"
)

// counterStore 任务计数所需的 Redis 能力
type counterStore interface {
	Key(parts ...string) string
	HIncrByWithTTL(ctx context.Context, key string, incr map[string]int64, ttl time.Duration) error
}

// QuestTracker 按玩家按天累计抽取和融合次数，供每日任务读取
type QuestTracker struct {
	store  counterStore
	logger logger.Logger
	now    func() time.Time
}

var _ event.Subscriber = (*QuestTracker)(nil)

// NewQuestTracker 创建任务进度订阅方
func NewQuestTracker(store counterStore, l logger.Logger) *QuestTracker {
	return &QuestTracker{
		store:  store,
		logger: l.Named("listener.quest"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (q *QuestTracker) Name() string {
	return "quest"
}

// Key 玩家某天的进度键
func (q *QuestTracker) Key(playerID int64, day time.Time) string {
	return q.store.Key("quest", strconv.FormatInt(playerID, 10), day.Format(questDateLayout))
}

func (q *QuestTracker) Handle(ctx context.Context, evt event.Event) error {
	incr := questIncrements(evt)
	if len(incr) == 0 {
		return nil
	}
	key := q.Key(evt.PlayerID, q.now())
	if err := q.store.HIncrByWithTTL(ctx, key, incr, questCounterTTL); err != nil {
		return err
	}
	q.logger.Debug("quest progress updated", "player_id", evt.PlayerID, "key", key, "incr", incr)
	return nil
}

func questIncrements(evt event.Event) map[string]int64 {
	incr := make(map[string]int64)
	switch evt.Type {
	case event.TypeSummonCompleted:
		if evt.Summon == nil {
			return nil
		}
		incr[FieldSummons] = int64(len(evt.Summon.Results))
		var pity int64
		for _, r := range evt.Summon.Results {
			if r.WasPity {
				pity++
			}
		}
		if pity > 0 {
			incr[FieldPitySummons] = pity
		}
	case event.TypeFusionCompleted:
		if evt.Fusion == nil {
			return nil
		}
		incr[FieldFusions] = 1
		switch evt.Fusion.Result.Outcome {
		case model.FusionSuccess:
			incr[FieldFusionSuccess] = 1
		case model.FusionRedeemed:
			incr[FieldFusionSuccess] = 1
			incr[FieldShardRedeemed] = 1
		case model.FusionFailed:
			incr[FieldShardsEarned] = evt.Fusion.Result.ShardsGranted
		}
	default:
		return nil
	}
	return incr
}
