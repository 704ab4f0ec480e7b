package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/event"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/lock"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/sampler"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/shard"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/txlog"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/otel"
)

// MinFusionQuantity 一次融合最少消耗的数量
const MinFusionQuantity = 2

// FusionService 融合：消耗同一角色若干个，按成功率升到下一品阶，失败补偿碎片
type FusionService struct {
	logger    logger.Logger
	store     repository.Store
	holder    *gameconfig.Holder
	roster    *RosterService
	txlog     *txlog.Log
	locker    lock.Locker
	limiter   *PlayerLimiter
	publisher event.Publisher
	metrics   *metrics.GachaMetrics
	rnd       sampler.RandomSource
}

func NewFusionService(
	l logger.Logger,
	store repository.Store,
	holder *gameconfig.Holder,
	roster *RosterService,
	log *txlog.Log,
	locker lock.Locker,
	limiter *PlayerLimiter,
	publisher event.Publisher,
	m *metrics.GachaMetrics,
	rnd sampler.RandomSource,
) *FusionService {
	return &FusionService{
		logger:    l.Named("service.fusion"),
		store:     store,
		holder:    holder,
		roster:    roster,
		txlog:     log,
		locker:    locker,
		limiter:   limiter,
		publisher: publisher,
		metrics:   m,
		rnd:       rnd,
	}
}

// ExecuteFusion 执行一次融合
// 成功、失败、兑换三条路径都会消耗 req.Quantity 个源角色
func (s *FusionService) ExecuteFusion(ctx context.Context, req model.FusionRequest) (res *model.FusionResult, err error) {
	start := time.Now()
	ctx, span := otel.StartSpan(ctx, tracerName, "FusionService.ExecuteFusion",
		otel.Int64("player_id", req.PlayerID),
		otel.Int64("maiden_id", req.MaidenID),
		otel.Int64("quantity", req.Quantity),
		otel.Bool("use_shards", req.UseShards),
	)
	defer func() {
		otel.EndSpan(span, err)
		s.metrics.RecordOperation("fusion", err, time.Since(start).Seconds())
	}()

	// 1. 加锁前的参数校验
	if req.PlayerID <= 0 {
		return nil, errcode.Validation("player_id", "must be positive, got %d", req.PlayerID)
	}
	if req.Quantity < MinFusionQuantity {
		return nil, errcode.Validation("quantity", "fusion requires at least %d maidens, got %d", MinFusionQuantity, req.Quantity)
	}
	if err := s.limiter.Allow(req.PlayerID); err != nil {
		return nil, err
	}

	t := s.holder.Load()
	roster, err := s.roster.Roster(ctx)
	if err != nil {
		return nil, err
	}
	def, ok := roster.Get(req.MaidenID)
	if !ok {
		return nil, errors.Mark(errcode.Validation("maiden_id", "unknown maiden %d", req.MaidenID), errcode.ErrMaidenNotFound)
	}
	if def.Tier >= gameconfig.MaxTier {
		return nil, errcode.Validation("maiden_id", "maiden %d is already at max tier %d", def.ID, def.Tier)
	}
	targets := roster.ByTier(def.Tier + 1)
	if len(targets) == 0 {
		return nil, errcode.Configuration("roster", "no maiden defined for tier %d", def.Tier+1)
	}

	release, err := s.locker.Acquire(ctx, req.PlayerID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		var txErr error
		res, txErr = s.fusionTx(ctx, tx, t, def, targets, req)
		return txErr
	})
	if err != nil {
		s.logger.WarnContext(ctx, "fusion failed",
			"player_id", req.PlayerID,
			"maiden_id", req.MaidenID,
			"quantity", req.Quantity,
			"error", err,
		)
		return nil, err
	}

	s.metrics.RecordFusion(string(res.Outcome))
	s.publisher.Publish(ctx, event.NewFusionCompleted(req, res))
	s.logger.InfoContext(ctx, "fusion completed",
		"player_id", req.PlayerID,
		"maiden_id", req.MaidenID,
		"tier", def.Tier,
		"outcome", res.Outcome,
		"granted_maiden_id", res.GrantedMaidenID,
		"shards_granted", res.ShardsGranted,
		"transaction_id", res.TransactionID,
	)
	return res, nil
}

func (s *FusionService) fusionTx(
	ctx context.Context,
	tx repository.Tx,
	t *gameconfig.Tunables,
	def model.MaidenDefinition,
	targets []model.MaidenDefinition,
	req model.FusionRequest,
) (*model.FusionResult, error) {
	playerID := req.PlayerID

	// 2. 先选定产出角色，才能按 maiden id 升序一次锁定源与产出两行
	target := sampler.Pick(targets, s.rnd)

	first, second := def.ID, target.ID
	if second < first {
		first, second = second, first
	}
	for _, ref := range []repository.RowRef{
		repository.PlayerRow(playerID),
		repository.InventoryRow(playerID, first),
		repository.InventoryRow(playerID, second),
		repository.ShardPoolRow(playerID, def.Tier),
	} {
		if err := tx.LockForUpdate(ctx, ref); err != nil {
			return nil, err
		}
	}

	// 3. 锁内校验持有数量与融合费用
	p, err := tx.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	src, err := tx.Inventory(ctx, playerID, def.ID)
	if err != nil {
		return nil, err
	}
	if src.Quantity < req.Quantity {
		return nil, errcode.InsufficientMaidens(req.Quantity, src.Quantity)
	}
	cost := t.FusionCost(def.Tier)
	if p.Rikis < cost {
		return nil, errcode.InsufficientResources("rikis", cost, p.Rikis)
	}

	pool, err := tx.ShardPool(ctx, playerID, def.Tier)
	if err != nil {
		return nil, err
	}

	// 4. 判定结果：碎片兑换必定成功，否则按成功率抽取，失败补偿碎片
	ledger := shard.NewLedger(t.Shard)
	rate := t.FusionSuccessRate(def.Tier)
	result := &model.FusionResult{SourceTier: def.Tier, RikisSpent: cost}
	payload := txlog.FusionPayload{
		MaidenID:   def.ID,
		Tier:       def.Tier,
		Quantity:   req.Quantity,
		RikisSpent: cost,
	}
	var typ model.TransactionType

	switch {
	case req.UseShards && ledger.CanRedeem(pool):
		if err := ledger.Redeem(pool); err != nil {
			return nil, err
		}
		result.Outcome = model.FusionRedeemed
		payload.ShardsSpent = ledger.RedemptionThreshold
		typ = model.TxFusionRedeemed
	case sampler.Chance(s.rnd, rate):
		result.Outcome = model.FusionSuccess
		payload.SuccessRate = rate
		typ = model.TxFusionSuccess
	default:
		grant := ledger.RollGrant(s.rnd)
		if err := ledger.Credit(pool, grant); err != nil {
			return nil, err
		}
		result.Outcome = model.FusionFailed
		result.ShardsGranted = grant
		payload.SuccessRate = rate
		payload.ShardsGranted = grant
		typ = model.TxFusionFailed
	}

	now := time.Now().UTC()

	// 5. 消耗源角色，成功时发放产出角色
	src.Quantity -= req.Quantity
	src.UpdatedAt = now
	if err := tx.SaveInventory(ctx, src); err != nil {
		return nil, err
	}

	if result.Outcome != model.FusionFailed {
		granted, err := tx.Inventory(ctx, playerID, target.ID)
		if err != nil {
			return nil, err
		}
		if granted.Quantity == 0 {
			granted.AcquiredFrom = model.AcquiredFromFusion
		}
		granted.Tier = target.Tier
		granted.Quantity++
		granted.UpdatedAt = now
		if err := tx.SaveInventory(ctx, granted); err != nil {
			return nil, err
		}
		result.GrantedMaidenID = target.ID
		result.GrantedTier = target.Tier
		payload.GrantedMaidenID = target.ID
		p.ObserveTier(target.Tier)
		p.SuccessfulFusions++
	} else {
		p.FailedFusions++
	}

	if result.Outcome != model.FusionSuccess {
		if err := tx.SaveShardPool(ctx, pool); err != nil {
			return nil, err
		}
	}
	result.ShardBalance = pool.Balance
	payload.ShardBalance = pool.Balance

	// 6. 扣费、统计、记流水
	p.Rikis -= cost
	p.TotalFusions++
	p.UpdatedAt = now
	if err := tx.SavePlayer(ctx, p); err != nil {
		return nil, err
	}

	rec, err := s.txlog.Append(ctx, tx, playerID, typ, payload, txlog.ContextFrom(ctx))
	if err != nil {
		return nil, err
	}
	result.TransactionID = rec.ID
	return result, nil
}
