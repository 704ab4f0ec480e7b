package service

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/event"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/lock"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/pity"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/rates"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/sampler"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/txlog"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/otel"
)

const tracerName = "gacha/service"

// SummonService 召唤编排：扣费、保底、加权抽取、入库、记流水
type SummonService struct {
	logger    logger.Logger
	store     repository.Store
	holder    *gameconfig.Holder
	rates     *rates.Cache
	roster    *RosterService
	txlog     *txlog.Log
	locker    lock.Locker
	limiter   *PlayerLimiter
	publisher event.Publisher
	metrics   *metrics.GachaMetrics
	rnd       sampler.RandomSource
}

func NewSummonService(
	l logger.Logger,
	store repository.Store,
	holder *gameconfig.Holder,
	rateCache *rates.Cache,
	roster *RosterService,
	log *txlog.Log,
	locker lock.Locker,
	limiter *PlayerLimiter,
	publisher event.Publisher,
	m *metrics.GachaMetrics,
	rnd sampler.RandomSource,
) *SummonService {
	return &SummonService{
		logger:    l.Named("service.summon"),
		store:     store,
		holder:    holder,
		rates:     rateCache,
		roster:    roster,
		txlog:     log,
		locker:    locker,
		limiter:   limiter,
		publisher: publisher,
		metrics:   m,
		rnd:       rnd,
	}
}

// PerformSummon 单次召唤
func (s *SummonService) PerformSummon(ctx context.Context, playerID int64) (*model.SummonOutcome, error) {
	return s.summon(ctx, playerID, 1, model.TxSummon)
}

// BatchSummon 批量召唤，count 必须是配置允许的批量次数
// 整批作为一个事务，余额只够 count-1 次时整批拒绝
func (s *SummonService) BatchSummon(ctx context.Context, playerID int64, count int) (*model.SummonOutcome, error) {
	if !s.holder.Load().IsBatchSize(count) {
		return nil, errcode.Validation("count", "batch size %d is not allowed", count)
	}
	return s.summon(ctx, playerID, count, model.TxSummonBatch)
}

func (s *SummonService) summon(ctx context.Context, playerID int64, count int, typ model.TransactionType) (out *model.SummonOutcome, err error) {
	start := time.Now()
	ctx, span := otel.StartSpan(ctx, tracerName, "SummonService.Summon",
		otel.Int64("player_id", playerID),
		otel.Int("count", count),
	)
	defer func() {
		otel.EndSpan(span, err)
		s.metrics.RecordOperation(string(typ), err, time.Since(start).Seconds())
	}()

	if playerID <= 0 {
		return nil, errcode.Validation("player_id", "must be positive, got %d", playerID)
	}
	if err := s.limiter.Allow(playerID); err != nil {
		return nil, err
	}

	// 1. 固定本次操作使用的参数快照与图鉴
	t := s.holder.Load()
	roster, err := s.roster.Roster(ctx)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		var txErr error
		out, txErr = s.summonTx(ctx, tx, t, roster, playerID, count, typ)
		return txErr
	})
	if err != nil {
		s.logger.WarnContext(ctx, "summon failed",
			"player_id", playerID,
			"count", count,
			"error", err,
		)
		return nil, err
	}

	debug := s.logger.Enabled(logger.DebugLevel)
	for _, r := range out.Results {
		s.metrics.RecordSummon(r.WasPity)
		if debug {
			s.logger.DebugContext(ctx, "summon draw",
				"player_id", playerID,
				"maiden_id", r.MaidenID,
				"tier", r.Tier,
				"was_pity", r.WasPity,
				"pity_reason", r.PityReason,
			)
		}
	}
	s.publisher.Publish(ctx, event.NewSummonCompleted(out))
	s.logger.InfoContext(ctx, "summon completed",
		"player_id", playerID,
		"count", count,
		"grace_spent", out.GraceSpent,
		"pity_counter", out.PityCounter,
		"transaction_id", out.TransactionID,
	)
	return out, nil
}

func (s *SummonService) summonTx(
	ctx context.Context,
	tx repository.Tx,
	t *gameconfig.Tunables,
	roster *model.Roster,
	playerID int64,
	count int,
	typ model.TransactionType,
) (*model.SummonOutcome, error) {
	// 2. 锁定玩家并按整批费用校验余额
	if err := tx.LockForUpdate(ctx, repository.PlayerRow(playerID)); err != nil {
		return nil, err
	}
	p, err := tx.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	cost := t.Summon.GraceCost * int64(count)
	if p.Grace < cost {
		return nil, errcode.InsufficientResources("grace", cost, p.Grace)
	}

	table, err := s.rates.For(t, p.Level)
	if err != nil {
		return nil, err
	}
	owned, err := tx.OwnedQuantities(ctx, playerID)
	if err != nil {
		return nil, err
	}

	// 3. 逐抽判定保底，抽取结果先在内存中累计
	tracker := pity.Tracker{Threshold: t.Summon.PityThreshold}
	unlocked := table.Tiers()
	counter := p.PityCounter
	results := make([]model.SummonResult, 0, count)
	draws := make([]txlog.DrawEntry, 0, count)
	gains := make(map[int64]int64, count)
	sources := make(map[int64]string, count)

	for i := 0; i < count; i++ {
		next, forced := tracker.Advance(counter)
		counter = next

		var res model.SummonResult
		if forced {
			sel, err := pity.Select(unlocked, roster, owned, s.rnd)
			if err != nil {
				return nil, err
			}
			if sel.Fallback != pity.FallbackNone {
				s.logger.WarnContext(ctx, "pity fell back to duplicate",
					"player_id", playerID,
					"maiden_id", sel.Maiden.ID,
					"tier", sel.Maiden.Tier,
				)
			}
			res = model.SummonResult{
				MaidenID:   sel.Maiden.ID,
				Name:       sel.Maiden.Name,
				Tier:       sel.Maiden.Tier,
				WasPity:    true,
				PityReason: string(sel.Reason),
			}
		} else {
			d, err := sampler.Sample(table, roster, s.rnd)
			if err != nil {
				return nil, err
			}
			res = model.SummonResult{MaidenID: d.Maiden.ID, Name: d.Maiden.Name, Tier: d.Tier}
		}

		owned[res.MaidenID]++
		gains[res.MaidenID]++
		if _, ok := sources[res.MaidenID]; !ok {
			sources[res.MaidenID] = model.AcquiredFromSummon
			if res.WasPity {
				sources[res.MaidenID] = model.AcquiredFromPitySummon
			}
		}
		p.ObserveTier(res.Tier)
		results = append(results, res)
		draws = append(draws, txlog.DrawEntry{
			MaidenID:   res.MaidenID,
			Tier:       res.Tier,
			WasPity:    res.WasPity,
			PityReason: res.PityReason,
		})
	}

	// 4. 按 maiden id 升序锁定并写入持有行
	ids := make([]int64, 0, len(gains))
	for id := range gains {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if err := tx.LockForUpdate(ctx, repository.InventoryRow(playerID, id)); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	for _, id := range ids {
		def, ok := roster.Get(id)
		if !ok {
			return nil, errors.AssertionFailedf("drawn maiden %d missing from roster", id)
		}
		e, err := tx.Inventory(ctx, playerID, id)
		if err != nil {
			return nil, err
		}
		if e.Quantity == 0 {
			e.AcquiredFrom = sources[id]
		}
		e.Tier = def.Tier
		e.Quantity += gains[id]
		e.UpdatedAt = now
		if err := tx.SaveInventory(ctx, e); err != nil {
			return nil, err
		}
	}

	// 5. 扣费、更新保底计数与统计、记流水
	p.Grace -= cost
	p.PityCounter = counter
	p.TotalSummons += int64(count)
	p.UpdatedAt = now
	if err := tx.SavePlayer(ctx, p); err != nil {
		return nil, err
	}

	rec, err := s.txlog.Append(ctx, tx, playerID, typ, txlog.SummonPayload{
		Count:       count,
		GraceCost:   cost,
		Draws:       draws,
		PityCounter: counter,
		Level:       p.Level,
	}, txlog.ContextFrom(ctx))
	if err != nil {
		return nil, err
	}

	return &model.SummonOutcome{
		PlayerID:       playerID,
		Results:        results,
		GraceSpent:     cost,
		GraceRemaining: p.Grace,
		PityCounter:    counter,
		TransactionID:  rec.ID,
	}, nil
}
