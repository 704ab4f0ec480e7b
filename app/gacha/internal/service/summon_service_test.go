package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/event"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/pity"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/txlog"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

func TestPerformSummon(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.putPlayer(model.Player{ID: 1, Grace: 12})
	ctx := context.Background()

	out, err := f.summon.PerformSummon(ctx, 1)
	require.NoError(t, err)
	require.Len(t, out.Results, 1)

	r := out.Results[0]
	assert.Contains(t, []int{1, 2, 3}, r.Tier)
	assert.False(t, r.WasPity)
	assert.Equal(t, int64(5), out.GraceSpent)
	assert.Equal(t, int64(7), out.GraceRemaining)
	assert.Equal(t, 1, out.PityCounter)

	p := f.player(t, 1)
	assert.Equal(t, int64(7), p.Grace)
	assert.Equal(t, 1, p.PityCounter)
	assert.Equal(t, int64(1), p.TotalSummons)
	assert.Equal(t, r.Tier, p.HighestTier)
	assert.Equal(t, int64(1), f.quantity(t, 1, r.MaidenID))

	recs := f.transactions(t, 1)
	require.Len(t, recs, 1)
	assert.Equal(t, model.TxSummon, recs[0].Type)
	assert.Equal(t, out.TransactionID, recs[0].ID)

	var payload txlog.SummonPayload
	require.NoError(t, json.Unmarshal(recs[0].Payload, &payload))
	assert.Equal(t, 1, payload.Count)
	assert.Equal(t, int64(5), payload.GraceCost)
	require.Len(t, payload.Draws, 1)
	assert.Equal(t, r.MaidenID, payload.Draws[0].MaidenID)

	evts := f.events.Events()
	require.Len(t, evts, 1)
	assert.Equal(t, event.TypeSummonCompleted, evts[0].Type)
	assert.Equal(t, out.TransactionID, evts[0].TransactionID)
}

func TestSummonInsufficientGrace(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.putPlayer(model.Player{ID: 1, Grace: 4, PityCounter: 3})

	_, err := f.summon.PerformSummon(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcode.ErrInsufficientResources))

	ie, ok := errcode.AsInsufficient(err)
	require.True(t, ok)
	assert.Equal(t, "grace", ie.Resource)
	assert.Equal(t, int64(5), ie.Required)
	assert.Equal(t, int64(4), ie.Available)

	p := f.player(t, 1)
	assert.Equal(t, int64(4), p.Grace)
	assert.Equal(t, 3, p.PityCounter)
	assert.Empty(t, f.transactions(t, 1))
	assert.Empty(t, f.events.Events())
}

func TestBatchSummonRejectsWholeBatch(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	// 只够 9 次
	f.putPlayer(model.Player{ID: 1, Grace: 45})
	ctx := context.Background()

	_, err := f.summon.BatchSummon(ctx, 1, 10)
	ie, ok := errcode.AsInsufficient(err)
	require.True(t, ok, "expected insufficient error, got %v", err)
	assert.Equal(t, int64(50), ie.Required)
	assert.Equal(t, int64(45), ie.Available)
	assert.Equal(t, int64(45), f.player(t, 1).Grace)
	assert.Empty(t, f.transactions(t, 1))

	out, err := f.summon.BatchSummon(ctx, 1, 5)
	require.NoError(t, err)
	assert.Len(t, out.Results, 5)
	assert.Equal(t, int64(20), f.player(t, 1).Grace)

	recs := f.transactions(t, 1)
	require.Len(t, recs, 1)
	assert.Equal(t, model.TxSummonBatch, recs[0].Type)

	var payload txlog.SummonPayload
	require.NoError(t, json.Unmarshal(recs[0].Payload, &payload))
	assert.Equal(t, 5, payload.Count)
	assert.Len(t, payload.Draws, 5)
}

func TestBatchSummonValidation(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.putPlayer(model.Player{ID: 1, Grace: 100})

	for _, n := range []int{0, 2, 3, 11, -1} {
		_, err := f.summon.BatchSummon(context.Background(), 1, n)
		assert.True(t, errors.Is(err, errcode.ErrValidation), "count %d", n)
	}
	_, err := f.summon.PerformSummon(context.Background(), 0)
	assert.True(t, errors.Is(err, errcode.ErrValidation))
}

func TestSummonUnknownPlayer(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	_, err := f.summon.PerformSummon(context.Background(), 404)
	assert.True(t, errors.Is(err, errcode.ErrPlayerNotFound))
}

func TestPityPicksUnownedItem(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.putPlayer(model.Player{ID: 1, Grace: 100, PityCounter: 24})
	for _, id := range []int64{101, 102, 103, 201, 202, 301, 302, 303} {
		f.own(1, id, 1)
	}

	out, err := f.summon.PerformSummon(context.Background(), 1)
	require.NoError(t, err)
	r := out.Results[0]
	assert.True(t, r.WasPity)
	assert.Equal(t, int64(203), r.MaidenID)
	assert.Equal(t, string(pity.ReasonUnowned), r.PityReason)
	assert.Equal(t, 0, out.PityCounter)
	assert.Equal(t, 0, f.player(t, 1).PityCounter)

	entries, err := f.store.Inventories(context.Background(), 1)
	require.NoError(t, err)
	for _, e := range entries {
		if e.MaidenID == 203 {
			assert.Equal(t, model.AcquiredFromPitySummon, e.AcquiredFrom)
		}
	}
}

func TestPityPromotesToNextTier(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.putPlayer(model.Player{ID: 1, Grace: 100, PityCounter: 24})
	for tier := int64(1); tier <= 3; tier++ {
		for n := int64(1); n <= 3; n++ {
			f.own(1, tier*100+n, 2)
		}
	}

	out, err := f.summon.PerformSummon(context.Background(), 1)
	require.NoError(t, err)
	r := out.Results[0]
	assert.True(t, r.WasPity)
	assert.Equal(t, 4, r.Tier)
	assert.Equal(t, string(pity.ReasonNextTier), r.PityReason)
	assert.Equal(t, 4, f.player(t, 1).HighestTier)
}

func TestPityDuplicateWhenNothingHigher(t *testing.T) {
	tun := gameconfig.Default()
	tun.TierUnlockLevels = map[int]int{1: 1, 2: 1, 3: 1}
	var roster []model.MaidenDefinition
	for _, d := range fullRoster() {
		if d.Tier <= 3 {
			roster = append(roster, d)
		}
	}
	f := newFixture(t, fixtureOptions{tunables: tun, roster: roster})
	f.putPlayer(model.Player{ID: 1, Grace: 100, PityCounter: 24})
	for _, d := range roster {
		f.own(1, d.ID, 1)
	}

	out, err := f.summon.PerformSummon(context.Background(), 1)
	require.NoError(t, err)
	r := out.Results[0]
	assert.True(t, r.WasPity)
	assert.Equal(t, 3, r.Tier)
	assert.Equal(t, string(pity.ReasonDuplicate), r.PityReason)
	assert.Equal(t, int64(2), f.quantity(t, 1, r.MaidenID))
}

func TestBatchPityInsideBatch(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.putPlayer(model.Player{ID: 1, Grace: 50, PityCounter: 20})

	out, err := f.summon.BatchSummon(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, out.Results, 10)
	for i, r := range out.Results {
		assert.Equal(t, i == 4, r.WasPity, "draw %d", i)
	}
	assert.Equal(t, 5, out.PityCounter)
	assert.Equal(t, int64(0), out.GraceRemaining)
}

func TestPityCounterInvariantOverManySummons(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.putPlayer(model.Player{ID: 1, Grace: 500})
	ctx := context.Background()
	threshold := f.holder.Load().Summon.PityThreshold

	pityHits := 0
	for i := 0; i < 100; i++ {
		out, err := f.summon.PerformSummon(ctx, 1)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out.PityCounter, 0)
		assert.Less(t, out.PityCounter, threshold)
		if out.Results[0].WasPity {
			pityHits++
			assert.Zero(t, out.PityCounter)
		}
	}
	assert.Equal(t, 100/threshold, pityHits)

	p := f.player(t, 1)
	assert.Equal(t, int64(100), p.TotalSummons)
	assert.Equal(t, int64(0), p.Grace)

	entries, err := f.store.Inventories(ctx, 1)
	require.NoError(t, err)
	var total int64
	for _, e := range entries {
		total += e.Quantity
	}
	assert.Equal(t, int64(100), total)
	assert.Len(t, f.transactions(t, 1), 100)
}

func TestConcurrentSummonsSamePlayer(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	// 20 个并发请求，余额只够 17 次
	f.putPlayer(model.Player{ID: 1, Grace: 85})

	const n = 20
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.summon.PerformSummon(context.Background(), 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, errcode.ErrInsufficientResources):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 17, ok)
	assert.Equal(t, 3, rejected)

	p := f.player(t, 1)
	assert.Equal(t, int64(0), p.Grace)
	assert.Equal(t, int64(17), p.TotalSummons)
	assert.Equal(t, 17, p.PityCounter)
	assert.Len(t, f.transactions(t, 1), 17)
}

func TestConcurrentSummonsDifferentPlayers(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	for id := int64(1); id <= 8; id++ {
		f.putPlayer(model.Player{ID: id, Grace: 50})
	}

	var wg sync.WaitGroup
	for id := int64(1); id <= 8; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.summon.BatchSummon(context.Background(), id, 10)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	for id := int64(1); id <= 8; id++ {
		assert.Equal(t, int64(0), f.player(t, id).Grace)
		assert.Len(t, f.transactions(t, id), 1)
	}
}

func TestSummonReproducibleWithSeed(t *testing.T) {
	run := func() []int64 {
		f := newFixture(t, fixtureOptions{seed: 7})
		f.putPlayer(model.Player{ID: 1, Grace: 100})
		out, err := f.summon.BatchSummon(context.Background(), 1, 10)
		require.NoError(t, err)
		ids := make([]int64, 0, len(out.Results))
		for _, r := range out.Results {
			ids = append(ids, r.MaidenID)
		}
		return ids
	}
	assert.Equal(t, run(), run())
}

func TestSummonRateLimited(t *testing.T) {
	f := newFixture(t, fixtureOptions{limiter: &LimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		Burst:             1,
		MaxPlayers:        10,
		IdleTTL:           time.Minute,
	}})
	f.putPlayer(model.Player{ID: 1, Grace: 100})
	ctx := context.Background()

	_, err := f.summon.PerformSummon(ctx, 1)
	require.NoError(t, err)
	_, err = f.summon.PerformSummon(ctx, 1)
	assert.True(t, errors.Is(err, errcode.ErrRateLimited))
	assert.Equal(t, int64(95), f.player(t, 1).Grace)
}

func TestSummonUsesHigherTiersAtHigherLevel(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.putPlayer(model.Player{ID: 1, Level: 90, Grace: 1000})

	seen := map[int]bool{}
	for i := 0; i < 20; i++ {
		out, err := f.summon.BatchSummon(context.Background(), 1, 10)
		require.NoError(t, err)
		for _, r := range out.Results {
			seen[r.Tier] = true
		}
	}
	// 12 级品阶权重最高，必然出现
	assert.True(t, seen[12])
}

func TestSummonDrawLoggedAtDebugOnly(t *testing.T) {
	for _, tc := range []struct {
		name  string
		level zapcore.Level
		draws int
	}{
		{name: "debug", level: zapcore.DebugLevel, draws: 3},
		{name: "info", level: zapcore.InfoLevel, draws: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(tc.level)
			f := newFixture(t, fixtureOptions{logger: logger.NewFromZap(zap.New(core))})
			f.putPlayer(model.Player{ID: 1, Grace: 15})

			out, err := f.summon.BatchSummon(context.Background(), 1, 3)
			require.NoError(t, err)

			draws := logs.FilterMessage("summon draw").All()
			require.Len(t, draws, tc.draws)
			for i, entry := range draws {
				fields := entry.ContextMap()
				assert.Equal(t, "service.summon", entry.LoggerName)
				assert.Equal(t, out.Results[i].MaidenID, fields["maiden_id"])
				assert.Equal(t, int64(out.Results[i].Tier), fields["tier"])
			}
			assert.Equal(t, 1, logs.FilterMessage("summon completed").Len())
		})
	}
}
