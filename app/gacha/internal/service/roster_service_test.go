package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// countingStore 统计 Roster 调用次数
type countingStore struct {
	*repository.MemoryStore
	calls atomic.Int32
	delay time.Duration
}

func (s *countingStore) Roster(ctx context.Context) ([]model.MaidenDefinition, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	return s.MemoryStore.Roster(ctx)
}

func newRosterService(t *testing.T, defs []model.MaidenDefinition, tun *gameconfig.Tunables) (*RosterService, *countingStore, *gameconfig.Holder) {
	t.Helper()
	holder, err := gameconfig.NewHolder(tun, logger.NewNoop())
	require.NoError(t, err)
	store := &countingStore{MemoryStore: repository.NewMemoryStore()}
	store.PutRoster(defs)
	return NewRosterService(logger.NewNoop(), store, holder), store, holder
}

func TestRosterRefresh(t *testing.T) {
	svc, _, _ := newRosterService(t, fullRoster(), nil)
	assert.Nil(t, svc.Current())

	r, err := svc.Roster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 36, r.Len())
	assert.Same(t, r, svc.Current())

	d, ok := r.Get(1203)
	require.True(t, ok)
	assert.Equal(t, 12, d.Tier)
}

func TestRosterRejectsMissingTier(t *testing.T) {
	var defs []model.MaidenDefinition
	for _, d := range fullRoster() {
		if d.Tier != 7 {
			defs = append(defs, d)
		}
	}
	svc, _, _ := newRosterService(t, defs, nil)

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcode.ErrConfiguration))
	assert.Nil(t, svc.Current())
}

func TestRosterKeepsPreviousOnFailedRefresh(t *testing.T) {
	svc, store, _ := newRosterService(t, fullRoster(), nil)
	first, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	store.PutRoster([]model.MaidenDefinition{{ID: 1, Tier: 1}})
	_, err = svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Same(t, first, svc.Current())
}

func TestRosterRefreshSingleflight(t *testing.T) {
	svc, store, _ := newRosterService(t, fullRoster(), nil)
	store.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Less(t, store.calls.Load(), int32(10))
}

func TestRosterSchedule(t *testing.T) {
	svc, store, _ := newRosterService(t, fullRoster(), nil)

	assert.Error(t, svc.Start("not a cron spec"))
	require.NoError(t, svc.Start("@every 1s"))
	require.NoError(t, svc.Start("@every 1s"))
	defer svc.Stop()

	require.Eventually(t, func() bool { return svc.Current() != nil }, 5*time.Second, 20*time.Millisecond)
	svc.Stop()
	calls := store.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, store.calls.Load())
}

func TestValidateRoster(t *testing.T) {
	r := model.NewRoster([]model.MaidenDefinition{{ID: 1, Tier: 1}, {ID: 2, Tier: 2}})

	tun := gameconfig.Default()
	assert.Error(t, ValidateRoster(r, tun))

	tun.TierUnlockLevels = map[int]int{1: 1, 2: 5}
	assert.NoError(t, ValidateRoster(r, tun))
}

func TestPlayerServiceRegisterAndRead(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	p, err := f.players.Register(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, DefaultPlayerConfig().StartingGrace, p.Grace)

	// 重复开户保留原账户
	_, err = f.summon.PerformSummon(ctx, 10)
	require.NoError(t, err)
	again, err := f.players.Register(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, p.Grace-5, again.Grace)

	inv, err := f.players.Inventory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, inv, 1)

	txs, err := f.players.Transactions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, model.TxSummon, txs[0].Type)
	assert.Equal(t, model.TxPlayerRegistered, txs[1].Type)
	assert.JSONEq(t, `{"level":1,"starting_grace":50,"starting_rikis":10000}`, string(txs[1].Payload))

	_, err = f.players.Inventory(ctx, 11)
	assert.True(t, errors.Is(err, errcode.ErrPlayerNotFound))

	table, err := f.players.Rates(5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, table.Tiers())

	_, err = f.players.Register(ctx, 0)
	assert.True(t, errors.Is(err, errcode.ErrValidation))
}
