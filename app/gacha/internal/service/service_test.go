package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/event"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/lock"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/rates"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/sampler"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/txlog"
	"github.com/lk2023060901/xdooria-gacha/pkg/idgen"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// recordingPublisher 记录已发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recordingPublisher) Publish(_ context.Context, evt event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingPublisher) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

type fixture struct {
	store   *repository.MemoryStore
	holder  *gameconfig.Holder
	roster  *RosterService
	summon  *SummonService
	fusion  *FusionService
	players *PlayerService
	events  *recordingPublisher
}

type fixtureOptions struct {
	tunables *gameconfig.Tunables
	roster   []model.MaidenDefinition
	seed     uint64
	limiter  *LimiterConfig
	logger   logger.Logger
}

// fullRoster 每个品阶 3 个角色，id = tier*100 + n
func fullRoster() []model.MaidenDefinition {
	var defs []model.MaidenDefinition
	for tier := 1; tier <= gameconfig.MaxTier; tier++ {
		for n := 1; n <= 3; n++ {
			defs = append(defs, model.MaidenDefinition{
				ID:      int64(tier*100 + n),
				Name:    "maiden",
				Tier:    tier,
				Element: "water",
				BaseAtk: int64(10 * tier),
				BaseDef: int64(8 * tier),
			})
		}
	}
	return defs
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	var l logger.Logger = logger.NewNoop()
	if opts.logger != nil {
		l = opts.logger
	}

	if opts.roster == nil {
		opts.roster = fullRoster()
	}
	if opts.seed == 0 {
		opts.seed = 42
	}
	if opts.limiter == nil {
		opts.limiter = &LimiterConfig{Enabled: false}
	}

	holder, err := gameconfig.NewHolder(opts.tunables, l)
	require.NoError(t, err)
	m, err := metrics.New(nil)
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	store.PutRoster(opts.roster)

	rateCache := rates.NewCache(holder, 16)
	t.Cleanup(func() { _ = rateCache.Close() })
	limiter := NewPlayerLimiter(opts.limiter)
	t.Cleanup(func() { _ = limiter.Close() })

	roster := NewRosterService(l, store, holder)
	log := txlog.New(idgen.NewSequence(1), store)
	pub := &recordingPublisher{}
	rnd := sampler.NewLockedSource(sampler.NewSeeded(opts.seed))

	return &fixture{
		store:   store,
		holder:  holder,
		roster:  roster,
		summon:  NewSummonService(l, store, holder, rateCache, roster, log, lock.Noop{}, limiter, pub, m, rnd),
		fusion:  NewFusionService(l, store, holder, roster, log, lock.Noop{}, limiter, pub, m, rnd),
		players: NewPlayerService(l, nil, store, log, rateCache),
		events:  pub,
	}
}

func (f *fixture) putPlayer(p model.Player) {
	if p.Level == 0 {
		p.Level = 1
	}
	f.store.PutPlayer(p)
}

func (f *fixture) own(playerID, maidenID int64, qty int64) {
	f.store.PutInventory(model.InventoryEntry{
		PlayerID:     playerID,
		MaidenID:     maidenID,
		Tier:         int(maidenID / 100),
		Quantity:     qty,
		AcquiredFrom: model.AcquiredFromSummon,
	})
}

func (f *fixture) player(t *testing.T, id int64) *model.Player {
	t.Helper()
	p, err := f.store.GetPlayer(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) quantity(t *testing.T, playerID, maidenID int64) int64 {
	t.Helper()
	entries, err := f.store.Inventories(context.Background(), playerID)
	require.NoError(t, err)
	for _, e := range entries {
		if e.MaidenID == maidenID {
			return e.Quantity
		}
	}
	return 0
}

func (f *fixture) transactions(t *testing.T, playerID int64) []model.TransactionRecord {
	t.Helper()
	recs, err := f.store.Transactions(context.Background(), playerID, 1000)
	require.NoError(t, err)
	return recs
}
