package dao

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// Store 基于 PostgreSQL 的存储实现
// 每个 WithTx 是一个 serializable 事务，行锁通过 SELECT ... FOR UPDATE 获取，
// 等待上限由 SET LOCAL lock_timeout 控制
type Store struct {
	db        *postgres.Client
	logger    logger.Logger
	players   *PlayerDAO
	inventory *InventoryDAO
	shards    *ShardDAO
	txs       *TransactionDAO
	maidens   *MaidenDAO
}

var (
	_ repository.Store        = (*Store)(nil)
	_ repository.RosterSeeder = (*Store)(nil)
	_ repository.Backend      = (*Store)(nil)
)

// NewStore 创建 PostgreSQL 存储
func NewStore(db *postgres.Client, l logger.Logger, m *metrics.GachaMetrics) *Store {
	return &Store{
		db:        db,
		logger:    l.Named("dao.store"),
		players:   NewPlayerDAO(l, m),
		inventory: NewInventoryDAO(l, m),
		shards:    NewShardDAO(l, m),
		txs:       NewTransactionDAO(l, m),
		maidens:   NewMaidenDAO(l, m),
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	err := s.db.WithTxOptions(ctx, postgres.TxOptions{
		IsoLevel:   postgres.TxIsolationLevelSerializable,
		AccessMode: postgres.TxAccessModeReadWrite,
	}, func(tx postgres.Tx) error {
		return fn(&pgTx{store: s, q: tx})
	})
	// 提交阶段的序列化失败同样需要映射
	return classify(err)
}

func (s *Store) Roster(ctx context.Context) ([]model.MaidenDefinition, error) {
	return s.maidens.List(ctx, s.db)
}

func (s *Store) SeedRoster(ctx context.Context, defs []model.MaidenDefinition) error {
	return s.maidens.Upsert(ctx, s.db, defs)
}

func (s *Store) Transactions(ctx context.Context, playerID int64, limit int) ([]model.TransactionRecord, error) {
	return s.txs.ListByPlayer(ctx, s.db, playerID, limit)
}

func (s *Store) Inventories(ctx context.Context, playerID int64) ([]model.InventoryEntry, error) {
	return s.inventory.ListByPlayer(ctx, s.db, playerID)
}

func (s *Store) GetPlayer(ctx context.Context, playerID int64) (*model.Player, error) {
	return s.players.Get(ctx, s.db, playerID)
}

// pgTx repository.Tx 的 PostgreSQL 实现
type pgTx struct {
	store *Store
	q     postgres.Tx
	seq   repository.LockSequence
}

func (t *pgTx) LockForUpdate(ctx context.Context, ref repository.RowRef) error {
	held, err := t.seq.Check(ref)
	if err != nil || held {
		return err
	}

	switch ref.Kind {
	case repository.RowPlayer:
		err = t.store.players.Lock(ctx, t.q, ref.PlayerID)
	case repository.RowInventory:
		err = t.store.inventory.Lock(ctx, t.q, ref.PlayerID, ref.MaidenID)
	case repository.RowShardPool:
		err = t.store.shards.Lock(ctx, t.q, ref.PlayerID, ref.Tier)
	default:
		err = errors.AssertionFailedf("unknown row kind %s", ref.Kind)
	}
	if err != nil {
		return err
	}

	t.seq.Add(ref)
	return nil
}

func (t *pgTx) Player(ctx context.Context, playerID int64) (*model.Player, error) {
	return t.store.players.Get(ctx, t.q, playerID)
}

func (t *pgTx) SavePlayer(ctx context.Context, p *model.Player) error {
	return t.store.players.Update(ctx, t.q, p)
}

// InsertPlayer 新插入的行由本事务持有，计入加锁顺序
func (t *pgTx) InsertPlayer(ctx context.Context, p *model.Player) (bool, error) {
	ref := repository.PlayerRow(p.ID)
	if _, err := t.seq.Check(ref); err != nil {
		return false, err
	}
	created, err := t.store.players.Create(ctx, t.q, p)
	if err != nil || !created {
		return false, err
	}
	t.seq.Add(ref)
	return true, nil
}

func (t *pgTx) Inventory(ctx context.Context, playerID, maidenID int64) (*model.InventoryEntry, error) {
	return t.store.inventory.Get(ctx, t.q, playerID, maidenID)
}

func (t *pgTx) OwnedQuantities(ctx context.Context, playerID int64) (map[int64]int64, error) {
	return t.store.inventory.OwnedQuantities(ctx, t.q, playerID)
}

func (t *pgTx) SaveInventory(ctx context.Context, e *model.InventoryEntry) error {
	return t.store.inventory.Save(ctx, t.q, e)
}

func (t *pgTx) ShardPool(ctx context.Context, playerID int64, tier int) (*model.ShardPool, error) {
	return t.store.shards.Get(ctx, t.q, playerID, tier)
}

func (t *pgTx) SaveShardPool(ctx context.Context, p *model.ShardPool) error {
	return t.store.shards.Save(ctx, t.q, p)
}

func (t *pgTx) AppendTransaction(ctx context.Context, rec *model.TransactionRecord) error {
	return t.store.txs.Insert(ctx, t.q, rec)
}
