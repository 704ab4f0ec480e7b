package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
)

type inventoryKey struct {
	playerID int64
	maidenID int64
}

type shardKey struct {
	playerID int64
	tier     int
}

// MemoryStore 内存存储，用于单机部署与服务测试
// 以玩家为粒度加锁，事务内的写入先暂存，提交时一次性生效
type MemoryStore struct {
	mu          sync.RWMutex
	players     map[int64]model.Player
	inventory   map[inventoryKey]model.InventoryEntry
	shards      map[shardKey]model.ShardPool
	txs         map[int64][]model.TransactionRecord
	roster      []model.MaidenDefinition
	locks       map[int64]chan struct{}
	lockTimeout time.Duration
}

var (
	_ Store        = (*MemoryStore)(nil)
	_ RosterSeeder = (*MemoryStore)(nil)
	_ Backend      = (*MemoryStore)(nil)
)

// MemoryOption 内存存储选项
type MemoryOption func(*MemoryStore)

// WithLockTimeout 设置行锁等待上限
func WithLockTimeout(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.lockTimeout = d
	}
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		players:     make(map[int64]model.Player),
		inventory:   make(map[inventoryKey]model.InventoryEntry),
		shards:      make(map[shardKey]model.ShardPool),
		txs:         make(map[int64][]model.TransactionRecord),
		locks:       make(map[int64]chan struct{}),
		lockTimeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutPlayer 写入或覆盖玩家账户
func (s *MemoryStore) PutPlayer(p model.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p
}

// PutRoster 替换全部角色定义
func (s *MemoryStore) PutRoster(defs []model.MaidenDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = slices.Clone(defs)
}

// SeedRoster 实现 RosterSeeder
func (s *MemoryStore) SeedRoster(ctx context.Context, defs []model.MaidenDefinition) error {
	s.PutRoster(defs)
	return nil
}

// PutInventory 直接写入持有条目，数量为 0 时删除
func (s *MemoryStore) PutInventory(e model.InventoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyInventory(e)
}

// PutShardPool 直接写入碎片余额
func (s *MemoryStore) PutShardPool(p model.ShardPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shards[shardKey{p.PlayerID, p.Tier}] = p
}

// ShardBalance 读取碎片余额，不存在返回 0
func (s *MemoryStore) ShardBalance(playerID int64, tier int) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shards[shardKey{playerID, tier}].Balance
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) (err error) {
	tx := &memTx{
		store:     s,
		held:      make(map[int64]struct{}),
		players:   make(map[int64]model.Player),
		inventory: make(map[inventoryKey]model.InventoryEntry),
		shards:    make(map[shardKey]model.ShardPool),
	}
	defer tx.release()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("panic in transaction: %v", r)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *MemoryStore) commit(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range tx.players {
		s.players[id] = p
	}
	for _, e := range tx.inventory {
		s.applyInventory(e)
	}
	for k, p := range tx.shards {
		s.shards[k] = p
	}
	for _, rec := range tx.txs {
		s.txs[rec.PlayerID] = append(s.txs[rec.PlayerID], rec)
	}
}

func (s *MemoryStore) applyInventory(e model.InventoryEntry) {
	key := inventoryKey{e.PlayerID, e.MaidenID}
	if e.Quantity <= 0 {
		delete(s.inventory, key)
		return
	}
	s.inventory[key] = e
}

func (s *MemoryStore) playerLock(playerID int64) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.locks[playerID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[playerID] = ch
	}
	return ch
}

func (s *MemoryStore) Roster(ctx context.Context) ([]model.MaidenDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roster), nil
}

func (s *MemoryStore) Transactions(ctx context.Context, playerID int64, limit int) ([]model.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.txs[playerID]
	out := make([]model.TransactionRecord, 0, min(len(all), max(limit, 0)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *MemoryStore) Inventories(ctx context.Context, playerID int64) ([]model.InventoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.InventoryEntry
	for k, e := range s.inventory {
		if k.playerID == playerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MaidenID < out[j].MaidenID })
	return out, nil
}

func (s *MemoryStore) GetPlayer(ctx context.Context, playerID int64) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, errors.Wrapf(errcode.ErrPlayerNotFound, "player %d", playerID)
	}
	return &p, nil
}

// memTx 内存事务：读优先命中暂存区，写只进入暂存区
type memTx struct {
	store     *MemoryStore
	held      map[int64]struct{}
	seq       LockSequence
	players   map[int64]model.Player
	inventory map[inventoryKey]model.InventoryEntry
	shards    map[shardKey]model.ShardPool
	txs       []model.TransactionRecord
}

func (t *memTx) LockForUpdate(ctx context.Context, ref RowRef) error {
	held, err := t.seq.Check(ref)
	if err != nil || held {
		return err
	}

	if _, ok := t.held[ref.PlayerID]; !ok {
		if ref.Kind == RowPlayer {
			t.store.mu.RLock()
			_, exists := t.store.players[ref.PlayerID]
			t.store.mu.RUnlock()
			if !exists {
				return errors.Wrapf(errcode.ErrPlayerNotFound, "player %d", ref.PlayerID)
			}
		}
		if err := t.acquire(ctx, ref.PlayerID); err != nil {
			return err
		}
	}

	t.seq.Add(ref)
	return nil
}

func (t *memTx) acquire(ctx context.Context, playerID int64) error {
	ch := t.store.playerLock(playerID)
	timer := time.NewTimer(t.store.lockTimeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		t.held[playerID] = struct{}{}
		return nil
	case <-timer.C:
		return errors.Wrapf(errcode.ErrLockTimeout, "player %d", playerID)
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "lock wait aborted")
	}
}

func (t *memTx) release() {
	for playerID := range t.held {
		<-t.store.playerLock(playerID)
	}
	t.held = nil
}

func (t *memTx) Player(ctx context.Context, playerID int64) (*model.Player, error) {
	if p, ok := t.players[playerID]; ok {
		return &p, nil
	}
	t.store.mu.RLock()
	p, ok := t.store.players[playerID]
	t.store.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(errcode.ErrPlayerNotFound, "player %d", playerID)
	}
	return &p, nil
}

func (t *memTx) SavePlayer(ctx context.Context, p *model.Player) error {
	p.UpdatedAt = time.Now().UTC()
	t.players[p.ID] = *p
	return nil
}

// InsertPlayer 先占用玩家锁再判断是否存在，并发开户只有一个成功
func (t *memTx) InsertPlayer(ctx context.Context, p *model.Player) (bool, error) {
	ref := PlayerRow(p.ID)
	held, err := t.seq.Check(ref)
	if err != nil {
		return false, err
	}
	if !held {
		if _, ok := t.held[p.ID]; !ok {
			if err := t.acquire(ctx, p.ID); err != nil {
				return false, err
			}
		}
		t.seq.Add(ref)
	}

	if _, ok := t.players[p.ID]; ok {
		return false, nil
	}
	t.store.mu.RLock()
	_, exists := t.store.players[p.ID]
	t.store.mu.RUnlock()
	if exists {
		return false, nil
	}
	t.players[p.ID] = *p
	return true, nil
}

func (t *memTx) Inventory(ctx context.Context, playerID, maidenID int64) (*model.InventoryEntry, error) {
	key := inventoryKey{playerID, maidenID}
	if e, ok := t.inventory[key]; ok {
		return &e, nil
	}
	t.store.mu.RLock()
	e, ok := t.store.inventory[key]
	t.store.mu.RUnlock()
	if !ok {
		e = model.InventoryEntry{PlayerID: playerID, MaidenID: maidenID}
	}
	return &e, nil
}

func (t *memTx) OwnedQuantities(ctx context.Context, playerID int64) (map[int64]int64, error) {
	owned := make(map[int64]int64)
	t.store.mu.RLock()
	for k, e := range t.store.inventory {
		if k.playerID == playerID {
			owned[k.maidenID] = e.Quantity
		}
	}
	t.store.mu.RUnlock()
	for k, e := range t.inventory {
		if k.playerID != playerID {
			continue
		}
		if e.Quantity <= 0 {
			delete(owned, k.maidenID)
			continue
		}
		owned[k.maidenID] = e.Quantity
	}
	return owned, nil
}

func (t *memTx) SaveInventory(ctx context.Context, e *model.InventoryEntry) error {
	if e.Quantity < 0 {
		return errors.AssertionFailedf("negative inventory quantity %d for maiden %d", e.Quantity, e.MaidenID)
	}
	e.UpdatedAt = time.Now().UTC()
	t.inventory[inventoryKey{e.PlayerID, e.MaidenID}] = *e
	return nil
}

func (t *memTx) ShardPool(ctx context.Context, playerID int64, tier int) (*model.ShardPool, error) {
	key := shardKey{playerID, tier}
	if p, ok := t.shards[key]; ok {
		return &p, nil
	}
	t.store.mu.RLock()
	p, ok := t.store.shards[key]
	t.store.mu.RUnlock()
	if !ok {
		p = model.ShardPool{PlayerID: playerID, Tier: tier}
	}
	return &p, nil
}

func (t *memTx) SaveShardPool(ctx context.Context, p *model.ShardPool) error {
	if p.Balance < 0 {
		return errors.AssertionFailedf("negative shard balance %d for tier %d", p.Balance, p.Tier)
	}
	p.UpdatedAt = time.Now().UTC()
	t.shards[shardKey{p.PlayerID, p.Tier}] = *p
	return nil
}

func (t *memTx) AppendTransaction(ctx context.Context, rec *model.TransactionRecord) error {
	t.txs = append(t.txs, *rec)
	return nil
}
