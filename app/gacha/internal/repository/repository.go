package repository

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
)

// RowKind 可加锁的行类型，数值即全局加锁顺序
type RowKind int

const (
	RowPlayer RowKind = iota
	RowInventory
	RowShardPool
)

func (k RowKind) String() string {
	switch k {
	case RowPlayer:
		return "player"
	case RowInventory:
		return "inventory"
	case RowShardPool:
		return "shard_pool"
	default:
		return fmt.Sprintf("row_kind(%d)", int(k))
	}
}

// RowRef 行引用，LockForUpdate 的参数
type RowRef struct {
	Kind     RowKind
	PlayerID int64
	MaidenID int64
	Tier     int
}

// PlayerRow 玩家账户行
func PlayerRow(playerID int64) RowRef {
	return RowRef{Kind: RowPlayer, PlayerID: playerID}
}

// InventoryRow 玩家某角色的持有行
func InventoryRow(playerID, maidenID int64) RowRef {
	return RowRef{Kind: RowInventory, PlayerID: playerID, MaidenID: maidenID}
}

// ShardPoolRow 玩家某品阶的碎片行
func ShardPoolRow(playerID int64, tier int) RowRef {
	return RowRef{Kind: RowShardPool, PlayerID: playerID, Tier: tier}
}

func (r RowRef) String() string {
	switch r.Kind {
	case RowInventory:
		return fmt.Sprintf("inventory(%d,%d)", r.PlayerID, r.MaidenID)
	case RowShardPool:
		return fmt.Sprintf("shard_pool(%d,%d)", r.PlayerID, r.Tier)
	default:
		return fmt.Sprintf("player(%d)", r.PlayerID)
	}
}

// Less 全局加锁顺序：player -> inventory(按 maiden id 升序) -> shard_pool(按品阶升序)
func (r RowRef) Less(o RowRef) bool {
	if r.PlayerID != o.PlayerID {
		return r.PlayerID < o.PlayerID
	}
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	if r.MaidenID != o.MaidenID {
		return r.MaidenID < o.MaidenID
	}
	return r.Tier < o.Tier
}

// Tx 事务内的存储操作
// 所有写操作在 WithTx 返回前要么全部提交，要么全部回滚
type Tx interface {
	// LockForUpdate 排他锁定一行直到事务结束，超过等待上限返回 errcode.ErrLockTimeout
	LockForUpdate(ctx context.Context, ref RowRef) error

	Player(ctx context.Context, playerID int64) (*model.Player, error)
	SavePlayer(ctx context.Context, p *model.Player) error
	// InsertPlayer 创建玩家账户，已存在时不修改并返回 false
	InsertPlayer(ctx context.Context, p *model.Player) (created bool, err error)

	// Inventory 不存在时返回数量为 0 的条目
	Inventory(ctx context.Context, playerID, maidenID int64) (*model.InventoryEntry, error)
	// OwnedQuantities maiden id -> 持有数量
	OwnedQuantities(ctx context.Context, playerID int64) (map[int64]int64, error)
	// SaveInventory 数量为 0 时删除该行
	SaveInventory(ctx context.Context, e *model.InventoryEntry) error

	// ShardPool 不存在时返回余额为 0 的条目
	ShardPool(ctx context.Context, playerID int64, tier int) (*model.ShardPool, error)
	SaveShardPool(ctx context.Context, p *model.ShardPool) error

	AppendTransaction(ctx context.Context, rec *model.TransactionRecord) error
}

// Store 存储协作方契约，内存实现与 PostgreSQL 实现均满足
type Store interface {
	// WithTx 在一个可串行化事务中执行 fn，fn 返回错误或 panic 时回滚
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Roster 全部角色定义
	Roster(ctx context.Context) ([]model.MaidenDefinition, error)
	// Transactions 玩家最近的流水，按时间倒序
	Transactions(ctx context.Context, playerID int64, limit int) ([]model.TransactionRecord, error)
	// Inventories 玩家持有的全部角色，按 maiden id 升序
	Inventories(ctx context.Context, playerID int64) ([]model.InventoryEntry, error)
	// GetPlayer 读取玩家账户快照，不加锁
	GetPlayer(ctx context.Context, playerID int64) (*model.Player, error)
}

// ErrLockOrder 违反全局加锁顺序，属于调用方编码错误
var ErrLockOrder = errors.New("lock order violation")

// LockSequence 记录事务内已加锁的行并校验全局加锁顺序
type LockSequence struct {
	locked map[RowRef]struct{}
	last   *RowRef
}

// Check 返回该行是否已持有；新行早于已加锁的最后一行时返回 ErrLockOrder
func (s *LockSequence) Check(ref RowRef) (held bool, err error) {
	if _, ok := s.locked[ref]; ok {
		return true, nil
	}
	if s.last != nil && ref.Less(*s.last) {
		return false, errors.Wrapf(ErrLockOrder, "cannot lock %s after %s", ref, *s.last)
	}
	return false, nil
}

// Add 记录加锁成功的行
func (s *LockSequence) Add(ref RowRef) {
	if s.locked == nil {
		s.locked = make(map[RowRef]struct{})
	}
	s.locked[ref] = struct{}{}
	s.last = &ref
}

// RosterSeeder 写入角色定义，用于从数据文件初始化图鉴
type RosterSeeder interface {
	SeedRoster(ctx context.Context, defs []model.MaidenDefinition) error
}

// Backend 进程实际使用的存储实现同时提供的全部能力
type Backend interface {
	Store
	RosterSeeder
}
