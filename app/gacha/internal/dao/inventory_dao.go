package dao

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// InventoryDAO 玩家角色持有数据访问对象
type InventoryDAO struct {
	base
}

// NewInventoryDAO 创建持有 DAO
func NewInventoryDAO(l logger.Logger, m *metrics.GachaMetrics) *InventoryDAO {
	return &InventoryDAO{base{logger: l.Named("dao.inventory"), metrics: m}}
}

// Lock 对持有行加排他锁，行不存在时不报错（后续 upsert 由玩家行锁串行化）
func (d *InventoryDAO) Lock(ctx context.Context, q postgres.Querier, playerID, maidenID int64) (err error) {
	start := time.Now()
	defer func() { d.observe("lock", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Select("quantity").
		From("player_maidens").
		Where(squirrel.Eq{"player_id": playerID, "maiden_id": maidenID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}

	var qty int64
	if err = q.QueryRow(ctx, query, args...).Scan(&qty); err != nil && !postgres.IsNoRows(err) {
		return errors.Wrapf(classify(err), "failed to lock inventory (%d,%d)", playerID, maidenID)
	}
	return nil
}

// Get 读取持有条目，不存在时返回数量为 0 的条目
func (d *InventoryDAO) Get(ctx context.Context, q postgres.Querier, playerID, maidenID int64) (e *model.InventoryEntry, err error) {
	start := time.Now()
	defer func() { d.observe("select", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Select("player_id", "maiden_id", "tier", "quantity", "acquired_from", "updated_at").
		From("player_maidens").
		Where(squirrel.Eq{"player_id": playerID, "maiden_id": maidenID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build query")
	}

	var entry model.InventoryEntry
	err = q.QueryRow(ctx, query, args...).Scan(
		&entry.PlayerID,
		&entry.MaidenID,
		&entry.Tier,
		&entry.Quantity,
		&entry.AcquiredFrom,
		&entry.UpdatedAt,
	)
	if postgres.IsNoRows(err) {
		return &model.InventoryEntry{PlayerID: playerID, MaidenID: maidenID}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(classify(err), "failed to get inventory (%d,%d)", playerID, maidenID)
	}
	return &entry, nil
}

// ListByPlayer 玩家全部持有条目，按 maiden id 升序
func (d *InventoryDAO) ListByPlayer(ctx context.Context, q postgres.Querier, playerID int64) (entries []model.InventoryEntry, err error) {
	start := time.Now()
	defer func() { d.observe("select", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Select("player_id", "maiden_id", "tier", "quantity", "acquired_from", "updated_at").
		From("player_maidens").
		Where(squirrel.Eq{"player_id": playerID}).
		OrderBy("maiden_id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build query")
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(classify(err), "failed to list inventory of player %d", playerID)
	}
	defer rows.Close()

	for rows.Next() {
		var e model.InventoryEntry
		if err = rows.Scan(&e.PlayerID, &e.MaidenID, &e.Tier, &e.Quantity, &e.AcquiredFrom, &e.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan inventory row")
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(classify(err), "failed to iterate inventory rows")
	}
	return entries, nil
}

// OwnedQuantities maiden id -> 持有数量
func (d *InventoryDAO) OwnedQuantities(ctx context.Context, q postgres.Querier, playerID int64) (map[int64]int64, error) {
	entries, err := d.ListByPlayer(ctx, q, playerID)
	if err != nil {
		return nil, err
	}
	owned := make(map[int64]int64, len(entries))
	for _, e := range entries {
		owned[e.MaidenID] = e.Quantity
	}
	return owned, nil
}

// Save 数量大于 0 时 upsert，等于 0 时删除
func (d *InventoryDAO) Save(ctx context.Context, q postgres.Querier, e *model.InventoryEntry) (err error) {
	if e.Quantity < 0 {
		return errors.AssertionFailedf("negative inventory quantity %d for maiden %d", e.Quantity, e.MaidenID)
	}
	if e.Quantity == 0 {
		return d.delete(ctx, q, e.PlayerID, e.MaidenID)
	}

	start := time.Now()
	defer func() { d.observe("upsert", start, err) }()

	e.UpdatedAt = time.Now().UTC()
	query, args, err := postgres.QueryBuilder.
		Insert("player_maidens").
		Columns("player_id", "maiden_id", "tier", "quantity", "acquired_from", "updated_at").
		Values(e.PlayerID, e.MaidenID, e.Tier, e.Quantity, e.AcquiredFrom, e.UpdatedAt).
		Suffix("ON CONFLICT (player_id, maiden_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}

	if _, err = q.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to save inventory",
			"player_id", e.PlayerID,
			"maiden_id", e.MaidenID,
			"error", err,
		)
		return errors.Wrapf(classify(err), "failed to save inventory (%d,%d)", e.PlayerID, e.MaidenID)
	}
	return nil
}

func (d *InventoryDAO) delete(ctx context.Context, q postgres.Querier, playerID, maidenID int64) (err error) {
	start := time.Now()
	defer func() { d.observe("delete", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Delete("player_maidens").
		Where(squirrel.Eq{"player_id": playerID, "maiden_id": maidenID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}

	if _, err = q.Exec(ctx, query, args...); err != nil {
		return errors.Wrapf(classify(err), "failed to delete inventory (%d,%d)", playerID, maidenID)
	}
	return nil
}
