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

// ShardDAO 融合碎片数据访问对象
type ShardDAO struct {
	base
}

// NewShardDAO 创建碎片 DAO
func NewShardDAO(l logger.Logger, m *metrics.GachaMetrics) *ShardDAO {
	return &ShardDAO{base{logger: l.Named("dao.shard"), metrics: m}}
}

// Lock 确保碎片行存在后加排他锁
func (d *ShardDAO) Lock(ctx context.Context, q postgres.Querier, playerID int64, tier int) (err error) {
	start := time.Now()
	defer func() { d.observe("lock", start, err) }()

	insert, insertArgs, err := postgres.QueryBuilder.
		Insert("shard_pools").
		Columns("player_id", "tier", "balance", "updated_at").
		Values(playerID, tier, 0, time.Now().UTC()).
		Suffix("ON CONFLICT (player_id, tier) DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}
	if _, err = q.Exec(ctx, insert, insertArgs...); err != nil {
		return errors.Wrapf(classify(err), "failed to create shard pool (%d,%d)", playerID, tier)
	}

	query, args, err := postgres.QueryBuilder.
		Select("balance").
		From("shard_pools").
		Where(squirrel.Eq{"player_id": playerID, "tier": tier}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}

	var balance int64
	if err = q.QueryRow(ctx, query, args...).Scan(&balance); err != nil {
		return errors.Wrapf(classify(err), "failed to lock shard pool (%d,%d)", playerID, tier)
	}
	return nil
}

// Get 读取碎片余额，不存在时返回余额为 0 的条目
func (d *ShardDAO) Get(ctx context.Context, q postgres.Querier, playerID int64, tier int) (p *model.ShardPool, err error) {
	start := time.Now()
	defer func() { d.observe("select", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Select("player_id", "tier", "balance", "updated_at").
		From("shard_pools").
		Where(squirrel.Eq{"player_id": playerID, "tier": tier}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build query")
	}

	var pool model.ShardPool
	err = q.QueryRow(ctx, query, args...).Scan(&pool.PlayerID, &pool.Tier, &pool.Balance, &pool.UpdatedAt)
	if postgres.IsNoRows(err) {
		return &model.ShardPool{PlayerID: playerID, Tier: tier}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(classify(err), "failed to get shard pool (%d,%d)", playerID, tier)
	}
	return &pool, nil
}

// Save upsert 碎片余额
func (d *ShardDAO) Save(ctx context.Context, q postgres.Querier, p *model.ShardPool) (err error) {
	if p.Balance < 0 {
		return errors.AssertionFailedf("negative shard balance %d for tier %d", p.Balance, p.Tier)
	}

	start := time.Now()
	defer func() { d.observe("upsert", start, err) }()

	p.UpdatedAt = time.Now().UTC()
	query, args, err := postgres.QueryBuilder.
		Insert("shard_pools").
		Columns("player_id", "tier", "balance", "updated_at").
		Values(p.PlayerID, p.Tier, p.Balance, p.UpdatedAt).
		Suffix("ON CONFLICT (player_id, tier) DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}

	if _, err = q.Exec(ctx, query, args...); err != nil {
		return errors.Wrapf(classify(err), "failed to save shard pool (%d,%d)", p.PlayerID, p.Tier)
	}
	return nil
}
