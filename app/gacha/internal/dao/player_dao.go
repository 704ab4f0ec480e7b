package dao

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

var playerColumns = []string{
	"id", "level", "grace", "rikis", "pity_counter",
	"total_summons", "total_fusions", "successful_fusions", "failed_fusions", "highest_tier",
	"created_at", "updated_at",
}

// PlayerDAO 玩家账户数据访问对象
type PlayerDAO struct {
	base
}

// NewPlayerDAO 创建玩家 DAO
func NewPlayerDAO(l logger.Logger, m *metrics.GachaMetrics) *PlayerDAO {
	return &PlayerDAO{base{logger: l.Named("dao.player"), metrics: m}}
}

// Lock 对玩家行加排他锁
func (d *PlayerDAO) Lock(ctx context.Context, q postgres.Querier, playerID int64) (err error) {
	start := time.Now()
	defer func() { d.observe("lock", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Select("id").
		From("players").
		Where(squirrel.Eq{"id": playerID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}

	var id int64
	if err = q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if postgres.IsNoRows(err) {
			return errors.Wrapf(errcode.ErrPlayerNotFound, "player %d", playerID)
		}
		return errors.Wrapf(classify(err), "failed to lock player %d", playerID)
	}
	return nil
}

// Get 读取玩家账户
func (d *PlayerDAO) Get(ctx context.Context, q postgres.Querier, playerID int64) (p *model.Player, err error) {
	start := time.Now()
	defer func() { d.observe("select", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Select(playerColumns...).
		From("players").
		Where(squirrel.Eq{"id": playerID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build query")
	}

	var player model.Player
	if err = q.QueryRow(ctx, query, args...).Scan(
		&player.ID,
		&player.Level,
		&player.Grace,
		&player.Rikis,
		&player.PityCounter,
		&player.TotalSummons,
		&player.TotalFusions,
		&player.SuccessfulFusions,
		&player.FailedFusions,
		&player.HighestTier,
		&player.CreatedAt,
		&player.UpdatedAt,
	); err != nil {
		if postgres.IsNoRows(err) {
			return nil, errors.Wrapf(errcode.ErrPlayerNotFound, "player %d", playerID)
		}
		return nil, errors.Wrapf(classify(err), "failed to get player %d", playerID)
	}
	return &player, nil
}

// Update 写回玩家账户的可变字段
func (d *PlayerDAO) Update(ctx context.Context, q postgres.Querier, p *model.Player) (err error) {
	start := time.Now()
	defer func() { d.observe("update", start, err) }()

	p.UpdatedAt = time.Now().UTC()
	query, args, err := postgres.QueryBuilder.
		Update("players").
		SetMap(map[string]any{
			"level":              p.Level,
			"grace":              p.Grace,
			"rikis":              p.Rikis,
			"pity_counter":       p.PityCounter,
			"total_summons":      p.TotalSummons,
			"total_fusions":      p.TotalFusions,
			"successful_fusions": p.SuccessfulFusions,
			"failed_fusions":     p.FailedFusions,
			"highest_tier":       p.HighestTier,
			"updated_at":         p.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}

	affected, err := q.Exec(ctx, query, args...)
	if err != nil {
		d.logger.Error("failed to update player", "player_id", p.ID, "error", err)
		return errors.Wrapf(classify(err), "failed to update player %d", p.ID)
	}
	if affected == 0 {
		return errors.Wrapf(errcode.ErrPlayerNotFound, "player %d", p.ID)
	}
	return nil
}

// Create 创建玩家账户，已存在时不做修改，返回是否插入了新行
func (d *PlayerDAO) Create(ctx context.Context, q postgres.Querier, p *model.Player) (created bool, err error) {
	start := time.Now()
	defer func() { d.observe("insert", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Insert("players").
		Columns(playerColumns...).
		Values(
			p.ID, p.Level, p.Grace, p.Rikis, p.PityCounter,
			p.TotalSummons, p.TotalFusions, p.SuccessfulFusions, p.FailedFusions, p.HighestTier,
			p.CreatedAt, p.UpdatedAt,
		).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "failed to build query")
	}

	affected, err := q.Exec(ctx, query, args...)
	if err != nil {
		return false, errors.Wrapf(classify(err), "failed to create player %d", p.ID)
	}
	return affected > 0, nil
}
