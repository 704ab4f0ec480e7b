package dao

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// MaidenDAO 角色定义数据访问对象
type MaidenDAO struct {
	base
}

// NewMaidenDAO 创建角色定义 DAO
func NewMaidenDAO(l logger.Logger, m *metrics.GachaMetrics) *MaidenDAO {
	return &MaidenDAO{base{logger: l.Named("dao.maiden"), metrics: m}}
}

// List 全部角色定义，按 id 升序
func (d *MaidenDAO) List(ctx context.Context, q postgres.Querier) (defs []model.MaidenDefinition, err error) {
	start := time.Now()
	defer func() { d.observe("select", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Select("id", "name", "tier", "element", "base_atk", "base_def").
		From("maiden_definitions").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build query")
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list maiden definitions")
	}
	defer rows.Close()

	for rows.Next() {
		var m model.MaidenDefinition
		if err = rows.Scan(&m.ID, &m.Name, &m.Tier, &m.Element, &m.BaseAtk, &m.BaseDef); err != nil {
			return nil, errors.Wrap(err, "failed to scan maiden definition")
		}
		defs = append(defs, m)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate maiden definitions")
	}
	return defs, nil
}

// Upsert 批量写入角色定义，品阶不随更新改变
func (d *MaidenDAO) Upsert(ctx context.Context, q postgres.Querier, defs []model.MaidenDefinition) (err error) {
	if len(defs) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { d.observe("upsert", start, err) }()

	builder := postgres.QueryBuilder.
		Insert("maiden_definitions").
		Columns("id", "name", "tier", "element", "base_atk", "base_def")
	for _, m := range defs {
		builder = builder.Values(m.ID, m.Name, m.Tier, m.Element, m.BaseAtk, m.BaseDef)
	}
	query, args, err := builder.
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, element = EXCLUDED.element, base_atk = EXCLUDED.base_atk, base_def = EXCLUDED.base_def").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}

	if _, err = q.Exec(ctx, query, args...); err != nil {
		return errors.Wrap(err, "failed to upsert maiden definitions")
	}
	d.logger.Info("maiden definitions upserted", "count", len(defs))
	return nil
}
