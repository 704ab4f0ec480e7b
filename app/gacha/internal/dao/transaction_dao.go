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

// TransactionDAO 流水数据访问对象
type TransactionDAO struct {
	base
}

// NewTransactionDAO 创建流水 DAO
func NewTransactionDAO(l logger.Logger, m *metrics.GachaMetrics) *TransactionDAO {
	return &TransactionDAO{base{logger: l.Named("dao.transaction"), metrics: m}}
}

// Insert 追加一条流水
func (d *TransactionDAO) Insert(ctx context.Context, q postgres.Querier, rec *model.TransactionRecord) (err error) {
	start := time.Now()
	defer func() { d.observe("insert", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Insert("transactions").
		Columns("id", "player_id", "type", "payload", "context", "created_at").
		Values(rec.ID, rec.PlayerID, string(rec.Type), string(rec.Payload), rec.Context, rec.CreatedAt).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build query")
	}

	if _, err = q.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to insert transaction",
			"player_id", rec.PlayerID,
			"type", rec.Type,
			"error", err,
		)
		return errors.Wrapf(classify(err), "failed to insert transaction %d", rec.ID)
	}
	return nil
}

// ListByPlayer 玩家最近的流水，按时间倒序
func (d *TransactionDAO) ListByPlayer(ctx context.Context, q postgres.Querier, playerID int64, limit int) (records []model.TransactionRecord, err error) {
	start := time.Now()
	defer func() { d.observe("select", start, err) }()

	query, args, err := postgres.QueryBuilder.
		Select("id", "player_id", "type", "payload", "context", "created_at").
		From("transactions").
		Where(squirrel.Eq{"player_id": playerID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build query")
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(classify(err), "failed to list transactions of player %d", playerID)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec     model.TransactionRecord
			typ     string
			payload []byte
		)
		if err = rows.Scan(&rec.ID, &rec.PlayerID, &typ, &payload, &rec.Context, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan transaction row")
		}
		rec.Type = model.TransactionType(typ)
		rec.Payload = payload
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(classify(err), "failed to iterate transaction rows")
	}
	return records, nil
}
