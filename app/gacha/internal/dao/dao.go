package dao

import (
	"context"
	_ "embed"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/metrics"
	"github.com/lk2023060901/xdooria-gacha/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// Schema 建表语句，幂等
//
//go:embed schema.sql
var Schema string

// Migrate 执行建表语句
func Migrate(ctx context.Context, db postgres.Querier) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

// base 各 DAO 共用的日志与指标
type base struct {
	logger  logger.Logger
	metrics *metrics.GachaMetrics
}

func (b base) observe(operation string, start time.Time, err error) {
	b.metrics.RecordDBQuery(operation, err == nil || postgres.IsNoRows(err), time.Since(start).Seconds())
}

// classify 把数据库错误映射为业务错误种类，保留原始错误链
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case postgres.IsLockTimeout(err):
		return errors.Mark(err, errcode.ErrLockTimeout)
	case postgres.IsRetryable(err):
		return errors.Mark(err, errcode.ErrConcurrency)
	default:
		return err
	}
}
