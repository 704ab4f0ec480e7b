package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Tx 事务内的查询能力，提交/回滚由 WithTxOptions 统一处理
type Tx interface {
	Querier
}

type txWrapper struct {
	tx pgx.Tx
}

func (t *txWrapper) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}

func (t *txWrapper) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *txWrapper) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// TxIsolationLevel 事务隔离级别
type TxIsolationLevel string

const (
	TxIsolationLevelDefault        TxIsolationLevel = ""
	TxIsolationLevelReadCommitted  TxIsolationLevel = "read committed"
	TxIsolationLevelRepeatableRead TxIsolationLevel = "repeatable read"
	TxIsolationLevelSerializable   TxIsolationLevel = "serializable"
)

// TxAccessMode 事务访问模式
type TxAccessMode string

const (
	TxAccessModeDefault   TxAccessMode = ""
	TxAccessModeReadWrite TxAccessMode = "read write"
	TxAccessModeReadOnly  TxAccessMode = "read only"
)

// TxOptions 事务选项
type TxOptions struct {
	IsoLevel   TxIsolationLevel
	AccessMode TxAccessMode
	// LockTimeout 为 0 时使用 Config.LockTimeout，<0 表示不限制
	LockTimeoutMillis int64
}

// WithTx 使用默认选项执行事务
func (c *Client) WithTx(ctx context.Context, fn func(Tx) error) error {
	return c.WithTxOptions(ctx, TxOptions{}, fn)
}

// WithTxOptions 开启事务执行 fn，fn 返回错误或 panic 时回滚，否则提交
func (c *Client) WithTxOptions(ctx context.Context, opts TxOptions, fn func(Tx) error) (err error) {
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.TxIsoLevel(opts.IsoLevel),
		AccessMode: pgx.TxAccessMode(opts.AccessMode),
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.Background())
		}
	}()

	lockTimeout := opts.LockTimeoutMillis
	if lockTimeout == 0 {
		lockTimeout = c.cfg.LockTimeout.Milliseconds()
	}
	if lockTimeout > 0 {
		// SET 不支持参数占位符
		if _, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout)); err != nil {
			return fmt.Errorf("failed to set lock_timeout: %w", err)
		}
	}

	if err = fn(&txWrapper{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
