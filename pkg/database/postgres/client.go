package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryBuilder squirrel 构建器，统一使用 $n 占位符
var QueryBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Querier Client 与 Tx 的公共读写能力，DAO 通过它同时支持事务内外调用
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Client PostgreSQL 客户端
type Client struct {
	pool *pgxpool.Pool
	cfg  *Config
}

var _ Querier = (*Client)(nil)

// New 创建客户端并验证连通性
func New(cfg *Config) (*Client, error) {
	newCfg, err := MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(newCfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}
	poolCfg.MaxConns = newCfg.Pool.MaxConns
	poolCfg.MinConns = newCfg.Pool.MinConns
	poolCfg.MaxConnLifetime = newCfg.Pool.MaxConnLifetime
	poolCfg.MaxConnIdleTime = newCfg.Pool.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = newCfg.Pool.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(context.Background(), newCfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{pool: pool, cfg: newCfg}, nil
}

// Config 返回合并后的配置
func (c *Client) Config() *Config {
	return c.cfg
}

func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close 关闭连接池
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

func (c *Client) applyQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.QueryTimeout)
	}
	return ctx, func() {}
}

// Query 查询多行，调用方负责 rows.Close()
// 超时由调用方的 ctx 控制，rows 生命周期长于本函数
func (c *Client) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rows, nil
}

// QueryRow 查询单行
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.pool.QueryRow(ctx, sql, args...)
}

// Exec 执行写操作
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	tag, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
