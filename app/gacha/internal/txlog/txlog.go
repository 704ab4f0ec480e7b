package txlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/pkg/idgen"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

type contextKey struct{}

// WithContext 在 ctx 上附带流水的来源描述，例如请求路由
func WithContext(ctx context.Context, txContext string) context.Context {
	return context.WithValue(ctx, contextKey{}, txContext)
}

// ContextFrom 取出来源描述，没有时为空
func ContextFrom(ctx context.Context) string {
	s, _ := ctx.Value(contextKey{}).(string)
	return s
}

// Log 流水记录器，记录与状态变更写在同一个 repository.Tx 中
type Log struct {
	ids   idgen.Generator
	store repository.Store
	now   func() time.Time
}

// New 创建流水记录器
func New(ids idgen.Generator, store repository.Store) *Log {
	return &Log{
		ids:   ids,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Append 生成一条流水并在 tx 内写入
func (l *Log) Append(ctx context.Context, tx repository.Tx, playerID int64, typ model.TransactionType, payload any, txContext string) (*model.TransactionRecord, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %s payload", typ)
	}
	id, err := l.ids.NextID()
	if err != nil {
		return nil, err
	}

	rec := &model.TransactionRecord{
		ID:        id,
		PlayerID:  playerID,
		Type:      typ,
		Payload:   body,
		Context:   txContext,
		CreatedAt: l.now(),
	}
	if err := tx.AppendTransaction(ctx, rec); err != nil {
		return nil, errors.Wrapf(err, "failed to append %s transaction", typ)
	}
	return rec, nil
}

// ListByPlayer 读取玩家最近的流水，limit 缺省 20、上限 200
func (l *Log) ListByPlayer(ctx context.Context, playerID int64, limit int) ([]model.TransactionRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return l.store.Transactions(ctx, playerID, limit)
}
