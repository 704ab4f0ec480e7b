package service

import (
	"context"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/rates"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/txlog"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// PlayerConfig 新玩家初始资源
type PlayerConfig struct {
	StartingGrace int64 `mapstructure:"starting_grace" json:"starting_grace" yaml:"starting_grace"`
	StartingRikis int64 `mapstructure:"starting_rikis" json:"starting_rikis" yaml:"starting_rikis"`
}

// DefaultPlayerConfig 默认配置
func DefaultPlayerConfig() *PlayerConfig {
	return &PlayerConfig{
		StartingGrace: 50,
		StartingRikis: 10000,
	}
}

// PlayerService 玩家账户、持有、流水与概率表的只读查询，以及开户
type PlayerService struct {
	logger logger.Logger
	cfg    *PlayerConfig
	store  repository.Store
	txlog  *txlog.Log
	rates  *rates.Cache
}

func NewPlayerService(
	l logger.Logger,
	cfg *PlayerConfig,
	store repository.Store,
	log *txlog.Log,
	rateCache *rates.Cache,
) *PlayerService {
	if cfg == nil {
		cfg = DefaultPlayerConfig()
	}
	return &PlayerService{
		logger: l.Named("service.player"),
		cfg:    cfg,
		store:  store,
		txlog:  log,
		rates:  rateCache,
	}
}

// Register 创建 1 级玩家并发放初始资源，已存在时返回现有账户
func (s *PlayerService) Register(ctx context.Context, playerID int64) (*model.Player, error) {
	if playerID <= 0 {
		return nil, errcode.Validation("player_id", "must be positive, got %d", playerID)
	}
	p := model.NewPlayer(playerID)
	p.Grace = s.cfg.StartingGrace
	p.Rikis = s.cfg.StartingRikis

	// 开户与初始资源流水同一事务写入，已存在的账户不记流水
	var created bool
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		created, err = tx.InsertPlayer(ctx, p)
		if err != nil || !created {
			return err
		}
		_, err = s.txlog.Append(ctx, tx, playerID, model.TxPlayerRegistered, txlog.RegistrationPayload{
			Level:         p.Level,
			StartingGrace: p.Grace,
			StartingRikis: p.Rikis,
		}, txlog.ContextFrom(ctx))
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to register player", "player_id", playerID, "error", err)
		return nil, err
	}
	if created {
		s.logger.InfoContext(ctx, "player registered", "player_id", playerID)
	}
	return s.store.GetPlayer(ctx, playerID)
}

// GetPlayer 玩家账户快照
func (s *PlayerService) GetPlayer(ctx context.Context, playerID int64) (*model.Player, error) {
	return s.store.GetPlayer(ctx, playerID)
}

// Inventory 玩家持有的角色
func (s *PlayerService) Inventory(ctx context.Context, playerID int64) ([]model.InventoryEntry, error) {
	if _, err := s.store.GetPlayer(ctx, playerID); err != nil {
		return nil, err
	}
	return s.store.Inventories(ctx, playerID)
}

// Transactions 玩家最近的流水
func (s *PlayerService) Transactions(ctx context.Context, playerID int64, limit int) ([]model.TransactionRecord, error) {
	return s.txlog.ListByPlayer(ctx, playerID, limit)
}

// Rates 指定等级的概率表
func (s *PlayerService) Rates(level int) (*rates.Table, error) {
	return s.rates.Get(level)
}
