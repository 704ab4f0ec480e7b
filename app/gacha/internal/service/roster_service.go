package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/gameconfig"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/repository"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// RosterService 角色图鉴，从存储加载并定时刷新
type RosterService struct {
	logger  logger.Logger
	store   repository.Store
	holder  *gameconfig.Holder
	group   singleflight.Group
	current atomic.Pointer[model.Roster]

	mu   sync.Mutex
	cron *cron.Cron
}

func NewRosterService(l logger.Logger, store repository.Store, holder *gameconfig.Holder) *RosterService {
	s := &RosterService{
		logger: l.Named("service.roster"),
		store:  store,
		holder: holder,
	}
	holder.OnChange(func(t *gameconfig.Tunables) {
		if r := s.current.Load(); r != nil {
			if err := ValidateRoster(r, t); err != nil {
				s.logger.Error("roster does not cover reloaded tunables", "error", err)
			}
		}
	})
	return s
}

// ValidateRoster 每个可解锁品阶至少有一个角色
func ValidateRoster(r *model.Roster, t *gameconfig.Tunables) error {
	for _, tier := range t.Tiers() {
		if !r.HasTier(tier) {
			return errcode.Configuration("roster", "no maiden defined for unlockable tier %d", tier)
		}
	}
	return nil
}

// Refresh 重新加载图鉴，并发调用合并为一次查询
// 校验失败时保留旧图鉴
func (s *RosterService) Refresh(ctx context.Context) (*model.Roster, error) {
	v, err, _ := s.group.Do("roster", func() (any, error) {
		defs, err := s.store.Roster(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load roster")
		}
		r := model.NewRoster(defs)
		if err := ValidateRoster(r, s.holder.Load()); err != nil {
			return nil, err
		}
		s.current.Store(r)
		s.logger.Info("roster loaded", "maidens", r.Len(), "tiers", len(r.Tiers()))
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Roster), nil
}

// Current 当前图鉴，尚未加载时为 nil
func (s *RosterService) Current() *model.Roster {
	return s.current.Load()
}

// Roster 返回当前图鉴，尚未加载时同步加载
func (s *RosterService) Roster(ctx context.Context) (*model.Roster, error) {
	if r := s.current.Load(); r != nil {
		return r, nil
	}
	return s.Refresh(ctx)
}

// Start 按 cron 表达式定时刷新，spec 为空时不启动
func (s *RosterService) Start(spec string) error {
	if spec == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Refresh(context.Background()); err != nil {
			s.logger.Error("scheduled roster refresh failed", "error", err)
		}
	}); err != nil {
		return errors.Wrapf(err, "invalid roster refresh schedule %q", spec)
	}
	c.Start()
	s.cron = c
	s.logger.Info("roster refresh scheduled", "spec", spec)
	return nil
}

// Stop 停止定时刷新并等待正在执行的刷新结束
func (s *RosterService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
