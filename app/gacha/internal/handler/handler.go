package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/txlog"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/sentry"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
)

// GachaHandler 召唤、融合与玩家查询的 HTTP 入口
type GachaHandler struct {
	summon   *service.SummonService
	fusion   *service.FusionService
	players  *service.PlayerService
	roster   *service.RosterService
	reporter sentry.Reporter
	logger   logger.Logger
}

// NewGachaHandler 创建处理器，reporter 为 nil 时不上报
func NewGachaHandler(
	summon *service.SummonService,
	fusion *service.FusionService,
	players *service.PlayerService,
	roster *service.RosterService,
	reporter sentry.Reporter,
	l logger.Logger,
) *GachaHandler {
	if reporter == nil {
		reporter = sentry.NewNoop()
	}
	return &GachaHandler{
		summon:   summon,
		fusion:   fusion,
		players:  players,
		roster:   roster,
		reporter: reporter,
		logger:   l.Named("handler.gacha"),
	}
}

// RegisterRequest 开户请求
type RegisterRequest struct {
	PlayerID int64 `json:"player_id" binding:"required,gt=0"`
}

// BatchSummonRequest 批量召唤请求
type BatchSummonRequest struct {
	Count int `json:"count" binding:"required,gt=0"`
}

// FusionRequest 融合请求
type FusionRequest struct {
	MaidenID  int64 `json:"maiden_id" binding:"required,gt=0"`
	Quantity  int64 `json:"quantity" binding:"required"`
	UseShards bool  `json:"use_shards"`
}

// Register 注册路由
func (h *GachaHandler) Register(r gin.IRouter) {
	api := r.Group("/api/v1")
	{
		api.GET("/rates", h.Rates)
		api.POST("/players", h.RegisterPlayer)
		api.GET("/players/:id", h.GetPlayer)
		api.GET("/players/:id/inventory", h.Inventory)
		api.GET("/players/:id/transactions", h.Transactions)
		api.POST("/players/:id/summon", h.Summon)
		api.POST("/players/:id/summon/batch", h.BatchSummon)
		api.POST("/players/:id/fusion", h.Fusion)
		api.POST("/admin/roster/refresh", h.RefreshRoster)
	}
}

// Rates 指定等级的品阶概率
// @Router /api/v1/rates [get]
func (h *GachaHandler) Rates(c *gin.Context) {
	level, ok := web.QueryInt(c, "level", 1)
	if !ok {
		return
	}
	table, err := h.players.Rates(level)
	if err != nil {
		h.writeError(c, err)
		return
	}
	web.Success(c, gin.H{
		"level":       table.Level,
		"entries":     table.Entries,
		"percentages": table.Percentages(),
	})
}

// RegisterPlayer 开户，重复调用返回已有账户
// @Router /api/v1/players [post]
func (h *GachaHandler) RegisterPlayer(c *gin.Context) {
	var req RegisterRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	p, err := h.players.Register(h.ctx(c), req.PlayerID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	web.Success(c, p)
}

// GetPlayer 玩家账户
// @Router /api/v1/players/{id} [get]
func (h *GachaHandler) GetPlayer(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	p, err := h.players.GetPlayer(h.ctx(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	web.Success(c, p)
}

// Inventory 玩家持有
// @Router /api/v1/players/{id}/inventory [get]
func (h *GachaHandler) Inventory(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	entries, err := h.players.Inventory(h.ctx(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if entries == nil {
		entries = []model.InventoryEntry{}
	}
	web.Success(c, entries)
}

// Transactions 玩家最近流水
// @Router /api/v1/players/{id}/transactions [get]
func (h *GachaHandler) Transactions(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	limit, ok := web.QueryInt(c, "limit", txlog.DefaultListLimit)
	if !ok {
		return
	}
	recs, err := h.players.Transactions(h.ctx(c), id, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if recs == nil {
		recs = []model.TransactionRecord{}
	}
	web.Success(c, recs)
}

// Summon 单抽
// @Router /api/v1/players/{id}/summon [post]
func (h *GachaHandler) Summon(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	out, err := h.summon.PerformSummon(h.ctx(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	web.Success(c, out)
}

// BatchSummon 批量召唤，count 必须是配置允许的批量次数
// @Router /api/v1/players/{id}/summon/batch [post]
func (h *GachaHandler) BatchSummon(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	var req BatchSummonRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	out, err := h.summon.BatchSummon(h.ctx(c), id, req.Count)
	if err != nil {
		h.writeError(c, err)
		return
	}
	web.Success(c, out)
}

// Fusion 融合
// @Router /api/v1/players/{id}/fusion [post]
func (h *GachaHandler) Fusion(c *gin.Context) {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return
	}
	var req FusionRequest
	if !web.BindAndValidate(c, &req) {
		return
	}
	res, err := h.fusion.ExecuteFusion(h.ctx(c), model.FusionRequest{
		PlayerID:  id,
		MaidenID:  req.MaidenID,
		Quantity:  req.Quantity,
		UseShards: req.UseShards,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	web.Success(c, res)
}

// RefreshRoster 立即重新加载图鉴
// @Router /api/v1/admin/roster/refresh [post]
func (h *GachaHandler) RefreshRoster(c *gin.Context) {
	r, err := h.roster.Refresh(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	web.Success(c, gin.H{"maidens": r.Len(), "tiers": r.Tiers()})
}

// Health 健康检查
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
