package handler

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/errcode"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/txlog"
	"github.com/lk2023060901/xdooria-gacha/pkg/web"
	webErrors "github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
)

// InsufficientDetail 资源不足时附带在响应 data 中
type InsufficientDetail struct {
	Resource  string `json:"resource"`
	Required  int64  `json:"required"`
	Available int64  `json:"available"`
}

// ctx 为请求上下文附加流水来源标记
func (h *GachaHandler) ctx(c *gin.Context) context.Context {
	return txlog.WithContext(c.Request.Context(), "http:"+c.FullPath())
}

// writeError 按错误种类写出响应，未识别的错误按 500 上报
func (h *GachaHandler) writeError(c *gin.Context, err error) {
	if ie, ok := errcode.AsInsufficient(err); ok {
		web.ErrorWithData(c, http.StatusConflict, webErrors.CodeConflict, ie.Error(), InsufficientDetail{
			Resource:  ie.Resource,
			Required:  ie.Required,
			Available: ie.Available,
		})
		return
	}

	switch {
	case errors.Is(err, errcode.ErrPlayerNotFound), errors.Is(err, errcode.ErrMaidenNotFound):
		web.Error(c, http.StatusNotFound, webErrors.CodeNotFound, err.Error())
	case errors.Is(err, errcode.ErrValidation):
		web.Error(c, http.StatusBadRequest, webErrors.CodeInvalidParams, err.Error())
	case errors.Is(err, errcode.ErrRateLimited):
		c.Header("Retry-After", "1")
		web.Error(c, http.StatusTooManyRequests, webErrors.CodeRateLimited, err.Error())
	case errors.Is(err, errcode.ErrLockTimeout):
		web.Error(c, http.StatusLocked, webErrors.CodeLocked, "player is busy, retry later")
	case errors.Is(err, errcode.ErrConcurrency):
		web.Error(c, http.StatusServiceUnavailable, webErrors.CodeServiceUnavailable, "concurrent modification, retry later")
	default:
		h.logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		h.reporter.CaptureError(c.Request.Context(), err, map[string]string{
			"path":   c.FullPath(),
			"method": c.Request.Method,
		})
		web.Error(c, http.StatusInternalServerError, webErrors.CodeInternalError, "internal error")
	}
}
