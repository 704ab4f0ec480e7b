package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/xdooria-gacha/pkg/otel"
	"github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 提示信息
	Data    any    `json:"data"`    // 数据载体
	TraceID string `json:"trace_id,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    errors.CodeOK,
		Message: "ok",
		Data:    data,
		TraceID: otel.TraceIDFromContext(c.Request.Context()),
	})
}

// Error 错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		TraceID: otel.TraceIDFromContext(c.Request.Context()),
	})
}

// ErrorWithData 错误响应并附带结构化细节（如资源不足时的 required/available）
func ErrorWithData(c *gin.Context, httpStatus int, code int, message string, data any) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    data,
		TraceID: otel.TraceIDFromContext(c.Request.Context()),
	})
}

// AbortWithError 中断并返回错误
func AbortWithError(c *gin.Context, httpStatus int, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, Response{
		Code:    code,
		Message: message,
		TraceID: otel.TraceIDFromContext(c.Request.Context()),
	})
}
