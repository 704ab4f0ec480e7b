package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/lk2023060901/xdooria-gacha/pkg/web/errors"
)

// BindAndValidate 绑定请求参数并进行校验，失败时已写出 400 响应
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			Error(c, http.StatusBadRequest, errors.CodeInvalidParams, errs.Error())
			return false
		}
		Error(c, http.StatusBadRequest, errors.CodeInvalidParams, "invalid request parameters: "+err.Error())
		return false
	}
	return true
}

// GetQuery 获取查询参数，带默认值
func GetQuery(c *gin.Context, key, defaultValue string) string {
	val := c.Query(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// ParamInt64 解析路径参数为 int64，失败时已写出 400 响应
func ParamInt64(c *gin.Context, key string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || v <= 0 {
		Error(c, http.StatusBadRequest, errors.CodeInvalidParams, "invalid path parameter: "+key)
		return 0, false
	}
	return v, true
}

// QueryInt 解析查询参数为 int，缺省时返回 def，失败时已写出 400 响应
func QueryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		Error(c, http.StatusBadRequest, errors.CodeInvalidParams, "invalid query parameter: "+key)
		return 0, false
	}
	return v, true
}
