package errors

import "net/http"

// 通用业务错误码，后两位对应 HTTP 状态码的后两位
const (
	CodeOK                 = 0
	CodeInvalidParams      = 40001
	CodeNotFound           = 40004
	CodeConflict           = 40009
	CodeLocked             = 40023
	CodeRateLimited        = 40029
	CodeInternalError      = 50000
	CodeServiceUnavailable = 50003
)

var statusByCode = map[int]int{
	CodeOK:                 http.StatusOK,
	CodeInvalidParams:      http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeConflict:           http.StatusConflict,
	CodeLocked:             http.StatusLocked,
	CodeRateLimited:        http.StatusTooManyRequests,
	CodeInternalError:      http.StatusInternalServerError,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
}

// CodeToStatus 将业务错误码映射为 HTTP 状态码
func CodeToStatus(code int) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	switch {
	case code >= 40000 && code < 50000:
		return http.StatusBadRequest
	case code >= 50000:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
