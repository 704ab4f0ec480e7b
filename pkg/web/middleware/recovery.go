package middleware

import (
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
	"github.com/lk2023060901/xdooria-gacha/pkg/sentry"
)

// Recovery 异常恢复中间件，panic 记录日志并上报 reporter
func Recovery(l logger.Logger, reporter sentry.Reporter) gin.HandlerFunc {
	if reporter == nil {
		reporter = sentry.NewNoop()
	}
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			httpRequest, _ := httputil.DumpRequest(c.Request, false)
			if isBrokenPipe(rec) {
				l.Error("http broken pipe",
					"error", rec,
					"request", string(httpRequest),
				)
				if err, ok := rec.(error); ok {
					_ = c.Error(err)
				}
				c.Abort()
				return
			}

			l.Error("http recovery from panic",
				"error", rec,
				"request", string(httpRequest),
			)
			reporter.CapturePanic(c.Request.Context(), rec)
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

func isBrokenPipe(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
