package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/propagation"

	"github.com/lk2023060901/xdooria-gacha/pkg/otel"
)

// Tracing 分布式追踪中间件
func Tracing(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := otel.Tracer("web").Start(
			ctx,
			fmt.Sprintf("%s %s", c.Request.Method, route),
			otel.WithSpanKind(otel.SpanKindServer),
			otel.WithAttributes(
				otel.String("http.method", c.Request.Method),
				otel.String("http.route", route),
				otel.String("service.name", serviceName),
			),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(otel.Int("http.status_code", status))

		var err error
		switch {
		case len(c.Errors) > 0:
			err = c.Errors.Last().Err
		case status >= 500:
			err = fmt.Errorf("HTTP status %d", status)
		}
		otel.EndSpan(span, err)
	}
}
