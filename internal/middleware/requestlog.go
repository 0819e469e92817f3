package middleware

import (
    "context"
    "log/slog"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.opentelemetry.io/otel/trace"
)

// RequestID stamps every request with an X-Request-ID, keeping one the
// client already sent.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: uuid.NewString,
    })
}

// RequestLogger writes one structured line per request.  Server errors log
// at error level, client errors at warn.
func RequestLogger(log *slog.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogStatus:    true,
        LogURI:       true,
        LogMethod:    true,
        LogLatency:   true,
        LogRemoteIP:  true,
        LogRequestID: true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            attrs := []slog.Attr{
                slog.String("method", v.Method),
                slog.String("uri", v.URI),
                slog.Int("status", v.Status),
                slog.Duration("latency", v.Latency),
                slog.String("remote_ip", v.RemoteIP),
                slog.String("request_id", v.RequestID),
            }
            if sc := trace.SpanContextFromContext(c.Request().Context()); sc.HasTraceID() {
                attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
            }
            level := slog.LevelInfo
            switch {
            case v.Status >= 500:
                level = slog.LevelError
            case v.Status >= 400:
                level = slog.LevelWarn
            }
            if v.Error != nil {
                attrs = append(attrs, slog.String("err", v.Error.Error()))
            }
            log.LogAttrs(context.Background(), level, "request", attrs...)
            return nil
        },
    })
}
