// Package middleware provides request-scoped logging, rate limiting, metrics and tracing middleware.
package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

type contextKey string

// Keys under which request-scoped ids travel in a context.Context.
const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

// Logger is the process logger. Records logged with a request context carry that
// request's ids.
var Logger = NewLogger(os.Stdout, os.Getenv("APP_ENV"))

// NewLogger writes JSON in production and text elsewhere. Development also logs debug records.
func NewLogger(w io.Writer, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if env == "development" {
		opts.Level = slog.LevelDebug
	}

	var h slog.Handler
	if env == "production" || env == "prod" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(requestAttrs{h})
}

// requestAttrs copies the request, user and trace ids out of the context onto each record.
type requestAttrs struct {
	slog.Handler
}

func (h requestAttrs) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range []contextKey{RequestIDKey, TraceIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			r.AddAttrs(slog.String(string(key), v))
		}
	}
	if uid, ok := ctx.Value(UserIDKey).(uint); ok {
		r.AddAttrs(slog.Uint64(string(UserIDKey), uint64(uid)))
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestAttrs{h.Handler.WithAttrs(attrs)}
}

func (h requestAttrs) WithGroup(name string) slog.Handler {
	return requestAttrs{h.Handler.WithGroup(name)}
}

// RequestContext puts the id assigned by the requestid middleware into the request
// context, where services log with it.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok {
			c.SetUserContext(context.WithValue(c.UserContext(), RequestIDKey, rid))
		}
		return c.Next()
	}
}

// AccessLog logs one record per request after it completes. Server errors log at
// ERROR and client errors at WARN.
func AccessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("route", c.Route().Path),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
		}
		_, authenticated := c.Locals("userID").(uint)
		attrs = append(attrs, slog.Bool("authenticated", authenticated))
		if loc := c.Response().Header.Peek(fiber.HeaderLocation); len(loc) > 0 {
			attrs = append(attrs, slog.String("redirect", string(loc)))
		}

		level := slog.LevelInfo
		switch {
		case err != nil || status >= fiber.StatusInternalServerError:
			level = slog.LevelError
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}

		// The handler's context, so ids set further down the chain are included.
		Logger.LogAttrs(c.UserContext(), level, "request", attrs...)
		return err
	}
}
