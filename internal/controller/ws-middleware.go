package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sharetube/jamroom/internal/metrics"
	"github.com/sharetube/jamroom/internal/service/room"
	"github.com/sharetube/jamroom/pkg/ctxlogger"
	"github.com/sharetube/jamroom/pkg/wsrouter"
)

const (
	outcomeOk       = "ok"
	outcomeDropped  = "dropped"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// outcome classifies a handler error. Dropped messages are expected client noise.
func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOk
	case errors.Is(err, wsrouter.ErrInvalidPayload),
		errors.Is(err, room.ErrMalformedPayload),
		errors.Is(err, room.ErrInvalidRoomId),
		errors.Is(err, room.ErrNotMember),
		errors.Is(err, room.ErrRoomNotFound):
		return outcomeDropped
	default:
		return outcomeError
	}
}

func (c controller) loggerWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc[json.RawMessage]) wsrouter.HandlerFunc[json.RawMessage] {
		return func(ctx context.Context, connId string, payload json.RawMessage) error {
			messageType := wsrouter.GetMessageTypeFromCtx(ctx)
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", messageType))
			c.logger.DebugContext(ctx, "websocket message received", "payload", payload)

			start := time.Now()
			err := next(ctx, connId, payload)

			result := outcome(err)
			metrics.MessagesReceived.WithLabelValues(messageType, result).Inc()

			switch result {
			case outcomeOk:
				c.logger.DebugContext(ctx, "websocket message handled", "processing_time_us", time.Since(start).Microseconds())
			case outcomeDropped:
				c.logger.InfoContext(ctx, "websocket message dropped", "error", err)
			default:
				c.logger.ErrorContext(ctx, "websocket message failed", "error", err)
			}

			return err
		}
	}
}
