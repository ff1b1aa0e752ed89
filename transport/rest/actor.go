package rest

import (
	"context"
	"net/http"
	"strconv"

	"recordbin/domain/record"
	"recordbin/errors"
	"recordbin/logging"
)

// 网关注入的身份头
const (
	HeaderActorID       = "X-Actor-ID"
	HeaderActorElevated = "X-Actor-Elevated"
)

type actorKey struct{}

// ActorFrom 取出请求中的操作人
func ActorFrom(ctx context.Context) (record.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(record.Actor)
	return a, ok
}

// WithActor 把操作人放入 context
func WithActor(ctx context.Context, a record.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// requireActor 解析身份头，缺失或非法时返回 401
func requireActor(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderActorID)
			id, err := strconv.ParseInt(raw, 10, 64)
			if raw == "" || err != nil || id <= 0 {
				respondError(w, r, logger, errors.NewError(errors.ErrCodeUnauthorized, "missing or invalid "+HeaderActorID))
				return
			}
			elevated, _ := strconv.ParseBool(r.Header.Get(HeaderActorElevated))
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), record.Actor{ID: id, Elevated: elevated})))
		})
	}
}
