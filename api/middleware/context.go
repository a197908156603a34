package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/floristeria-backend/internal/orders"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.Role {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.Role); ok {
		return v
	}
	return ""
}

// ActorFromContext returns the authenticated caller. ok is false on
// unauthenticated routes.
func ActorFromContext(ctx context.Context) (orders.Actor, bool) {
	if ctx == nil {
		return orders.Actor{}, false
	}
	id, ok := ctx.Value(ctxUserID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return orders.Actor{}, false
	}
	return orders.Actor{UserID: id, Role: RoleFromContext(ctx)}, true
}

// WithActor injects the caller identity into the context.
func WithActor(ctx context.Context, userID uuid.UUID, role enums.Role) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, role)
}
