package shared

import (
	"context"

	"github.com/google/uuid"
)

// Role enumerates actor authority levels recognised by the engine.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
)

// Actor carries the tenant scope and identity attached to every engine call.
// The surrounding gateway authenticates the caller; the engine only consumes it.
type Actor struct {
	OrgID    uuid.UUID
	BranchID uuid.UUID
	UserID   int64
	Role     Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// CanVoidProduction reports whether the role may void a posted production batch.
func (r Role) CanVoidProduction() bool {
	return r == RoleOwner || r == RoleManager
}

// CanReopenPeriod reports whether the role may reopen a closed period.
func (r Role) CanReopenPeriod() bool {
	return r == RoleOwner
}

// CanForceClose reports whether the role may force-close past a blocked preclose check.
func (r Role) CanForceClose() bool {
	return r == RoleOwner
}

// CanApproveCloseRequest reports whether the role may approve or reject close requests.
func (r Role) CanApproveCloseRequest() bool {
	return r == RoleOwner || r == RoleManager
}
