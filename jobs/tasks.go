package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
)

// ActorScope carries the tenant scope a task runs under. Tasks execute outside
// a request, so the enqueuing call captures its actor here and the handler
// restores it before touching any service.
type ActorScope struct {
	OrgID    uuid.UUID   `json:"org_id"`
	BranchID uuid.UUID   `json:"branch_id"`
	UserID   int64       `json:"user_id"`
	Role     shared.Role `json:"role"`
}

// ScopeFromActor captures an actor for embedding into a task payload.
func ScopeFromActor(actor shared.Actor) ActorScope {
	return ActorScope{
		OrgID:    actor.OrgID,
		BranchID: actor.BranchID,
		UserID:   actor.UserID,
		Role:     actor.Role,
	}
}

// Context returns ctx with the scoped actor attached.
func (s ActorScope) Context(ctx context.Context) context.Context {
	return shared.ContextWithActor(ctx, shared.Actor{
		OrgID:    s.OrgID,
		BranchID: s.BranchID,
		UserID:   s.UserID,
		Role:     s.Role,
	})
}
