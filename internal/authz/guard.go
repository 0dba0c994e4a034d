// Package authz is the authorization guard for ticket operations. Checks
// are pure functions over a capability-tagged actor and a ticket snapshot;
// how the actor got its role tags or legacy-session flag is the identity
// layer's business.
package authz

import (
	"github.com/spec-kit/helpdesk-tracker/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-tracker/pkg/util"
)

// RequireActor rejects calls with no actor context.
func RequireActor(actor *domain.Actor) error {
	if actor == nil || actor.UserID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

// RequireAdmin gates supervisory review, deletion and bulk operations.
func RequireAdmin(actor *domain.Actor) error {
	if err := RequireActor(actor); err != nil {
		return err
	}
	if !actor.HasRole(domain.RoleAdmin) {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CheckAgentUpdate enforces the agent flow's claim-on-write rule: the actor
// must carry the agent tag and the ticket's agent slot must be empty or
// already theirs.
func CheckAgentUpdate(actor *domain.Actor, ticket *domain.Ticket) error {
	if err := RequireActor(actor); err != nil {
		return err
	}
	if !actor.HasRole(domain.RoleAgent) {
		return apperrors.NewForbidden("agent role required")
	}
	if ticket.AgentID != nil && *ticket.AgentID != actor.UserID {
		return apperrors.NewForbidden("not allowed to update this ticket")
	}
	return nil
}

// CheckHandlerUpdate enforces the handler flow's claim-on-write rule. A
// legacy handler session satisfies both the group membership and the
// binding check, matching the backward-compatible session login.
func CheckHandlerUpdate(actor *domain.Actor, ticket *domain.Ticket) error {
	if err := RequireActor(actor); err != nil {
		return err
	}
	if !actor.HasRole(domain.RoleHandler) && !actor.LegacySession {
		return apperrors.NewForbidden("handler role required")
	}
	if ticket.HandlerID == nil || *ticket.HandlerID == actor.UserID || actor.LegacySession {
		return nil
	}
	return apperrors.NewForbidden("not allowed to update this ticket")
}

// CheckClaim validates an explicit handler claim. A claim against a ticket
// bound to someone else is a conflict, not a plain authorization failure.
func CheckClaim(actor *domain.Actor, ticket *domain.Ticket) error {
	if err := RequireActor(actor); err != nil {
		return err
	}
	if !actor.HasRole(domain.RoleHandler) && !actor.LegacySession {
		return apperrors.NewForbidden("handler role required")
	}
	if ticket.HandlerID != nil && *ticket.HandlerID != actor.UserID {
		return apperrors.NewConflict("ticket already claimed", map[string]any{"ticket_id": ticket.ID})
	}
	return nil
}

// CheckView gates reads and commenting: the owner, any staff role, or a
// legacy handler session.
func CheckView(actor *domain.Actor, ticket *domain.Ticket) error {
	if err := RequireActor(actor); err != nil {
		return err
	}
	if ticket.CreatedBy == actor.UserID || actor.LegacySession {
		return nil
	}
	if actor.HasRole(domain.RoleAdmin) || actor.HasRole(domain.RoleAgent) || actor.HasRole(domain.RoleHandler) {
		return nil
	}
	return apperrors.NewForbidden("no access to this ticket")
}

// ShouldBindHandler reports whether a successful handler update on an
// unassigned ticket binds the acting handler to it.
func ShouldBindHandler(actor *domain.Actor, ticket *domain.Ticket) bool {
	return ticket.HandlerID == nil && actor.HasRole(domain.RoleHandler)
}
