package domain

import "time"

// Role tags carried by an actor. Membership is resolved by the identity
// layer; the authorization guard only performs membership tests.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAgent   Role = "agent"
	RoleHandler Role = "handler"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the persisted account record for anyone who can log in.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
}

// Actor is the capability-tagged caller every operation receives. Roles is
// the set of role tags the identity layer resolved for the user.
// LegacySession marks callers authenticated through the backward-compatible
// handler session path; the guard treats it as satisfying the
// handler-binding check.
type Actor struct {
	UserID        string
	Roles         map[Role]struct{}
	LegacySession bool
}

// NewActor builds an actor with the given role tags.
func NewActor(userID string, roles ...Role) *Actor {
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return &Actor{UserID: userID, Roles: set}
}

// HasRole reports membership of a single role tag.
func (a *Actor) HasRole(role Role) bool {
	if a == nil {
		return false
	}
	_, ok := a.Roles[role]
	return ok
}

// RoleList returns the actor's role tags as a slice, for serialization.
func (a *Actor) RoleList() []Role {
	if a == nil {
		return nil
	}
	out := make([]Role, 0, len(a.Roles))
	for r := range a.Roles {
		out = append(out, r)
	}
	return out
}
