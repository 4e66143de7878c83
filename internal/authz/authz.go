// Package authz holds the pure authorization rules. Callers fetch the rows;
// these functions only decide.
package authz

import "warmwall/internal/models"

// Actor is the authenticated caller as decoded from the session token.
type Actor struct {
	ID       uint
	Username string
	Role     string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanModify: admins may modify anything, everyone else only what they own.
// A nil owner (anonymous content) is modifiable by admins only.
func CanModify(actor Actor, ownerID *uint) bool {
	if actor.IsAdmin() {
		return true
	}
	return ownerID != nil && *ownerID == actor.ID
}

// FollowGraph answers whether a directed follow edge exists.
type FollowGraph interface {
	Follows(followerID, followingID uint) bool
}

// Edges is a FollowGraph over an already-fetched set of follow rows.
type Edges map[[2]uint]bool

func NewEdges(rows []models.Follow) Edges {
	e := make(Edges, len(rows))
	for _, r := range rows {
		e[[2]uint{r.FollowerID, r.FollowingID}] = true
	}
	return e
}

func (e Edges) Follows(followerID, followingID uint) bool {
	return e[[2]uint{followerID, followingID}]
}

// CanMessageDirectly requires a follow in both directions.
func CanMessageDirectly(actorID, peerID uint, graph FollowGraph) bool {
	if actorID == peerID {
		return false
	}
	return graph.Follows(actorID, peerID) && graph.Follows(peerID, actorID)
}

// CanDeleteSelf is false when the actor targets their own account.
func CanDeleteSelf(actorID, targetID uint) bool {
	return actorID != targetID
}

// CanChangePassword allows the account owner or an admin.
func CanChangePassword(actor Actor, targetID uint) bool {
	return actor.IsAdmin() || actor.ID == targetID
}

// CanFollow forbids following yourself.
func CanFollow(actorID, targetID uint) bool {
	return actorID != targetID
}
