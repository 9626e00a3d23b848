// Package identity defines the caller principal attached to every request.
package identity

import (
	id "recordvault/pkg/domain"
)

// Identity is the authenticated (or anonymous) caller principal. Anonymous
// callers have Authenticated=false and a nil ID; they can still read
// published records.
type Identity struct {
	ID            id.OwnerID
	Authenticated bool
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Identity {
	return Identity{}
}

// Authenticated returns a principal for the given owner id.
func Authenticated(ownerID id.OwnerID) Identity {
	return Identity{ID: ownerID, Authenticated: true}
}

// Owns reports whether this identity is the authenticated owner of ownerID.
// Anonymous identities own nothing.
func (i Identity) Owns(ownerID id.OwnerID) bool {
	return i.Authenticated && !i.ID.IsNil() && i.ID == ownerID
}
