// Package ownership decides whether a requester may mutate a resource.
package ownership

import (
	"errors"
	"strings"
)

// ErrUnauthorized is returned when the requester is not the resource owner.
var ErrUnauthorized = errors.New("requester does not own resource")

// Owned is implemented by every resource that carries an immutable owner.
type Owned interface {
	OwnerID() string
}

// Authorize succeeds only when both ids are present and equal after
// normalization. An absent requester never matches.
func Authorize(ownerID, requesterID string) error {
	owner, requester := normalize(ownerID), normalize(requesterID)
	if owner == "" || requester == "" || owner != requester {
		return ErrUnauthorized
	}
	return nil
}

// Check is Authorize applied to a resource.
func Check(resource Owned, requesterID string) error {
	return Authorize(resource.OwnerID(), requesterID)
}

// ids are ULIDs, which compare case-insensitively
func normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
