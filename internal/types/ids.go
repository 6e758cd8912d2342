package types

import (
	"time"

	"github.com/google/uuid"
)

// NewEventID generates a UUIDv7 event identifier.
// Time-ordered IDs keep sequential inserts clustered in B-tree pages and
// embed the synthesis timestamp. Uniqueness is best-effort, not a
// cryptographic guarantee. Panics on clock regression (uuid.Must);
// acceptable for ID generation.
func NewEventID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// EventIDTime extracts the timestamp embedded in a synthesized UUIDv7 id.
// Returns zero time for ids that were caller-supplied or otherwise not
// valid UUIDs; callers should check IsZero().
func EventIDTime(id string) time.Time {
	u, err := uuid.Parse(id)
	if err != nil || u.Version() != 7 {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
