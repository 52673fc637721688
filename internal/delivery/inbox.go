package delivery

// ClaimStore is the narrow persistence capability the durable inbox needs:
// a single conditional update that succeeds at most once per mission.
// internal/store's AtomicClaim satisfies this directly.
type ClaimStore interface {
	AtomicClaim(missionID, agentID, executionID string) (bool, error)
}

// Inbox is the durable fallback an agent consults after a streaming
// delivery drop: it re-attempts the same atomic claim the original
// dispatch used, so a redelivered mission is executed at most once
// regardless of which path (stream or inbox) wins the race.
type Inbox struct {
	store ClaimStore
}

// NewInbox wraps store's atomic claim semantics as a durable inbox.
func NewInbox(store ClaimStore) *Inbox {
	return &Inbox{store: store}
}

// Claim attempts to take ownership of missionID for agentID under a fresh
// executionID. A false result with no error means the mission was already
// claimed elsewhere (by the streaming path or a competing inbox reader);
// callers must treat that as a normal, silent no-op rather than an error.
func (ib *Inbox) Claim(missionID, agentID, executionID string) (bool, error) {
	return ib.store.AtomicClaim(missionID, agentID, executionID)
}
