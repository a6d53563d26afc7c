package quest

import "errors"

// Validation errors are surfaced synchronously and never create a sync
// operation: the mutation is rejected before any local write.
var (
	// ErrNotFound indicates the quest (or session) does not exist locally.
	ErrNotFound = errors.New("quest not found")

	// ErrAccessDenied indicates the caller does not own the quest.
	ErrAccessDenied = errors.New("access denied")

	// ErrLockedDifficulty indicates an edit to a difficulty-affecting field
	// while the difficulty lock is held. Unlock-and-revalidate is the only
	// way past it.
	ErrLockedDifficulty = errors.New("difficulty is locked; unlock and revalidate first")

	// ErrSessionClosed indicates a completion attempt on a session that is
	// no longer active. XP is credited exactly once per session.
	ErrSessionClosed = errors.New("session is not active")
)
