// Package agent holds in-process coordination primitives for chat-session
// writes and guards applied to agent tool output.
package agent

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	defaultLockKey   = "chat-session"
	defaultLockOwner = "owner"

	minLockTimeout = 100 * time.Millisecond
	minStaleAfter  = time.Second

	// waitChunk caps how long a waiter sleeps before rechecking the table,
	// so stale holders are detected ahead of the caller's deadline.
	waitChunk = 200 * time.Millisecond
)

// LockTimeoutError reports an acquire that hit its deadline, including the
// identity of the holder for diagnostics.
type LockTimeoutError struct {
	LockKey string
	Holder  string
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("session lock timeout for key '%s' (held by '%s')", e.LockKey, e.Holder)
}

// SessionLockHandle is the metadata for an acquired session lock. Release
// must be called on every exit path.
type SessionLockHandle struct {
	LockKey        string
	Owner          string
	StaleReclaimed bool

	lock *SessionWriteLock
}

type lockEntry struct {
	owner      string
	acquiredAt time.Time
}

// SessionWriteLock is a cooperative in-memory lock keyed by chat session.
// At most one owner holds a key at any instant; a holder older than the
// staleness threshold is presumed dead and may be reclaimed.
type SessionWriteLock struct {
	mu     sync.Mutex
	owners map[string]lockEntry
	notify chan struct{}
}

func NewSessionWriteLock() *SessionWriteLock {
	return &SessionWriteLock{
		owners: make(map[string]lockEntry),
		notify: make(chan struct{}),
	}
}

// Acquire takes the lock for lockKey on behalf of owner, waiting up to
// timeout. A holder older than staleAfter is reclaimed and the handle is
// marked StaleReclaimed. Blank key and owner fall back to defaults; timeout
// and staleAfter are floored to 100ms and 1s respectively. Lock age uses the
// monotonic clock, so wall-clock jumps never trigger spurious reclamation.
func (l *SessionWriteLock) Acquire(lockKey, owner string, timeout, staleAfter time.Duration) (*SessionLockHandle, error) {
	key := strings.TrimSpace(lockKey)
	if key == "" {
		key = defaultLockKey
	}
	ownerID := strings.TrimSpace(owner)
	if ownerID == "" {
		ownerID = defaultLockOwner
	}
	if timeout < minLockTimeout {
		timeout = minLockTimeout
	}
	if staleAfter < minStaleAfter {
		staleAfter = minStaleAfter
	}

	deadline := time.Now().Add(timeout)

	l.mu.Lock()
	for {
		now := time.Now()
		current, held := l.owners[key]
		if !held {
			l.owners[key] = lockEntry{owner: ownerID, acquiredAt: now}
			l.mu.Unlock()
			return &SessionLockHandle{LockKey: key, Owner: ownerID, lock: l}, nil
		}

		if now.Sub(current.acquiredAt) > staleAfter {
			l.owners[key] = lockEntry{owner: ownerID, acquiredAt: now}
			l.mu.Unlock()
			return &SessionLockHandle{LockKey: key, Owner: ownerID, StaleReclaimed: true, lock: l}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			l.mu.Unlock()
			return nil, &LockTimeoutError{LockKey: key, Holder: current.owner}
		}

		chunk := remaining
		if chunk > waitChunk {
			chunk = waitChunk
		}

		wake := l.notify
		l.mu.Unlock()

		timer := time.NewTimer(chunk)
		select {
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
		l.mu.Lock()
	}
}

// Release frees the lock. The entry is removed only when the handle's owner
// still holds it, guarding against release after a stale reclamation, and
// all waiters are woken.
func (h *SessionLockHandle) Release() {
	l := h.lock
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, held := l.owners[h.LockKey]; held && current.owner == h.Owner {
		delete(l.owners, h.LockKey)
		close(l.notify)
		l.notify = make(chan struct{})
	}
}

// Holder reports the current owner of a key, if any.
func (l *SessionWriteLock) Holder(lockKey string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, held := l.owners[lockKey]
	return entry.owner, held
}

// Len reports how many keys are currently held.
func (l *SessionWriteLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.owners)
}
