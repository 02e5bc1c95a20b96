// Package lock implements the exclusive fencing lock manager: an
// in-memory map keyed by (scope, resourceType, resourceId),
// guarded by a single small mutex, with fence tokens re-checked immediately
// before a write commits.
package lock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultLeaseDuration is the default time a lock survives without a
// heartbeat before it auto-expires; leases extend on heartbeat.
const DefaultLeaseDuration = 10 * time.Minute

// Holder describes the current holder of a resource lock.
type Holder struct {
	SessionID  string
	AcquiredAt time.Time
	ExpiresAt  time.Time
	Reason     string
	FenceToken uint64
}

// AcquireResult is returned by Acquire.
type AcquireResult struct {
	Success    bool
	FenceToken uint64
	Holder     *Holder // set when Success is false
}

// ChangeEvent is emitted on every acquire/release as
// resource:lock.changed.
type ChangeEvent struct {
	Action       string // "locked" | "unlocked"
	Scope        string
	ResourceType string
	ResourceID   string
	SessionID    string
	Reason       string
}

type resourceKey struct {
	scope        string
	resourceType string
	resourceID   string
}

type readRecord struct {
	mtime time.Time
}

// Manager is the process-wide lock manager. One instance is shared across
// all scopes; resource keys are namespaced by scope so scopes never
// observe each other's locks.
type Manager struct {
	mu        sync.Mutex
	holders   map[resourceKey]*Holder
	readHist  map[resourceKey]map[string]readRecord // resource -> sessionID -> record
	fenceSeq  atomic.Uint64
	listeners []func(ChangeEvent)
}

// New creates an empty lock manager.
func New() *Manager {
	return &Manager{
		holders:  make(map[resourceKey]*Holder),
		readHist: make(map[resourceKey]map[string]readRecord),
	}
}

// Subscribe registers a callback invoked synchronously on every lock change.
// Callers that need asynchronous, non-blocking delivery should bridge
// through internal/events instead of holding up the lock manager here.
func (m *Manager) Subscribe(fn func(ChangeEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(ev ChangeEvent) {
	for _, fn := range m.listeners {
		fn(ev)
	}
}

// Acquire attempts to take exclusive ownership of a resource for sessionID.
// It succeeds only if the resource has no current (unexpired) holder.
func (m *Manager) Acquire(scope, resourceType, resourceID, sessionID, reason string) AcquireResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := resourceKey{scope, resourceType, resourceID}
	now := time.Now()

	if h, ok := m.holders[key]; ok {
		if h.ExpiresAt.After(now) {
			holder := *h
			return AcquireResult{Success: false, Holder: &holder}
		}
		// Expired lease: reclaim silently.
		delete(m.holders, key)
	}

	token := m.fenceSeq.Add(1)
	m.holders[key] = &Holder{
		SessionID:  sessionID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(DefaultLeaseDuration),
		Reason:     reason,
		FenceToken: token,
	}

	m.notify(ChangeEvent{Action: "locked", Scope: scope, ResourceType: resourceType, ResourceID: resourceID, SessionID: sessionID, Reason: reason})
	return AcquireResult{Success: true, FenceToken: token}
}

// Release gives up a lock. It is a no-op unless sessionID matches the
// current holder.
func (m *Manager) Release(scope, resourceType, resourceID, sessionID string) {
	m.mu.Lock()
	key := resourceKey{scope, resourceType, resourceID}
	h, ok := m.holders[key]
	if !ok || h.SessionID != sessionID {
		m.mu.Unlock()
		return
	}
	delete(m.holders, key)
	m.mu.Unlock()

	m.notify(ChangeEvent{Action: "unlocked", Scope: scope, ResourceType: resourceType, ResourceID: resourceID, SessionID: sessionID})
}

// Claim forcibly takes over a resource regardless of its current holder,
// for the `prizm_lock.claim` tool action.
// Unlike Acquire it always succeeds, evicting any prior holder.
func (m *Manager) Claim(scope, resourceType, resourceID, sessionID, reason string) AcquireResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := resourceKey{scope, resourceType, resourceID}
	now := time.Now()
	token := m.fenceSeq.Add(1)
	m.holders[key] = &Holder{
		SessionID:  sessionID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(DefaultLeaseDuration),
		Reason:     reason,
		FenceToken: token,
	}

	m.notify(ChangeEvent{Action: "locked", Scope: scope, ResourceType: resourceType, ResourceID: resourceID, SessionID: sessionID, Reason: reason})
	return AcquireResult{Success: true, FenceToken: token}
}

// ForceRelease releases a resource's lock regardless of which session
// holds it, for the `prizm_lock.release` tool action — distinct from the
// holder-only Release used for a normal `checkin`.
func (m *Manager) ForceRelease(scope, resourceType, resourceID string) {
	m.mu.Lock()
	key := resourceKey{scope, resourceType, resourceID}
	h, ok := m.holders[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.holders, key)
	m.mu.Unlock()

	m.notify(ChangeEvent{Action: "unlocked", Scope: scope, ResourceType: resourceType, ResourceID: resourceID, SessionID: h.SessionID})
}

// Heartbeat extends a held lock's lease. It is a no-op if sessionID does
// not hold the lock.
func (m *Manager) Heartbeat(scope, resourceType, resourceID, sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := resourceKey{scope, resourceType, resourceID}
	h, ok := m.holders[key]
	if !ok || h.SessionID != sessionID {
		return false
	}
	h.ExpiresAt = time.Now().Add(DefaultLeaseDuration)
	return true
}

// Get returns the current holder of a resource, or nil if unlocked or the
// lease has expired.
func (m *Manager) Get(scope, resourceType, resourceID string) *Holder {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := resourceKey{scope, resourceType, resourceID}
	h, ok := m.holders[key]
	if !ok || !h.ExpiresAt.After(time.Now()) {
		return nil
	}
	holder := *h
	return &holder
}

// CheckFence verifies that token is still the current fence token for a
// resource. Writers call this both before computing new content and
// immediately before persisting it (the two-phase fence check); a
// mismatch means the lock was lost between the two checks.
func (m *Manager) CheckFence(scope, resourceType, resourceID string, token uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := resourceKey{scope, resourceType, resourceID}
	h, ok := m.holders[key]
	if !ok || !h.ExpiresAt.After(time.Now()) || h.FenceToken != token {
		return fmt.Errorf("fence lost for %s/%s", resourceType, resourceID)
	}
	return nil
}

// RecordRead records that sessionID observed a resource at mtime, for
// conflict-detection heuristics.
func (m *Manager) RecordRead(scope, sessionID, resourceType, resourceID string, mtime time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := resourceKey{scope, resourceType, resourceID}
	sessions, ok := m.readHist[key]
	if !ok {
		sessions = make(map[string]readRecord)
		m.readHist[key] = sessions
	}
	sessions[sessionID] = readRecord{mtime: mtime}
}

// LastRead returns the mtime sessionID last observed for a resource.
func (m *Manager) LastRead(scope, sessionID, resourceType, resourceID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := resourceKey{scope, resourceType, resourceID}
	sessions, ok := m.readHist[key]
	if !ok {
		return time.Time{}, false
	}
	rec, ok := sessions[sessionID]
	return rec.mtime, ok
}

// ActiveCount returns the number of unexpired locks currently held within
// scope, for internal/rpc's metrics snapshot.
func (m *Manager) ActiveCount(scope string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	n := 0
	for key, h := range m.holders {
		if key.scope == scope && h.ExpiresAt.After(now) {
			n++
		}
	}
	return n
}

// ReleaseSession releases every lock held by sessionID, e.g. on session
// teardown.
func (m *Manager) ReleaseSession(scope, sessionID string) {
	m.mu.Lock()
	var toNotify []resourceKey
	for key, h := range m.holders {
		if key.scope == scope && h.SessionID == sessionID {
			toNotify = append(toNotify, key)
			delete(m.holders, key)
		}
	}
	m.mu.Unlock()

	for _, key := range toNotify {
		m.notify(ChangeEvent{Action: "unlocked", Scope: key.scope, ResourceType: key.resourceType, ResourceID: key.resourceID, SessionID: sessionID})
	}
}
