package risk

import (
	"context"
	"sync"
	"time"
)

// ProfileStore persists per-identity profiles and attempt logs. Backends
// are swappable: the in-memory store below backs tests and single-node
// deployments, store_postgres.go backs durable multi-node ones.
//
// Get methods return (nil, nil) for a never-seen identity; cold start is
// not an error, each scorer has defined behavior for a missing profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*RiskProfile, error)
	PutProfile(ctx context.Context, profile *RiskProfile) error
	GetAttemptLog(ctx context.Context, userID string) (*AttemptLog, error)
	PutAttemptLog(ctx context.Context, log *AttemptLog) error
}

// StepUpStore persists step-up trust sessions keyed by session ID.
type StepUpStore interface {
	Get(ctx context.Context, sessionID string) (*StepUpSession, error) // nil when absent
	Put(ctx context.Context, session *StepUpSession) error
	Delete(ctx context.Context, sessionID string) error
}

// AlertStore persists security alerts raised on critical decisions.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *SecurityAlert) error
}

// MemoryStore is an in-process ProfileStore, StepUpStore, and AlertStore.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*RiskProfile
	attempts map[string]*AttemptLog
	stepups  map[string]*StepUpSession
	alerts   []*SecurityAlert
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*RiskProfile),
		attempts: make(map[string]*AttemptLog),
		stepups:  make(map[string]*StepUpSession),
	}
}

// GetProfile returns a deep copy of the stored profile, or (nil, nil).
func (m *MemoryStore) GetProfile(_ context.Context, userID string) (*RiskProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profiles[userID].Clone(), nil
}

// PutProfile stores a deep copy of the profile.
func (m *MemoryStore) PutProfile(_ context.Context, profile *RiskProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.UserID] = profile.Clone()
	return nil
}

// GetAttemptLog returns a deep copy of the stored log, or (nil, nil).
func (m *MemoryStore) GetAttemptLog(_ context.Context, userID string) (*AttemptLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts[userID].Clone(), nil
}

// PutAttemptLog stores a deep copy of the log.
func (m *MemoryStore) PutAttemptLog(_ context.Context, log *AttemptLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[log.UserID] = log.Clone()
	return nil
}

// Get returns the stored step-up session, or (nil, nil).
func (m *MemoryStore) Get(_ context.Context, sessionID string) (*StepUpSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stepups[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// Put stores a step-up session.
func (m *MemoryStore) Put(_ context.Context, session *StepUpSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.stepups[session.SessionID] = &cp
	return nil
}

// Delete removes a step-up session.
func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stepups, sessionID)
	return nil
}

// CreateAlert appends a security alert.
func (m *MemoryStore) CreateAlert(_ context.Context, alert *SecurityAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

// Alerts returns the alerts recorded so far. Test helper.
func (m *MemoryStore) Alerts() []*SecurityAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*SecurityAlert(nil), m.alerts...)
}

// identityLocks serializes profile updates per identity. Acquisition waits
// a bounded time so a stuck writer surfaces as a retryable error instead of
// silently dropping an update.
type identityLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{locks: make(map[string]chan struct{})}
}

func (l *identityLocks) lockFor(userID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[userID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[userID] = ch
	}
	return ch
}

// Acquire takes the identity's lock, waiting at most maxWait. Returns false
// on timeout or context cancellation.
func (l *identityLocks) Acquire(ctx context.Context, userID string, maxWait time.Duration) bool {
	ch := l.lockFor(userID)
	timer := time.NewTimer(maxWait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Release frees the identity's lock.
func (l *identityLocks) Release(userID string) {
	<-l.lockFor(userID)
}
