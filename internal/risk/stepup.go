package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// StepUpState is the lifecycle state of a step-up trust session.
type StepUpState string

const (
	StepUpNone     StepUpState = "none"
	StepUpPending  StepUpState = "pending"
	StepUpVerified StepUpState = "verified"
)

// StepUpSession tracks whether an elevated-trust challenge has been
// satisfied for an authenticated session and when that trust expires.
type StepUpSession struct {
	SessionID         string      `json:"session_id"`
	State             StepUpState `json:"state"`
	ResumeDestination string      `json:"resume_destination,omitempty"`
	RequestedAt       time.Time   `json:"requested_at"`
	VerifiedAt        time.Time   `json:"verified_at,omitempty"`
	ExpiresAt         time.Time   `json:"expires_at,omitempty"`
}

// StepUpManager drives the step-up state machine. Expiry is evaluated
// lazily against the injected clock at read time; there is no background
// timer to schedule or cancel.
type StepUpManager struct {
	store     StepUpStore
	ttl       time.Duration
	jwtSecret []byte
	logger    *zap.Logger
	now       func() time.Time
}

// NewStepUpManager creates a manager over the given session store. The
// jwtSecret signs the elevation token minted on verification; pass nil to
// disable token minting.
func NewStepUpManager(store StepUpStore, ttl time.Duration, jwtSecret []byte, logger *zap.Logger) *StepUpManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StepUpManager{
		store:     store,
		ttl:       ttl,
		jwtSecret: jwtSecret,
		logger:    logger.With(zap.String("component", "stepup")),
		now:       time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (m *StepUpManager) SetClock(now func() time.Time) {
	m.now = now
}

// RequestStepUp moves the session to PENDING, recording where to resume
// after verification. Any prior VERIFIED expiry is discarded.
func (m *StepUpManager) RequestStepUp(ctx context.Context, sessionID, resumeDestination string) (*StepUpSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	session := &StepUpSession{
		SessionID:         sessionID,
		State:             StepUpPending,
		ResumeDestination: resumeDestination,
		RequestedAt:       m.now(),
	}
	if err := m.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store step-up session: %w", err)
	}
	m.logger.Debug("Step-up challenge requested",
		zap.String("session_id", sessionID),
		zap.String("resume", resumeDestination),
	)
	return session, nil
}

// CompleteStepUp moves a PENDING session to VERIFIED with an expiry of
// verification time plus the trust TTL, and mints the elevation token.
func (m *StepUpManager) CompleteStepUp(ctx context.Context, sessionID string) (*StepUpSession, string, error) {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load step-up session: %w", err)
	}
	if session == nil {
		return nil, "", ErrStepUpNotFound
	}
	if session.State != StepUpPending {
		return nil, "", fmt.Errorf("%w: state %s", ErrStepUpNotPending, session.State)
	}

	now := m.now()
	session.State = StepUpVerified
	session.VerifiedAt = now
	session.ExpiresAt = now.Add(m.ttl)
	if err := m.store.Put(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to store step-up session: %w", err)
	}

	token, err := m.mintElevationToken(session)
	if err != nil {
		return nil, "", err
	}

	m.logger.Info("Step-up challenge verified",
		zap.String("session_id", sessionID),
		zap.Time("expires_at", session.ExpiresAt),
	)
	return session, token, nil
}

// IsElevated reports whether the session holds unexpired elevated trust.
// An expired session is removed on read, returning the state machine to
// NONE without a scheduler dependency.
func (m *StepUpManager) IsElevated(ctx context.Context, sessionID string) bool {
	if sessionID == "" {
		return false
	}
	session, err := m.store.Get(ctx, sessionID)
	if err != nil || session == nil {
		return false
	}
	if session.State != StepUpVerified {
		return false
	}
	if !m.now().Before(session.ExpiresAt) {
		if err := m.store.Delete(ctx, sessionID); err != nil {
			m.logger.Warn("Failed to remove expired step-up session",
				zap.String("session_id", sessionID), zap.Error(err))
		}
		return false
	}
	return true
}

// Status returns the current session state, applying lazy expiry.
func (m *StepUpManager) Status(ctx context.Context, sessionID string) (*StepUpSession, error) {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return &StepUpSession{SessionID: sessionID, State: StepUpNone}, nil
	}
	if session.State == StepUpVerified && !m.now().Before(session.ExpiresAt) {
		_ = m.store.Delete(ctx, sessionID)
		return &StepUpSession{SessionID: sessionID, State: StepUpNone}, nil
	}
	return session, nil
}

// EndSession discards any step-up state for the session.
func (m *StepUpManager) EndSession(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// mintElevationToken issues a short-lived HS256 JWT carrying the session's
// elevated trust, for downstream resource servers to verify.
func (m *StepUpManager) mintElevationToken(session *StepUpSession) (string, error) {
	if len(m.jwtSecret) == 0 {
		return "", nil
	}
	claims := jwt.MapClaims{
		"sid": session.SessionID,
		"amr": "stepup",
		"iat": session.VerifiedAt.Unix(),
		"exp": session.ExpiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign elevation token: %w", err)
	}
	return signed, nil
}
