package risk

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Recorder is the profile & history updater: the only writer of
// RiskProfile and AttemptLog. It is invoked after an attempt's outcome is
// known, never before. Updates for the same identity are serialized through
// a per-identity lock with a bounded wait; two simultaneous logins for one
// account cannot race a read-modify-write and silently drop an insertion.
type Recorder struct {
	store    ProfileStore
	locks    *identityLocks
	lockWait time.Duration
	logger   *zap.Logger
}

// NewRecorder creates a Recorder over the given store. lockWait bounds how
// long an update waits for the identity's lock before failing retryably.
func NewRecorder(store ProfileStore, lockWait time.Duration, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockWait <= 0 {
		lockWait = 2 * time.Second
	}
	return &Recorder{
		store:    store,
		locks:    newIdentityLocks(),
		lockWait: lockWait,
		logger:   logger.With(zap.String("component", "risk_recorder")),
	}
}

// RecordOutcome commits an attempt's outcome to the identity's rolling
// history. On success the profile absorbs the device, location, and hour of
// day; on both success and failure the attempt log gains an entry.
// Returns ErrLockTimeout (retryable) when the identity lock is unavailable.
func (r *Recorder) RecordOutcome(ctx context.Context, authCtx *AuthenticationContext, success bool) error {
	userID := authCtx.UserID
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	if !r.locks.Acquire(ctx, userID, r.lockWait) {
		r.logger.Warn("Identity update lock not acquired",
			zap.String("user_id", userID),
			zap.Duration("wait", r.lockWait),
		)
		return fmt.Errorf("recording outcome for %s: %w", userID, ErrLockTimeout)
	}
	defer r.locks.Release(userID)

	if success {
		if err := r.updateProfile(ctx, authCtx); err != nil {
			return err
		}
	}
	return r.appendAttempt(ctx, authCtx, success)
}

// RecordIncident increments the identity's security-incident counter.
func (r *Recorder) RecordIncident(ctx context.Context, userID string, at time.Time) error {
	if !r.locks.Acquire(ctx, userID, r.lockWait) {
		return fmt.Errorf("recording incident for %s: %w", userID, ErrLockTimeout)
	}
	defer r.locks.Release(userID)

	profile, err := r.store.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		profile = NewRiskProfile(userID, at)
	}
	profile.IncidentCount++
	return r.store.PutProfile(ctx, profile)
}

func (r *Recorder) updateProfile(ctx context.Context, authCtx *AuthenticationContext) error {
	profile, err := r.store.GetProfile(ctx, authCtx.UserID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	isNew := profile == nil
	if isNew {
		profile = NewRiskProfile(authCtx.UserID, authCtx.Timestamp)
	}

	profile.AddDevice(authCtx.DeviceFingerprint)
	if authCtx.Location != nil {
		profile.AddLocation(authCtx.Location.Point, authCtx.Location.CountryCode, authCtx.Timestamp)
		// Refreshed even for a repeat location so the impossible-travel
		// comparison always uses the latest observation time.
		point := authCtx.Location.Point
		profile.LastLocation = &point
		profile.LastLocationAt = authCtx.Timestamp
	}
	profile.TypicalHours[authCtx.Timestamp.Hour()] = true
	profile.SuccessfulLogins++

	if err := r.store.PutProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}

	if isNew {
		r.logger.Info("Risk profile created",
			zap.String("user_id", authCtx.UserID))
	}
	return nil
}

func (r *Recorder) appendAttempt(ctx context.Context, authCtx *AuthenticationContext, success bool) error {
	log, err := r.store.GetAttemptLog(ctx, authCtx.UserID)
	if err != nil {
		return fmt.Errorf("failed to load attempt log: %w", err)
	}
	if log == nil {
		log = &AttemptLog{UserID: authCtx.UserID}
	}
	log.Append(AttemptRecord{
		Timestamp:         authCtx.Timestamp,
		Success:           success,
		DeviceFingerprint: authCtx.DeviceFingerprint,
		IPAddress:         authCtx.IPAddress,
	})
	if err := r.store.PutAttemptLog(ctx, log); err != nil {
		return fmt.Errorf("failed to store attempt log: %w", err)
	}
	return nil
}
