package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecordOutcomeSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewRecorder(store, time.Second, zap.NewNop())

	authCtx := &AuthenticationContext{
		UserID:            "u1",
		DeviceFingerprint: "fp-1",
		IPAddress:         "203.0.113.10",
		Location:          &GeoLocation{Point: newYork, CountryCode: "US"},
		Timestamp:         weekdayAfternoon,
	}

	require.NoError(t, r.RecordOutcome(ctx, authCtx, true))

	profile, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.True(t, profile.HasDevice("fp-1"))
	assert.Equal(t, 1, profile.SuccessfulLogins)
	assert.True(t, profile.TypicalHours[weekdayAfternoon.Hour()])
	require.NotNil(t, profile.LastLocation)
	assert.Equal(t, newYork, *profile.LastLocation)
	assert.Equal(t, weekdayAfternoon, profile.LastLocationAt)
	require.Len(t, profile.KnownLocations, 1)
	assert.Equal(t, "US", profile.KnownLocations[0].Country)

	log, err := store.GetAttemptLog(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, log)
	require.Len(t, log.Entries, 1)
	assert.True(t, log.Entries[0].Success)
}

func TestRecordOutcomeFailureOnlyAppendsAttempt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewRecorder(store, time.Second, zap.NewNop())

	authCtx := &AuthenticationContext{
		UserID:            "u1",
		DeviceFingerprint: "fp-1",
		Timestamp:         weekdayAfternoon,
	}

	require.NoError(t, r.RecordOutcome(ctx, authCtx, false))

	// A failure must not teach the profile the device or location.
	profile, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, profile)

	log, err := store.GetAttemptLog(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, log.Entries, 1)
	assert.False(t, log.Entries[0].Success)
}

func TestRecordOutcomeRepeatLocationRefreshesLastSeen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewRecorder(store, time.Second, zap.NewNop())

	first := &AuthenticationContext{
		UserID:            "u1",
		DeviceFingerprint: "fp-1",
		Location:          &GeoLocation{Point: newYork, CountryCode: "US"},
		Timestamp:         weekdayAfternoon,
	}
	require.NoError(t, r.RecordOutcome(ctx, first, true))

	second := &AuthenticationContext{
		UserID:            "u1",
		DeviceFingerprint: "fp-1",
		Location:          &GeoLocation{Point: newYork, CountryCode: "US"},
		Timestamp:         weekdayAfternoon.Add(2 * time.Hour),
	}
	require.NoError(t, r.RecordOutcome(ctx, second, true))

	profile, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, profile.KnownLocations, 1)
	assert.Equal(t, second.Timestamp, profile.KnownLocations[0].LastSeen)
	assert.Equal(t, second.Timestamp, profile.LastLocationAt)
	assert.Equal(t, 2, profile.SuccessfulLogins)
}

func TestRecordOutcomeMissingUser(t *testing.T) {
	r := NewRecorder(NewMemoryStore(), time.Second, zap.NewNop())
	err := r.RecordOutcome(context.Background(), &AuthenticationContext{Timestamp: weekdayAfternoon}, true)
	assert.Error(t, err)
}

func TestRecordOutcomeLockTimeout(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(NewMemoryStore(), 20*time.Millisecond, zap.NewNop())

	// Hold the identity's lock so the update cannot proceed.
	require.True(t, r.locks.Acquire(ctx, "u1", time.Second))
	defer r.locks.Release("u1")

	authCtx := &AuthenticationContext{
		UserID:            "u1",
		DeviceFingerprint: "fp-1",
		Timestamp:         weekdayAfternoon,
	}
	err := r.RecordOutcome(ctx, authCtx, true)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestRecordIncident(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := NewRecorder(store, time.Second, zap.NewNop())

	// Incidents can land on identities with no profile yet.
	require.NoError(t, r.RecordIncident(ctx, "u1", weekdayAfternoon))
	require.NoError(t, r.RecordIncident(ctx, "u1", weekdayAfternoon.Add(time.Hour)))

	profile, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, 2, profile.IncidentCount)
	assert.Equal(t, weekdayAfternoon, profile.CreatedAt)
}
