package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDeviceBounded(t *testing.T) {
	p := NewRiskProfile("u1", weekdayAfternoon)

	for _, fp := range []string{"a", "b", "c", "d", "e"} {
		p.AddDevice(fp)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, p.KnownDevices)

	// The sixth device evicts the oldest.
	p.AddDevice("f")
	assert.Equal(t, []string{"b", "c", "d", "e", "f"}, p.KnownDevices)
	assert.Len(t, p.KnownDevices, MaxKnownDevices)

	// Duplicates and empty fingerprints are no-ops.
	p.AddDevice("f")
	p.AddDevice("")
	assert.Equal(t, []string{"b", "c", "d", "e", "f"}, p.KnownDevices)
}

func TestAddLocationBounded(t *testing.T) {
	p := NewRiskProfile("u1", weekdayAfternoon)
	base := weekdayAfternoon

	for i := 0; i < 5; i++ {
		p.AddLocation(GeoPoint{Latitude: float64(i), Longitude: 0}, "US", base)
	}
	require.Len(t, p.KnownLocations, 5)

	p.AddLocation(GeoPoint{Latitude: 99, Longitude: 0}, "US", base)
	assert.Len(t, p.KnownLocations, MaxKnownLocations)
	assert.Equal(t, float64(1), p.KnownLocations[0].Point.Latitude, "oldest evicted")
	assert.Equal(t, float64(99), p.KnownLocations[4].Point.Latitude)
}

func TestAddLocationRefreshesDuplicate(t *testing.T) {
	p := NewRiskProfile("u1", weekdayAfternoon)
	first := weekdayAfternoon
	later := weekdayAfternoon.Add(time.Hour)

	p.AddLocation(newYork, "US", first)
	p.AddLocation(newYork, "US", later)

	require.Len(t, p.KnownLocations, 1)
	assert.Equal(t, first, p.KnownLocations[0].FirstSeen)
	assert.Equal(t, later, p.KnownLocations[0].LastSeen)
}

func TestAttemptLogBounded(t *testing.T) {
	log := &AttemptLog{UserID: "u1"}

	for i := 0; i < MaxAttemptLog+10; i++ {
		log.Append(AttemptRecord{Timestamp: weekdayAfternoon.Add(time.Duration(i) * time.Second)})
	}

	assert.Len(t, log.Entries, MaxAttemptLog)
	// The ten oldest entries were evicted.
	assert.Equal(t, weekdayAfternoon.Add(10*time.Second), log.Entries[0].Timestamp)
}

func TestAttemptLogWindows(t *testing.T) {
	log := &AttemptLog{UserID: "u1"}
	log.Append(AttemptRecord{Timestamp: weekdayAfternoon.Add(-20 * time.Minute), Success: false})
	log.Append(AttemptRecord{Timestamp: weekdayAfternoon.Add(-10 * time.Minute), Success: false})
	log.Append(AttemptRecord{Timestamp: weekdayAfternoon.Add(-5 * time.Minute), Success: true})

	cutoff := weekdayAfternoon.Add(-15 * time.Minute)
	assert.Equal(t, 1, log.FailuresSince(cutoff))
	assert.Equal(t, 2, log.AttemptsSince(cutoff))

	// An entry exactly at the cutoff is included.
	assert.Equal(t, 2, log.FailuresSince(weekdayAfternoon.Add(-20*time.Minute)))

	var nilLog *AttemptLog
	assert.Equal(t, 0, nilLog.FailuresSince(cutoff))
	assert.Equal(t, 0, nilLog.AttemptsSince(cutoff))
}

func TestProfileCloneIsDeep(t *testing.T) {
	p := NewRiskProfile("u1", weekdayAfternoon)
	p.AddDevice("a")
	p.AddLocation(newYork, "US", weekdayAfternoon)
	p.TypicalHours[14] = true
	last := newYork
	p.LastLocation = &last

	cp := p.Clone()
	cp.AddDevice("b")
	cp.TypicalHours[3] = true
	cp.LastLocation.Latitude = 0
	cp.KnownLocations[0].Country = "GB"

	assert.Equal(t, []string{"a"}, p.KnownDevices)
	assert.False(t, p.TypicalHours[3])
	assert.Equal(t, newYork.Latitude, p.LastLocation.Latitude)
	assert.Equal(t, "US", p.KnownLocations[0].Country)

	var nilProfile *RiskProfile
	assert.Nil(t, nilProfile.Clone())
}

func TestMemoryStoreColdStart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	profile, err := store.GetProfile(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, profile)

	log, err := store.GetAttemptLog(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, log)

	session, err := store.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := NewRiskProfile("u1", weekdayAfternoon)
	p.AddDevice("a")
	require.NoError(t, store.PutProfile(ctx, p))

	// Mutating the original or a returned snapshot never leaks into the store.
	p.AddDevice("b")
	got, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.KnownDevices)

	got.AddDevice("c")
	again, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again.KnownDevices)
}

func TestIdentityLocks(t *testing.T) {
	ctx := context.Background()
	locks := newIdentityLocks()

	require.True(t, locks.Acquire(ctx, "u1", 50*time.Millisecond))

	// Same identity blocks until released.
	assert.False(t, locks.Acquire(ctx, "u1", 20*time.Millisecond))

	// Other identities are unaffected.
	require.True(t, locks.Acquire(ctx, "u2", 20*time.Millisecond))
	locks.Release("u2")

	locks.Release("u1")
	assert.True(t, locks.Acquire(ctx, "u1", 20*time.Millisecond))
	locks.Release("u1")
}

func TestIdentityLocksContextCancel(t *testing.T) {
	locks := newIdentityLocks()
	require.True(t, locks.Acquire(context.Background(), "u1", 20*time.Millisecond))
	defer locks.Release("u1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, locks.Acquire(ctx, "u1", time.Minute))
}
