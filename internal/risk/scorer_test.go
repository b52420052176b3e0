package risk

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// Wednesday 14:30 UTC, inside business hours.
var weekdayAfternoon = time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)

// Sunday 03:00 UTC, late night on a weekend.
var sundayNight = time.Date(2025, 3, 16, 3, 0, 0, 0, time.UTC)

var (
	newYork = GeoPoint{Latitude: 40.7128, Longitude: -74.0060}
	london  = GeoPoint{Latitude: 51.5074, Longitude: -0.1278}
)

func testEngine(mutate func(*EngineConfig)) *Engine {
	cfg := DefaultEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewEngine(cfg, zap.NewNop())
}

func establishedProfile(userID string, at time.Time) *RiskProfile {
	p := NewRiskProfile(userID, at.AddDate(0, -6, 0))
	p.SuccessfulLogins = 50
	p.TypicalHours[at.Hour()] = true
	return p
}

func TestScoreDevice(t *testing.T) {
	e := testEngine(nil)
	profile := establishedProfile("u1", weekdayAfternoon)
	profile.AddDevice("known-fp")

	tests := []struct {
		name    string
		device  DeviceDescriptor
		fp      string
		profile *RiskProfile
		want    int
	}{
		{
			name:    "known device, healthy browser",
			device:  DeviceDescriptor{BrowserName: "Firefox", OSName: "windows", OSVersion: 11, DeviceType: DeviceTypeDesktop},
			fp:      "known-fp",
			profile: profile,
			want:    0,
		},
		{
			name:    "unknown fingerprint",
			device:  DeviceDescriptor{BrowserName: "Firefox", OSName: "windows", OSVersion: 11, DeviceType: DeviceTypeDesktop},
			fp:      "other-fp",
			profile: profile,
			want:    40,
		},
		{
			name:    "nil profile counts as unknown",
			device:  DeviceDescriptor{BrowserName: "Firefox", OSName: "windows", OSVersion: 11, DeviceType: DeviceTypeDesktop},
			fp:      "known-fp",
			profile: nil,
			want:    40,
		},
		{
			name:    "missing browser identity",
			device:  DeviceDescriptor{OSName: "windows", OSVersion: 11, DeviceType: DeviceTypeDesktop},
			fp:      "known-fp",
			profile: profile,
			want:    20,
		},
		{
			name:    "outdated windows",
			device:  DeviceDescriptor{BrowserName: "Chrome", OSName: "windows", OSVersion: 7, DeviceType: DeviceTypeDesktop},
			fp:      "known-fp",
			profile: profile,
			want:    15,
		},
		{
			name:    "os below minimum but version unparsed is not penalized",
			device:  DeviceDescriptor{BrowserName: "Chrome", OSName: "windows", OSVersion: 0, DeviceType: DeviceTypeDesktop},
			fp:      "known-fp",
			profile: profile,
			want:    0,
		},
		{
			name:    "mobile discount",
			device:  DeviceDescriptor{BrowserName: "Safari", OSName: "ios", OSVersion: 17, DeviceType: DeviceTypeMobile},
			fp:      "known-fp",
			profile: profile,
			want:    0, // -5 clamps at zero
		},
		{
			name:    "unknown mobile device",
			device:  DeviceDescriptor{BrowserName: "Safari", OSName: "ios", OSVersion: 17, DeviceType: DeviceTypeMobile},
			fp:      "other-fp",
			profile: profile,
			want:    35, // 40 - 5
		},
		{
			name:    "worst case headless on old os",
			device:  DeviceDescriptor{OSName: "android", OSVersion: 8, DeviceType: DeviceTypeDesktop},
			fp:      "other-fp",
			profile: profile,
			want:    75, // 40 + 20 + 15
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &AuthenticationContext{
				UserID:            "u1",
				DeviceFingerprint: tt.fp,
				Device:            tt.device,
				Timestamp:         weekdayAfternoon,
			}
			score, _ := e.scoreDevice(ctx, tt.profile)
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestScoreLocation(t *testing.T) {
	e := testEngine(func(c *EngineConfig) {
		c.HighRiskCountries = []string{"XX"}
	})

	t.Run("unresolved location scores flat", func(t *testing.T) {
		ctx := &AuthenticationContext{UserID: "u1", Timestamp: weekdayAfternoon}
		score, signals := e.scoreLocation(ctx, establishedProfile("u1", weekdayAfternoon))
		assert.Equal(t, 30, score)
		assert.Contains(t, signals, "location_unresolved")
	})

	t.Run("near a known location", func(t *testing.T) {
		profile := establishedProfile("u1", weekdayAfternoon)
		profile.AddLocation(newYork, "US", weekdayAfternoon.AddDate(0, 0, -10))

		// Newark is ~15km from the stored Manhattan point.
		ctx := &AuthenticationContext{
			UserID:    "u1",
			Location:  &GeoLocation{Point: GeoPoint{Latitude: 40.7357, Longitude: -74.1724}, CountryCode: "US"},
			Timestamp: weekdayAfternoon,
		}
		score, _ := e.scoreLocation(ctx, profile)
		assert.Equal(t, 0, score)
	})

	t.Run("unfamiliar location", func(t *testing.T) {
		profile := establishedProfile("u1", weekdayAfternoon)
		profile.AddLocation(newYork, "US", weekdayAfternoon.AddDate(0, 0, -10))

		ctx := &AuthenticationContext{
			UserID:    "u1",
			Location:  &GeoLocation{Point: london, CountryCode: "GB"},
			Timestamp: weekdayAfternoon,
		}
		score, signals := e.scoreLocation(ctx, profile)
		assert.Equal(t, 35, score)
		assert.Contains(t, signals, "unfamiliar_location")
	})

	t.Run("high risk country", func(t *testing.T) {
		profile := establishedProfile("u1", weekdayAfternoon)
		profile.AddLocation(london, "XX", weekdayAfternoon.AddDate(0, 0, -10))

		ctx := &AuthenticationContext{
			UserID:    "u1",
			Location:  &GeoLocation{Point: london, CountryCode: "XX"},
			Timestamp: weekdayAfternoon,
		}
		score, signals := e.scoreLocation(ctx, profile)
		assert.Equal(t, 25, score)
		assert.Contains(t, signals, "high_risk_country")
	})

	t.Run("impossible travel", func(t *testing.T) {
		profile := establishedProfile("u1", weekdayAfternoon)
		profile.AddLocation(london, "GB", weekdayAfternoon.Add(-30*time.Minute))
		last := london
		profile.LastLocation = &last
		profile.LastLocationAt = weekdayAfternoon.Add(-30 * time.Minute)

		// London to New York in 30 minutes is far beyond 900 km/h.
		ctx := &AuthenticationContext{
			UserID:    "u1",
			Location:  &GeoLocation{Point: newYork, CountryCode: "US"},
			Timestamp: weekdayAfternoon,
		}
		score, signals := e.scoreLocation(ctx, profile)
		assert.Equal(t, 95, score) // 35 unfamiliar + 60 impossible travel
		found := false
		for _, s := range signals {
			if len(s) > 17 && s[:17] == "impossible_travel" {
				found = true
			}
		}
		assert.True(t, found, "expected impossible_travel signal, got %v", signals)
	})

	t.Run("simultaneous logins from two places", func(t *testing.T) {
		profile := establishedProfile("u1", weekdayAfternoon)
		profile.AddLocation(london, "GB", weekdayAfternoon)
		last := london
		profile.LastLocation = &last
		profile.LastLocationAt = weekdayAfternoon

		// An attempt from New York at the same instant as the London login
		// implies infinite speed.
		ctx := &AuthenticationContext{
			UserID:    "u1",
			Location:  &GeoLocation{Point: newYork, CountryCode: "US"},
			Timestamp: weekdayAfternoon,
		}
		score, signals := e.scoreLocation(ctx, profile)
		assert.Equal(t, 95, score) // 35 unfamiliar + 60 impossible travel
		assert.Contains(t, signals, "impossible_travel:simultaneous")
	})

	t.Run("same place at the same instant is not travel", func(t *testing.T) {
		profile := establishedProfile("u1", weekdayAfternoon)
		profile.AddLocation(newYork, "US", weekdayAfternoon)
		last := newYork
		profile.LastLocation = &last
		profile.LastLocationAt = weekdayAfternoon

		ctx := &AuthenticationContext{
			UserID:    "u1",
			Location:  &GeoLocation{Point: newYork, CountryCode: "US"},
			Timestamp: weekdayAfternoon,
		}
		score, _ := e.scoreLocation(ctx, profile)
		assert.Equal(t, 0, score)
	})

	t.Run("plausible travel is not flagged", func(t *testing.T) {
		profile := establishedProfile("u1", weekdayAfternoon)
		profile.AddLocation(london, "GB", weekdayAfternoon.Add(-8*time.Hour))
		last := london
		profile.LastLocation = &last
		profile.LastLocationAt = weekdayAfternoon.Add(-8 * time.Hour)

		// London to New York in 8 hours is an ordinary flight.
		ctx := &AuthenticationContext{
			UserID:    "u1",
			Location:  &GeoLocation{Point: newYork, CountryCode: "US"},
			Timestamp: weekdayAfternoon,
		}
		score, _ := e.scoreLocation(ctx, profile)
		assert.Equal(t, 35, score)
	})
}

func TestHaversineKm(t *testing.T) {
	d := haversineKm(newYork, london)
	assert.InDelta(t, 5570, d, 30, "New York to London great-circle distance")

	assert.Zero(t, haversineKm(newYork, newYork))
}

func TestScoreTime(t *testing.T) {
	e := testEngine(nil)

	tests := []struct {
		name    string
		ts      time.Time
		profile *RiskProfile
		want    int
	}{
		{
			name:    "weekday afternoon in typical hours",
			ts:      weekdayAfternoon,
			profile: establishedProfile("u1", weekdayAfternoon),
			want:    0,
		},
		{
			name:    "weekday evening",
			ts:      time.Date(2025, 3, 12, 21, 0, 0, 0, time.UTC),
			profile: nil,
			want:    20,
		},
		{
			name:    "weekday late night",
			ts:      time.Date(2025, 3, 12, 3, 0, 0, 0, time.UTC),
			profile: nil,
			want:    35, // outside business hours + late night
		},
		{
			name:    "weekend afternoon",
			ts:      time.Date(2025, 3, 15, 14, 0, 0, 0, time.UTC), // Saturday
			profile: nil,
			want:    30, // outside business hours + weekend
		},
		{
			name:    "sunday late night",
			ts:      sundayNight,
			profile: nil,
			want:    45, // outside business hours + late night + weekend
		},
		{
			name: "atypical hour for established profile",
			ts:   time.Date(2025, 3, 12, 11, 0, 0, 0, time.UTC),
			profile: func() *RiskProfile {
				p := NewRiskProfile("u1", weekdayAfternoon.AddDate(0, -6, 0))
				p.TypicalHours[14] = true
				return p
			}(),
			want: 15,
		},
		{
			name:    "empty typical hours never penalizes",
			ts:      time.Date(2025, 3, 12, 11, 0, 0, 0, time.UTC),
			profile: NewRiskProfile("u1", weekdayAfternoon.AddDate(0, -6, 0)),
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &AuthenticationContext{UserID: "u1", Timestamp: tt.ts}
			score, _ := e.scoreTime(ctx, tt.profile)
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestScoreBehavioral(t *testing.T) {
	e := testEngine(nil)

	failLog := func(failures int, at time.Time) *AttemptLog {
		log := &AttemptLog{UserID: "u1"}
		for i := 0; i < failures; i++ {
			log.Append(AttemptRecord{Timestamp: at.Add(-5 * time.Minute), Success: false})
		}
		return log
	}

	t.Run("no history", func(t *testing.T) {
		ctx := &AuthenticationContext{UserID: "u1", Action: ActionKindLogin, Timestamp: weekdayAfternoon}
		score, _ := e.scoreBehavioral(ctx, nil)
		assert.Equal(t, 0, score)
	})

	t.Run("failures accumulate to a cap", func(t *testing.T) {
		for failures, want := range map[int]int{1: 10, 3: 30, 4: 40, 7: 40} {
			ctx := &AuthenticationContext{UserID: "u1", Action: ActionKindLogin, Timestamp: weekdayAfternoon}
			score, signals := e.scoreBehavioral(ctx, failLog(failures, weekdayAfternoon))
			assert.Equal(t, want, score, "failures=%d", failures)
			assert.Contains(t, signals, fmt.Sprintf("recent_failures:%d", failures))
		}
	})

	t.Run("failures outside the window are ignored", func(t *testing.T) {
		log := &AttemptLog{UserID: "u1"}
		log.Append(AttemptRecord{Timestamp: weekdayAfternoon.Add(-20 * time.Minute), Success: false})
		ctx := &AuthenticationContext{UserID: "u1", Action: ActionKindLogin, Timestamp: weekdayAfternoon}
		score, _ := e.scoreBehavioral(ctx, log)
		assert.Equal(t, 0, score)
	})

	t.Run("request burst", func(t *testing.T) {
		log := &AttemptLog{UserID: "u1"}
		for i := 0; i < 6; i++ {
			log.Append(AttemptRecord{Timestamp: weekdayAfternoon.Add(-30 * time.Second), Success: true})
		}
		ctx := &AuthenticationContext{UserID: "u1", Action: ActionKindLogin, Timestamp: weekdayAfternoon}
		score, signals := e.scoreBehavioral(ctx, log)
		assert.Equal(t, 20, score)
		assert.Contains(t, signals, "request_burst:6")
	})

	t.Run("burst at the threshold does not trigger", func(t *testing.T) {
		log := &AttemptLog{UserID: "u1"}
		for i := 0; i < 5; i++ {
			log.Append(AttemptRecord{Timestamp: weekdayAfternoon.Add(-30 * time.Second), Success: true})
		}
		ctx := &AuthenticationContext{UserID: "u1", Action: ActionKindLogin, Timestamp: weekdayAfternoon}
		score, _ := e.scoreBehavioral(ctx, log)
		assert.Equal(t, 0, score)
	})

	t.Run("sensitive action", func(t *testing.T) {
		ctx := &AuthenticationContext{UserID: "u1", Action: ActionKindTransfer, Timestamp: weekdayAfternoon}
		score, signals := e.scoreBehavioral(ctx, nil)
		assert.Equal(t, 15, score)
		assert.Contains(t, signals, "sensitive_action:transfer")
	})
}

func TestScoreHistorical(t *testing.T) {
	e := testEngine(nil)
	ctx := &AuthenticationContext{UserID: "u1", Timestamp: weekdayAfternoon}

	t.Run("no profile", func(t *testing.T) {
		score, signals := e.scoreHistorical(ctx, nil)
		assert.Equal(t, 30, score)
		assert.Contains(t, signals, "new_identity")
	})

	tests := []struct {
		name             string
		ageDays          int
		incidents        int
		successfulLogins int
		want             int
	}{
		{"mature clean account", 180, 0, 50, 0},
		{"brand new account", 2, 0, 0, 45},    // 25 age + 20 few logins
		{"young account", 20, 0, 10, 15},      // 15 age
		{"incident history", 180, 2, 50, 20},  // 2 incidents
		{"incidents cap at 30", 180, 9, 50, 30},
		{"worst case", 2, 5, 1, 75}, // 25 + 30 + 20
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRiskProfile("u1", weekdayAfternoon.AddDate(0, 0, -tt.ageDays))
			p.IncidentCount = tt.incidents
			p.SuccessfulLogins = tt.successfulLogins
			score, _ := e.scoreHistorical(ctx, p)
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-5))
	assert.Equal(t, 0, clampScore(0))
	assert.Equal(t, 57, clampScore(57))
	assert.Equal(t, 100, clampScore(100))
	assert.Equal(t, 100, clampScore(120))
}
