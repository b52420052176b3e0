package risk

import "time"

// Collection caps for the rolling profile and attempt log.
const (
	MaxKnownDevices   = 5
	MaxKnownLocations = 5
	MaxAttemptLog     = 100
)

// KnownLocation is a previously seen coordinate with its observation window.
type KnownLocation struct {
	Point     GeoPoint  `json:"point"`
	Country   string    `json:"country,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// RiskProfile is the durable rolling history for one identity. It is
// mutated only by the Recorder; every other component reads a snapshot.
type RiskProfile struct {
	UserID           string          `json:"user_id"`
	KnownDevices     []string        `json:"known_devices"`   // newest last, capped at MaxKnownDevices
	KnownLocations   []KnownLocation `json:"known_locations"` // newest last, capped at MaxKnownLocations
	TypicalHours     map[int]bool    `json:"typical_hours"`   // hours 0-23 seen on successful logins
	CreatedAt        time.Time       `json:"created_at"`
	SuccessfulLogins int             `json:"successful_logins"`
	IncidentCount    int             `json:"incident_count"`
	LastLocation     *GeoPoint       `json:"last_location,omitempty"`
	LastLocationAt   time.Time       `json:"last_location_at"`
}

// NewRiskProfile creates an empty profile for an identity first seen at now.
func NewRiskProfile(userID string, now time.Time) *RiskProfile {
	return &RiskProfile{
		UserID:       userID,
		TypicalHours: make(map[int]bool),
		CreatedAt:    now,
	}
}

// HasDevice reports whether the fingerprint is in the known-device list.
func (p *RiskProfile) HasDevice(fingerprint string) bool {
	for _, d := range p.KnownDevices {
		if d == fingerprint {
			return true
		}
	}
	return false
}

// AddDevice inserts a fingerprint into the bounded known-device list,
// evicting the oldest entry once the cap is reached. Duplicates are skipped.
func (p *RiskProfile) AddDevice(fingerprint string) {
	if fingerprint == "" || p.HasDevice(fingerprint) {
		return
	}
	if len(p.KnownDevices) >= MaxKnownDevices {
		p.KnownDevices = p.KnownDevices[1:]
	}
	p.KnownDevices = append(p.KnownDevices, fingerprint)
}

// AddLocation inserts a coordinate into the bounded known-location list with
// the same FIFO eviction. A location equal to an existing entry only
// refreshes that entry's LastSeen.
func (p *RiskProfile) AddLocation(point GeoPoint, country string, seenAt time.Time) {
	for i := range p.KnownLocations {
		if p.KnownLocations[i].Point == point {
			p.KnownLocations[i].LastSeen = seenAt
			return
		}
	}
	if len(p.KnownLocations) >= MaxKnownLocations {
		p.KnownLocations = p.KnownLocations[1:]
	}
	p.KnownLocations = append(p.KnownLocations, KnownLocation{
		Point:     point,
		Country:   country,
		FirstSeen: seenAt,
		LastSeen:  seenAt,
	})
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (p *RiskProfile) Clone() *RiskProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.KnownDevices = append([]string(nil), p.KnownDevices...)
	cp.KnownLocations = append([]KnownLocation(nil), p.KnownLocations...)
	cp.TypicalHours = make(map[int]bool, len(p.TypicalHours))
	for h, v := range p.TypicalHours {
		cp.TypicalHours[h] = v
	}
	if p.LastLocation != nil {
		loc := *p.LastLocation
		cp.LastLocation = &loc
	}
	return &cp
}

// AttemptRecord is one entry of the per-identity attempt log.
type AttemptRecord struct {
	Timestamp         time.Time `json:"timestamp"`
	Success           bool      `json:"success"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	IPAddress         string    `json:"ip_address"`
}

// AttemptLog is the append-only, bounded sequence of recent attempts for one
// identity, ordered oldest first.
type AttemptLog struct {
	UserID  string          `json:"user_id"`
	Entries []AttemptRecord `json:"entries"`
}

// Append adds a record, evicting the oldest entry at the cap.
func (l *AttemptLog) Append(rec AttemptRecord) {
	if len(l.Entries) >= MaxAttemptLog {
		l.Entries = l.Entries[1:]
	}
	l.Entries = append(l.Entries, rec)
}

// FailuresSince counts failed attempts at or after the cutoff.
func (l *AttemptLog) FailuresSince(cutoff time.Time) int {
	if l == nil {
		return 0
	}
	count := 0
	for _, e := range l.Entries {
		if !e.Success && !e.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}

// AttemptsSince counts all attempts at or after the cutoff.
func (l *AttemptLog) AttemptsSince(cutoff time.Time) int {
	if l == nil {
		return 0
	}
	count := 0
	for _, e := range l.Entries {
		if !e.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (l *AttemptLog) Clone() *AttemptLog {
	if l == nil {
		return nil
	}
	return &AttemptLog{
		UserID:  l.UserID,
		Entries: append([]AttemptRecord(nil), l.Entries...),
	}
}
