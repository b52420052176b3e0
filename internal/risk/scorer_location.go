package risk

import (
	"fmt"
	"math"
)

// unresolvedLocationScore is the flat sub-score applied when the external
// geolocation lookup failed. Resolution failure is a first-class risk
// signal, not an error.
const unresolvedLocationScore = 30

// scoreLocation rates the resolved coordinate against the identity's known
// locations and runs the impossible-travel check against the most recent
// successful location.
func (e *Engine) scoreLocation(ctx *AuthenticationContext, profile *RiskProfile) (int, []string) {
	if ctx.Location == nil {
		return unresolvedLocationScore, []string{"location_unresolved"}
	}

	score := 0
	var signals []string
	point := ctx.Location.Point

	if !e.nearKnownLocation(point, profile) {
		score += 35
		signals = append(signals, "unfamiliar_location")
	}

	if e.config.isHighRiskCountry(ctx.Location.CountryCode) {
		score += 25
		signals = append(signals, "high_risk_country")
	}

	if profile != nil && profile.LastLocation != nil && !profile.LastLocationAt.IsZero() {
		distance := haversineKm(*profile.LastLocation, point)
		elapsed := ctx.Timestamp.Sub(profile.LastLocationAt).Hours()
		// Zero or negative elapsed time with any separation means two
		// places at once, the limit case of impossible travel.
		if elapsed <= 0 {
			if distance > 0 {
				score += 60
				signals = append(signals, "impossible_travel:simultaneous")
			}
		} else if speed := distance / elapsed; speed > e.config.MaxTravelSpeedKmh {
			score += 60
			signals = append(signals, fmt.Sprintf("impossible_travel:%.0fkm/h", speed))
		}
	}

	return clampScore(score), signals
}

// nearKnownLocation reports whether any known location lies within the
// configured radius of the current coordinate.
func (e *Engine) nearKnownLocation(point GeoPoint, profile *RiskProfile) bool {
	if profile == nil {
		return false
	}
	for _, known := range profile.KnownLocations {
		if haversineKm(known.Point, point) <= e.config.KnownLocationRadiusKm {
			return true
		}
	}
	return false
}

// haversineKm is the great-circle distance between two coordinates in km.
func haversineKm(a, b GeoPoint) float64 {
	const earthRadiusKm = 6371

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}
