package risk

import "time"

// scoreTime rates when the attempt happens: business hours, late-night
// window, weekends, and membership in the identity's typical hours. Hours
// are taken from the context timestamp in whatever zone it carries.
func (e *Engine) scoreTime(ctx *AuthenticationContext, profile *RiskProfile) (int, []string) {
	score := 0
	var signals []string

	hour := ctx.Timestamp.Hour()
	day := ctx.Timestamp.Weekday()
	weekend := day == time.Saturday || day == time.Sunday

	if weekend || hour < 9 || hour > 17 {
		score += 20
		signals = append(signals, "outside_business_hours")
	}

	if hour >= 1 && hour <= 5 {
		score += 15
		signals = append(signals, "late_night")
	}

	if weekend {
		score += 10
		signals = append(signals, "weekend")
	}

	if profile != nil && len(profile.TypicalHours) > 0 && !profile.TypicalHours[hour] {
		score += 15
		signals = append(signals, "atypical_hour")
	}

	return clampScore(score), signals
}
