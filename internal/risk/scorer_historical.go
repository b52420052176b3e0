package risk

// newIdentityScore is the flat sub-score for identities with no profile yet.
const newIdentityScore = 30

// scoreHistorical rates account maturity: age, recorded incidents, and how
// many successful logins the identity has accumulated.
func (e *Engine) scoreHistorical(ctx *AuthenticationContext, profile *RiskProfile) (int, []string) {
	if profile == nil {
		return newIdentityScore, []string{"new_identity"}
	}

	score := 0
	var signals []string

	ageDays := ctx.Timestamp.Sub(profile.CreatedAt).Hours() / 24
	switch {
	case ageDays < 7:
		score += 25
		signals = append(signals, "account_age_under_7d")
	case ageDays < 30:
		score += 15
		signals = append(signals, "account_age_under_30d")
	}

	if profile.IncidentCount > 0 {
		add := profile.IncidentCount * 10
		if add > 30 {
			add = 30
		}
		score += add
		signals = append(signals, "prior_incidents")
	}

	if profile.SuccessfulLogins < 5 {
		score += 20
		signals = append(signals, "few_successful_logins")
	}

	return clampScore(score), signals
}
