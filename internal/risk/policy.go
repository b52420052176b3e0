package risk

// recommend maps a risk level to the policy recommendation. Deterministic
// pure function; there is no retry concept on the decision path.
func (e *Engine) recommend(level RiskLevel) Recommendation {
	switch level {
	case RiskLevelVeryLow:
		return Recommendation{
			Action:     ActionAllow,
			Monitoring: MonitoringStandard,
		}
	case RiskLevelLow:
		return Recommendation{
			Action:     ActionAllow,
			Monitoring: MonitoringEnhanced,
		}
	case RiskLevelMedium:
		return Recommendation{
			Action:      ActionChallenge,
			MFAStrength: MFAWeak,
			Monitoring:  MonitoringEnhanced,
		}
	case RiskLevelHigh:
		return Recommendation{
			Action:                 ActionChallenge,
			MFAStrength:            MFAStrong,
			Monitoring:             MonitoringStrict,
			AdditionalVerification: true,
		}
	default: // RiskLevelCritical
		return Recommendation{
			Action:             ActionBlock,
			Monitoring:         MonitoringStrict,
			ManualReview:       true,
			NotifySecurityTeam: true,
		}
	}
}

// applyStepUp short-circuits a CHALLENGE to ALLOW while the session holds
// unexpired elevated trust, so a user is not re-challenged on every
// navigation inside the trust window. BLOCK is never short-circuited.
func applyStepUp(rec Recommendation, elevated bool) Recommendation {
	if !elevated || rec.Action != ActionChallenge {
		return rec
	}
	rec.Action = ActionAllow
	rec.MFAStrength = MFANone
	rec.AdditionalVerification = false
	return rec
}
