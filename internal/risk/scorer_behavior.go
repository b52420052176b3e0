package risk

import "fmt"

// scoreBehavioral rates recent attempt patterns: failure streaks inside the
// failure window, request bursts inside the burst window, and whether the
// action itself is sensitive.
func (e *Engine) scoreBehavioral(ctx *AuthenticationContext, attempts *AttemptLog) (int, []string) {
	score := 0
	var signals []string

	failures := attempts.FailuresSince(ctx.Timestamp.Add(-e.config.FailureWindow))
	if failures > 0 {
		add := failures * 10
		if add > 40 {
			add = 40
		}
		score += add
		signals = append(signals, fmt.Sprintf("recent_failures:%d", failures))
	}

	burst := attempts.AttemptsSince(ctx.Timestamp.Add(-e.config.BurstWindow))
	if burst > e.config.BurstThreshold {
		score += 20
		signals = append(signals, fmt.Sprintf("request_burst:%d", burst))
	}

	if e.config.isSensitiveAction(ctx.Action) {
		score += 15
		signals = append(signals, "sensitive_action:"+string(ctx.Action))
	}

	return clampScore(score), signals
}
