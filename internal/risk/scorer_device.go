package risk

import "strings"

// scoreDevice rates the declared device against the identity's known
// devices and a minimum-OS-version table. Pure function of its inputs.
func (e *Engine) scoreDevice(ctx *AuthenticationContext, profile *RiskProfile) (int, []string) {
	score := 0
	var signals []string

	if profile == nil || !profile.HasDevice(ctx.DeviceFingerprint) {
		score += 40
		signals = append(signals, "unknown_device")
	}

	// A missing browser identity is treated as a bot/automation signal.
	if ctx.Device.BrowserName == "" {
		score += 20
		signals = append(signals, "no_browser_identity")
	}

	if min, ok := e.config.MinOSVersions[strings.ToLower(ctx.Device.OSName)]; ok {
		if ctx.Device.OSVersion > 0 && ctx.Device.OSVersion < min {
			score += 15
			signals = append(signals, "outdated_os")
		}
	}

	if ctx.Device.DeviceType == DeviceTypeMobile {
		score -= 5
		signals = append(signals, "mobile_device")
	}

	return clampScore(score), signals
}

// clampScore bounds a sub-score to [0,100].
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
