package risk

import "time"

// FactorWeights are the fixed aggregation weights. They must sum to 1.0.
type FactorWeights struct {
	Device     float64 `mapstructure:"device" json:"device"`
	Location   float64 `mapstructure:"location" json:"location"`
	Time       float64 `mapstructure:"time" json:"time"`
	Behavioral float64 `mapstructure:"behavioral" json:"behavioral"`
	Historical float64 `mapstructure:"historical" json:"historical"`
}

// LevelThresholds are the lower bounds of each level above very_low.
type LevelThresholds struct {
	Low      int `mapstructure:"low" json:"low"`           // default 20
	Medium   int `mapstructure:"medium" json:"medium"`     // default 40
	High     int `mapstructure:"high" json:"high"`         // default 60
	Critical int `mapstructure:"critical" json:"critical"` // default 80
}

// EngineConfig holds every tunable of the scoring and policy pipeline.
// The burst threshold and travel-speed ceiling are carried heuristics with
// no calibration behind them; deployments tune them empirically.
type EngineConfig struct {
	Weights    FactorWeights   `mapstructure:"weights"`
	Thresholds LevelThresholds `mapstructure:"thresholds"`

	// Location factor
	KnownLocationRadiusKm float64  `mapstructure:"known_location_radius_km"` // default 100
	HighRiskCountries     []string `mapstructure:"high_risk_countries"`
	MaxTravelSpeedKmh     float64  `mapstructure:"max_travel_speed_kmh"` // default 900

	// Behavioral factor
	FailureWindow    time.Duration `mapstructure:"failure_window"`  // default 15m
	BurstWindow      time.Duration `mapstructure:"burst_window"`    // default 60s
	BurstThreshold   int           `mapstructure:"burst_threshold"` // default 5
	SensitiveActions []ActionKind  `mapstructure:"sensitive_actions"`

	// Device factor: minimum acceptable major OS versions, keyed by
	// lowercase OS name. Older versions are penalized.
	MinOSVersions map[string]int `mapstructure:"min_os_versions"`

	// Step-up trust window
	StepUpTTL time.Duration `mapstructure:"stepup_ttl"` // default 5m
}

// DefaultEngineConfig returns the stock configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights: FactorWeights{
			Device:     0.25,
			Location:   0.30,
			Time:       0.15,
			Behavioral: 0.20,
			Historical: 0.10,
		},
		Thresholds: LevelThresholds{
			Low:      20,
			Medium:   40,
			High:     60,
			Critical: 80,
		},
		KnownLocationRadiusKm: 100,
		MaxTravelSpeedKmh:     900,
		FailureWindow:         15 * time.Minute,
		BurstWindow:           60 * time.Second,
		BurstThreshold:        5,
		SensitiveActions:      []ActionKind{ActionKindTransfer, ActionKindChangeCredential},
		MinOSVersions: map[string]int{
			"windows": 10,
			"ios":     14,
			"android": 10,
			"macos":   11,
		},
		StepUpTTL: 5 * time.Minute,
	}
}

func (c EngineConfig) isSensitiveAction(a ActionKind) bool {
	for _, s := range c.SensitiveActions {
		if s == a {
			return true
		}
	}
	return false
}

func (c EngineConfig) isHighRiskCountry(code string) bool {
	for _, cc := range c.HighRiskCountries {
		if cc == code {
			return true
		}
	}
	return false
}
