// Package risk implements the adaptive authentication risk-decision engine:
// per-attempt risk scoring, policy decisions, step-up trust sessions, and
// rolling per-identity profiles.
package risk

import "time"

// RiskLevel is the discrete classification of a composite risk score.
type RiskLevel string

const (
	RiskLevelVeryLow  RiskLevel = "very_low"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// String returns the string representation of RiskLevel
func (r RiskLevel) String() string {
	return string(r)
}

// Action is the policy decision for an authentication attempt.
type Action string

const (
	ActionAllow     Action = "allow"
	ActionChallenge Action = "challenge"
	ActionBlock     Action = "block"
)

// MFAStrength hints which class of secondary verification to present.
type MFAStrength string

const (
	MFANone   MFAStrength = ""
	MFAWeak   MFAStrength = "weak"   // email/SMS-class
	MFAStrong MFAStrength = "strong" // hardware/biometric-class
)

// MonitoringMode selects the post-decision monitoring posture.
type MonitoringMode string

const (
	MonitoringStandard MonitoringMode = "standard"
	MonitoringEnhanced MonitoringMode = "enhanced"
	MonitoringStrict   MonitoringMode = "strict"
)

// ActionKind identifies what the attempt is trying to do.
type ActionKind string

const (
	ActionKindLogin            ActionKind = "login"
	ActionKindViewSensitive    ActionKind = "view_sensitive"
	ActionKindTransfer         ActionKind = "transfer"
	ActionKindChangeCredential ActionKind = "change_credential"
)

// DeviceType classifies the declared hardware form factor.
type DeviceType string

const (
	DeviceTypeUnknown DeviceType = "unknown"
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeTablet  DeviceType = "tablet"
)

// GeoPoint is a resolved geographic coordinate.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GeoLocation is the output of the external geolocation lookup.
type GeoLocation struct {
	Point       GeoPoint `json:"point"`
	CountryCode string   `json:"country_code"`
	City        string   `json:"city"`
}

// DeviceDescriptor is the structured output of the external user-agent
// parser. Empty fields mean the parser could not determine the value.
type DeviceDescriptor struct {
	BrowserName    string     `json:"browser_name"`
	BrowserVersion string     `json:"browser_version"`
	OSName         string     `json:"os_name"`
	OSVersion      int        `json:"os_version"`
	DeviceType     DeviceType `json:"device_type"`
}

// AuthenticationContext is an immutable snapshot of one authentication or
// in-session action attempt. It is assembled once by the calling layer and
// discarded after the assessment completes.
type AuthenticationContext struct {
	UserID            string           `json:"user_id"`
	SessionID         string           `json:"session_id,omitempty"`
	DeviceFingerprint string           `json:"device_fingerprint"`
	IPAddress         string           `json:"ip_address"`
	Location          *GeoLocation     `json:"location,omitempty"` // nil when geo resolution failed
	Device            DeviceDescriptor `json:"device"`
	Action            ActionKind       `json:"action"`
	Timestamp         time.Time        `json:"timestamp"`
}

// FactorScores holds the five sub-scores with one named field per factor so
// a missing or misspelled factor cannot slip through aggregation.
type FactorScores struct {
	Device     int `json:"device"`
	Location   int `json:"location"`
	Time       int `json:"time"`
	Behavioral int `json:"behavioral"`
	Historical int `json:"historical"`
}

// FactorResult is one factor's sub-score plus the sub-signals behind it.
type FactorResult struct {
	Name    string   `json:"name"`
	Score   int      `json:"score"`
	Weight  float64  `json:"weight"`
	Signals []string `json:"signals,omitempty"`
}

// Recommendation is the policy outcome attached to an assessment.
type Recommendation struct {
	Action                 Action         `json:"action"`
	MFAStrength            MFAStrength    `json:"mfa_strength,omitempty"`
	Monitoring             MonitoringMode `json:"monitoring"`
	AdditionalVerification bool           `json:"additional_verification,omitempty"`
	ManualReview           bool           `json:"manual_review,omitempty"`
	NotifySecurityTeam     bool           `json:"notify_security_team,omitempty"`
}

// RiskAssessment is the immutable result returned to the caller.
type RiskAssessment struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	Score          int            `json:"score"` // 0-100
	Level          RiskLevel      `json:"level"`
	Scores         FactorScores   `json:"scores"`
	Breakdown      []FactorResult `json:"breakdown"`
	TopFactors     []string       `json:"top_factors"` // highest three sub-scores
	Recommendation Recommendation `json:"recommendation"`
	EvaluatedAt    time.Time      `json:"evaluated_at"`
}

// Factor names in fixed order. The order doubles as the tie-break for
// ranking top factors.
const (
	FactorDevice     = "device"
	FactorLocation   = "location"
	FactorTime       = "time"
	FactorBehavioral = "behavioral"
	FactorHistorical = "historical"
)

var factorOrder = [5]string{FactorDevice, FactorLocation, FactorTime, FactorBehavioral, FactorHistorical}
