package risk

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertType represents the type of security alert
type AlertType string

const (
	AlertTypeHighRiskBlocked  AlertType = "high_risk_attempt_blocked"
	AlertTypeImpossibleTravel AlertType = "impossible_travel"
)

// SecurityAlert is raised when a decision warrants security-team attention.
type SecurityAlert struct {
	ID                 string                 `json:"id"`
	UserID             string                 `json:"user_id"`
	Type               AlertType              `json:"type"`
	Severity           AlertSeverity          `json:"severity"`
	Title              string                 `json:"title"`
	Description        string                 `json:"description"`
	Details            map[string]interface{} `json:"details,omitempty"`
	SourceIP           string                 `json:"source_ip,omitempty"`
	RemediationActions []string               `json:"remediation_actions,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}

// newBlockedAttemptAlert builds the alert for a CRITICAL/BLOCK decision.
func newBlockedAttemptAlert(authCtx *AuthenticationContext, assessment *RiskAssessment) *SecurityAlert {
	return &SecurityAlert{
		ID:       uuid.New().String(),
		UserID:   authCtx.UserID,
		Type:     AlertTypeHighRiskBlocked,
		Severity: SeverityCritical,
		Title:    "High Risk Attempt Blocked",
		Description: fmt.Sprintf(
			"Attempt blocked due to critical risk score (%d). User: %s, IP: %s",
			assessment.Score, authCtx.UserID, authCtx.IPAddress,
		),
		Details: map[string]interface{}{
			"risk_score":  assessment.Score,
			"risk_level":  string(assessment.Level),
			"top_factors": assessment.TopFactors,
			"action_kind": string(authCtx.Action),
		},
		SourceIP:           authCtx.IPAddress,
		RemediationActions: []string{"verify_identity", "review_attempt", "notify_user"},
		CreatedAt:          assessment.EvaluatedAt,
	}
}
