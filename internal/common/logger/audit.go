// Package logger provides structured logging utilities for the risk service
package logger

import (
	"time"

	"go.uber.org/zap"
)

// AuditEvent represents an audit log event
type AuditEvent struct {
	EventType  string                 `json:"event_type"`
	Actor      string                 `json:"actor"` // Identity the event concerns
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID string                 `json:"resource_id"`
	Status     string                 `json:"status"` // success, failure, denied
	Reason     string                 `json:"reason,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger.With(zap.String("log_type", "audit")),
	}
}

// Log logs an audit event
func (a *AuditLogger) Log(event *AuditEvent) {
	fields := []zap.Field{
		zap.String("event_type", event.EventType),
		zap.String("actor", event.Actor),
		zap.String("action", event.Action),
		zap.String("resource", event.Resource),
		zap.String("resource_id", event.ResourceID),
		zap.String("status", event.Status),
		zap.Time("timestamp", event.Timestamp),
	}

	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}

	if event.IPAddress != "" {
		fields = append(fields, zap.String("ip_address", event.IPAddress))
	}

	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	// Log at appropriate level based on status
	switch event.Status {
	case "failure", "error":
		a.logger.Error("Audit event", fields...)
	case "denied", "blocked":
		a.logger.Warn("Audit event", fields...)
	default:
		a.logger.Info("Audit event", fields...)
	}
}

// LogAssessment logs a completed risk decision
func (a *AuditLogger) LogAssessment(userID, assessmentID, ipAddress string, score int, level, action string, topFactors []string) {
	status := "success"
	if action == "block" {
		status = "blocked"
	}
	a.Log(&AuditEvent{
		EventType:  "risk.assessment",
		Actor:      userID,
		Action:     "assess",
		Resource:   "assessment",
		ResourceID: assessmentID,
		Status:     status,
		IPAddress:  ipAddress,
		Metadata: map[string]interface{}{
			"score":       score,
			"level":       level,
			"decision":    action,
			"top_factors": topFactors,
		},
		Timestamp: time.Now(),
	})
}

// LogOutcomeRecorded logs a recorded authentication outcome
func (a *AuditLogger) LogOutcomeRecorded(userID, ipAddress string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	a.Log(&AuditEvent{
		EventType:  "risk.outcome",
		Actor:      userID,
		Action:     "record_outcome",
		Resource:   "profile",
		ResourceID: userID,
		Status:     status,
		IPAddress:  ipAddress,
		Timestamp:  time.Now(),
	})
}

// LogStepUpRequested logs the start of a step-up challenge
func (a *AuditLogger) LogStepUpRequested(userID, sessionID string) {
	a.Log(&AuditEvent{
		EventType:  "stepup.requested",
		Actor:      userID,
		Action:     "request_challenge",
		Resource:   "stepup_session",
		ResourceID: sessionID,
		Status:     "success",
		Timestamp:  time.Now(),
	})
}

// LogStepUpVerified logs a completed step-up challenge
func (a *AuditLogger) LogStepUpVerified(userID, sessionID string) {
	a.Log(&AuditEvent{
		EventType:  "stepup.verified",
		Actor:      userID,
		Action:     "verify_challenge",
		Resource:   "stepup_session",
		ResourceID: sessionID,
		Status:     "success",
		Timestamp:  time.Now(),
	})
}

// LogStepUpEnded logs explicit termination of a step-up session
func (a *AuditLogger) LogStepUpEnded(sessionID string) {
	a.Log(&AuditEvent{
		EventType:  "stepup.ended",
		Actor:      "",
		Action:     "end_session",
		Resource:   "stepup_session",
		ResourceID: sessionID,
		Status:     "success",
		Timestamp:  time.Now(),
	})
}

// LogIncidentRecorded logs a confirmed security incident against an identity
func (a *AuditLogger) LogIncidentRecorded(userID, reason string) {
	a.Log(&AuditEvent{
		EventType:  "risk.incident",
		Actor:      userID,
		Action:     "record_incident",
		Resource:   "profile",
		ResourceID: userID,
		Status:     "success",
		Reason:     reason,
		Timestamp:  time.Now(),
	})
}

// LogSecurityEvent logs a security-related event
func (a *AuditLogger) LogSecurityEvent(eventType, actor, action, details string, metadata map[string]interface{}) {
	a.Log(&AuditEvent{
		EventType:  eventType,
		Actor:      actor,
		Action:     action,
		Resource:   "security",
		ResourceID: eventType,
		Status:     "alert",
		Reason:     details,
		Metadata:   metadata,
		Timestamp:  time.Now(),
	})
}
