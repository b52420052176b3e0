package risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/riskgate/riskgate/internal/metrics"
)

// ServiceConfig wires a Service together.
type ServiceConfig struct {
	Engine   EngineConfig
	LockWait time.Duration
	// JWTSecret signs elevation tokens minted on step-up completion.
	JWTSecret []byte
}

// Service is the assembled risk-decision pipeline: context in, assessment
// out, plus the step-up lifecycle and outcome recording. It is constructed
// explicitly from its configuration; nothing here is process-global.
type Service struct {
	engine   *Engine
	store    ProfileStore
	stepup   *StepUpManager
	recorder *Recorder
	alerts   AlertStore
	logger   *zap.Logger
}

// NewService assembles a Service. alerts may be nil to disable alerting.
func NewService(cfg ServiceConfig, store ProfileStore, stepupStore StepUpStore, alerts AlertStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "risk"))
	return &Service{
		engine:   NewEngine(cfg.Engine, logger),
		store:    store,
		stepup:   NewStepUpManager(stepupStore, cfg.Engine.StepUpTTL, cfg.JWTSecret, logger),
		recorder: NewRecorder(store, cfg.LockWait, logger),
		alerts:   alerts,
		logger:   logger,
	}
}

// StepUp exposes the step-up session manager.
func (s *Service) StepUp() *StepUpManager {
	return s.stepup
}

// Engine exposes the scoring engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Assess runs the full decision pipeline for one attempt: snapshot the
// profile, score, decide, then apply the step-up short-circuit for the
// attempt's session. The snapshot is read-only; nothing is persisted here.
func (s *Service) Assess(ctx context.Context, authCtx *AuthenticationContext) (*RiskAssessment, error) {
	if authCtx.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if authCtx.Timestamp.IsZero() {
		authCtx.Timestamp = time.Now()
	}

	profile, err := s.store.GetProfile(ctx, authCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	attempts, err := s.store.GetAttemptLog(ctx, authCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt log: %w", err)
	}

	assessment := s.engine.Assess(authCtx, profile, attempts)

	if authCtx.SessionID != "" && assessment.Recommendation.Action == ActionChallenge {
		elevated := s.stepup.IsElevated(ctx, authCtx.SessionID)
		if elevated {
			assessment.Recommendation = applyStepUp(assessment.Recommendation, true)
			s.logger.Debug("Challenge short-circuited by elevated trust",
				zap.String("user_id", authCtx.UserID),
				zap.String("session_id", authCtx.SessionID),
			)
		}
	}

	if assessment.Recommendation.NotifySecurityTeam && s.alerts != nil {
		alert := newBlockedAttemptAlert(authCtx, assessment)
		if err := s.alerts.CreateAlert(ctx, alert); err != nil {
			s.logger.Error("Failed to create security alert",
				zap.String("user_id", authCtx.UserID), zap.Error(err))
		}
	}

	metrics.RecordAssessment(string(assessment.Level), string(assessment.Recommendation.Action))
	metrics.RecordFactorScore(FactorDevice, assessment.Scores.Device)
	metrics.RecordFactorScore(FactorLocation, assessment.Scores.Location)
	metrics.RecordFactorScore(FactorTime, assessment.Scores.Time)
	metrics.RecordFactorScore(FactorBehavioral, assessment.Scores.Behavioral)
	metrics.RecordFactorScore(FactorHistorical, assessment.Scores.Historical)

	s.logger.Info("Risk decision",
		zap.String("user_id", authCtx.UserID),
		zap.Int("score", assessment.Score),
		zap.String("level", string(assessment.Level)),
		zap.String("action", string(assessment.Recommendation.Action)),
		zap.Strings("top_factors", assessment.TopFactors),
	)

	return assessment, nil
}

// RecordOutcome commits an attempt's outcome through the Recorder.
func (s *Service) RecordOutcome(ctx context.Context, authCtx *AuthenticationContext, success bool) error {
	if authCtx.Timestamp.IsZero() {
		authCtx.Timestamp = time.Now()
	}
	err := s.recorder.RecordOutcome(ctx, authCtx, success)
	if errors.Is(err, ErrLockTimeout) {
		metrics.RecordLockTimeout(success)
	} else {
		metrics.RecordOutcomeResult(success, err)
	}
	return err
}

// RecordIncident raises the identity's incident counter.
func (s *Service) RecordIncident(ctx context.Context, userID string) error {
	return s.recorder.RecordIncident(ctx, userID, time.Now())
}

// GetProfile returns a snapshot of the identity's profile, or nil.
func (s *Service) GetProfile(ctx context.Context, userID string) (*RiskProfile, error) {
	return s.store.GetProfile(ctx, userID)
}

// IdentityStats summarizes an identity's recent attempt history.
type IdentityStats struct {
	UserID         string  `json:"user_id"`
	TotalAttempts  int     `json:"total_attempts"`
	FailedAttempts int     `json:"failed_attempts"`
	SuccessRate    float64 `json:"success_rate"`
	KnownDevices   int     `json:"known_devices"`
	KnownLocations int     `json:"known_locations"`
	IncidentCount  int     `json:"incident_count"`
}

// GetIdentityStats computes summary statistics from the attempt log and
// profile, for the admin surface.
func (s *Service) GetIdentityStats(ctx context.Context, userID string) (*IdentityStats, error) {
	stats := &IdentityStats{UserID: userID}

	log, err := s.store.GetAttemptLog(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt log: %w", err)
	}
	if log != nil {
		stats.TotalAttempts = len(log.Entries)
		for _, e := range log.Entries {
			if !e.Success {
				stats.FailedAttempts++
			}
		}
		if stats.TotalAttempts > 0 {
			stats.SuccessRate = float64(stats.TotalAttempts-stats.FailedAttempts) / float64(stats.TotalAttempts)
		}
	}

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile != nil {
		stats.KnownDevices = len(profile.KnownDevices)
		stats.KnownLocations = len(profile.KnownLocations)
		stats.IncidentCount = profile.IncidentCount
	}

	return stats, nil
}
