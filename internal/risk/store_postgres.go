package risk

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/riskgate/riskgate/internal/common/database"
)

// PostgresStore is the durable ProfileStore and AlertStore. Profiles and
// attempt logs are stored as jsonb documents keyed by identity; see
// InitializeSchema for the table definitions.
type PostgresStore struct {
	db     *database.PostgresDB
	logger *zap.Logger
}

// NewPostgresStore creates a PostgresStore over an existing pool.
func NewPostgresStore(db *database.PostgresDB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{
		db:     db,
		logger: logger.With(zap.String("component", "risk_store")),
	}
}

// GetProfile loads an identity's profile, or (nil, nil) when absent.
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*RiskProfile, error) {
	var doc []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT profile FROM risk_profiles WHERE user_id = $1`,
		userID).Scan(&doc)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	var profile RiskProfile
	if err := json.Unmarshal(doc, &profile); err != nil {
		return nil, fmt.Errorf("corrupted profile document for %s: %w", userID, err)
	}
	if profile.TypicalHours == nil {
		profile.TypicalHours = make(map[int]bool)
	}
	return &profile, nil
}

// PutProfile upserts an identity's profile document.
func (s *PostgresStore) PutProfile(ctx context.Context, profile *RiskProfile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO risk_profiles (user_id, profile, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE
		 SET profile = EXCLUDED.profile, updated_at = NOW()`,
		profile.UserID, doc)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetAttemptLog loads an identity's attempt log, or (nil, nil) when absent.
func (s *PostgresStore) GetAttemptLog(ctx context.Context, userID string) (*AttemptLog, error) {
	var doc []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT entries FROM attempt_logs WHERE user_id = $1`,
		userID).Scan(&doc)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query attempt log: %w", err)
	}

	log := &AttemptLog{UserID: userID}
	if err := json.Unmarshal(doc, &log.Entries); err != nil {
		return nil, fmt.Errorf("corrupted attempt log for %s: %w", userID, err)
	}
	return log, nil
}

// PutAttemptLog upserts an identity's attempt log document.
func (s *PostgresStore) PutAttemptLog(ctx context.Context, log *AttemptLog) error {
	doc, err := json.Marshal(log.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt log: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO attempt_logs (user_id, entries, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE
		 SET entries = EXCLUDED.entries, updated_at = NOW()`,
		log.UserID, doc)
	if err != nil {
		return fmt.Errorf("failed to upsert attempt log: %w", err)
	}
	return nil
}

// CreateAlert inserts a security alert row.
func (s *PostgresStore) CreateAlert(ctx context.Context, alert *SecurityAlert) error {
	detailsJSON, err := json.Marshal(alert.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal alert details: %w", err)
	}
	remediationJSON, err := json.Marshal(alert.RemediationActions)
	if err != nil {
		return fmt.Errorf("failed to marshal remediation actions: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO security_alerts
		 (id, user_id, alert_type, severity, title, description, details, source_ip, remediation_actions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		alert.ID, alert.UserID, alert.Type, alert.Severity,
		alert.Title, alert.Description, detailsJSON, alert.SourceIP,
		remediationJSON, alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert security alert: %w", err)
	}
	return nil
}
