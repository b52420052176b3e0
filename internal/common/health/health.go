// Package health exposes liveness and readiness probes backed by
// per-dependency checks.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/riskgate/riskgate/internal/common/database"
)

// Service-level statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Dependency-level statuses.
const (
	DepUp       = "up"
	DepDegraded = "degraded"
	DepDown     = "down"
)

const checkTimeout = 5 * time.Second

// Checker is one dependency's health probe.
type Checker interface {
	Name() string
	Check(ctx context.Context) DependencyCheck
}

// DependencyCheck is the result of probing a single dependency.
type DependencyCheck struct {
	Status    string    `json:"status"`
	Latency   string    `json:"latency"`
	Details   string    `json:"details,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Status aggregates all dependency checks into one service-level view.
type Status struct {
	Status       string                     `json:"status"`
	Version      string                     `json:"version,omitempty"`
	Uptime       string                     `json:"uptime"`
	Dependencies map[string]DependencyCheck `json:"dependencies"`
	CheckedAt    time.Time                  `json:"checked_at"`
}

// Service runs registered checkers and serves the probe endpoints.
type Service struct {
	mu        sync.RWMutex
	checkers  []Checker
	version   string
	logger    *zap.Logger
	startTime time.Time
}

// NewService creates a Service with no checkers registered.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:    logger.With(zap.String("component", "health")),
		startTime: time.Now(),
	}
}

// SetVersion sets the version string reported on /health.
func (s *Service) SetVersion(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
}

// RegisterCheck adds a dependency checker.
func (s *Service) RegisterCheck(c Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers = append(s.checkers, c)
	s.logger.Info("Registered health checker", zap.String("name", c.Name()))
}

// Check probes every registered dependency concurrently and aggregates the
// results. Any dependency down makes the service unhealthy; any degraded
// dependency degrades it.
func (s *Service) Check(ctx context.Context) *Status {
	s.mu.RLock()
	checkers := make([]Checker, len(s.checkers))
	copy(checkers, s.checkers)
	version := s.version
	s.mu.RUnlock()

	type result struct {
		name  string
		check DependencyCheck
	}
	results := make(chan result, len(checkers))
	for _, c := range checkers {
		go func(c Checker) {
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			results <- result{name: c.Name(), check: c.Check(checkCtx)}
		}(c)
	}

	overall := StatusHealthy
	deps := make(map[string]DependencyCheck, len(checkers))
	for range checkers {
		r := <-results
		deps[r.name] = r.check

		switch r.check.Status {
		case DepDown:
			overall = StatusUnhealthy
			s.logger.Warn("Dependency is down", zap.String("dependency", r.name))
		case DepDegraded:
			if overall != StatusUnhealthy {
				overall = StatusDegraded
			}
			s.logger.Warn("Dependency is degraded", zap.String("dependency", r.name))
		}
	}

	return &Status{
		Status:       overall,
		Version:      version,
		Uptime:       time.Since(s.startTime).Round(time.Second).String(),
		Dependencies: deps,
		CheckedAt:    time.Now(),
	}
}

// RegisterRoutes mounts the probe endpoints: /health (full report, 503 when
// unhealthy), /ready (readiness, 503 when any dependency is down) and
// /health/live (liveness, always 200 while the process runs).
func (s *Service) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readyHandler)
	router.GET("/health/live", s.liveHandler)
}

func (s *Service) healthHandler(c *gin.Context) {
	status := s.Check(c.Request.Context())

	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Service) readyHandler(c *gin.Context) {
	status := s.Check(c.Request.Context())

	if status.Status == StatusUnhealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": status.Dependencies,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Service) liveHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

// PostgresChecker probes a PostgreSQL pool with SELECT 1.
type PostgresChecker struct {
	db *database.PostgresDB
}

func NewPostgresChecker(db *database.PostgresDB) *PostgresChecker {
	return &PostgresChecker{db: db}
}

func (p *PostgresChecker) Name() string { return "postgres" }

func (p *PostgresChecker) Check(ctx context.Context) DependencyCheck {
	start := time.Now()
	var one int
	err := p.db.Pool.QueryRow(ctx, "SELECT 1").Scan(&one)
	return gradeCheck(time.Since(start), err, 500*time.Millisecond)
}

// RedisChecker probes a Redis connection with PING.
type RedisChecker struct {
	redis *database.RedisClient
}

func NewRedisChecker(redis *database.RedisClient) *RedisChecker {
	return &RedisChecker{redis: redis}
}

func (r *RedisChecker) Name() string { return "redis" }

func (r *RedisChecker) Check(ctx context.Context) DependencyCheck {
	start := time.Now()
	err := r.redis.Client.Ping(ctx).Err()
	return gradeCheck(time.Since(start), err, 200*time.Millisecond)
}

// gradeCheck maps a probe's latency and error into a DependencyCheck.
// Latency past the threshold grades as degraded rather than down.
func gradeCheck(latency time.Duration, err error, slow time.Duration) DependencyCheck {
	check := DependencyCheck{
		Status:    DepUp,
		Latency:   latency.String(),
		CheckedAt: time.Now(),
	}
	switch {
	case err != nil:
		check.Status = DepDown
		check.Details = fmt.Sprintf("probe failed: %v", err)
	case latency > slow:
		check.Status = DepDegraded
		check.Details = fmt.Sprintf("high latency: %s", latency)
	}
	return check
}
