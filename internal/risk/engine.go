package risk

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine computes risk assessments. It is an explicit value constructed
// from its configuration; differently-tuned instances (say, a stricter one
// for administrative accounts) can coexist in one process.
type Engine struct {
	config EngineConfig
	logger *zap.Logger
}

// NewEngine creates an Engine with the given configuration.
func NewEngine(config EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		config: config,
		logger: logger.With(zap.String("component", "risk_engine")),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Assess scores one attempt against a read-only snapshot of the identity's
// profile and attempt log. The scorers are pure and side-effect-free, so
// they run concurrently against the shared snapshot without coordination.
// The result is deterministic for identical inputs.
func (e *Engine) Assess(ctx *AuthenticationContext, profile *RiskProfile, attempts *AttemptLog) *RiskAssessment {
	start := time.Now()

	var scores FactorScores
	signals := make(map[string][]string, 5)
	var mu sync.Mutex
	var wg sync.WaitGroup

	run := func(name string, fn func() (int, []string), dst *int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			score, sigs := fn()
			mu.Lock()
			*dst = score
			signals[name] = sigs
			mu.Unlock()
		}()
	}

	run(FactorDevice, func() (int, []string) { return e.scoreDevice(ctx, profile) }, &scores.Device)
	run(FactorLocation, func() (int, []string) { return e.scoreLocation(ctx, profile) }, &scores.Location)
	run(FactorTime, func() (int, []string) { return e.scoreTime(ctx, profile) }, &scores.Time)
	run(FactorBehavioral, func() (int, []string) { return e.scoreBehavioral(ctx, attempts) }, &scores.Behavioral)
	run(FactorHistorical, func() (int, []string) { return e.scoreHistorical(ctx, profile) }, &scores.Historical)
	wg.Wait()

	composite := e.aggregate(scores)
	level := e.classify(composite)

	assessment := &RiskAssessment{
		ID:             uuid.New().String(),
		UserID:         ctx.UserID,
		Score:          composite,
		Level:          level,
		Scores:         scores,
		Breakdown:      e.breakdown(scores, signals),
		TopFactors:     topFactors(scores),
		Recommendation: e.recommend(level),
		EvaluatedAt:    ctx.Timestamp,
	}

	e.logger.Debug("Risk assessment computed",
		zap.String("user_id", ctx.UserID),
		zap.Int("score", composite),
		zap.String("level", string(level)),
		zap.String("action", string(assessment.Recommendation.Action)),
		zap.Duration("duration", time.Since(start)),
	)

	return assessment
}

// aggregate combines the five sub-scores using the configured weights.
func (e *Engine) aggregate(s FactorScores) int {
	w := e.config.Weights
	weighted := float64(s.Device)*w.Device +
		float64(s.Location)*w.Location +
		float64(s.Time)*w.Time +
		float64(s.Behavioral)*w.Behavioral +
		float64(s.Historical)*w.Historical
	return clampScore(int(math.Round(weighted)))
}

// classify maps a composite score to its discrete level.
func (e *Engine) classify(score int) RiskLevel {
	t := e.config.Thresholds
	switch {
	case score < t.Low:
		return RiskLevelVeryLow
	case score < t.Medium:
		return RiskLevelLow
	case score < t.High:
		return RiskLevelMedium
	case score < t.Critical:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// breakdown assembles the per-factor results in fixed factor order.
func (e *Engine) breakdown(s FactorScores, signals map[string][]string) []FactorResult {
	w := e.config.Weights
	byName := map[string]struct {
		score  int
		weight float64
	}{
		FactorDevice:     {s.Device, w.Device},
		FactorLocation:   {s.Location, w.Location},
		FactorTime:       {s.Time, w.Time},
		FactorBehavioral: {s.Behavioral, w.Behavioral},
		FactorHistorical: {s.Historical, w.Historical},
	}

	results := make([]FactorResult, 0, len(factorOrder))
	for _, name := range factorOrder {
		f := byName[name]
		results = append(results, FactorResult{
			Name:    name,
			Score:   f.score,
			Weight:  f.weight,
			Signals: signals[name],
		})
	}
	return results
}

// topFactors returns the three highest sub-scores, ties broken by the fixed
// factor order.
func topFactors(s FactorScores) []string {
	type ranked struct {
		name  string
		score int
		order int
	}
	all := []ranked{
		{FactorDevice, s.Device, 0},
		{FactorLocation, s.Location, 1},
		{FactorTime, s.Time, 2},
		{FactorBehavioral, s.Behavioral, 3},
		{FactorHistorical, s.Historical, 4},
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].order < all[j].order
	})

	top := make([]string, 0, 3)
	for _, r := range all[:3] {
		top = append(top, r.name)
	}
	return top
}
