package risk

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Level is an ordinal risk bucket.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Levels returns all buckets in ascending order.
func Levels() []Level {
	return []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}
}

// Valid reports whether l is one of the four buckets.
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return true
	}
	return false
}

// ParseLevel parses a case-insensitive risk level name.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return l, nil
}

// Bucket maps a 0-100 score to a level using half-open intervals.
func Bucket(score float64) Level {
	switch {
	case score < 30:
		return LevelLow
	case score < 50:
		return LevelMedium
	case score < 75:
		return LevelHigh
	default:
		return LevelCritical
	}
}

const (
	ModelHeuristic = "heuristic"
	ModelDefault   = "default"

	heuristicConfidence = 0.85
	defaultConfidence   = 0.5
	defaultScore        = 50
)

// Result is the outcome of one classification.
type Result struct {
	RiskLevel           Level    `json:"risk_level"`
	RiskScore           float64  `json:"risk_score"`
	ContributingFactors []string `json:"contributing_factors"`
	Recommendations     []string `json:"recommendations"`
	Confidence          float64  `json:"confidence"`
	ModelUsed           string   `json:"model_used"`
	Fallback            bool     `json:"fallback"`
}

// DefaultResult is returned whenever prediction fails.
func DefaultResult() Result {
	return Result{
		RiskLevel:           LevelMedium,
		RiskScore:           defaultScore,
		ContributingFactors: []string{},
		Recommendations:     []string{"Please consult a healthcare professional"},
		Confidence:          defaultConfidence,
		ModelUsed:           ModelDefault,
		Fallback:            true,
	}
}

// Predictor produces a Result or reports why it could not.
type Predictor interface {
	Predict(responses Responses) (Result, error)
}

// HeuristicPredictor scores the mean of a declared feature set.
type HeuristicPredictor struct {
	features []string
}

// NewHeuristicPredictor declares the features that enter the mean.
// With no features the core set is used.
func NewHeuristicPredictor(features ...string) (*HeuristicPredictor, error) {
	if len(features) == 0 {
		features = CoreFeatures()
	}
	seen := make(map[string]bool, len(features))
	declared := make([]string, 0, len(features))
	for _, f := range features {
		if !IsFeature(f) {
			return nil, fmt.Errorf("unknown feature %q", f)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		declared = append(declared, f)
	}
	return &HeuristicPredictor{features: declared}, nil
}

// Features returns the declared feature set.
func (p *HeuristicPredictor) Features() []string {
	return append([]string(nil), p.features...)
}

// Predict implements Predictor.
func (p *HeuristicPredictor) Predict(responses Responses) (Result, error) {
	vector, err := ExtractFeatures(responses)
	if err != nil {
		return Result{}, fmt.Errorf("extract features: %w", err)
	}

	score := vector.Score(p.features)
	level := Bucket(score)

	return Result{
		RiskLevel:           level,
		RiskScore:           score,
		ContributingFactors: vector.ContributingFactors(),
		Recommendations:     Recommendations(level),
		Confidence:          heuristicConfidence,
		ModelUsed:           ModelHeuristic,
	}, nil
}

// Classifier wraps a Predictor and never fails.
type Classifier struct {
	predictor Predictor
	logger    *zap.Logger
}

// NewClassifier creates a Classifier over predictor.
func NewClassifier(predictor Predictor, logger *zap.Logger) *Classifier {
	return &Classifier{
		predictor: predictor,
		logger:    logger,
	}
}

// Classify returns the predictor's result, or DefaultResult on failure.
func (c *Classifier) Classify(responses Responses) Result {
	result, err := c.predictor.Predict(responses)
	if err != nil {
		c.logger.Warn("risk prediction failed, using default result", zap.Error(err))
		return DefaultResult()
	}
	return result
}
