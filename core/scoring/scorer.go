package scoring

import (
	"errors"
	"strings"
)

var ErrInvalidInput = errors.New("scoring: invalid input")

// Fixed combination weights. Changing these changes every score in the
// system, so they are constants rather than configuration.
const (
	weightSector      = 0.3
	weightSeverity    = 0.3
	weightProbability = 0.4
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	thresholdMedium   = 0.30
	thresholdHigh     = 0.60
	thresholdCritical = 0.85
)

type Input struct {
	SectorRiskLevel string  // low|medium|high
	SeverityWeight  int     // 1..5
	Probability     float64 // 0..1
}

type Result struct {
	RiskScore float64  `json:"risk_score"`
	Severity  Severity `json:"severity"`
}

// Score combines sector risk, incident type severity and reported probability
// into a risk score in [0,1]. Deterministic: identical inputs always produce
// identical outputs.
func Score(in Input) (Result, error) {
	sector, err := normalizeSectorLevel(in.SectorRiskLevel)
	if err != nil {
		return Result{}, err
	}
	if in.SeverityWeight < 1 || in.SeverityWeight > 5 {
		return Result{}, ErrInvalidInput
	}
	if in.Probability < 0 || in.Probability > 1 {
		return Result{}, ErrInvalidInput
	}
	score := weightSector*sector +
		weightSeverity*(float64(in.SeverityWeight)/5.0) +
		weightProbability*in.Probability
	score = clamp01(score)
	return Result{RiskScore: score, Severity: Classify(score)}, nil
}

func Classify(score float64) Severity {
	switch {
	case score < thresholdMedium:
		return SeverityLow
	case score < thresholdHigh:
		return SeverityMedium
	case score < thresholdCritical:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

func normalizeSectorLevel(level string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return 1.0 / 3.0, nil
	case "medium":
		return 2.0 / 3.0, nil
	case "high":
		return 1.0, nil
	default:
		return 0, ErrInvalidInput
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
