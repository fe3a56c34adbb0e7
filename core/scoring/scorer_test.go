package scoring

import (
	"math"
	"testing"
)

func TestScoreCombinesWeightedFactors(t *testing.T) {
	// high sector (1.0), severity weight 4 (0.8), probability 0.6:
	// 0.3*1.0 + 0.3*0.8 + 0.4*0.6 = 0.78
	res, err := Score(Input{SectorRiskLevel: "high", SeverityWeight: 4, Probability: 0.6})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if math.Abs(res.RiskScore-0.78) > 1e-9 {
		t.Fatalf("risk score = %v, want 0.78", res.RiskScore)
	}
	if res.Severity != SeverityHigh {
		t.Fatalf("severity = %s, want high", res.Severity)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	in := Input{SectorRiskLevel: "medium", SeverityWeight: 3, Probability: 0.42}
	first, err := Score(in)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Score(in)
		if err != nil {
			t.Fatalf("Score: %v", err)
		}
		if again != first {
			t.Fatalf("run %d produced %+v, first run %+v", i, again, first)
		}
	}
}

func TestScoreStaysInUnitInterval(t *testing.T) {
	res, err := Score(Input{SectorRiskLevel: "high", SeverityWeight: 5, Probability: 1})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.RiskScore < 0 || res.RiskScore > 1 {
		t.Fatalf("risk score %v outside [0,1]", res.RiskScore)
	}
	if res.Severity != SeverityCritical {
		t.Fatalf("severity = %s, want critical", res.Severity)
	}
}

func TestScoreSectorLevelIsCaseInsensitive(t *testing.T) {
	a, err := Score(Input{SectorRiskLevel: "HIGH", SeverityWeight: 2, Probability: 0.5})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	b, err := Score(Input{SectorRiskLevel: " high ", SeverityWeight: 2, Probability: 0.5})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if a != b {
		t.Fatalf("case variants differ: %+v vs %+v", a, b)
	}
}

func TestScoreRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		in   Input
	}{
		{"unknown sector level", Input{SectorRiskLevel: "extreme", SeverityWeight: 3, Probability: 0.5}},
		{"empty sector level", Input{SectorRiskLevel: "", SeverityWeight: 3, Probability: 0.5}},
		{"weight too low", Input{SectorRiskLevel: "low", SeverityWeight: 0, Probability: 0.5}},
		{"weight too high", Input{SectorRiskLevel: "low", SeverityWeight: 6, Probability: 0.5}},
		{"negative probability", Input{SectorRiskLevel: "low", SeverityWeight: 3, Probability: -0.1}},
		{"probability above one", Input{SectorRiskLevel: "low", SeverityWeight: 3, Probability: 1.1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Score(tc.in); err != ErrInvalidInput {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestClassifyThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  Severity
	}{
		{0, SeverityLow},
		{0.29, SeverityLow},
		{0.30, SeverityMedium},
		{0.59, SeverityMedium},
		{0.60, SeverityHigh},
		{0.84, SeverityHigh},
		{0.85, SeverityCritical},
		{1, SeverityCritical},
	}
	for _, tc := range cases {
		if got := Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
