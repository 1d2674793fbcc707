package schema

import (
	"strings"
	"testing"

	"github.com/complyline/assessor/internal/core/domain"
)

func testInput() domain.AssessmentInput {
	return domain.AssessmentInput{
		Subject: "retirement plan eligibility",
		Content: "Client is 45 with a defined-contribution plan.",
	}
}

func TestValidateWellFormedOutput(t *testing.T) {
	raw := `{"score": 85, "eligible": true, "risk_level": "LOW", "recommendations": ["Consolidate accounts", "  "], "rationale": "Meets all criteria."}`

	result := Validate(raw, ComplianceAssessment(), testInput())

	if result.Score != 85 {
		t.Fatalf("score = %d, want 85", result.Score)
	}
	if !result.Eligible {
		t.Fatal("eligible = false, want true")
	}
	if result.RiskLevel != "low" {
		t.Fatalf("risk level = %q, want normalized \"low\"", result.RiskLevel)
	}
	if len(result.Recommendations) != 1 || result.Recommendations[0] != "Consolidate accounts" {
		t.Fatalf("recommendations = %v, want blank entries dropped", result.Recommendations)
	}
	if result.Rationale != "Meets all criteria." {
		t.Fatalf("rationale = %q", result.Rationale)
	}
	if result.Degraded {
		t.Fatal("well-formed output must not be marked degraded")
	}
}

func TestValidateExtractsJSONFromProse(t *testing.T) {
	raw := "Sure! Here is the assessment:\n```json\n{\"score\": 70, \"eligible\": true, \"risk_level\": \"medium\", \"rationale\": \"ok\"}\n```\nLet me know if you need anything else."

	result := Validate(raw, ComplianceAssessment(), testInput())

	if result.Score != 70 {
		t.Fatalf("score = %d, want 70", result.Score)
	}
	if result.Degraded {
		t.Fatal("embedded JSON must be recovered, not degraded")
	}
}

func TestValidateNoJSONFallsBack(t *testing.T) {
	result := Validate("I am sorry, I cannot assess that.", ComplianceAssessment(), testInput())

	if !result.Degraded {
		t.Fatal("unparseable output must be marked degraded")
	}
	if result.Score != 50 {
		t.Fatalf("score = %d, want neutral 50", result.Score)
	}
	if result.Eligible {
		t.Fatal("fallback eligible must be false")
	}
	if result.RiskLevel != "unknown" {
		t.Fatalf("risk level = %q, want \"unknown\"", result.RiskLevel)
	}
	if len(result.Recommendations) == 0 {
		t.Fatal("fallback must carry default recommendations")
	}
	if !strings.Contains(result.Rationale, `"retirement plan eligibility"`) {
		t.Fatalf("fallback rationale must reference the subject, got %q", result.Rationale)
	}
}

func TestValidateCoercions(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want func(t *testing.T, r domain.AssessmentResult)
	}{
		{
			name: "score clamped above max",
			raw:  `{"score": 250}`,
			want: func(t *testing.T, r domain.AssessmentResult) {
				if r.Score != 100 {
					t.Fatalf("score = %d, want clamped 100", r.Score)
				}
			},
		},
		{
			name: "score clamped below min",
			raw:  `{"score": -5}`,
			want: func(t *testing.T, r domain.AssessmentResult) {
				if r.Score != 0 {
					t.Fatalf("score = %d, want clamped 0", r.Score)
				}
			},
		},
		{
			name: "numeric string score",
			raw:  `{"score": "72"}`,
			want: func(t *testing.T, r domain.AssessmentResult) {
				if r.Score != 72 {
					t.Fatalf("score = %d, want 72", r.Score)
				}
			},
		},
		{
			name: "missing score defaults to neutral",
			raw:  `{"eligible": true}`,
			want: func(t *testing.T, r domain.AssessmentResult) {
				if r.Score != 50 {
					t.Fatalf("score = %d, want neutral 50", r.Score)
				}
			},
		},
		{
			name: "string boolean",
			raw:  `{"eligible": "true"}`,
			want: func(t *testing.T, r domain.AssessmentResult) {
				if !r.Eligible {
					t.Fatal("eligible = false, want coerced true")
				}
			},
		},
		{
			name: "unknown risk level uses default",
			raw:  `{"risk_level": "catastrophic"}`,
			want: func(t *testing.T, r domain.AssessmentResult) {
				if r.RiskLevel != "unknown" {
					t.Fatalf("risk level = %q, want default", r.RiskLevel)
				}
			},
		},
		{
			name: "non-list recommendations become empty",
			raw:  `{"recommendations": "do the thing"}`,
			want: func(t *testing.T, r domain.AssessmentResult) {
				if r.Recommendations == nil || len(r.Recommendations) != 0 {
					t.Fatalf("recommendations = %v, want empty list", r.Recommendations)
				}
			},
		},
		{
			name: "missing rationale uses schema text",
			raw:  `{"score": 40}`,
			want: func(t *testing.T, r domain.AssessmentResult) {
				if r.Rationale != ComplianceAssessment().MissingRationale {
					t.Fatalf("rationale = %q", r.Rationale)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.raw, ComplianceAssessment(), testInput())
			if result.Degraded {
				t.Fatal("parsed output must not be degraded")
			}
			tc.want(t, result)
		})
	}
}

func TestFallbackBlankSubject(t *testing.T) {
	result := Fallback(ComplianceAssessment(), domain.AssessmentInput{Subject: "   "})
	if !strings.Contains(result.Rationale, `"the submitted request"`) {
		t.Fatalf("rationale = %q, want placeholder subject", result.Rationale)
	}
}

func TestSchemaNormalization(t *testing.T) {
	s := Schema{MinScore: 10, MaxScore: 5, NeutralScore: 999}.normalized()
	if s.MinScore != 0 || s.MaxScore != 100 {
		t.Fatalf("bounds = [%d, %d], want [0, 100]", s.MinScore, s.MaxScore)
	}
	if s.NeutralScore != 50 {
		t.Fatalf("neutral = %d, want midpoint 50", s.NeutralScore)
	}
}
