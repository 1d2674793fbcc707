package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/complyline/assessor/internal/core/domain"
)

// Validate coerces raw model text into a schema-complete result. It never
// fails: unparseable output resolves to the deterministic fallback, and
// every missing or mistyped field is replaced by its schema default.
// Fields outside the schema are ignored.
func Validate(raw string, s Schema, input domain.AssessmentInput) domain.AssessmentResult {
	s = s.normalized()

	parsed := map[string]any{}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return Fallback(s, input)
	}

	return domain.AssessmentResult{
		Score:           coerceScore(parsed["score"], s),
		Eligible:        coerceBool(parsed["eligible"], s.DefaultEligible),
		RiskLevel:       coerceRiskLevel(parsed["risk_level"], s.DefaultRiskLevel),
		Recommendations: coerceStringList(parsed["recommendations"]),
		Rationale:       coerceText(parsed["rationale"], s.MissingRationale),
	}
}

// Fallback is the deterministic, schema-valid substitute used when the
// model call failed or its output contained no parseable JSON object.
func Fallback(s Schema, input domain.AssessmentInput) domain.AssessmentResult {
	s = s.normalized()

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = "the submitted request"
	}

	recommendations := make([]string, len(s.DefaultRecommendations))
	copy(recommendations, s.DefaultRecommendations)

	return domain.AssessmentResult{
		Score:           s.NeutralScore,
		Eligible:        s.DefaultEligible,
		RiskLevel:       s.DefaultRiskLevel,
		Recommendations: recommendations,
		Rationale: fmt.Sprintf(
			"The assessment for %q could not be completed automatically. A neutral score has been assigned; please review the submission manually.",
			subject,
		),
		Degraded: true,
	}
}

// extractJSONObject pulls the first-{ to last-} substring out of prose the
// model may have wrapped around its JSON answer.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func coerceScore(value any, s Schema) int {
	score := s.NeutralScore
	switch v := value.(type) {
	case float64:
		score = int(v)
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			score = int(n)
		}
	}
	if score < s.MinScore {
		return s.MinScore
	}
	if score > s.MaxScore {
		return s.MaxScore
	}
	return score
}

func coerceBool(value any, fallback bool) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return fallback
}

func coerceRiskLevel(value any, fallback string) string {
	text, ok := value.(string)
	if !ok {
		return fallback
	}
	switch level := strings.ToLower(strings.TrimSpace(text)); level {
	case "low", "medium", "high":
		return level
	default:
		return fallback
	}
}

func coerceStringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := item.(string); ok {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func coerceText(value any, fallback string) string {
	text, ok := value.(string)
	if !ok {
		return fallback
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		return trimmed
	}
	return fallback
}
