package schema

// Schema describes the shape an assessment result must satisfy and the
// deterministic defaults used when the model output cannot provide a field.
// Different assessment types carry different schemas; the validator itself
// is schema-agnostic.
type Schema struct {
	Name string

	MinScore     int
	MaxScore     int
	NeutralScore int

	DefaultEligible        bool
	DefaultRiskLevel       string
	DefaultRecommendations []string

	// MissingRationale is used when a parsed result omits the rationale.
	// The fallback rationale for unparseable output is built per input,
	// see Fallback.
	MissingRationale string
}

// ComplianceAssessment is the default schema for adviser/client
// compliance and eligibility checks.
func ComplianceAssessment() Schema {
	return Schema{
		Name:         "compliance_assessment",
		MinScore:     0,
		MaxScore:     100,
		NeutralScore: 50,

		DefaultEligible:  false,
		DefaultRiskLevel: "unknown",
		DefaultRecommendations: []string{
			"Review the submitted information with a qualified adviser.",
			"Resubmit the assessment once the source content has been clarified.",
		},

		MissingRationale: "The model did not provide a rationale for this assessment.",
	}
}

func (s Schema) normalized() Schema {
	out := s
	if out.MaxScore <= out.MinScore {
		out.MinScore = 0
		out.MaxScore = 100
	}
	if out.NeutralScore < out.MinScore || out.NeutralScore > out.MaxScore {
		out.NeutralScore = (out.MinScore + out.MaxScore) / 2
	}
	if out.DefaultRiskLevel == "" {
		out.DefaultRiskLevel = "unknown"
	}
	if out.MissingRationale == "" {
		out.MissingRationale = "The model did not provide a rationale for this assessment."
	}
	return out
}
