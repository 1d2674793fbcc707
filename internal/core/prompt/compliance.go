package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/complyline/assessor/internal/core/domain"
)

const maxContentSnippet = 8000

// ComplianceBuilder renders the default compliance/eligibility prompt
// pair. The wording is a product concern; swap the builder per assessment
// type without touching the pipeline.
type ComplianceBuilder struct{}

func NewComplianceBuilder() ComplianceBuilder {
	return ComplianceBuilder{}
}

func (ComplianceBuilder) Build(input domain.AssessmentInput) (string, string) {
	systemPrompt := `You are a compliance and eligibility assessor for business submissions.
Return a strict JSON object with keys:
score (integer 0-100), eligible (boolean), risk_level ("low"|"medium"|"high"),
recommendations (array of strings), rationale (string).
No markdown, no extra keys.`

	var userBuilder strings.Builder
	fmt.Fprintf(&userBuilder, "Subject:\n%s\n\n", strings.TrimSpace(input.Subject))

	if len(input.Context) > 0 {
		keys := make([]string, 0, len(input.Context))
		for key := range input.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		userBuilder.WriteString("Context:\n")
		for _, key := range keys {
			fmt.Fprintf(&userBuilder, "- %s: %s\n", key, input.Context[key])
		}
		userBuilder.WriteString("\n")
	}

	snippet := input.Content
	if len(snippet) > maxContentSnippet {
		snippet = snippet[:maxContentSnippet]
	}
	fmt.Fprintf(&userBuilder, "Submission:\n%s\n", snippet)

	return systemPrompt, userBuilder.String()
}
