package domain

// ValidationReport scores a generated answer against the retrieved
// evidence. Issues is non-empty exactly when Accept is false.
type ValidationReport struct {
	Completeness       float64  `json:"completeness"`
	FactualConsistency float64  `json:"factual_consistency"`
	Issues             []string `json:"issues,omitempty"`
	Accept             bool     `json:"accept"`

	// Unverifiable marks reports produced by the validator's conservative
	// failure path rather than a real evidence check.
	Unverifiable bool `json:"unverifiable,omitempty"`
}

// Confidence derives the answer confidence from the report scores.
func (r ValidationReport) Confidence() float64 {
	if r.Unverifiable {
		return 0
	}
	return (r.Completeness + r.FactualConsistency) / 2
}
