package domain

// Intent is the retrieval strategy chosen for a query. The set is closed;
// every pipeline stage dispatches over these four values.
type Intent string

const (
	IntentExact    Intent = "EXACT"
	IntentFilter   Intent = "FILTER"
	IntentSemantic Intent = "SEMANTIC"
	IntentHybrid   Intent = "HYBRID"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentExact, IntentFilter, IntentSemantic, IntentHybrid:
		return true
	}
	return false
}

// Classification is the immutable result of query classification.
type Classification struct {
	Query      string          `json:"query"`
	Intent     Intent          `json:"intent"`
	Confidence float64         `json:"confidence"`
	Filter     AttributeFilter `json:"filter"`
	Keywords   []string        `json:"keywords,omitempty"`

	// Code holds the product identifier captured by a numeric-code rule;
	// set only for EXACT classifications.
	Code string `json:"code,omitempty"`

	// Degraded marks classifications that fell back to SEMANTIC because
	// the model call failed or returned unparseable output.
	Degraded bool `json:"degraded,omitempty"`
}

// PipelineState tracks a query through resolution. Transitions are linear
// up to VALIDATED, then branch on the validator's verdict.
type PipelineState string

const (
	StateReceived      PipelineState = "RECEIVED"
	StateClassified    PipelineState = "CLASSIFIED"
	StateRetrieved     PipelineState = "RETRIEVED"
	StateFused         PipelineState = "FUSED"
	StateRanked        PipelineState = "RANKED"
	StateAnswered      PipelineState = "ANSWERED"
	StateValidated     PipelineState = "VALIDATED"
	StateAccepted      PipelineState = "ACCEPTED"
	StateRejectedRetry PipelineState = "REJECTED_RETRY"
	StateRejectedFinal PipelineState = "REJECTED_FINAL"
)

// DegradedFlags record which fallback branches fired during resolution so
// callers can distinguish best-effort answers from fully verified ones.
type DegradedFlags struct {
	ClassifierFallback bool `json:"classifier_fallback,omitempty"`
	PartialRetrieval   bool `json:"partial_retrieval,omitempty"`
	RerankerDegraded   bool `json:"reranker_degraded,omitempty"`
	TranslationSkipped bool `json:"translation_skipped,omitempty"`
}

func (f DegradedFlags) Any() bool {
	return f.ClassifierFallback || f.PartialRetrieval || f.RerankerDegraded || f.TranslationSkipped
}

// Resolution is the final outcome of one query resolution request.
type Resolution struct {
	Query        string            `json:"query"`
	WorkingQuery string            `json:"working_query"`
	Language     string            `json:"language"`
	Intent       Intent            `json:"intent"`
	Answer       Answer            `json:"answer"`
	Report       ValidationReport  `json:"report"`
	Evidence     []RankedCandidate `json:"evidence"`
	State        PipelineState     `json:"state"`
	Flags        DegradedFlags     `json:"flags"`
}
