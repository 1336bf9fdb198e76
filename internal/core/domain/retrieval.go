package domain

// CandidateOrigin tags which retrieval strategy produced a candidate.
type CandidateOrigin string

const (
	OriginExact    CandidateOrigin = "exact"
	OriginSemantic CandidateOrigin = "semantic"
)

// Candidate is one retrieved product considered as evidence. Score is on
// the producing source's own scale: row-match strength for exact lookups,
// cosine similarity for semantic lookups.
type Candidate struct {
	ID               string          `json:"id"`
	Origin           CandidateOrigin `json:"origin"`
	Score            float64         `json:"score"`
	Name             string          `json:"name"`
	SKU              string          `json:"sku"`
	Snippet          string          `json:"snippet"`
	Wattage          int             `json:"wattage,omitempty"`
	LifetimeHours    int             `json:"lifetime_hours,omitempty"`
	ColorTemperature string          `json:"color_temperature,omitempty"`
	IPRating         string          `json:"ip_rating,omitempty"`
	ApplicationArea  string          `json:"application_area,omitempty"`
	SourceFile       string          `json:"source_file,omitempty"`
}

// FusedCandidate is a deduplicated candidate with its fusion score.
type FusedCandidate struct {
	Candidate

	FusedScore float64 `json:"fused_score"`

	// InBoth is set when the candidate appeared in both retrieval lists;
	// it wins ties during fusion ordering.
	InBoth bool `json:"in_both,omitempty"`

	// MatchedPredicates is the attribute-match specificity for exact and
	// filter intents.
	MatchedPredicates int `json:"matched_predicates,omitempty"`
}

// FusedResult is the ordered, deduplicated merge of the retrieval lists.
// Candidate IDs are unique within it.
type FusedResult struct {
	Intent     Intent           `json:"intent"`
	Candidates []FusedCandidate `json:"candidates"`
}

func (r FusedResult) Empty() bool { return len(r.Candidates) == 0 }

// RankedCandidate carries the reranker score when the pair was scored;
// unscored pairs keep their fused order.
type RankedCandidate struct {
	FusedCandidate

	RerankScore float64 `json:"rerank_score"`
	Scored      bool    `json:"scored"`
}

// RankedResult is the fused result reordered by reranker score and
// truncated to the final top-K.
type RankedResult struct {
	Candidates []RankedCandidate `json:"candidates"`

	// Degraded is set when one or more pairs could not be scored and kept
	// their fused order instead.
	Degraded bool `json:"degraded,omitempty"`
}

// Answer is the downstream-generated answer under validation. Confidence
// is always derived by the validator, never set by the generator.
type Answer struct {
	Text       string   `json:"text"`
	Citations  []string `json:"citations"`
	Confidence float64  `json:"confidence"`
	Language   string   `json:"language"`
}
