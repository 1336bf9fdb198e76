package usecase

import (
	"sort"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

// FusionConfig tunes reciprocal-rank fusion. Weights favor the semantic
// list for hybrid queries; exact rows carry less signal once predicates
// already constrained them.
type FusionConfig struct {
	RRFK           int
	ExactWeight    float64
	SemanticWeight float64
	MaxCandidates  int
}

// fuseCandidates merges the retrieval lists into one deduplicated,
// ordered evidence list.
//
// Single-origin intents keep their source ordering (predicate-match
// specificity for exact/filter, similarity for semantic) and receive a
// reciprocal-rank score so downstream stages see one scale. Hybrid
// intents use weighted reciprocal-rank fusion across both lists, with
// membership in both lists breaking ties.
func fuseCandidates(outcome retrievalOutcome, cls domain.Classification, cfg FusionConfig) domain.FusedResult {
	result := domain.FusedResult{Intent: cls.Intent}

	switch cls.Intent {
	case domain.IntentExact, domain.IntentFilter:
		result.Candidates = fuseSingle(outcome.Exact, cls.Filter, cfg)
	case domain.IntentSemantic:
		result.Candidates = fuseSingle(outcome.Semantic, domain.AttributeFilter{}, cfg)
	case domain.IntentHybrid:
		result.Candidates = fuseHybrid(outcome, cls.Filter, cfg)
	}

	if cfg.MaxCandidates > 0 && len(result.Candidates) > cfg.MaxCandidates {
		result.Candidates = result.Candidates[:cfg.MaxCandidates]
	}
	return result
}

func fuseSingle(candidates []domain.Candidate, filter domain.AttributeFilter, cfg FusionConfig) []domain.FusedCandidate {
	fused := make([]domain.FusedCandidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		fused = append(fused, domain.FusedCandidate{
			Candidate:         c,
			MatchedPredicates: filter.MatchCount(c),
		})
	}

	if !filter.Empty() {
		sort.SliceStable(fused, func(i, j int) bool {
			return fused[i].MatchedPredicates > fused[j].MatchedPredicates
		})
	}

	for i := range fused {
		fused[i].FusedScore = 1.0 / float64(cfg.RRFK+i+1)
	}
	return fused
}

func fuseHybrid(outcome retrievalOutcome, filter domain.AttributeFilter, cfg FusionConfig) []domain.FusedCandidate {
	merged := make(map[string]*domain.FusedCandidate)
	order := make([]string, 0, len(outcome.Exact)+len(outcome.Semantic))

	accumulate := func(candidates []domain.Candidate, weight float64) {
		for rank, c := range candidates {
			contribution := weight / float64(cfg.RRFK+rank+1)
			if existing, ok := merged[c.ID]; ok {
				existing.FusedScore += contribution
				existing.InBoth = existing.Origin != c.Origin || existing.InBoth
				// The stronger raw score decides which origin the merged
				// candidate reports.
				if c.Score > existing.Score {
					existing.Origin = c.Origin
					existing.Score = c.Score
				}
				// Prefer the richer snippet when both lists carry the record.
				if len(existing.Snippet) < len(c.Snippet) {
					existing.Snippet = c.Snippet
				}
				continue
			}
			fc := &domain.FusedCandidate{
				Candidate:         c,
				FusedScore:        contribution,
				MatchedPredicates: filter.MatchCount(c),
			}
			merged[c.ID] = fc
			order = append(order, c.ID)
		}
	}

	accumulate(outcome.Exact, cfg.ExactWeight)
	accumulate(outcome.Semantic, cfg.SemanticWeight)

	fused := make([]domain.FusedCandidate, 0, len(order))
	for _, id := range order {
		fused = append(fused, *merged[id])
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		if fused[i].InBoth != fused[j].InBoth {
			return fused[i].InBoth
		}
		return fused[i].ID < fused[j].ID
	})
	return fused
}
