package usecase

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
	"github.com/kirillkom/catalog-qa/internal/core/ports"
)

// Reranker reorders the fused list with a cross-encoder. It is strictly
// best-effort: a failed scoring call, or individual unscorable pairs,
// degrade to fused order instead of failing the pipeline.
type Reranker struct {
	scorer ports.PairScorer
	topK   int
}

func NewReranker(scorer ports.PairScorer, topK int) *Reranker {
	return &Reranker{scorer: scorer, topK: topK}
}

func (r *Reranker) Rank(ctx context.Context, query string, fused domain.FusedResult) domain.RankedResult {
	ranked := make([]domain.RankedCandidate, 0, len(fused.Candidates))
	for _, fc := range fused.Candidates {
		ranked = append(ranked, domain.RankedCandidate{FusedCandidate: fc})
	}
	if len(ranked) == 0 {
		return domain.RankedResult{}
	}

	passages := make([]string, len(ranked))
	for i, rc := range ranked {
		passages[i] = candidatePassage(rc.Candidate)
	}

	scores, err := r.scorer.ScorePairs(ctx, query, passages)
	if err != nil || len(scores) != len(ranked) {
		if err != nil {
			slog.Warn("reranker_unavailable", "error", err)
		} else {
			slog.Warn("reranker_score_count_mismatch", "want", len(ranked), "got", len(scores))
		}
		return domain.RankedResult{Candidates: r.truncate(ranked), Degraded: true}
	}

	degraded := false
	for i, score := range scores {
		if math.IsNaN(score) {
			degraded = true
			continue
		}
		ranked[i].RerankScore = score
		ranked[i].Scored = true
	}

	// Scored candidates sort by cross-encoder score; unscored ones keep
	// their fused positions behind them.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Scored != ranked[j].Scored {
			return ranked[i].Scored
		}
		if !ranked[i].Scored {
			return false
		}
		return ranked[i].RerankScore > ranked[j].RerankScore
	})

	return domain.RankedResult{Candidates: r.truncate(ranked), Degraded: degraded}
}

func (r *Reranker) truncate(ranked []domain.RankedCandidate) []domain.RankedCandidate {
	if r.topK > 0 && len(ranked) > r.topK {
		return ranked[:r.topK]
	}
	return ranked
}

// candidatePassage flattens one candidate into the passage text the
// cross-encoder scores against the query.
func candidatePassage(c domain.Candidate) string {
	var b strings.Builder
	b.WriteString(c.Name)
	if c.SKU != "" {
		b.WriteString(" (")
		b.WriteString(c.SKU)
		b.WriteString(")")
	}
	if c.Wattage > 0 {
		b.WriteString(" ")
		b.WriteString(strconv.Itoa(c.Wattage))
		b.WriteString(" W")
	}
	if c.LifetimeHours > 0 {
		b.WriteString(" ")
		b.WriteString(strconv.Itoa(c.LifetimeHours))
		b.WriteString(" h lifetime")
	}
	if c.ColorTemperature != "" {
		b.WriteString(" ")
		b.WriteString(c.ColorTemperature)
	}
	if c.IPRating != "" {
		b.WriteString(" ")
		b.WriteString(c.IPRating)
	}
	if c.ApplicationArea != "" {
		b.WriteString(" ")
		b.WriteString(c.ApplicationArea)
	}
	if c.Snippet != "" {
		b.WriteString(". ")
		b.WriteString(c.Snippet)
	}
	return strings.TrimSpace(b.String())
}
