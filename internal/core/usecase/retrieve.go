package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
	"github.com/kirillkom/catalog-qa/internal/core/ports"
)

// Retriever fans a classified query out to the exact and semantic lookup
// paths. Each path runs under its own timeout; a single failed path is
// tolerated and surfaced through the outcome, only a total loss of
// evidence is an error for the caller.
type Retriever struct {
	products   ports.ProductStore
	vectors    ports.VectorStore
	embedder   ports.Embedder
	timeout    time.Duration
	candidates int
}

// retrievalOutcome carries both lists plus the per-path errors so the
// pipeline can record partial degradation without losing evidence.
type retrievalOutcome struct {
	Exact       []domain.Candidate
	Semantic    []domain.Candidate
	ExactErr    error
	SemanticErr error
}

func (o retrievalOutcome) partial() bool {
	return o.ExactErr != nil || o.SemanticErr != nil
}

func NewRetriever(products ports.ProductStore, vectors ports.VectorStore, embedder ports.Embedder, timeout time.Duration, candidates int) *Retriever {
	return &Retriever{
		products:   products,
		vectors:    vectors,
		embedder:   embedder,
		timeout:    timeout,
		candidates: candidates,
	}
}

// Retrieve dispatches on intent: EXACT and FILTER hit only the relational
// store, SEMANTIC only the vector store, HYBRID both concurrently.
func (r *Retriever) Retrieve(ctx context.Context, cls domain.Classification) (retrievalOutcome, error) {
	var out retrievalOutcome

	switch cls.Intent {
	case domain.IntentExact:
		out.Exact, out.ExactErr = r.exactLookup(ctx, cls)
	case domain.IntentFilter:
		out.Exact, out.ExactErr = r.filterLookup(ctx, cls.Filter)
	case domain.IntentSemantic:
		out.Semantic, out.SemanticErr = r.semanticLookup(ctx, cls.Query)
	case domain.IntentHybrid:
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			out.Exact, out.ExactErr = r.filterLookup(gctx, cls.Filter)
			return nil
		})
		g.Go(func() error {
			out.Semantic, out.SemanticErr = r.semanticLookup(gctx, cls.Query)
			return nil
		})
		// Lookup errors are collected, never propagated through the group.
		_ = g.Wait()
	default:
		return out, fmt.Errorf("retrieve: %w: unknown intent %q", domain.ErrInvalidInput, cls.Intent)
	}

	if out.ExactErr != nil {
		slog.Warn("exact_lookup_failed", "intent", string(cls.Intent), "error", out.ExactErr)
	}
	if out.SemanticErr != nil {
		slog.Warn("semantic_lookup_failed", "intent", string(cls.Intent), "error", out.SemanticErr)
	}

	if len(out.Exact) == 0 && len(out.Semantic) == 0 && out.partial() && !out.anySucceeded(cls.Intent) {
		return out, domain.WrapError(domain.ErrNoEvidence, "retrieve", firstErr(out.ExactErr, out.SemanticErr))
	}
	return out, nil
}

// anySucceeded reports whether at least one lookup the intent required
// completed without error.
func (o retrievalOutcome) anySucceeded(intent domain.Intent) bool {
	switch intent {
	case domain.IntentExact, domain.IntentFilter:
		return o.ExactErr == nil
	case domain.IntentSemantic:
		return o.SemanticErr == nil
	}
	return o.ExactErr == nil || o.SemanticErr == nil
}

func (r *Retriever) exactLookup(ctx context.Context, cls domain.Classification) ([]domain.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	candidates, err := r.products.FindByCode(ctx, cls.Code)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "exact lookup", err)
	}
	return capCandidates(candidates, r.candidates), nil
}

func (r *Retriever) filterLookup(ctx context.Context, filter domain.AttributeFilter) ([]domain.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	candidates, err := r.products.FindByFilter(ctx, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "filter lookup", err)
	}
	return capCandidates(candidates, r.candidates), nil
}

func (r *Retriever) semanticLookup(ctx context.Context, query string) ([]domain.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "embed query", err)
	}

	candidates, err := r.vectors.Search(ctx, vector, r.candidates)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "semantic lookup", err)
	}
	return candidates, nil
}

func capCandidates(candidates []domain.Candidate, limit int) []domain.Candidate {
	if limit > 0 && len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
