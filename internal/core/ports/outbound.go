package ports

import (
	"context"
	"io"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

// ProductStore reads and writes product records in the relational store.
// Lookup methods return empty slices, not errors, when nothing matches.
type ProductStore interface {
	Upsert(ctx context.Context, rec *domain.ProductRecord) error
	GetByID(ctx context.Context, id string) (*domain.ProductRecord, error)
	FindByCode(ctx context.Context, code string) ([]domain.Candidate, error)
	FindByFilter(ctx context.Context, filter domain.AttributeFilter) ([]domain.Candidate, error)
}

// VectorStore indexes product records and performs cosine top-N search.
type VectorStore interface {
	IndexProduct(ctx context.Context, rec *domain.ProductRecord, vector []float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Candidate, error)
}

// Embedder builds vectors for product descriptions and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// IntentModel is the language-model fallback for query classification.
type IntentModel interface {
	ClassifyIntent(ctx context.Context, query string) (domain.Classification, error)
}

// AnswerGenerator creates the user-facing answer from ranked evidence.
// strict requests a tighter instruction for the one regeneration attempt.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, evidence []domain.RankedCandidate, strict bool) (string, error)
}

// PairScorer scores (query, passage) pairs with a cross-encoder model.
// The returned slice is index-aligned with passages; NaN marks a pair the
// service could not score.
type PairScorer interface {
	ScorePairs(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Translator moves text between the caller's language and the pipeline's
// working language. Implementations fail closed: on error the caller keeps
// the original text.
type Translator interface {
	TranslateToWorking(ctx context.Context, text, sourceLang string) (string, error)
	TranslateFromWorking(ctx context.Context, text, targetLang string) (string, error)
}

// MessageQueue publishes/consumes catalog import events.
type MessageQueue interface {
	PublishCatalogImport(ctx context.Context, key string) error
	SubscribeCatalogImport(ctx context.Context, handler func(context.Context, string) error) error
}

// ObjectStorage stages uploaded catalog files for the worker.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// CatalogReader parses structured product rows from an uploaded file.
type CatalogReader interface {
	ReadProducts(r io.Reader) ([]domain.ProductRecord, error)
}
