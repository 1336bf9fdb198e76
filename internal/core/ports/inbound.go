package ports

import (
	"context"
	"io"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

// QueryResolver is the inbound contract for the full query resolution
// pipeline.
type QueryResolver interface {
	Resolve(ctx context.Context, question, declaredLanguage string, topK int) (*domain.Resolution, error)
}

// CatalogImporter is the inbound contract for submitting a catalog
// spreadsheet for asynchronous loading.
type CatalogImporter interface {
	Import(ctx context.Context, filename string, body io.Reader) (string, error)
}

// CatalogLoader is the inbound contract for the worker-side import.
// It reports the number of product records loaded.
type CatalogLoader interface {
	LoadByKey(ctx context.Context, key string) (int, error)
}

// ProductReader is the inbound read model for stored product records.
type ProductReader interface {
	GetByID(ctx context.Context, id string) (*domain.ProductRecord, error)
}
