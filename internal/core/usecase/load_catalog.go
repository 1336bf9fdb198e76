package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
	"github.com/kirillkom/catalog-qa/internal/core/ports"
)

// LoadCatalogUseCase is the worker-side import: it opens a staged
// spreadsheet, parses product rows, embeds them in one batch, then
// upserts each record into the relational store and indexes it in the
// vector store.
type LoadCatalogUseCase struct {
	storage  ports.ObjectStorage
	reader   ports.CatalogReader
	products ports.ProductStore
	embedder ports.Embedder
	vectors  ports.VectorStore
}

func NewLoadCatalogUseCase(
	storage ports.ObjectStorage,
	reader ports.CatalogReader,
	products ports.ProductStore,
	embedder ports.Embedder,
	vectors ports.VectorStore,
) *LoadCatalogUseCase {
	return &LoadCatalogUseCase{
		storage:  storage,
		reader:   reader,
		products: products,
		embedder: embedder,
		vectors:  vectors,
	}
}

// LoadByKey loads one staged catalog file and reports how many records
// were stored. A row that fails to persist skips the row, not the file.
func (uc *LoadCatalogUseCase) LoadByKey(ctx context.Context, key string) (int, error) {
	file, err := uc.storage.Open(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("open catalog file: %w", err)
	}
	defer file.Close()

	records, err := uc.reader.ReadProducts(file)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse catalog file", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	texts := make([]string, len(records))
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = recordID(rec)
		}
		rec.SourceFile = key
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		texts[i] = indexText(rec)
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, domain.WrapError(domain.ErrTemporary, "embed catalog batch", err)
	}
	if len(vectors) != len(records) {
		return 0, domain.WrapError(domain.ErrTemporary, "embed catalog batch",
			fmt.Errorf("got %d vectors for %d records", len(vectors), len(records)))
	}

	loaded := 0
	for i := range records {
		if err := uc.loadRecord(ctx, &records[i], vectors[i]); err != nil {
			slog.Warn("catalog_record_skipped", "key", key, "row", i, "sku", records[i].SKU, "error", err)
			continue
		}
		loaded++
	}

	if loaded == 0 {
		return 0, domain.WrapError(domain.ErrTemporary, "load catalog",
			fmt.Errorf("all %d records failed", len(records)))
	}
	return loaded, nil
}

func (uc *LoadCatalogUseCase) loadRecord(ctx context.Context, rec *domain.ProductRecord, vector []float32) error {
	if err := uc.products.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	if err := uc.vectors.IndexProduct(ctx, rec, vector); err != nil {
		return fmt.Errorf("index product: %w", err)
	}
	return nil
}

// catalogIDNamespace keys deterministic record ids: a re-imported row
// with the same identity maps to the same id, so the relational upsert
// and the vector point update in place instead of colliding on the
// unique sku index.
var catalogIDNamespace = uuid.MustParse("3e5d1c84-7a0b-4f7e-9c26-4b1f8a6d2e90")

func recordID(rec *domain.ProductRecord) string {
	identity := rec.SKU
	if identity == "" {
		identity = rec.PrimaryNumber
	}
	if identity == "" {
		identity = rec.Name
	}
	return uuid.NewSHA1(catalogIDNamespace, []byte(identity)).String()
}

// indexText is the searchable surface of a product record.
func indexText(rec *domain.ProductRecord) string {
	parts := []string{rec.Name, rec.SKU, rec.ApplicationArea, rec.Description}
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += ". "
		}
		out += p
	}
	return out
}
