package usecase

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

type fakeCatalogReader struct {
	records []domain.ProductRecord
	err     error
}

func (f *fakeCatalogReader) ReadProducts(_ io.Reader) ([]domain.ProductRecord, error) {
	return f.records, f.err
}

func stageFile(t *testing.T, storage *fakeObjectStorage, key string) {
	t.Helper()
	storage.saved[key] = []byte("xlsx bytes")
}

func TestLoadByKeyStoresAndIndexesRecords(t *testing.T) {
	storage := newFakeObjectStorage()
	stageFile(t, storage, "import-1_catalog.xlsx")
	products := &fakeProductStore{}
	vectors := &fakeVectorStore{}
	reader := &fakeCatalogReader{records: []domain.ProductRecord{
		{Name: "Floodlight 150", SKU: "FL-150", Wattage: 150},
		{Name: "Panel 36", SKU: "PL-36", Wattage: 36},
	}}
	uc := NewLoadCatalogUseCase(storage, reader, products, &fakeEmbedder{}, vectors)

	loaded, err := uc.LoadByKey(context.Background(), "import-1_catalog.xlsx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != 2 {
		t.Fatalf("expected 2 loaded records, got %d", loaded)
	}
	if len(products.upserted) != 2 || vectors.indexed != 2 {
		t.Fatalf("expected 2 upserts and 2 index calls, got %d/%d", len(products.upserted), vectors.indexed)
	}
	for _, rec := range products.upserted {
		if rec.ID == "" {
			t.Fatal("loader must assign record ids")
		}
		if rec.SourceFile != "import-1_catalog.xlsx" {
			t.Fatalf("loader must stamp the source file, got %q", rec.SourceFile)
		}
		if rec.UpdatedAt.IsZero() {
			t.Fatal("loader must stamp timestamps")
		}
	}
}

func TestLoadByKeyAssignsStableIDsAcrossImports(t *testing.T) {
	records := []domain.ProductRecord{
		{Name: "Floodlight 150", SKU: "FL-150", Wattage: 150},
		{Name: "Unlabeled Sample", PrimaryNumber: "4062172212311"},
	}

	runImport := func(key string) []domain.ProductRecord {
		storage := newFakeObjectStorage()
		stageFile(t, storage, key)
		products := &fakeProductStore{}
		reader := &fakeCatalogReader{records: append([]domain.ProductRecord(nil), records...)}
		uc := NewLoadCatalogUseCase(storage, reader, products, &fakeEmbedder{}, &fakeVectorStore{})

		if _, err := uc.LoadByKey(context.Background(), key); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return products.upserted
	}

	first := runImport("import-1_catalog.xlsx")
	second := runImport("import-2_catalog.xlsx")
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 upserts per import, got %d/%d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID == "" {
			t.Fatalf("row %d got no id", i)
		}
		if first[i].ID != second[i].ID {
			t.Fatalf("row %d id must be stable across imports: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
	if first[0].ID == first[1].ID {
		t.Fatal("distinct products must get distinct ids")
	}
}

func TestLoadByKeyParseFailure(t *testing.T) {
	storage := newFakeObjectStorage()
	stageFile(t, storage, "bad.xlsx")
	uc := NewLoadCatalogUseCase(storage, &fakeCatalogReader{err: errors.New("not a spreadsheet")},
		&fakeProductStore{}, &fakeEmbedder{}, &fakeVectorStore{})

	_, err := uc.LoadByKey(context.Background(), "bad.xlsx")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestLoadByKeyEmptyFileLoadsNothing(t *testing.T) {
	storage := newFakeObjectStorage()
	stageFile(t, storage, "empty.xlsx")
	uc := NewLoadCatalogUseCase(storage, &fakeCatalogReader{},
		&fakeProductStore{}, &fakeEmbedder{}, &fakeVectorStore{})

	loaded, err := uc.LoadByKey(context.Background(), "empty.xlsx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != 0 {
		t.Fatalf("expected 0 records, got %d", loaded)
	}
}

func TestLoadByKeyAllRowsFailing(t *testing.T) {
	storage := newFakeObjectStorage()
	stageFile(t, storage, "catalog.xlsx")
	products := &fakeProductStore{err: errors.New("db down")}
	reader := &fakeCatalogReader{records: []domain.ProductRecord{{Name: "Floodlight"}}}
	uc := NewLoadCatalogUseCase(storage, reader, products, &fakeEmbedder{}, &fakeVectorStore{})

	_, err := uc.LoadByKey(context.Background(), "catalog.xlsx")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestLoadByKeyEmbedFailureAborts(t *testing.T) {
	storage := newFakeObjectStorage()
	stageFile(t, storage, "catalog.xlsx")
	reader := &fakeCatalogReader{records: []domain.ProductRecord{{Name: "Floodlight"}}}
	uc := NewLoadCatalogUseCase(storage, reader, &fakeProductStore{},
		&fakeEmbedder{err: errors.New("embedder down")}, &fakeVectorStore{})

	_, err := uc.LoadByKey(context.Background(), "catalog.xlsx")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
