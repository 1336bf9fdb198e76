package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
	"github.com/kirillkom/catalog-qa/internal/core/ports"
)

// ImportCatalogUseCase stages an uploaded catalog spreadsheet in object
// storage and publishes the import event; the worker does the parsing
// and indexing asynchronously.
type ImportCatalogUseCase struct {
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewImportCatalogUseCase(storage ports.ObjectStorage, queue ports.MessageQueue) *ImportCatalogUseCase {
	return &ImportCatalogUseCase{storage: storage, queue: queue}
}

// Import stores the file under a unique key and returns that key as the
// import handle.
func (uc *ImportCatalogUseCase) Import(ctx context.Context, filename string, body io.Reader) (string, error) {
	if !isSpreadsheet(filename) {
		return "", domain.WrapError(domain.ErrInvalidInput, "import catalog",
			errors.New("unsupported file type, expected .xlsx"))
	}

	key := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, key, body); err != nil {
		return "", fmt.Errorf("save catalog file: %w", err)
	}

	if err := uc.queue.PublishCatalogImport(ctx, key); err != nil {
		return "", fmt.Errorf("publish import event: %w", err)
	}

	return key, nil
}

func isSpreadsheet(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".xlsx")
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == ".xlsx" {
		return "catalog.xlsx"
	}
	return base
}
