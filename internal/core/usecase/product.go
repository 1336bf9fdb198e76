package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
	"github.com/kirillkom/catalog-qa/internal/core/ports"
)

// GetProductUseCase is the read model for single product records.
type GetProductUseCase struct {
	products ports.ProductStore
}

func NewGetProductUseCase(products ports.ProductStore) *GetProductUseCase {
	return &GetProductUseCase{products: products}
}

func (uc *GetProductUseCase) GetByID(ctx context.Context, id string) (*domain.ProductRecord, error) {
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get product", errors.New("empty id"))
	}
	rec, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return rec, nil
}
