package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ProductRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ProductRepository{db: db}, mock, func() { _ = db.Close() }
}

func productRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "sku", "primary_number", "wattage", "lifetime_hours",
		"color_temperature", "luminous_flux", "ip_rating", "application_area",
		"certifications", "description", "source_file", "created_at", "updated_at",
	})
	now := time.Now().UTC()
	for _, id := range ids {
		rows.AddRow(id, "Floodlight 150", "FL-"+id, "4062172212311", 150, 50000,
			"4000K", 16000, "IP65", "outdoor", []byte(`["CE"]`), "Robust floodlight", "catalog.xlsx", now, now)
	}
	return rows
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, name, sku, primary_number").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindByCodeOrdersByMatchStrength(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("WHERE primary_number = \\$1 OR sku = \\$1 OR name ILIKE").
		WithArgs("4062172212311").
		WillReturnRows(rowsWithStrength())

	got, err := repo.FindByCode(context.Background(), "4062172212311")
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Origin != domain.OriginExact {
		t.Fatalf("expected exact origin, got %s", got[0].Origin)
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("expected stronger match first, scores %f, %f", got[0].Score, got[1].Score)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

// rowsWithStrength is the fixture for FindByCode, which selects the
// extra match_strength column.
func rowsWithStrength() *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "sku", "primary_number", "wattage", "lifetime_hours",
		"color_temperature", "luminous_flux", "ip_rating", "application_area",
		"certifications", "description", "source_file", "created_at", "updated_at",
		"match_strength",
	})
	now := time.Now().UTC()
	rows.AddRow("p-1", "Floodlight 150", "FL-p-1", "4062172212311", 150, 50000,
		"4000K", 16000, "IP65", "outdoor", []byte(`["CE"]`), "Robust floodlight", "catalog.xlsx", now, now, 3)
	rows.AddRow("p-2", "Floodlight 300", "FL-p-2", "", 300, 60000,
		"5000K", 30000, "IP66", "outdoor", []byte(`[]`), "Bigger floodlight", "catalog.xlsx", now, now, 1)
	return rows
}

func TestFindByCodeEmptyCodeReturnsNothing(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	got, err := repo.FindByCode(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestFindByFilterBuildsRangePredicates(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("wattage >= \\$1 AND lifetime_hours >= \\$2").
		WithArgs(1000, 400).
		WillReturnRows(productRows("p-1"))

	got, err := repo.FindByFilter(context.Background(), domain.AttributeFilter{
		WattageMin:       1000,
		LifetimeHoursMin: 400,
	})
	if err != nil {
		t.Fatalf("FindByFilter: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p-1" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindByFilterEmptyFilterMatchesNothing(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	got, err := repo.FindByFilter(context.Background(), domain.AttributeFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestUpsertExecutesConflictUpdate(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO products").
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now().UTC()
	err := repo.Upsert(context.Background(), &domain.ProductRecord{
		ID:        "p-1",
		Name:      "Floodlight 150",
		SKU:       "FL-150",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
