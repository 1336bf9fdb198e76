package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/catalog-qa/internal/core/domain"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	sku TEXT NOT NULL,
	primary_number TEXT NOT NULL DEFAULT '',
	wattage INTEGER NOT NULL DEFAULT 0,
	lifetime_hours INTEGER NOT NULL DEFAULT 0,
	color_temperature TEXT NOT NULL DEFAULT '',
	luminous_flux INTEGER NOT NULL DEFAULT 0,
	ip_rating TEXT NOT NULL DEFAULT '',
	application_area TEXT NOT NULL DEFAULT '',
	certifications JSONB NOT NULL DEFAULT '[]'::jsonb,
	description TEXT NOT NULL DEFAULT '',
	source_file TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku ON products(sku) WHERE sku <> '';
CREATE INDEX IF NOT EXISTS idx_products_primary_number ON products(primary_number);
CREATE INDEX IF NOT EXISTS idx_products_wattage ON products(wattage);
CREATE INDEX IF NOT EXISTS idx_products_lifetime ON products(lifetime_hours);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ProductRepository) Upsert(ctx context.Context, rec *domain.ProductRecord) error {
	certsJSON, err := json.Marshal(rec.Certifications)
	if err != nil {
		return fmt.Errorf("marshal certifications: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO products (
	id, name, sku, primary_number, wattage, lifetime_hours, color_temperature,
	luminous_flux, ip_rating, application_area, certifications, description,
	source_file, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	sku = EXCLUDED.sku,
	primary_number = EXCLUDED.primary_number,
	wattage = EXCLUDED.wattage,
	lifetime_hours = EXCLUDED.lifetime_hours,
	color_temperature = EXCLUDED.color_temperature,
	luminous_flux = EXCLUDED.luminous_flux,
	ip_rating = EXCLUDED.ip_rating,
	application_area = EXCLUDED.application_area,
	certifications = EXCLUDED.certifications,
	description = EXCLUDED.description,
	source_file = EXCLUDED.source_file,
	updated_at = EXCLUDED.updated_at
`,
		rec.ID, rec.Name, rec.SKU, rec.PrimaryNumber, rec.Wattage, rec.LifetimeHours,
		rec.ColorTemperature, rec.LuminousFlux, rec.IPRating, rec.ApplicationArea,
		certsJSON, rec.Description, rec.SourceFile, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

const productColumns = `id, name, sku, primary_number, wattage, lifetime_hours, color_temperature, luminous_flux, ip_rating, application_area, certifications, description, source_file, created_at, updated_at`

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.ProductRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	rec, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrProductNotFound, "get product", err)
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return rec, nil
}

// FindByCode matches a captured identifier against the primary number,
// the SKU and the name, preferring the most specific column.
func (r *ProductRepository) FindByCode(ctx context.Context, code string) ([]domain.Candidate, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return []domain.Candidate{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+productColumns+`,
	CASE
		WHEN primary_number = $1 THEN 3
		WHEN sku = $1 THEN 2
		ELSE 1
	END AS match_strength
FROM products
WHERE primary_number = $1 OR sku = $1 OR name ILIKE '%' || $1 || '%'
ORDER BY match_strength DESC, name ASC
LIMIT 50
`, code)
	if err != nil {
		return nil, fmt.Errorf("select products by code: %w", err)
	}
	defer rows.Close()

	return collectCandidates(rows, true)
}

// FindByFilter builds an AND of the filter's non-zero predicates. An
// empty filter matches nothing: unconstrained scans are never useful as
// exact-path evidence.
func (r *ProductRepository) FindByFilter(ctx context.Context, filter domain.AttributeFilter) ([]domain.Candidate, error) {
	if filter.Empty() {
		return []domain.Candidate{}, nil
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.WattageMin > 0 {
		where = append(where, "wattage >= "+arg(filter.WattageMin))
	}
	if filter.WattageMax > 0 {
		where = append(where, "wattage > 0 AND wattage <= "+arg(filter.WattageMax))
	}
	if filter.LifetimeHoursMin > 0 {
		where = append(where, "lifetime_hours >= "+arg(filter.LifetimeHoursMin))
	}
	if filter.LifetimeHoursMax > 0 {
		where = append(where, "lifetime_hours > 0 AND lifetime_hours <= "+arg(filter.LifetimeHoursMax))
	}
	if filter.ColorTemperature != "" {
		where = append(where, "LOWER(color_temperature) = LOWER("+arg(filter.ColorTemperature)+")")
	}
	if filter.IPRating != "" {
		where = append(where, "LOWER(ip_rating) = LOWER("+arg(filter.IPRating)+")")
	}
	if filter.ApplicationArea != "" {
		where = append(where, "application_area ILIKE '%' || "+arg(filter.ApplicationArea)+" || '%'")
	}
	for _, cert := range filter.Certifications {
		where = append(where, "certifications @> "+arg(mustJSONString(cert)))
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY wattage DESC, name ASC LIMIT 100`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products by filter: %w", err)
	}
	defer rows.Close()

	return collectCandidates(rows, false)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.ProductRecord, error) {
	var rec domain.ProductRecord
	var certsRaw []byte

	err := row.Scan(
		&rec.ID, &rec.Name, &rec.SKU, &rec.PrimaryNumber, &rec.Wattage,
		&rec.LifetimeHours, &rec.ColorTemperature, &rec.LuminousFlux,
		&rec.IPRating, &rec.ApplicationArea, &certsRaw, &rec.Description,
		&rec.SourceFile, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(certsRaw) > 0 {
		if err := json.Unmarshal(certsRaw, &rec.Certifications); err != nil {
			return nil, fmt.Errorf("unmarshal certifications: %w", err)
		}
	}
	return &rec, nil
}

func collectCandidates(rows *sql.Rows, withStrength bool) ([]domain.Candidate, error) {
	out := []domain.Candidate{}
	for rows.Next() {
		var rec domain.ProductRecord
		var certsRaw []byte
		dest := []any{
			&rec.ID, &rec.Name, &rec.SKU, &rec.PrimaryNumber, &rec.Wattage,
			&rec.LifetimeHours, &rec.ColorTemperature, &rec.LuminousFlux,
			&rec.IPRating, &rec.ApplicationArea, &certsRaw, &rec.Description,
			&rec.SourceFile, &rec.CreatedAt, &rec.UpdatedAt,
		}
		strength := 0
		if withStrength {
			dest = append(dest, &strength)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		out = append(out, toCandidate(&rec, float64(strength)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return out, nil
}

func toCandidate(rec *domain.ProductRecord, score float64) domain.Candidate {
	return domain.Candidate{
		ID:               rec.ID,
		Origin:           domain.OriginExact,
		Score:            score,
		Name:             rec.Name,
		SKU:              rec.SKU,
		Snippet:          rec.Description,
		Wattage:          rec.Wattage,
		LifetimeHours:    rec.LifetimeHours,
		ColorTemperature: rec.ColorTemperature,
		IPRating:         rec.IPRating,
		ApplicationArea:  rec.ApplicationArea,
		SourceFile:       rec.SourceFile,
	}
}

func mustJSONString(s string) []byte {
	b, _ := json.Marshal([]string{s})
	return b
}
