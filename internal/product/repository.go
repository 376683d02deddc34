package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound reports a missing product.
var ErrNotFound = errors.New("product: not found")

// ErrDuplicateSKU reports a SKU collision on insert or update.
var ErrDuplicateSKU = errors.New("product: duplicate sku")

// Repository abstracts product persistence.
type Repository interface {
	Create(ctx context.Context, p Product) (Product, error)
	List(ctx context.Context, limit, offset int) ([]Product, int64, error)
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PGRepository stores products in Postgres.
type PGRepository struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, name, COALESCE(sku, ''), COALESCE(description, ''),
	unit_price::text, tax_rate::text, COALESCE(image_url, ''), created_at, updated_at`

func (r PGRepository) Create(ctx context.Context, p Product) (Product, error) {
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO products (id, name, sku, description, unit_price, tax_rate, image_url)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5::numeric, $6::numeric, NULLIF($7, ''))
		RETURNING `+productColumns,
		p.ID, p.Name, p.SKU, p.Description, p.UnitPrice.String(), p.TaxRate.String(), p.ImageURL,
	)
	created, err := scanProduct(row)
	if err != nil {
		return Product{}, mapPGError(err)
	}
	return created, nil
}

func (r PGRepository) List(ctx context.Context, limit, offset int) ([]Product, int64, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r PGRepository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r PGRepository) Update(ctx context.Context, p Product) (Product, error) {
	row := r.Pool.QueryRow(ctx, `
		UPDATE products
		SET name = $2, sku = NULLIF($3, ''), description = NULLIF($4, ''),
			unit_price = $5::numeric, tax_rate = $6::numeric,
			image_url = NULLIF($7, ''), updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.SKU, p.Description, p.UnitPrice.String(), p.TaxRate.String(), p.ImageURL,
	)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, mapPGError(err)
	}
	return updated, nil
}

func (r PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p         Product
		unitPrice string
		taxRate   string
	)
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &unitPrice, &taxRate,
		&p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if p.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return Product{}, err
	}
	if p.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return Product{}, err
	}
	return p, nil
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateSKU
	}
	return err
}
