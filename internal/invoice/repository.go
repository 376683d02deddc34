package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound reports a missing invoice.
var ErrNotFound = errors.New("invoice: not found")

// Repository abstracts invoice persistence.
type Repository interface {
	Create(ctx context.Context, inv Invoice) error
	List(ctx context.Context, limit, offset int) ([]Invoice, int64, error)
	Get(ctx context.Context, id uuid.UUID) (Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
}

// PGRepository stores invoices as a header row plus the full record as a
// JSONB document, so the totals are read back exactly as computed.
type PGRepository struct {
	Pool *pgxpool.Pool
}

func (r PGRepository) Create(ctx context.Context, inv Invoice) error {
	details, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invoice: %w", err)
	}
	_, err = r.Pool.Exec(ctx, `
		INSERT INTO invoices (id, invoice_number, status, customer_name, invoice_date, grand_total, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)`,
		inv.ID, inv.InvoiceNumber, inv.Status, inv.Customer.Name, inv.Date,
		inv.GrandTotal.String(), details, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r PGRepository) List(ctx context.Context, limit, offset int) ([]Invoice, int64, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT details
		FROM invoices
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	invoices := make([]Invoice, 0, limit)
	for rows.Next() {
		var details []byte
		if err := rows.Scan(&details); err != nil {
			return nil, 0, err
		}
		var inv Invoice
		if err := json.Unmarshal(details, &inv); err != nil {
			return nil, 0, fmt.Errorf("decode invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r PGRepository) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	var details []byte
	err := r.Pool.QueryRow(ctx, `SELECT details FROM invoices WHERE id = $1`, id).Scan(&details)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	var inv Invoice
	if err := json.Unmarshal(details, &inv); err != nil {
		return Invoice{}, fmt.Errorf("decode invoice: %w", err)
	}
	return inv, nil
}

func (r PGRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE invoices
		SET status = $2,
			details = jsonb_set(details, '{status}', to_jsonb($2::text)),
			updated_at = now()
		WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r PGRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM invoices`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
