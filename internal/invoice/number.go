package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Numberer allocates sequential invoice numbers.
type Numberer interface {
	Next(ctx context.Context, at time.Time) (string, error)
}

// PGNumberer hands out numbers like INV-20260901-0001 with the sequence
// resetting each day. Allocation is a single upsert so concurrent requests
// never observe the same value; sequences past 9999 keep incrementing and
// simply widen the suffix.
type PGNumberer struct {
	Pool *pgxpool.Pool
}

func (n PGNumberer) Next(ctx context.Context, at time.Time) (string, error) {
	var seq int
	err := n.Pool.QueryRow(ctx, `
		INSERT INTO invoice_counters (day, seq)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = invoice_counters.seq + 1
		RETURNING seq`, at.Format(DateLayout),
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("allocate invoice number: %w", err)
	}
	return FormatNumber(at, seq), nil
}

// FormatNumber renders the canonical invoice number for a date and sequence.
func FormatNumber(at time.Time, seq int) string {
	return fmt.Sprintf("INV-%s-%04d", at.Format("20060102"), seq)
}
