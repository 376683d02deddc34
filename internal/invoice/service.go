package invoice

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-billing/internal/billing"
	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/obs"
)

// Service orchestrates invoice assembly and persistence.
type Service struct {
	repo    Repository
	numbers Numberer
	now     func() time.Time
}

// NewService constructs an invoice service.
func NewService(repo Repository, numbers Numberer) *Service {
	return &Service{repo: repo, numbers: numbers, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates the payload, prices every item, finalizes the totals
// with the requested rounding mode, allocates the next invoice number and
// persists the assembled record.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Created, error) {
	if msgs := ValidateCreate(req); len(msgs) > 0 {
		countInvoice("validation_error")
		return Created{}, common.NewAppError("VALIDATION_ERROR", "invalid invoice payload", http.StatusBadRequest, nil).WithDetails(msgs)
	}
	mode, _ := billing.ParseRoundingMode(req.RoundingMode)

	items := make([]billing.LineItem, 0, len(req.Items))
	for _, in := range req.Items {
		items = append(items, billing.PriceLineItem(in))
	}
	totals := billing.FinalizeTotals(items, req.ShippingCharge, mode)

	now := s.now()
	number, err := s.numbers.Next(ctx, now)
	if err != nil {
		countInvoice("error")
		return Created{}, err
	}

	date := req.Date
	if date == "" {
		date = now.Format(DateLayout)
	}

	inv := Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		Date:          date,
		DueDate:       req.DueDate,
		Company:       req.Company,
		Customer:      req.Customer,
		ShipTo:        req.ShipTo,
		Items:         items,
		Totals:        totals,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
		Status:        StatusDraft,
		CreatedAt:     now.UTC(),
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		countInvoice("error")
		return Created{}, err
	}
	countInvoice("ok")
	return Created{ID: inv.ID, InvoiceNumber: inv.InvoiceNumber, GrandTotal: inv.GrandTotal}, nil
}

// List returns a page of invoices, newest first.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Invoice, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	return s.repo.List(ctx, perPage, (page-1)*perPage)
}

// Get fetches one invoice by id.
func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	iid, err := uuid.Parse(id)
	if err != nil {
		return Invoice{}, notFound()
	}
	inv, err := s.repo.Get(ctx, iid)
	if err != nil {
		return Invoice{}, mapRepoError(err)
	}
	return inv, nil
}

// MarkSent transitions an invoice to the sent status.
func (s *Service) MarkSent(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.UpdateStatus(ctx, id, StatusSent); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// Delete removes one invoice.
func (s *Service) Delete(ctx context.Context, id string) error {
	iid, err := uuid.Parse(id)
	if err != nil {
		return notFound()
	}
	if err := s.repo.Delete(ctx, iid); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// DeleteAll removes every invoice and reports how many were deleted.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	return s.repo.DeleteAll(ctx)
}

func notFound() error {
	return common.NewAppError("NOT_FOUND", "invoice not found", http.StatusNotFound, nil)
}

func mapRepoError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return notFound()
	}
	return err
}

func countInvoice(result string) {
	if obs.InvoicesCreatedTotal != nil {
		obs.InvoicesCreatedTotal.WithLabelValues(result).Inc()
	}
}
