package product

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/common"
)

var hundred = decimal.NewFromInt(100)

// Service orchestrates catalog operations.
type Service struct {
	repo Repository
}

// NewService constructs a product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ValidateInput returns the list of validation messages for a payload.
// An empty slice means the payload is acceptable.
func ValidateInput(in Input) []string {
	var msgs []string
	if strings.TrimSpace(in.Name) == "" {
		msgs = append(msgs, "name is required")
	}
	if in.UnitPrice.IsNegative() {
		msgs = append(msgs, "unitPrice must be a non-negative number")
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThan(hundred) {
		msgs = append(msgs, "gstRate must be between 0 and 100")
	}
	if trimmed := strings.TrimSpace(in.ImageURL); trimmed != "" {
		if u, err := url.Parse(trimmed); err != nil || u.Scheme == "" || u.Host == "" {
			msgs = append(msgs, "imageUrl must be a valid URL")
		}
	}
	return msgs
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	if msgs := ValidateInput(in); len(msgs) > 0 {
		return Product{}, common.NewAppError("VALIDATION_ERROR", "invalid product payload", http.StatusBadRequest, nil).WithDetails(msgs)
	}
	p := Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		SKU:         strings.TrimSpace(in.SKU),
		Description: strings.TrimSpace(in.Description),
		UnitPrice:   in.UnitPrice.Round(2),
		TaxRate:     in.TaxRate,
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, mapRepoError(err)
	}
	return created, nil
}

// List returns a page of products plus the total count.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Product, int64, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	return s.repo.List(ctx, perPage, (page-1)*perPage)
}

// Get fetches one product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return Product{}, notFound()
	}
	p, err := s.repo.Get(ctx, pid)
	if err != nil {
		return Product{}, mapRepoError(err)
	}
	return p, nil
}

// Update validates and replaces an existing product.
func (s *Service) Update(ctx context.Context, id string, in Input) (Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return Product{}, notFound()
	}
	if msgs := ValidateInput(in); len(msgs) > 0 {
		return Product{}, common.NewAppError("VALIDATION_ERROR", "invalid product payload", http.StatusBadRequest, nil).WithDetails(msgs)
	}
	p := Product{
		ID:          pid,
		Name:        strings.TrimSpace(in.Name),
		SKU:         strings.TrimSpace(in.SKU),
		Description: strings.TrimSpace(in.Description),
		UnitPrice:   in.UnitPrice.Round(2),
		TaxRate:     in.TaxRate,
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		return Product{}, mapRepoError(err)
	}
	return updated, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) error {
	pid, err := uuid.Parse(id)
	if err != nil {
		return notFound()
	}
	if err := s.repo.Delete(ctx, pid); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func notFound() error {
	return common.NewAppError("NOT_FOUND", "product not found", http.StatusNotFound, nil)
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return notFound()
	case errors.Is(err, ErrDuplicateSKU):
		return common.NewAppError("DUPLICATE_SKU", "a product with this sku already exists", http.StatusConflict, nil)
	default:
		return err
	}
}
