package invoice

import (
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/billing"
)

var validate = validator.New()

var hundred = decimal.NewFromInt(100)

// ValidateCreate checks a creation payload and returns the list of
// human-readable messages describing every problem found. An empty slice
// means the payload may be handed to the pricing engine.
func ValidateCreate(req CreateRequest) []string {
	var msgs []string

	if strings.TrimSpace(req.Company.Name) == "" {
		msgs = append(msgs, "companyDetails.name is required")
	}
	if strings.TrimSpace(req.Customer.Name) == "" {
		msgs = append(msgs, "customerDetails.name is required")
	}
	if email := strings.TrimSpace(req.Customer.Email); email != "" {
		if err := validate.Var(email, "email"); err != nil {
			msgs = append(msgs, "customerDetails.email must be a valid email address")
		}
	}
	if email := strings.TrimSpace(req.Company.Email); email != "" {
		if err := validate.Var(email, "email"); err != nil {
			msgs = append(msgs, "companyDetails.email must be a valid email address")
		}
	}

	if len(req.Items) == 0 {
		msgs = append(msgs, "at least one item is required")
	}
	for i, item := range req.Items {
		msgs = append(msgs, validateItem(i, item)...)
	}

	if req.ShippingCharge.IsNegative() {
		msgs = append(msgs, "shipping must be a non-negative number")
	}
	if _, ok := billing.ParseRoundingMode(req.RoundingMode); !ok {
		msgs = append(msgs, "roundingMode must be one of none, nearest, up, down")
	}
	if req.Date != "" {
		if _, err := time.Parse(DateLayout, req.Date); err != nil {
			msgs = append(msgs, "invoiceDate must be formatted as YYYY-MM-DD")
		}
	}
	if req.DueDate != "" {
		if _, err := time.Parse(DateLayout, req.DueDate); err != nil {
			msgs = append(msgs, "dueDate must be formatted as YYYY-MM-DD")
		}
	}

	return msgs
}

func validateItem(i int, item billing.LineItemInput) []string {
	var msgs []string
	prefix := fmt.Sprintf("items[%d]", i)

	if strings.TrimSpace(item.Name) == "" {
		msgs = append(msgs, prefix+".name is required")
	}
	if item.UnitPrice.IsNegative() {
		msgs = append(msgs, prefix+".unitPrice must be a non-negative number")
	}
	if !item.Quantity.IsPositive() {
		msgs = append(msgs, prefix+".quantity must be greater than 0")
	}
	if item.DiscountPercent.IsNegative() || item.DiscountPercent.GreaterThan(hundred) {
		msgs = append(msgs, prefix+".discountPercent must be between 0 and 100")
	}
	if item.TaxRate.IsNegative() || item.TaxRate.GreaterThan(hundred) {
		msgs = append(msgs, prefix+".gstRate must be between 0 and 100")
	}
	return msgs
}
