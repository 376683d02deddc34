// Package invoice assembles, persists and serves invoices.
package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/billing"
)

// Invoice status values.
const (
	StatusDraft = "draft"
	StatusSent  = "sent"
)

// DateLayout is the wire format for invoice and due dates.
const DateLayout = "2006-01-02"

// CompanyDetails identifies the issuing business on an invoice.
type CompanyDetails struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
	LogoURL string `json:"logoUrl,omitempty"`
}

// CustomerDetails identifies the billed party.
type CustomerDetails struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// ShippingDetails is the optional ship-to block.
type ShippingDetails struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// Invoice is the full persisted record, including the priced items and
// totals exactly as computed at creation time.
type Invoice struct {
	ID            uuid.UUID          `json:"id"`
	InvoiceNumber string             `json:"invoiceNumber"`
	Date          string             `json:"invoiceDate"`
	DueDate       string             `json:"dueDate,omitempty"`
	Company       CompanyDetails     `json:"companyDetails"`
	Customer      CustomerDetails    `json:"customerDetails"`
	ShipTo        *ShippingDetails   `json:"shippingDetails,omitempty"`
	Items         []billing.LineItem `json:"items"`
	billing.Totals
	PaymentTerms string    `json:"paymentTerms,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateRequest is the payload for POST /api/v1/invoices.
type CreateRequest struct {
	Company        CompanyDetails          `json:"companyDetails"`
	Customer       CustomerDetails         `json:"customerDetails"`
	ShipTo         *ShippingDetails        `json:"shippingDetails"`
	Items          []billing.LineItemInput `json:"items"`
	Date           string                  `json:"invoiceDate"`
	DueDate        string                  `json:"dueDate"`
	ShippingCharge decimal.Decimal         `json:"shipping"`
	RoundingMode   string                  `json:"roundingMode"`
	PaymentTerms   string                  `json:"paymentTerms"`
	Notes          string                  `json:"notes"`
}

// Created is the response body for a successful creation.
type Created struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}
