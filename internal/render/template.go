// Package render turns invoices into printable documents.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/invoice"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// HTMLTemplate renders the invoice document markup fed to the PDF engine.
type HTMLTemplate struct {
	CurrencySymbol string
	LogoURL        string

	tmpl *template.Template
}

// NewHTMLTemplate parses the embedded invoice template.
func NewHTMLTemplate(currencySymbol, logoURL string) (*HTMLTemplate, error) {
	if currencySymbol == "" {
		currencySymbol = "₹"
	}
	h := &HTMLTemplate{CurrencySymbol: currencySymbol, LogoURL: logoURL}
	tmpl, err := template.New("invoice.html.tmpl").Funcs(template.FuncMap{
		"money": h.money,
		"inc":   func(i int) int { return i + 1 },
	}).ParseFS(templateFiles, "templates/invoice.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	h.tmpl = tmpl
	return h, nil
}

func (h *HTMLTemplate) money(d decimal.Decimal) string {
	return h.CurrencySymbol + d.StringFixed(2)
}

type templateData struct {
	Inv          invoice.Invoice
	LogoURL      string
	ShowDiscount bool
	ShowShipping bool
	ShowRounding bool
	RoundingText string
}

// Render produces the full HTML document for an invoice.
func (h *HTMLTemplate) Render(inv invoice.Invoice) (string, error) {
	data := templateData{
		Inv:          inv,
		LogoURL:      h.LogoURL,
		ShowDiscount: inv.TotalDiscount.IsPositive(),
		ShowShipping: inv.Shipping.IsPositive(),
		ShowRounding: !inv.Rounding.IsZero(),
	}
	if inv.Company.LogoURL != "" {
		data.LogoURL = inv.Company.LogoURL
	}
	if data.ShowRounding {
		sign := ""
		if inv.Rounding.IsPositive() {
			sign = "+"
		}
		data.RoundingText = sign + h.money(inv.Rounding)
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render invoice template: %w", err)
	}
	return buf.String(), nil
}
