package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/noah-isme/backend-billing/internal/invoice"
)

// ComposeInvoiceEmail builds the subject and HTML body for an invoice
// delivery email.
func ComposeInvoiceEmail(inv invoice.Invoice, currencySymbol string) (subject, htmlBody string, err error) {
	subject = fmt.Sprintf("Invoice %s from %s", inv.InvoiceNumber, inv.Company.Name)

	data := struct {
		Inv        invoice.Invoice
		AmountDue  string
		HasDueDate bool
		HasTerms   bool
	}{
		Inv:        inv,
		AmountDue:  currencySymbol + inv.GrandTotal.StringFixed(2),
		HasDueDate: inv.DueDate != "",
		HasTerms:   inv.PaymentTerms != "",
	}
	var buf bytes.Buffer
	if err := invoiceEmailTmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render invoice email: %w", err)
	}
	return subject, buf.String(), nil
}

var invoiceEmailTmpl = template.Must(template.New("invoice_email").Parse(`
<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"></head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f7fa;">
  <table role="presentation" style="width: 100%; border-collapse: collapse;">
    <tr>
      <td style="padding: 40px 0;">
        <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px; overflow: hidden;">
          <tr>
            <td style="background: #059669; padding: 32px 30px; text-align: center;">
              <h1 style="color: #ffffff; margin: 0; font-size: 24px; font-weight: 600;">{{.Inv.Company.Name}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px 30px;">
              <h2 style="color: #1a1a2e; margin: 0 0 16px 0; font-size: 20px;">Invoice {{.Inv.InvoiceNumber}}</h2>
              <p style="color: #4a5568; font-size: 15px; line-height: 1.6; margin: 0 0 16px 0;">
                Dear {{.Inv.Customer.Name}},
              </p>
              <p style="color: #4a5568; font-size: 15px; line-height: 1.6; margin: 0 0 16px 0;">
                Please find your invoice attached. The amount due is <strong>{{.AmountDue}}</strong>{{if .HasDueDate}}, payable by <strong>{{.Inv.DueDate}}</strong>{{end}}.
              </p>
              {{if .HasTerms}}
              <p style="color: #718096; font-size: 14px; line-height: 1.6; margin: 0 0 16px 0;">
                Payment terms: {{.Inv.PaymentTerms}}
              </p>
              {{end}}
              <p style="color: #4a5568; font-size: 15px; line-height: 1.6; margin: 0;">
                Thank you for your business!
              </p>
            </td>
          </tr>
          <tr>
            <td style="background-color: #f8fafc; padding: 24px 30px; text-align: center; border-top: 1px solid #e2e8f0;">
              <p style="color: #a0aec0; font-size: 13px; margin: 0;">This email was sent by {{.Inv.Company.Name}}</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))
