package notify

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/billing"
	"github.com/noah-isme/backend-billing/internal/invoice"
)

func sampleInvoice() invoice.Invoice {
	items := []billing.LineItem{
		billing.PriceLineItem(billing.LineItemInput{
			Name:      "Laptop",
			UnitPrice: decimal.NewFromInt(45000),
			Quantity:  decimal.NewFromInt(1),
			TaxRate:   decimal.NewFromInt(18),
		}),
	}
	inv := invoice.Invoice{
		InvoiceNumber: "INV-20260901-0003",
		Date:          "2026-09-01",
		DueDate:       "2026-09-15",
		Company:       invoice.CompanyDetails{Name: "Acme Traders"},
		Customer:      invoice.CustomerDetails{Name: "Globex", Email: "accounts@globex.example"},
		Items:         items,
		PaymentTerms:  "Net 15",
	}
	inv.Totals = billing.AggregateTotals(items, decimal.Zero, decimal.Zero)
	return inv
}

func TestComposeInvoiceEmail(t *testing.T) {
	subject, body, err := ComposeInvoiceEmail(sampleInvoice(), "₹")
	require.NoError(t, err)

	require.Equal(t, "Invoice INV-20260901-0003 from Acme Traders", subject)
	require.Contains(t, body, "Dear Globex")
	require.Contains(t, body, "₹53100.00")
	require.Contains(t, body, "2026-09-15")
	require.Contains(t, body, "Net 15")
}

func TestBuildMessageWithAttachment(t *testing.T) {
	msg := string(buildMessage("Acme", "billing@acme.example", "accounts@globex.example",
		"Invoice INV-1", "<p>hello</p>",
		[]Attachment{{Filename: "INV-1.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}}))

	require.Contains(t, msg, "From: Acme <billing@acme.example>")
	require.Contains(t, msg, "To: accounts@globex.example")
	require.Contains(t, msg, "multipart/mixed")
	require.Contains(t, msg, "Content-Type: application/pdf")
	require.Contains(t, msg, `filename="INV-1.pdf"`)
	require.Contains(t, msg, "Content-Transfer-Encoding: base64")
	// closes the multipart body
	require.True(t, strings.Contains(msg, "--"+mimeBoundary+"--"))
}

func TestBuildMessageWithoutAttachment(t *testing.T) {
	msg := string(buildMessage("Acme", "billing@acme.example", "to@example.com",
		"Hello", "<p>hi</p>", nil))

	require.Contains(t, msg, `Content-Type: text/html; charset="UTF-8"`)
	require.NotContains(t, msg, "multipart/mixed")
	require.Contains(t, msg, "<p>hi</p>")
}

type stubLoader struct {
	inv invoice.Invoice
	err error
}

func (s stubLoader) Get(context.Context, string) (invoice.Invoice, error) {
	return s.inv, s.err
}

type stubRenderer struct{}

func (stubRenderer) RenderInvoice(context.Context, invoice.Invoice) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

func TestHandleInvoiceEmail(t *testing.T) {
	sender := &InMemorySender{}
	handler := TaskHandler{
		Invoices: stubLoader{inv: sampleInvoice()},
		Renderer: stubRenderer{},
		Sender:   sender,
		Currency: "₹",
		Logger:   zerolog.Nop(),
	}

	payload, err := json.Marshal(InvoiceEmailPayload{InvoiceID: "any", To: "accounts@globex.example"})
	require.NoError(t, err)
	task := asynq.NewTask(TaskTypeInvoiceEmail, payload)

	require.NoError(t, handler.HandleInvoiceEmail(context.Background(), task))

	sent := sender.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "accounts@globex.example", sent[0].To)
	require.Equal(t, "Invoice INV-20260901-0003 from Acme Traders", sent[0].Subject)
	require.Len(t, sent[0].Attachments, 1)
	require.Equal(t, "INV-20260901-0003.pdf", sent[0].Attachments[0].Filename)
	require.Equal(t, "application/pdf", sent[0].Attachments[0].ContentType)
}

func TestHandleInvoiceEmailBadPayload(t *testing.T) {
	handler := TaskHandler{Logger: zerolog.Nop()}
	task := asynq.NewTask(TaskTypeInvoiceEmail, []byte("not json"))

	err := handler.HandleInvoiceEmail(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDispatcherInlineFallback(t *testing.T) {
	sender := &InMemorySender{}
	d := Dispatcher{
		Renderer: stubRenderer{},
		Sender:   sender,
		Currency: "₹",
		Logger:   zerolog.Nop(),
	}

	require.NoError(t, d.DispatchInvoiceEmail(context.Background(), sampleInvoice(), "accounts@globex.example"))
	require.Len(t, sender.Sent(), 1)
}
