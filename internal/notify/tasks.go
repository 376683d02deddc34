package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-billing/internal/invoice"
	"github.com/noah-isme/backend-billing/internal/obs"
)

const (
	// QueueDefault is the queue invoice emails are dispatched on.
	QueueDefault = "default"
	// TaskTypeInvoiceEmail delivers one invoice to one recipient.
	TaskTypeInvoiceEmail = "invoice:email"
)

// InvoiceEmailPayload identifies the invoice and recipient for a delivery task.
type InvoiceEmailPayload struct {
	InvoiceID string `json:"invoice_id"`
	To        string `json:"to"`
}

// NewInvoiceEmailTask constructs the asynq task for an invoice delivery.
func NewInvoiceEmailTask(invoiceID uuid.UUID, to string) (*asynq.Task, error) {
	data, err := json.Marshal(InvoiceEmailPayload{InvoiceID: invoiceID.String(), To: to})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeInvoiceEmail, data), nil
}

// InvoiceLoader fetches the invoice a task refers to.
type InvoiceLoader interface {
	Get(ctx context.Context, id string) (invoice.Invoice, error)
}

// TaskHandler processes invoice email tasks: load, render, send.
type TaskHandler struct {
	Invoices InvoiceLoader
	Renderer invoice.Renderer
	Sender   EmailSender
	Currency string
	Logger   zerolog.Logger
}

// HandleInvoiceEmail is the asynq handler for TaskTypeInvoiceEmail.
func (h TaskHandler) HandleInvoiceEmail(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	inv, err := h.Invoices.Get(ctx, payload.InvoiceID)
	if err != nil {
		countEmail("error")
		return fmt.Errorf("load invoice %s: %w", payload.InvoiceID, err)
	}
	if err := deliver(ctx, inv, payload.To, h.Renderer, h.Sender, h.Currency); err != nil {
		countEmail("error")
		h.Logger.Error().Err(err).Str("invoice", inv.InvoiceNumber).Str("to", payload.To).Msg("invoice email failed")
		return err
	}
	countEmail("ok")
	h.Logger.Info().Str("invoice", inv.InvoiceNumber).Str("to", payload.To).Msg("invoice email sent")
	return nil
}

// deliver renders the invoice PDF and sends the composed email.
func deliver(ctx context.Context, inv invoice.Invoice, to string, renderer invoice.Renderer, sender EmailSender, currency string) error {
	subject, body, err := ComposeInvoiceEmail(inv, currency)
	if err != nil {
		return err
	}
	var attachments []Attachment
	if renderer != nil {
		pdf, err := renderer.RenderInvoice(ctx, inv)
		if err != nil {
			return fmt.Errorf("render invoice pdf: %w", err)
		}
		attachments = append(attachments, Attachment{
			Filename:    inv.InvoiceNumber + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		})
	}
	return sender.Send(to, subject, body, attachments...)
}

func countEmail(result string) {
	if obs.InvoiceEmailsTotal != nil {
		obs.InvoiceEmailsTotal.WithLabelValues(result).Inc()
	}
}
