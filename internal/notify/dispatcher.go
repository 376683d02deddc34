package notify

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-billing/internal/invoice"
)

// Dispatcher hands invoice emails to the asynq queue, falling back to an
// inline send when no queue client is configured.
type Dispatcher struct {
	Queue    *asynq.Client
	Renderer invoice.Renderer
	Sender   EmailSender
	Currency string
	Logger   zerolog.Logger
}

// DispatchInvoiceEmail enqueues or directly delivers one invoice email.
func (d Dispatcher) DispatchInvoiceEmail(ctx context.Context, inv invoice.Invoice, to string) error {
	if d.Queue != nil {
		task, err := NewInvoiceEmailTask(inv.ID, to)
		if err != nil {
			return err
		}
		_, err = d.Queue.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
		if err == nil {
			d.Logger.Debug().Str("invoice", inv.InvoiceNumber).Str("to", to).Msg("invoice email enqueued")
			return nil
		}
		d.Logger.Warn().Err(err).Str("invoice", inv.InvoiceNumber).Msg("enqueue failed, sending inline")
	}

	if err := deliver(ctx, inv, to, d.Renderer, d.Sender, d.Currency); err != nil {
		countEmail("error")
		return err
	}
	countEmail("ok")
	return nil
}

var _ invoice.EmailDispatcher = Dispatcher{}
