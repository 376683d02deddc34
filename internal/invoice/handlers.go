package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-billing/internal/common"
)

// Renderer produces the printable document for an invoice.
type Renderer interface {
	RenderInvoice(ctx context.Context, inv Invoice) ([]byte, error)
}

// EmailDispatcher delivers an invoice to a recipient, either inline or by
// handing it to a background queue.
type EmailDispatcher interface {
	DispatchInvoiceEmail(ctx context.Context, inv Invoice, to string) error
}

// Handler exposes REST endpoints for invoices.
type Handler struct {
	Service    *Service
	Renderer   Renderer
	Dispatcher EmailDispatcher
}

type emailRequest struct {
	ToEmail string `json:"toEmail"`
}

// Create handles POST /api/v1/invoices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	created, err := h.Service.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, created)
}

// List handles GET /api/v1/invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	invoices, total, err := h.Service.List(r.Context(), page, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       invoices,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/invoices/{invoiceID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Service.Get(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// PDF handles GET /api/v1/invoices/{invoiceID}/pdf.
func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	if h.Renderer == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "RENDERING_UNAVAILABLE", "pdf rendering is not configured", nil)
		return
	}
	inv, err := h.Service.Get(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	pdf, err := h.Renderer.RenderInvoice(r.Context(), inv)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "RENDER_FAILED", "failed to render invoice pdf", nil)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+inv.InvoiceNumber+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// Email handles POST /api/v1/invoices/{invoiceID}/email.
func (h *Handler) Email(w http.ResponseWriter, r *http.Request) {
	if h.Dispatcher == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "EMAIL_UNAVAILABLE", "email delivery is not configured", nil)
		return
	}
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	to := strings.TrimSpace(req.ToEmail)
	if to == "" {
		common.JSONValidation(w, []string{"toEmail is required"})
		return
	}
	if err := validate.Var(to, "email"); err != nil {
		common.JSONValidation(w, []string{"toEmail must be a valid email address"})
		return
	}

	inv, err := h.Service.Get(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Dispatcher.DispatchInvoiceEmail(r.Context(), inv, to); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "EMAIL_FAILED", "failed to send invoice email", nil)
		return
	}
	if err := h.Service.MarkSent(r.Context(), inv.ID); err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "invoice " + inv.InvoiceNumber + " queued for delivery to " + to,
	})
}

// Delete handles DELETE /api/v1/invoices/{invoiceID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "invoiceID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll handles DELETE /api/v1/invoices.
func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	count, err := h.Service.DeleteAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"success": true, "deleted": count})
}

// writeError renders validation failures as a message list and everything
// else through the canonical error envelope.
func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.Code == "VALIDATION_ERROR" {
		if msgs, ok := appErr.Details.([]string); ok {
			common.JSONValidation(w, msgs)
			return
		}
	}
	common.WriteServiceError(w, err)
}
