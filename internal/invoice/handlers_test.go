package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	pdf []byte
	err error
}

func (s stubRenderer) RenderInvoice(context.Context, Invoice) ([]byte, error) {
	return s.pdf, s.err
}

type recordingDispatcher struct {
	sent []string
	err  error
}

func (d *recordingDispatcher) DispatchInvoiceEmail(_ context.Context, inv Invoice, to string) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, inv.InvoiceNumber+"->"+to)
	return nil
}

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1/invoices", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Delete("/", h.DeleteAll)
		r.Get("/{invoiceID}", h.Get)
		r.Get("/{invoiceID}/pdf", h.PDF)
		r.Post("/{invoiceID}/email", h.Email)
		r.Delete("/{invoiceID}", h.Delete)
	})
	return r
}

func newTestHandler() (*Handler, *fakeRepo, *recordingDispatcher) {
	repo := newFakeRepo()
	dispatcher := &recordingDispatcher{}
	h := &Handler{
		Service:    NewService(repo, &fakeNumberer{}).WithClock(fixedClock()),
		Renderer:   stubRenderer{pdf: []byte("%PDF-1.4 fake")},
		Dispatcher: dispatcher,
	}
	return h, repo, dispatcher
}

const createPayload = `{
	"companyDetails": {"name": "Acme Traders"},
	"customerDetails": {"name": "Globex"},
	"items": [
		{"name": "Laptop", "unitPrice": 45000, "quantity": 1, "gstRate": 18},
		{"name": "Mouse", "unitPrice": 899, "quantity": 2, "gstRate": 18}
	],
	"shipping": 100,
	"roundingMode": "nearest"
}`

func createInvoice(t *testing.T, router http.Handler) Created {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewBufferString(createPayload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created Created
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	return created
}

func TestCreateInvoiceEndpoint(t *testing.T) {
	h, _, _ := newTestHandler()
	router := newTestRouter(h)

	created := createInvoice(t, router)
	require.Equal(t, "INV-20260901-0001", created.InvoiceNumber)
	require.Equal(t, "55322", created.GrandTotal.String())
	require.NotEqual(t, uuid.Nil, created.ID)
}

func TestCreateInvoiceValidationResponse(t *testing.T) {
	h, _, _ := newTestHandler()
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", bytes.NewBufferString(`{"items":[]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Contains(t, body.Errors, "at least one item is required")
	require.Contains(t, body.Errors, "companyDetails.name is required")
}

func TestGetInvoiceEndpoint(t *testing.T) {
	h, _, _ := newTestHandler()
	router := newTestRouter(h)
	created := createInvoice(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+created.ID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data Invoice `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, created.InvoiceNumber, body.Data.InvoiceNumber)
	require.Equal(t, StatusDraft, body.Data.Status)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+uuid.NewString(), nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestInvoicePDFEndpoint(t *testing.T) {
	h, _, _ := newTestHandler()
	router := newTestRouter(h)
	created := createInvoice(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+created.ID.String()+"/pdf", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), created.InvoiceNumber)
	require.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))
}

func TestInvoiceEmailEndpoint(t *testing.T) {
	h, repo, dispatcher := newTestHandler()
	router := newTestRouter(h)
	created := createInvoice(t, router)

	payload := `{"toEmail": "accounts@globex.example"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/"+created.ID.String()+"/email", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, dispatcher.sent, 1)
	require.Equal(t, created.InvoiceNumber+"->accounts@globex.example", dispatcher.sent[0])
	require.Equal(t, StatusSent, repo.invoices[created.ID].Status)
}

func TestInvoiceEmailValidation(t *testing.T) {
	h, _, dispatcher := newTestHandler()
	router := newTestRouter(h)
	created := createInvoice(t, router)

	for payload, wantMsg := range map[string]string{
		`{}`:                       "toEmail is required",
		`{"toEmail": "not-email"}`: "toEmail must be a valid email address",
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/"+created.ID.String()+"/email", bytes.NewBufferString(payload))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.Contains(t, rr.Body.String(), wantMsg)
	}
	require.Empty(t, dispatcher.sent)
}

func TestDeleteAllInvoicesEndpoint(t *testing.T) {
	h, _, _ := newTestHandler()
	router := newTestRouter(h)
	createInvoice(t, router)
	createInvoice(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/invoices", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success bool  `json:"success"`
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, int64(2), body.Deleted)
}

func TestListInvoicesNewestFirst(t *testing.T) {
	h, _, _ := newTestHandler()
	router := newTestRouter(h)
	first := createInvoice(t, router)
	second := createInvoice(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data []Invoice `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, second.InvoiceNumber, body.Data[0].InvoiceNumber)
	require.Equal(t, first.InvoiceNumber, body.Data[1].InvoiceNumber)
}
