package product

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	products map[uuid.UUID]Product
	skus     map[string]uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[uuid.UUID]Product{}, skus: map[string]uuid.UUID{}}
}

func (f *fakeRepo) Create(_ context.Context, p Product) (Product, error) {
	if p.SKU != "" {
		if _, exists := f.skus[p.SKU]; exists {
			return Product{}, ErrDuplicateSKU
		}
		f.skus[p.SKU] = p.ID
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeRepo) List(_ context.Context, limit, offset int) ([]Product, int64, error) {
	all := make([]Product, 0, len(f.products))
	for _, p := range f.products {
		all = append(all, p)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) Update(_ context.Context, p Product) (Product, error) {
	if _, ok := f.products[p.ID]; !ok {
		return Product{}, ErrNotFound
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.products[id]; !ok {
		return ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func newTestRouter(repo Repository) http.Handler {
	h := &Handler{Service: NewService(repo)}
	r := chi.NewRouter()
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{productID}", h.Get)
		r.Put("/{productID}", h.Update)
		r.Delete("/{productID}", h.Delete)
	})
	return r
}

func TestCreateProduct(t *testing.T) {
	router := newTestRouter(newFakeRepo())

	payload := `{"name":"Widget","sku":"WGT-1","unitPrice":199.99,"gstRate":18}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var body struct {
		Data Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "Widget", body.Data.Name)
	require.True(t, decimal.NewFromFloat(199.99).Equal(body.Data.UnitPrice))
	require.NotEqual(t, uuid.Nil, body.Data.ID)
}

func TestCreateProductValidation(t *testing.T) {
	router := newTestRouter(newFakeRepo())

	payload := `{"name":"","unitPrice":-5,"gstRate":150}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Contains(t, body.Errors, "name is required")
	require.Contains(t, body.Errors, "unitPrice must be a non-negative number")
	require.Contains(t, body.Errors, "gstRate must be between 0 and 100")
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	repo := newFakeRepo()
	router := newTestRouter(repo)

	payload := `{"name":"Widget","sku":"WGT-1","unitPrice":10,"gstRate":0}`
	for _, wantStatus := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(payload))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, wantStatus, rr.Code)
	}
}

func TestGetProduct(t *testing.T) {
	repo := newFakeRepo()
	seeded, err := repo.Create(context.Background(), Product{
		ID:        uuid.New(),
		Name:      "Cable",
		UnitPrice: decimal.NewFromInt(25),
		TaxRate:   decimal.NewFromInt(18),
	})
	require.NoError(t, err)

	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+seeded.ID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products/not-a-uuid", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateProduct(t *testing.T) {
	repo := newFakeRepo()
	seeded, err := repo.Create(context.Background(), Product{
		ID:        uuid.New(),
		Name:      "Cable",
		UnitPrice: decimal.NewFromInt(25),
	})
	require.NoError(t, err)

	router := newTestRouter(repo)

	payload := `{"name":"HDMI Cable","unitPrice":29.5,"gstRate":18}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/products/"+seeded.ID.String(), bytes.NewBufferString(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "HDMI Cable", body.Data.Name)
	require.True(t, decimal.NewFromFloat(29.5).Equal(body.Data.UnitPrice))
}

func TestDeleteProduct(t *testing.T) {
	repo := newFakeRepo()
	seeded, err := repo.Create(context.Background(), Product{ID: uuid.New(), Name: "Cable"})
	require.NoError(t, err)

	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/"+seeded.ID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/products/"+seeded.ID.String(), nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListProducts(t *testing.T) {
	repo := newFakeRepo()
	for i := 0; i < 3; i++ {
		_, err := repo.Create(context.Background(), Product{ID: uuid.New(), Name: "P"})
		require.NoError(t, err)
	}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?page=1&limit=2", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data       []Product `json:"data"`
		Pagination struct {
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, 3, body.Pagination.TotalItems)
}
