package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/floristeria-backend/api/middleware"
	cartsvc "github.com/angelmondragon/floristeria-backend/internal/cart"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
)

type stubCart struct {
	added    []int
	deltas   []int
	removed  []uuid.UUID
	err      error
	customer uuid.UUID
}

func (s *stubCart) GetOrCreateCart(context.Context, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (s *stubCart) AddLine(_ context.Context, customerID, _ uuid.UUID, quantity int) (*models.OrderLine, error) {
	s.customer = customerID
	s.added = append(s.added, quantity)
	return &models.OrderLine{}, s.err
}

func (s *stubCart) AdjustQuantity(_ context.Context, _, _ uuid.UUID, delta int) (*models.OrderLine, error) {
	s.deltas = append(s.deltas, delta)
	return &models.OrderLine{}, s.err
}

func (s *stubCart) RemoveLine(_ context.Context, _, lineID uuid.UUID) error {
	s.removed = append(s.removed, lineID)
	return s.err
}

func (s *stubCart) Summary(context.Context, uuid.UUID) (*cartsvc.CartView, error) {
	return &cartsvc.CartView{ItemCount: 2, Total: decimal.RequireFromString("18.00")}, nil
}

func router(svc cartsvc.Service, customerID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if customerID != uuid.Nil {
				req = req.WithContext(middleware.WithActor(req.Context(), customerID, enums.RoleCustomer))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/cart", CartFetch(svc, nil))
	r.Post("/cart/lines", CartAddLine(svc, nil))
	r.Patch("/cart/lines/{lineId}", CartAdjustLine(svc, nil))
	r.Delete("/cart/lines/{lineId}", CartRemoveLine(svc, nil))
	return r
}

func TestCartAddLineReturnsSummary(t *testing.T) {
	svc := &stubCart{}
	customerID := uuid.New()
	body := `{"arrangement_id":"` + uuid.NewString() + `","quantity":2}`
	rec := httptest.NewRecorder()
	router(svc, customerID).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/lines", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []int{2}, svc.added)
	assert.Equal(t, customerID, svc.customer)

	var envelope struct {
		Data cartsvc.CartView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Data.ItemCount)
	assert.True(t, envelope.Data.Total.Equal(decimal.RequireFromString("18")))
}

func TestCartAddLineValidatesBody(t *testing.T) {
	svc := &stubCart{}
	rec := httptest.NewRecorder()
	router(svc, uuid.New()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cart/lines", strings.NewReader(`{"quantity":0}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.added)
}

func TestCartAdjustAndRemove(t *testing.T) {
	svc := &stubCart{}
	lineID := uuid.New()
	h := router(svc, uuid.New())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/cart/lines/"+lineID.String(), strings.NewReader(`{"delta":-1}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{-1}, svc.deltas)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cart/lines/"+lineID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{lineID}, svc.removed)

	svc.err = pkgerrors.New(pkgerrors.CodeNotFound, "line not found in cart")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cart/lines/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cart/lines/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartRequiresActor(t *testing.T) {
	rec := httptest.NewRecorder()
	router(&stubCart{}, uuid.Nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
