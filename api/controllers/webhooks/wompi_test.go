package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wompiwebhook "github.com/angelmondragon/floristeria-backend/internal/webhooks/wompi"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
)

type fakeWompiService struct {
	raw       []byte
	signature string
	result    *wompiwebhook.Result
	err       error
}

func (f *fakeWompiService) HandleNotification(_ context.Context, raw []byte, signature string) (*wompiwebhook.Result, error) {
	f.raw = raw
	f.signature = signature
	return f.result, f.err
}

func post(t *testing.T, handler http.Handler, body string, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/transaction/complete", bytes.NewBufferString(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWompiWebhookSuccess(t *testing.T) {
	orderID := uuid.New()
	svc := &fakeWompiService{result: &wompiwebhook.Result{
		Status:        wompiwebhook.StatusSuccess,
		Message:       "payment approved",
		OrderID:       &orderID,
		TransactionID: "tx-1",
	}}

	rec := post(t, WompiWebhook(svc, nil), `{"IdTransaccion":"tx-1"}`, "abc123")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"IdTransaccion":"tx-1"}`, string(svc.raw))
	assert.Equal(t, "abc123", svc.signature)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, orderID.String(), body["order_id"])
	assert.Equal(t, "tx-1", body["transaction_id"])
}

func TestWompiWebhookErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{pkgerrors.New(pkgerrors.CodeValidation, "notified amount does not match payment"), http.StatusBadRequest},
		{pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"), http.StatusUnauthorized},
		{pkgerrors.New(pkgerrors.CodeNotFound, "payment reference not found"), http.StatusNotFound},
		{pkgerrors.New(pkgerrors.CodeConflict, "order state changed concurrently"), http.StatusInternalServerError},
		{pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused"), http.StatusInternalServerError},
		{pkgerrors.New(pkgerrors.CodeDependency, "redis down"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := post(t, WompiWebhook(&fakeWompiService{err: tc.err}, nil), `{}`, "")
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "error", body["status"])
		assert.NotEmpty(t, body["message"])
		assert.NotContains(t, body, "order_id")
	}
}

func TestWompiWebhookWithoutService(t *testing.T) {
	rec := post(t, WompiWebhook(nil, nil), `{}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
