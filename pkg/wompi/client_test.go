package wompi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/floristeria-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
)

type fakeWompi struct {
	t            *testing.T
	tokenCalls   int
	tokenStatus  int
	linkStatus   int
	linkBody     string
	lastLink     map[string]any
	lastAuth     string
	lastTxPath   string
	txBody       string
	tokenBody    string
	receivedForm map[string]string
}

func (f *fakeWompi) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		require.NoError(f.t, r.ParseForm())
		f.receivedForm = map[string]string{}
		for k := range r.PostForm {
			f.receivedForm[k] = r.PostForm.Get(k)
		}
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			_, _ = io.WriteString(w, `{"error":"invalid_client"}`)
			return
		}
		body := f.tokenBody
		if body == "" {
			body = `{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`
		}
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/EnlacePago", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		f.lastLink = map[string]any{}
		_ = json.Unmarshal(raw, &f.lastLink)
		if f.linkStatus != 0 {
			w.WriteHeader(f.linkStatus)
			_, _ = io.WriteString(w, `{"mensajes":["monto invalido"]}`)
			return
		}
		body := f.linkBody
		if body == "" {
			body = `{"idEnlace":98765,"urlEnlace":"https://lk.wompi.sv/abc","urlQrCodeEnlace":"https://qr","estaProductivo":false}`
		}
		_, _ = io.WriteString(w, body)
	})
	mux.HandleFunc("/TransaccionCompra/", func(w http.ResponseWriter, r *http.Request) {
		f.lastTxPath = r.URL.Path
		_, _ = io.WriteString(w, f.txBody)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeWompi) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(config.WompiConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     srv.URL + "/connect/token",
		APIURL:       srv.URL,
		Audience:     "wompi_api",
		RedirectURL:  "https://shop.test/gracias",
		WebhookURL:   "https://api.shop.test/webhooks/transaction/complete",
		Timeout:      2 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.WompiConfig{ClientID: "id"})
	require.Error(t, err)
}

func TestObtainAccessTokenSendsClientCredentials(t *testing.T) {
	fake := &fakeWompi{t: t}
	client := newTestClient(t, fake)

	token, err := client.ObtainAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token.AccessToken)
	assert.Equal(t, map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     "client-id",
		"client_secret": "client-secret",
		"audience":      "wompi_api",
	}, fake.receivedForm)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.InDelta(t, 3600, token.ExpiresIn, 5)
}

func TestObtainAccessTokenIsNotCached(t *testing.T) {
	fake := &fakeWompi{t: t}
	client := newTestClient(t, fake)

	for range 2 {
		_, err := client.ObtainAccessToken(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, fake.tokenCalls)
}

func TestObtainAccessTokenFailures(t *testing.T) {
	fake := &fakeWompi{t: t, tokenStatus: http.StatusUnauthorized}
	client := newTestClient(t, fake)
	_, err := client.ObtainAccessToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUpstream, pkgerrors.CodeOf(err))

	fake.tokenStatus = 0
	fake.tokenBody = `not-json`
	_, err = client.ObtainAccessToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUpstream, pkgerrors.CodeOf(err))
}

func TestCreatePaymentLink(t *testing.T) {
	fake := &fakeWompi{t: t}
	client := newTestClient(t, fake)

	link, err := client.CreatePaymentLink(context.Background(), LinkRequest{
		Amount:        decimal.RequireFromString("45.50"),
		Description:   strings.Repeat("ñ", 300),
		Reference:     "ref-1",
		CustomerEmail: "ana@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://lk.wompi.sv/abc", link.URL)
	assert.Equal(t, "98765", link.ProviderID)
	assert.Equal(t, "ref-1", link.Reference)
	assert.Equal(t, "Bearer tok-123", fake.lastAuth)
	assert.Equal(t, 1, fake.tokenCalls)

	assert.Equal(t, "ref-1", fake.lastLink["identificadorEnlaceComercio"])
	assert.Equal(t, 45.5, fake.lastLink["monto"])
	assert.Len(t, []rune(fake.lastLink["nombreProducto"].(string)), 240)

	cfg, ok := fake.lastLink["configuracion"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://shop.test/gracias", cfg["urlRedirect"])
	assert.Equal(t, "https://api.shop.test/webhooks/transaction/complete", cfg["urlWebhook"])
	assert.Equal(t, true, cfg["notificarTransaccionCliente"])
	assert.Equal(t, []any{"ana@example.com"}, cfg["emailsNotificacion"])
}

func TestCreatePaymentLinkProviderRejection(t *testing.T) {
	fake := &fakeWompi{t: t, linkStatus: http.StatusBadRequest}
	client := newTestClient(t, fake)

	_, err := client.CreatePaymentLink(context.Background(), LinkRequest{
		Amount:    decimal.NewFromInt(10),
		Reference: "ref-2",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUpstream, pkgerrors.CodeOf(err))

	fake.linkStatus = 0
	fake.linkBody = `<html>oops</html>`
	_, err = client.CreatePaymentLink(context.Background(), LinkRequest{
		Amount:    decimal.NewFromInt(10),
		Reference: "ref-3",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUpstream, pkgerrors.CodeOf(err))
}

func TestCreatePaymentLinkValidatesInput(t *testing.T) {
	client := newTestClient(t, &fakeWompi{t: t})
	_, err := client.CreatePaymentLink(context.Background(), LinkRequest{Amount: decimal.Zero, Reference: "r"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestCreatePaymentLinkTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(slow.Close)

	client, err := NewClient(config.WompiConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		Timeout:      20 * time.Millisecond,
	}, WithBaseURLs(slow.URL+"/connect/token", slow.URL))
	require.NoError(t, err)

	_, err = client.CreatePaymentLink(context.Background(), LinkRequest{Amount: decimal.NewFromInt(5), Reference: "r"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUpstream, pkgerrors.CodeOf(err))
}

func TestGetTransaction(t *testing.T) {
	fake := &fakeWompi{
		t:      t,
		txBody: `{"idTransaccion":"tx-77","estado":"approved","esAprobada":true,"monto":45.5,"enlacePago":{"identificadorEnlaceComercio":"ref-9"}}`,
	}
	client := newTestClient(t, fake)

	tx, err := client.GetTransaction(context.Background(), "tx-77")
	require.NoError(t, err)
	assert.Equal(t, "/TransaccionCompra/tx-77", fake.lastTxPath)
	assert.Equal(t, "tx-77", tx.ID)
	assert.Equal(t, "APPROVED", tx.Status)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("45.5")))
	assert.Equal(t, "ref-9", tx.Reference)
}

func TestNewReference(t *testing.T) {
	orderID := uuid.New()
	a := NewReference(orderID)
	b := NewReference(orderID)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, orderID.String()+"-"))
	assert.Len(t, strings.TrimPrefix(a, orderID.String()+"-"), 8)

	parsed, ok := OrderIDFromReference(a)
	require.True(t, ok)
	assert.Equal(t, orderID, parsed)

	_, ok = OrderIDFromReference("garbage")
	assert.False(t, ok)
}
