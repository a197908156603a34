package wompi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/angelmondragon/floristeria-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
)

const (
	defaultTokenURL             = "https://id.wompi.sv/connect/token"
	defaultAPIURL               = "https://api.wompi.sv"
	defaultAudience             = "wompi_api"
	defaultTimeout              = 30 * time.Second
	maxProductNameRunes         = 240
	responseBodyReadLimit int64 = 1024
)

var (
	errCredentialsRequired = errors.New("wompi client id and secret are required")
)

// Client talks to the Wompi El Salvador identity and payment-link APIs.
type Client struct {
	httpClient  *http.Client
	credentials *clientcredentials.Config
	apiURL      string
	redirectURL string
	webhookURL  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURLs points the client at alternative identity and API hosts.
func WithBaseURLs(tokenURL, apiURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(tokenURL); trimmed != "" {
			c.credentials.TokenURL = trimmed
		}
		if trimmed := strings.TrimSpace(apiURL); trimmed != "" {
			c.apiURL = trimmed
		}
	}
}

// NewClient builds a Wompi client from config.
func NewClient(cfg config.WompiConfig, opts ...Option) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	secret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || secret == "" {
		return nil, errCredentialsRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		credentials: &clientcredentials.Config{
			ClientID:       clientID,
			ClientSecret:   secret,
			TokenURL:       firstNonEmpty(cfg.TokenURL, defaultTokenURL),
			EndpointParams: url.Values{"audience": {firstNonEmpty(cfg.Audience, defaultAudience)}},
			AuthStyle:      oauth2.AuthStyleInParams,
		},
		apiURL:      firstNonEmpty(cfg.APIURL, defaultAPIURL),
		redirectURL: strings.TrimSpace(cfg.RedirectURL),
		webhookURL:  strings.TrimSpace(cfg.WebhookURL),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client, nil
}

// Token is an OAuth2 client-credentials access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// LinkRequest describes a payment link to create.
type LinkRequest struct {
	Amount        decimal.Decimal
	Description   string
	Reference     string
	CustomerEmail string
}

// PaymentLink is the hosted payment page created for a reference.
type PaymentLink struct {
	URL        string
	QRCodeURL  string
	Reference  string
	ProviderID string
	Production bool
}

// Transaction is the provider's view of a purchase attempt.
type Transaction struct {
	ID        string
	Status    string
	Approved  bool
	Amount    decimal.Decimal
	Reference string
}

// ObtainAccessToken exchanges the client credentials for a bearer token.
// Tokens are not cached; each call hits the identity endpoint.
func (c *Client) ObtainAccessToken(ctx context.Context) (Token, error) {
	if c == nil {
		return Token{}, pkgerrors.New(pkgerrors.CodeDependency, "wompi client not configured")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.credentials.Token(ctx)
	if err != nil {
		return Token{}, tokenError(err)
	}
	token := Token{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if !tok.Expiry.IsZero() {
		token.ExpiresIn = int(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	return token, nil
}

func tokenError(err error) error {
	wrapped := pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "token request failed")
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) && retrieve.Response != nil {
		wrapped = wrapped.WithDetails(map[string]any{"status": retrieve.Response.StatusCode})
	}
	return wrapped
}

type linkConfig struct {
	RedirectURL        string   `json:"urlRedirect,omitempty"`
	WebhookURL         string   `json:"urlWebhook,omitempty"`
	NotifyCustomer     bool     `json:"notificarTransaccionCliente"`
	NotificationEmails []string `json:"emailsNotificacion,omitempty"`
}

type linkPayload struct {
	Reference     string     `json:"identificadorEnlaceComercio"`
	Amount        float64    `json:"monto"`
	ProductName   string     `json:"nombreProducto"`
	Configuration linkConfig `json:"configuracion"`
}

type linkResponse struct {
	ID         flexibleID `json:"idEnlace"`
	URL        string     `json:"urlEnlace"`
	QRCodeURL  string     `json:"urlQrCodeEnlace"`
	Production bool       `json:"estaProductivo"`
}

// CreatePaymentLink creates a hosted payment page for the reference.
func (c *Client) CreatePaymentLink(ctx context.Context, in LinkRequest) (PaymentLink, error) {
	if c == nil {
		return PaymentLink{}, pkgerrors.New(pkgerrors.CodeDependency, "wompi client not configured")
	}
	if strings.TrimSpace(in.Reference) == "" {
		return PaymentLink{}, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if !in.Amount.IsPositive() {
		return PaymentLink{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	token, err := c.ObtainAccessToken(ctx)
	if err != nil {
		return PaymentLink{}, err
	}

	payload := linkPayload{
		Reference:   in.Reference,
		Amount:      in.Amount.Round(2).InexactFloat64(),
		ProductName: truncateRunes(in.Description, maxProductNameRunes),
		Configuration: linkConfig{
			RedirectURL:    c.redirectURL,
			WebhookURL:     c.webhookURL,
			NotifyCustomer: strings.TrimSpace(in.CustomerEmail) != "",
		},
	}
	if email := strings.TrimSpace(in.CustomerEmail); email != "" {
		payload.Configuration.NotificationEmails = []string{email}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return PaymentLink{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal payment link request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("EnlacePago"), bytes.NewReader(body))
	if err != nil {
		return PaymentLink{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "build payment link request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var resp linkResponse
	if err := c.do(req, &resp, "payment link request"); err != nil {
		return PaymentLink{}, err
	}
	if strings.TrimSpace(resp.URL) == "" {
		return PaymentLink{}, pkgerrors.New(pkgerrors.CodeUpstream, "payment link response missing urlEnlace")
	}

	return PaymentLink{
		URL:        resp.URL,
		QRCodeURL:  resp.QRCodeURL,
		Reference:  in.Reference,
		ProviderID: string(resp.ID),
		Production: resp.Production,
	}, nil
}

type transactionResponse struct {
	ID       flexibleID      `json:"idTransaccion"`
	Status   string          `json:"estado"`
	Result   string          `json:"resultadoTransaccion"`
	Approved bool            `json:"esAprobada"`
	Amount   decimal.Decimal `json:"monto"`
	Link     struct {
		Reference string `json:"identificadorEnlaceComercio"`
	} `json:"enlacePago"`
}

// GetTransaction looks up a purchase by the provider transaction id.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (Transaction, error) {
	if c == nil {
		return Transaction{}, pkgerrors.New(pkgerrors.CodeDependency, "wompi client not configured")
	}
	trimmed := strings.TrimSpace(transactionID)
	if trimmed == "" {
		return Transaction{}, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	token, err := c.ObtainAccessToken(ctx)
	if err != nil {
		return Transaction{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL("TransaccionCompra/"+url.PathEscape(trimmed)), nil)
	if err != nil {
		return Transaction{}, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "build transaction request")
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var resp transactionResponse
	if err := c.do(req, &resp, "transaction request"); err != nil {
		return Transaction{}, err
	}

	status := firstNonEmpty(resp.Status, resp.Result)
	if status == "" && resp.Approved {
		status = "APPROVED"
	}
	id := string(resp.ID)
	if id == "" {
		id = trimmed
	}
	return Transaction{
		ID:        id,
		Status:    strings.ToUpper(strings.TrimSpace(status)),
		Approved:  resp.Approved,
		Amount:    resp.Amount,
		Reference: resp.Link.Reference,
	}, nil
}

func (c *Client) do(req *http.Request, out any, op string) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "execute "+op)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), op+" failed").
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode "+op+" response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.apiURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

// flexibleID accepts ids the provider sends either as numbers or strings.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

func truncateRunes(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
