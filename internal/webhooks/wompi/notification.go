package wompiwebhook

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
)

// Notification is the body Wompi posts once a payment link settles.
type Notification struct {
	IdTransaccion        transactionID    `json:"IdTransaccion"`
	ResultadoTransaccion string           `json:"ResultadoTransaccion"`
	Monto                *decimal.Decimal `json:"Monto"`
	EnlacePago           *paymentLink     `json:"EnlacePago"`
	FechaTransaccion     string           `json:"FechaTransaccion,omitempty"`
}

type paymentLink struct {
	ID                          json.RawMessage `json:"Id,omitempty"`
	IdentificadorEnlaceComercio string          `json:"IdentificadorEnlaceComercio"`
	NombreProducto              string          `json:"NombreProducto,omitempty"`
}

// transactionID tolerates both numeric and string ids.
type transactionID string

func (t *transactionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = transactionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = transactionID(n.String())
	return nil
}

// Reference returns the merchant-side reference echoed by the gateway.
func (n Notification) Reference() string {
	if n.EnlacePago == nil {
		return ""
	}
	return strings.TrimSpace(n.EnlacePago.IdentificadorEnlaceComercio)
}

func (n Notification) TransactionID() string {
	return strings.TrimSpace(string(n.IdTransaccion))
}

// ParseNotification decodes and checks the required fields.
func ParseNotification(raw []byte) (Notification, error) {
	var n Notification
	if len(bytes.TrimSpace(raw)) == 0 {
		return n, pkgerrors.New(pkgerrors.CodeValidation, "empty notification body")
	}
	if err := json.Unmarshal(raw, &n); err != nil {
		return n, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed notification body")
	}

	missing := []string{}
	if n.TransactionID() == "" {
		missing = append(missing, "IdTransaccion")
	}
	if strings.TrimSpace(n.ResultadoTransaccion) == "" {
		missing = append(missing, "ResultadoTransaccion")
	}
	if n.Monto == nil {
		missing = append(missing, "Monto")
	}
	if n.Reference() == "" {
		missing = append(missing, "EnlacePago.IdentificadorEnlaceComercio")
	}
	if len(missing) > 0 {
		return n, pkgerrors.New(pkgerrors.CodeValidation, "notification is missing required fields").
			WithDetails(map[string]any{"missing": missing})
	}
	return n, nil
}
