package wompiwebhook

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
)

var resultStates = map[string]enums.PaymentState{
	"aprobada":            enums.PaymentStateApproved,
	"exitosaaprobada":     enums.PaymentStateApproved,
	"approved":            enums.PaymentStateApproved,
	"successful-approved": enums.PaymentStateApproved,

	"rechazada": enums.PaymentStateDeclined,
	"declinada": enums.PaymentStateDeclined,
	"declined":  enums.PaymentStateDeclined,
	"anulada":   enums.PaymentStateDeclined,
	"voided":    enums.PaymentStateDeclined,
	"error":     enums.PaymentStateDeclined,
	"fallida":   enums.PaymentStateDeclined,
}

// Classify maps a gateway result code onto a terminal payment state.
func Classify(result string) (enums.PaymentState, error) {
	key := strings.ToLower(strings.TrimSpace(result))
	if state, ok := resultStates[key]; ok {
		return state, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown transaction result %q", result))
}

// classifyGatewayStatus maps the status reported by TransaccionCompra.
// Anything that is not clearly settled stays pending.
func classifyGatewayStatus(status string) enums.PaymentState {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "APPROVED", "APROBADA", "EXITOSAAPROBADA":
		return enums.PaymentStateApproved
	case "DECLINED", "VOIDED", "ERROR", "RECHAZADA", "ANULADA", "FALLIDA":
		return enums.PaymentStateDeclined
	default:
		return enums.PaymentStatePending
	}
}
