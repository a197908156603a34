package payments

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/floristeria-backend/api/middleware"
	"github.com/angelmondragon/floristeria-backend/api/responses"
	"github.com/angelmondragon/floristeria-backend/internal/orders"
	wompiwebhook "github.com/angelmondragon/floristeria-backend/internal/webhooks/wompi"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
)

// Verifier reconciles a payment against the gateway on demand.
type Verifier interface {
	VerifyPayment(ctx context.Context, reference, transactionID string, actor orders.Actor) (*wompiwebhook.VerifyResult, error)
}

// Verify serves the return URL of the payment page:
// GET /payments/verify?reference=...&transaction_id=...
func Verify(svc Verifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment verification unavailable"))
			return
		}
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		query := r.URL.Query()
		reference := strings.TrimSpace(query.Get("reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference is required"))
			return
		}
		result, err := svc.VerifyPayment(r.Context(), reference, strings.TrimSpace(query.Get("transaction_id")), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
