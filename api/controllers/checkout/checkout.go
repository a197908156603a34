package checkout

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/floristeria-backend/api/middleware"
	"github.com/angelmondragon/floristeria-backend/api/responses"
	"github.com/angelmondragon/floristeria-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/floristeria-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
)

type checkoutRequest struct {
	Comments *string `json:"comments,omitempty" validate:"omitempty,max=1000"`
}

// Checkout converts the caller's cart into a pending order and opens a
// payment link for it.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := customer(w, r, svc, logg)
		if !ok {
			return
		}
		var payload checkoutRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		result, err := svc.Execute(r.Context(), customerID, validators.OptionalString(payload.Comments, 1000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result.View())
	}
}

// RetryPayment supersedes the live payment of a pending order with a fresh link.
func RetryPayment(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := customer(w, r, svc, logg)
		if !ok {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RetryPayment(r.Context(), customerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result.View())
	}
}

func customer(w http.ResponseWriter, r *http.Request, svc checkoutsvc.Service, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
		return uuid.Nil, false
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		return uuid.Nil, false
	}
	return actor.UserID, true
}
