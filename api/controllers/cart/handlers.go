package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/floristeria-backend/api/middleware"
	"github.com/angelmondragon/floristeria-backend/api/responses"
	"github.com/angelmondragon/floristeria-backend/api/validators"
	cartsvc "github.com/angelmondragon/floristeria-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
)

type addLineRequest struct {
	ArrangementID uuid.UUID `json:"arrangement_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,min=1,max=99"`
}

type adjustRequest struct {
	Delta int `json:"delta" validate:"required,min=-99,max=99"`
}

// CartFetch returns the caller's cart, creating it on first visit.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := customer(w, r, svc, logg)
		if !ok {
			return
		}
		view, err := svc.Summary(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartAddLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := customer(w, r, svc, logg)
		if !ok {
			return
		}
		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.AddLine(r.Context(), customerID, payload.ArrangementID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSummary(w, r, svc, logg, customerID, http.StatusCreated)
	}
}

func CartAdjustLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := customer(w, r, svc, logg)
		if !ok {
			return
		}
		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload adjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.AdjustQuantity(r.Context(), customerID, lineID, payload.Delta); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSummary(w, r, svc, logg, customerID, http.StatusOK)
	}
}

func CartRemoveLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, ok := customer(w, r, svc, logg)
		if !ok {
			return
		}
		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveLine(r.Context(), customerID, lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSummary(w, r, svc, logg, customerID, http.StatusOK)
	}
}

func writeSummary(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, logg *logger.Logger, customerID uuid.UUID, status int) {
	view, err := svc.Summary(r.Context(), customerID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, status, view)
}

func customer(w http.ResponseWriter, r *http.Request, svc cartsvc.Service, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return uuid.Nil, false
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
		return uuid.Nil, false
	}
	return actor.UserID, true
}
