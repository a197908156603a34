package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/floristeria-backend/api/responses"
	wompiwebhook "github.com/angelmondragon/floristeria-backend/internal/webhooks/wompi"
	pkgerrors "github.com/angelmondragon/floristeria-backend/pkg/errors"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body.
const SignatureHeader = "x-wompi-signature"

const maxNotificationBytes = 1 << 20

type WompiWebhookService interface {
	HandleNotification(ctx context.Context, raw []byte, signature string) (*wompiwebhook.Result, error)
}

// WompiWebhook answers every delivery with {status, message, ...} instead of
// the API error envelope.
func WompiWebhook(svc WompiWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			writeFailure(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
		if err != nil {
			writeFailure(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		result, err := svc.HandleNotification(ctx, payload, r.Header.Get(SignatureHeader))
		if err != nil {
			writeFailure(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(ctx, "wompi notification processed: "+result.Message)
		}
		responses.WriteJSON(w, http.StatusOK, result)
	}
}

func writeFailure(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := responses.Typed(err)
	status := webhookStatus(typed.Code())
	responses.LogError(ctx, logg, status, err)
	responses.WriteJSON(w, status, wompiwebhook.Result{
		Status:  wompiwebhook.StatusError,
		Message: responses.PublicMessage(typed),
	})
}

// Anything the provider should redeliver maps to 500.
func webhookStatus(code pkgerrors.Code) int {
	switch code {
	case pkgerrors.CodeValidation:
		return http.StatusBadRequest
	case pkgerrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case pkgerrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
