package webhooks

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/angelmondragon/retailops-backend/api/responses"
	mpesawebhook "github.com/angelmondragon/retailops-backend/internal/webhooks/mpesa"
	"github.com/angelmondragon/retailops-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
	"github.com/angelmondragon/retailops-backend/pkg/logger"
)

const maxCallbackBytes = 64 << 10

// CallbackProcessor turns a raw callback body into the gateway acknowledgement.
type CallbackProcessor interface {
	Process(ctx context.Context, raw []byte) mpesawebhook.Ack
}

// MpesaSTKCallback receives the gateway's STK push result. Requests without
// the callback token are refused with 401 before the body is read. Verified
// callbacks are always answered with 200 since the gateway only reads the
// acknowledgement body.
func MpesaSTKCallback(processor CallbackProcessor, token string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !validCallbackToken(token, r.URL.Query().Get(config.CallbackTokenParam)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "callback token invalid"))
			return
		}
		if processor == nil {
			if logg != nil {
				logg.Warn(ctx, "mpesa callback received with no processor wired")
			}
			responses.WriteRaw(w, http.StatusOK, mpesawebhook.AckRejected)
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "read mpesa callback body", err)
			}
			responses.WriteRaw(w, http.StatusOK, mpesawebhook.AckRejected)
			return
		}

		responses.WriteRaw(w, http.StatusOK, processor.Process(ctx, payload))
	}
}

// An unset token refuses every callback.
func validCallbackToken(want, got string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
