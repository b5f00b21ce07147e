package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	mpesawebhook "github.com/angelmondragon/retailops-backend/internal/webhooks/mpesa"
)

const callbackToken = "cb-secret"

type stubProcessor struct {
	raw []byte
	ack mpesawebhook.Ack
}

func (s *stubProcessor) Process(_ context.Context, raw []byte) mpesawebhook.Ack {
	s.raw = raw
	return s.ack
}

func TestMpesaSTKCallbackAlwaysAnswers200(t *testing.T) {
	cases := []struct {
		name string
		ack  mpesawebhook.Ack
	}{
		{"accepted", mpesawebhook.AckAccepted},
		{"rejected", mpesawebhook.AckRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proc := &stubProcessor{ack: tc.ack}
			req := httptest.NewRequest(http.MethodPost, "/webhooks/mpesa/stk?token="+callbackToken, strings.NewReader(`{"Body":{}}`))
			rec := httptest.NewRecorder()
			MpesaSTKCallback(proc, callbackToken, nil).ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, `{"Body":{}}`, string(proc.raw))
			var ack mpesawebhook.Ack
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
			require.Equal(t, tc.ack, ack)
		})
	}
}

func TestMpesaSTKCallbackWithoutProcessor(t *testing.T) {
	rec := httptest.NewRecorder()
	MpesaSTKCallback(nil, callbackToken, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/?token="+callbackToken, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ResultDesc":"Rejected"`)
}

func TestMpesaSTKCallbackRejectsMissingOrWrongToken(t *testing.T) {
	forged := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"ok"}}}`
	cases := []struct {
		name       string
		configured string
		target     string
	}{
		{"no token", callbackToken, "/webhooks/mpesa/stk"},
		{"wrong token", callbackToken, "/webhooks/mpesa/stk?token=guess"},
		{"token not configured", "", "/webhooks/mpesa/stk?token="},
		{"token not configured but sent", "", "/webhooks/mpesa/stk?token=" + callbackToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proc := &stubProcessor{ack: mpesawebhook.AckAccepted}
			rec := httptest.NewRecorder()
			MpesaSTKCallback(proc, tc.configured, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.target, strings.NewReader(forged)))

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)
			require.Nil(t, proc.raw, "forged callback must not reach the processor")
		})
	}
}
