package mpesawebhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/retailops-backend/internal/payments"
)

const successBody = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 1.00},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "Balance"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254708374149}
        ]
      }
    }
  }
}`

const cancelledBody = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363926",
      "ResultCode": "1032",
      "ResultDesc": "Request cancelled by user"
    }
  }
}`

func TestParseCallbackSuccess(t *testing.T) {
	cb, err := ParseCallback([]byte(successBody))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.CheckoutRequestID != "ws_CO_191220191020363925" || cb.ResultCode != 0 {
		t.Fatalf("unexpected callback %+v", cb)
	}
	if cb.ReceiptNumber != "NLJ7RT61SV" {
		t.Fatalf("expected receipt, got %q", cb.ReceiptNumber)
	}
	if cb.AmountCents != 100 {
		t.Fatalf("expected 100 cents, got %d", cb.AmountCents)
	}
	if cb.Phone != "254708374149" {
		t.Fatalf("unexpected phone %q", cb.Phone)
	}
	want := time.Date(2019, 12, 19, 7, 21, 15, 0, time.UTC)
	if cb.TransactionDate == nil || !cb.TransactionDate.Equal(want) {
		t.Fatalf("expected transaction date %v, got %v", want, cb.TransactionDate)
	}
}

func TestParseCallbackStringResultCode(t *testing.T) {
	cb, err := ParseCallback([]byte(cancelledBody))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cb.ResultCode != payments.ResultCodeCancelled || cb.ReceiptNumber != "" {
		t.Fatalf("unexpected callback %+v", cb)
	}
}

func TestParseCallbackRejectsMalformed(t *testing.T) {
	bodies := []string{
		``,
		`not json`,
		`{"Body":{}}`,
		`{"Body":{"stkCallback":{"CheckoutRequestID":""}}}`,
		`{"Body":{"stkCallback":{"CheckoutRequestID":"x","ResultCode":"abc"}}}`,
	}
	for _, body := range bodies {
		if _, err := ParseCallback([]byte(body)); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
}

type memoryStore struct {
	data   map[string]time.Duration
	setErr error
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = ttl
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "ro:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

type stubPayments struct {
	calls   []payments.Callback
	outcome payments.Outcome
	err     error
}

func (s *stubPayments) HandleCallback(_ context.Context, cb payments.Callback) (payments.Outcome, error) {
	s.calls = append(s.calls, cb)
	return s.outcome, s.err
}

type ackCounter map[string]int

func (c ackCounter) CallbackAcked(outcome string) { c[outcome]++ }

func newTestService(t *testing.T, store *memoryStore, handler *stubPayments) (*Service, ackCounter) {
	t.Helper()
	guard, err := NewIdempotencyGuard(store, time.Hour, GuardScope)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	acks := ackCounter{}
	svc, err := NewService(ServiceParams{Payments: handler, Guard: guard, Metrics: acks})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc, acks
}

func TestProcessAcceptsAndDropsReplays(t *testing.T) {
	store := &memoryStore{data: map[string]time.Duration{}}
	handler := &stubPayments{outcome: payments.OutcomeApplied}
	svc, acks := newTestService(t, store, handler)

	for i := 0; i < 3; i++ {
		if ack := svc.Process(context.Background(), []byte(successBody)); ack != AckAccepted {
			t.Fatalf("delivery %d: expected accepted ack, got %+v", i, ack)
		}
	}
	if len(handler.calls) != 1 {
		t.Fatalf("expected one call through the guard, got %d", len(handler.calls))
	}
	if acks["applied"] != 1 || acks["replay"] != 2 {
		t.Fatalf("unexpected ack counts %v", acks)
	}
	if ttl := store.data["ro:idempotency:mpesa_stk:ws_CO_191220191020363925"]; ttl != time.Hour {
		t.Fatalf("expected guard key with 1h ttl, got %v", ttl)
	}
}

func TestProcessFailureReleasesGuard(t *testing.T) {
	store := &memoryStore{data: map[string]time.Duration{}}
	handler := &stubPayments{err: errors.New("database unavailable")}
	svc, acks := newTestService(t, store, handler)

	if ack := svc.Process(context.Background(), []byte(cancelledBody)); ack != AckRejected {
		t.Fatalf("expected rejected ack, got %+v", ack)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected guard released, got %v", store.data)
	}

	handler.err = nil
	handler.outcome = payments.OutcomeApplied
	if ack := svc.Process(context.Background(), []byte(cancelledBody)); ack != AckAccepted {
		t.Fatalf("expected redelivery accepted, got %+v", ack)
	}
	if len(handler.calls) != 2 || acks["failed"] != 1 {
		t.Fatalf("unexpected calls %d / acks %v", len(handler.calls), acks)
	}
}

func TestProcessMalformedBody(t *testing.T) {
	handler := &stubPayments{}
	svc, acks := newTestService(t, &memoryStore{data: map[string]time.Duration{}}, handler)

	if ack := svc.Process(context.Background(), []byte(`{"Body":`)); ack != AckRejected {
		t.Fatalf("expected rejected ack, got %+v", ack)
	}
	if len(handler.calls) != 0 || acks["malformed"] != 1 {
		t.Fatalf("malformed body must not reach payments")
	}
}

func TestProcessWithoutRedisStillHandles(t *testing.T) {
	store := &memoryStore{data: map[string]time.Duration{}, setErr: errors.New("redis down")}
	handler := &stubPayments{outcome: payments.OutcomeDuplicate}
	svc, acks := newTestService(t, store, handler)

	if ack := svc.Process(context.Background(), []byte(successBody)); ack != AckAccepted {
		t.Fatalf("expected accepted ack, got %+v", ack)
	}
	if len(handler.calls) != 1 || acks["duplicate"] != 1 {
		t.Fatalf("expected the callback to be handled without the guard")
	}
}

func TestNewIdempotencyGuardValidation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, GuardScope); err == nil {
		t.Fatalf("expected nil store error")
	}
	if _, err := NewIdempotencyGuard(&memoryStore{}, -time.Second, GuardScope); err == nil {
		t.Fatalf("expected negative ttl error")
	}
	if _, err := NewIdempotencyGuard(&memoryStore{}, time.Hour, ""); err == nil {
		t.Fatalf("expected scope error")
	}
}
