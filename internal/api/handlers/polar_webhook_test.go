package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"plara/internal/events"
	"plara/internal/external"
	"plara/internal/types"
)

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

// mockVerifier implements external.WebhookVerifier for testing.
type mockVerifier struct {
	err error
}

func (m *mockVerifier) Verify(payload []byte, signature string, secret types.SecretString) error {
	return m.err
}

// mockDispatcher implements EventDispatcher for testing.
type mockDispatcher struct {
	dispatched []events.Event
}

func (m *mockDispatcher) Dispatch(ctx context.Context, event events.Event) {
	m.dispatched = append(m.dispatched, event)
}

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

const testWebhookSecret = "whsec_test_secret"

// signBody computes the hex HMAC-SHA256 digest the provider would send.
func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestWebhookHandler(verifier external.WebhookVerifier, dispatcher EventDispatcher, secret string) *PolarWebhookHandler {
	return NewPolarWebhookHandler(verifier, dispatcher, types.SecretString(secret), nil)
}

func doWebhookRequest(handler *PolarWebhookHandler, path string, body []byte, signature string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	handler.RegisterRootRoutes(r)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("Polar-Signature", signature)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var errResp map[string]map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	code, _ := errResp["error"]["code"].(string)
	return code
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPolarWebhookHandler_Handle_ValidDelivery(t *testing.T) {
	dispatcher := &mockDispatcher{}
	handler := newTestWebhookHandler(&external.HMACVerifier{}, dispatcher, testWebhookSecret)

	body := []byte(`{"type":"order.created","data":{"id":"ord_1","amount":1500,"currency":"usd","customer":{"email":"b@c.io"},"product":{"name":"Pro"}}}`)
	rr := doWebhookRequest(handler, "/webhooks/polar", body, signBody(body, testWebhookSecret))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var ack WebhookAck
	if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	if ack.Status != "received" {
		t.Errorf("expected status %q, got %q", "received", ack.Status)
	}
	if ack.EventType != "order.created" {
		t.Errorf("expected event_type %q, got %q", "order.created", ack.EventType)
	}

	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("expected 1 dispatched event, got %d", len(dispatcher.dispatched))
	}
	order, ok := dispatcher.dispatched[0].(events.OrderCreated)
	if !ok {
		t.Fatalf("expected OrderCreated, got %T", dispatcher.dispatched[0])
	}
	if order.OrderID != "ord_1" {
		t.Errorf("expected order ID %q, got %q", "ord_1", order.OrderID)
	}
}

func TestPolarWebhookHandler_Handle_LegacyAliasSharesBehavior(t *testing.T) {
	dispatcher := &mockDispatcher{}
	handler := newTestWebhookHandler(&external.HMACVerifier{}, dispatcher, testWebhookSecret)

	body := []byte(`{"type":"checkout.updated","data":{"id":"chk_1","status":"confirmed"}}`)
	rr := doWebhookRequest(handler, "/webhook", body, signBody(body, testWebhookSecret))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 on legacy alias, got %d", rr.Code)
	}
	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("expected 1 dispatched event via legacy alias, got %d", len(dispatcher.dispatched))
	}
}

func TestPolarWebhookHandler_Handle_InvalidSignature(t *testing.T) {
	dispatcher := &mockDispatcher{}
	handler := newTestWebhookHandler(&external.HMACVerifier{}, dispatcher, testWebhookSecret)

	body := []byte(`{"type":"order.created","data":{"id":"ord_1"}}`)
	rr := doWebhookRequest(handler, "/webhooks/polar", body, signBody(body, "whsec_wrong_secret"))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != string(types.ErrCodeAuthSignatureInvalid) {
		t.Errorf("expected error code %q, got %q", types.ErrCodeAuthSignatureInvalid, code)
	}
	if len(dispatcher.dispatched) != 0 {
		t.Errorf("unauthenticated event must not be dispatched")
	}
}

func TestPolarWebhookHandler_Handle_MissingSignature(t *testing.T) {
	handler := newTestWebhookHandler(&external.HMACVerifier{}, &mockDispatcher{}, testWebhookSecret)

	body := []byte(`{"type":"order.created"}`)
	rr := doWebhookRequest(handler, "/webhooks/polar", body, "")

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != string(types.ErrCodeAuthSignatureMissing) {
		t.Errorf("expected error code %q, got %q", types.ErrCodeAuthSignatureMissing, code)
	}
}

func TestPolarWebhookHandler_Handle_UnconfiguredSecretFailsClosed(t *testing.T) {
	dispatcher := &mockDispatcher{}
	handler := newTestWebhookHandler(&external.HMACVerifier{}, dispatcher, "")

	// Even a correctly structured, "signed" delivery is rejected when no
	// secret is configured.
	body := []byte(`{"type":"order.created","data":{"id":"ord_1"}}`)
	rr := doWebhookRequest(handler, "/webhooks/polar", body, signBody(body, ""))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != string(types.ErrCodeConfigMissingWebhookSecret) {
		t.Errorf("expected error code %q, got %q", types.ErrCodeConfigMissingWebhookSecret, code)
	}
	if len(dispatcher.dispatched) != 0 {
		t.Errorf("no event may be dispatched without a configured secret")
	}
}

func TestPolarWebhookHandler_Handle_UnparsableBodyAfterValidSignature(t *testing.T) {
	dispatcher := &mockDispatcher{}
	handler := newTestWebhookHandler(&external.HMACVerifier{}, dispatcher, testWebhookSecret)

	// Correctly signed garbage: authentication passes, parsing fails.
	body := []byte(`not json at all`)
	rr := doWebhookRequest(handler, "/webhooks/polar", body, signBody(body, testWebhookSecret))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != string(types.ErrCodeValidationInvalidJSON) {
		t.Errorf("expected error code %q, got %q", types.ErrCodeValidationInvalidJSON, code)
	}
	if len(dispatcher.dispatched) != 0 {
		t.Errorf("unparsable event must not be dispatched")
	}
}

func TestPolarWebhookHandler_Handle_UnrecognizedEventStillAcked(t *testing.T) {
	dispatcher := &mockDispatcher{}
	handler := newTestWebhookHandler(&external.HMACVerifier{}, dispatcher, testWebhookSecret)

	body := []byte(`{"type":"benefit.granted","data":{"id":"ben_1"}}`)
	rr := doWebhookRequest(handler, "/webhooks/polar", body, signBody(body, testWebhookSecret))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var ack WebhookAck
	if err := json.Unmarshal(rr.Body.Bytes(), &ack); err != nil {
		t.Fatalf("failed to decode ack: %v", err)
	}
	if ack.EventType != "benefit.granted" {
		t.Errorf("expected event_type %q, got %q", "benefit.granted", ack.EventType)
	}
	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("unrecognized events still reach the dispatcher")
	}
}

func TestPolarWebhookHandler_Handle_VerifierErrorPassthrough(t *testing.T) {
	// A mock verifier proves the handler maps arbitrary verifier errors
	// through the standard error envelope.
	verifier := &mockVerifier{err: types.NewAppError(
		types.ErrCodeAuthSignatureInvalid,
		"signature mismatch",
		nil,
	)}
	handler := newTestWebhookHandler(verifier, &mockDispatcher{}, testWebhookSecret)

	rr := doWebhookRequest(handler, "/webhooks/polar", []byte(`{}`), "sig")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}
