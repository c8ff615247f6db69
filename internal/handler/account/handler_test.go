package account

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/Jose-cardos0/ONLYNEX/internal/service/auth"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/subscription"
)

func setupRouter(t *testing.T) (*chi.Mux, *auth.Service) {
	t.Helper()
	store := subscription.NewMemoryStore()
	subs := subscription.NewService(store, subscription.Config{
		BcryptCost: bcrypt.MinCost,
		Now:        func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) },
	})
	authSvc := auth.NewService(store, "test-secret", time.Hour)

	r := chi.NewRouter()
	New(authSvc, subs).RegisterRoutes(r)
	return r, authSvc
}

func post(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func paidEvent(email string) map[string]any {
	return map[string]any{
		"event":       "transaction",
		"status":      "paid",
		"method":      "pix",
		"customer":    map[string]any{"email": email, "name": "Ana"},
		"transaction": map[string]any{"id": "tx-1", "amount": 2990},
		"extra_field": "ignored",
	}
}

func TestPaymentProvisionsThenLoginSucceeds(t *testing.T) {
	r, authSvc := setupRouter(t)

	resp := post(r, "/webhooks/payment", paidEvent("ana@mail.com"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result subscription.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || !result.IsNewUser || result.User.Password != subscription.DefaultPassword {
		t.Fatalf("unexpected result: %+v", result)
	}

	resp = post(r, "/auth/login", map[string]string{"email": "ana@mail.com", "password": subscription.DefaultPassword})
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.Code)
	}
	var login auth.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if email, _, err := authSvc.ValidateToken(login.AccessToken); err != nil || email != "ana@mail.com" {
		t.Fatalf("token invalid: %q %v", email, err)
	}
}

func TestLoginFailures(t *testing.T) {
	r, _ := setupRouter(t)
	post(r, "/webhooks/payment", paidEvent("ana@mail.com"))

	if resp := post(r, "/auth/login", map[string]string{"email": "ana@mail.com", "password": "wrong"}); resp.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", resp.Code)
	}
	if resp := post(r, "/auth/login", map[string]string{"email": "ana@mail.com"}); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing password: expected 400, got %d", resp.Code)
	}

	post(r, "/webhooks/payment", map[string]any{
		"event":    "transaction",
		"status":   "chargeback",
		"customer": map[string]any{"email": "ana@mail.com"},
	})
	if resp := post(r, "/auth/login", map[string]string{"email": "ana@mail.com", "password": subscription.DefaultPassword}); resp.Code != http.StatusForbidden {
		t.Fatalf("suspended account: expected 403, got %d", resp.Code)
	}
}

func TestPaymentRejectsMissingEmail(t *testing.T) {
	r, _ := setupRouter(t)

	if resp := post(r, "/webhooks/payment", paidEvent("")); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBufferString("{not json"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", resp.Code)
	}
}
