package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dhaka-pay/dhaka_pay/internal/config"
	"github.com/dhaka-pay/dhaka_pay/internal/logging"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	cfg := config.Config{
		AppName:    "DhakaPay-test",
		Currency:   "BDT",
		SessionTTL: time.Minute,
	}

	app := fiber.New()
	if err := Setup(app, Deps{Cfg: cfg, Cache: cache, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup routes: %v", err)
	}
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body map[string]any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test %s: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode body %s: %v", raw, err)
	}
	return resp.StatusCode, decoded
}

func getJSON(t *testing.T, app *fiber.App, path, bearer string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test %s: %v", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode body %s: %v", raw, err)
	}
	return resp.StatusCode, decoded
}

func aliceForm() map[string]any {
	return map[string]any{
		"name":            "Alice",
		"email":           "a@x.com",
		"phone":           "+8801000000000",
		"password":        "password1",
		"transaction_pin": "1234",
		"role":            1,
	}
}

func TestRegisterEndpoint(t *testing.T) {
	app := setupTestApp(t)

	status, body := postJSON(t, app, "/api/register", aliceForm(), nil)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, body)
	}
	if body["success"] != true {
		t.Fatalf("expected success envelope, got %v", body)
	}

	u, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("missing user in response: %v", body)
	}
	for _, secret := range []string{"password", "password_hash", "pin_hash", "transaction_pin"} {
		if _, leaked := u[secret]; leaked {
			t.Fatalf("response leaks %s: %v", secret, u)
		}
	}

	w, ok := body["wallet"].(map[string]any)
	if !ok {
		t.Fatalf("missing wallet in response: %v", body)
	}
	if w["balance"] != "0" {
		t.Fatalf("expected zero balance, got %v", w["balance"])
	}
	if w["type_label"] != "Personal" {
		t.Fatalf("expected Personal wallet for role 1, got %v", w["type_label"])
	}
	if w["status"] != "active" {
		t.Fatalf("expected active wallet, got %v", w["status"])
	}
	if w["currency"] != "BDT" {
		t.Fatalf("expected BDT wallet, got %v", w["currency"])
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := setupTestApp(t)

	if status, body := postJSON(t, app, "/api/register", aliceForm(), nil); status != fiber.StatusCreated {
		t.Fatalf("first register: expected 201, got %d: %v", status, body)
	}

	form := aliceForm()
	form["phone"] = "+8801222222222"
	status, body := postJSON(t, app, "/api/register", form, nil)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %v", status, body)
	}
	if body["message"] != "The email has already been taken." {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	if body["success"] != false {
		t.Fatalf("expected failure envelope, got %v", body)
	}
}

func TestRegisterValidationReturnsFirstViolation(t *testing.T) {
	app := setupTestApp(t)

	form := aliceForm()
	form["name"] = ""
	form["password"] = "x"
	status, body := postJSON(t, app, "/api/register", form, nil)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %v", status, body)
	}
	if body["message"] != "The name field is required." {
		t.Fatalf("expected first violated rule, got %v", body["message"])
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	app := setupTestApp(t)

	form := aliceForm()
	form["role"] = 3
	status, body := postJSON(t, app, "/api/register", form, nil)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %v", status, body)
	}
	if body["message"] != "The selected role is invalid." {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestLoginEndpoint(t *testing.T) {
	app := setupTestApp(t)
	postJSON(t, app, "/api/register", aliceForm(), nil)

	status, body := postJSON(t, app, "/api/login", map[string]any{
		"email":    "a@x.com",
		"password": "password1",
	}, nil)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data in response: %v", body)
	}
	tok, _ := data["token"].(string)
	if tok == "" {
		t.Fatalf("missing token in response: %v", data)
	}
	if _, ok := data["user"]; !ok {
		t.Fatalf("missing user in response: %v", data)
	}
	if _, ok := data["wallet"]; !ok {
		t.Fatalf("missing wallet in response: %v", data)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	app := setupTestApp(t)
	postJSON(t, app, "/api/register", aliceForm(), nil)

	unknownStatus, unknownBody := postJSON(t, app, "/api/login", map[string]any{
		"email":    "nobody@x.com",
		"password": "password1",
	}, nil)
	wrongStatus, wrongBody := postJSON(t, app, "/api/login", map[string]any{
		"email":    "a@x.com",
		"password": "wrongpass1",
	}, nil)

	if unknownStatus != fiber.StatusUnauthorized || wrongStatus != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", unknownStatus, wrongStatus)
	}
	if unknownBody["message"] != wrongBody["message"] {
		t.Fatalf("failure causes are distinguishable: %v vs %v", unknownBody["message"], wrongBody["message"])
	}
}

func TestSecondLoginInvalidatesFirstToken(t *testing.T) {
	app := setupTestApp(t)
	postJSON(t, app, "/api/register", aliceForm(), nil)

	creds := map[string]any{"email": "a@x.com", "password": "password1"}

	_, first := postJSON(t, app, "/api/login", creds, nil)
	firstToken := first["data"].(map[string]any)["token"].(string)

	_, second := postJSON(t, app, "/api/login", creds, nil)
	secondToken := second["data"].(map[string]any)["token"].(string)

	if status, _ := getJSON(t, app, "/api/me", firstToken); status != fiber.StatusUnauthorized {
		t.Fatalf("first token should be revoked, got %d", status)
	}
	status, body := getJSON(t, app, "/api/me", secondToken)
	if status != fiber.StatusOK {
		t.Fatalf("second token should work, got %d: %v", status, body)
	}
}

func TestMeRequiresValidToken(t *testing.T) {
	app := setupTestApp(t)

	if status, _ := getJSON(t, app, "/api/me", ""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	if status, _ := getJSON(t, app, "/api/me", "made-up-token"); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", status)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	app := setupTestApp(t)
	postJSON(t, app, "/api/register", aliceForm(), nil)

	_, login := postJSON(t, app, "/api/login", map[string]any{
		"email":    "a@x.com",
		"password": "password1",
	}, nil)
	tok := login["data"].(map[string]any)["token"].(string)

	status, _ := postJSON(t, app, "/api/logout", map[string]any{}, map[string]string{
		fiber.HeaderAuthorization: "Bearer " + tok,
	})
	if status != fiber.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}

	if status, _ := getJSON(t, app, "/api/me", tok); status != fiber.StatusUnauthorized {
		t.Fatalf("token should be dead after logout, got %d", status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	status, body := getJSON(t, app, "/healthz", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
}
