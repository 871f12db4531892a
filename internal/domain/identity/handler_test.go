package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carepath/carepath/internal/upstream"
)

func newHandlerFixture(provider *mockProvider) (*echo.Echo, *Handler) {
	e := echo.New()
	return e, NewHandler(NewService(provider, testSecret, zerolog.Nop()))
}

func TestRegisterHandler(t *testing.T) {
	e, h := newHandlerFixture(&mockProvider{registerID: "u42"})

	body := `{"name":"Asha Rao","email":"asha@example.com","password":"secret123",
"gender":"female","age":34,"address":"12 Lake Road","contact_no":"9876543210"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["user_id"] != "u42" {
		t.Errorf("unexpected body: %v", resp)
	}
}

func TestRegisterHandler_ProviderConflictPassesThrough(t *testing.T) {
	e, h := newHandlerFixture(&mockProvider{
		registerErr: &upstream.APIError{Status: http.StatusConflict, Message: "Email already registered"},
	})

	body := `{"name":"Asha Rao","email":"asha@example.com","password":"secret123",
"gender":"female","age":34,"address":"12 Lake Road","contact_no":"9876543210"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Register(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 passthrough, got %v", err)
	}
}

func TestLoginHandler(t *testing.T) {
	e, h := newHandlerFixture(&mockProvider{loginResult: &upstream.LoginResult{
		Token: "tok",
		User:  upstream.AccountUser{ID: "u1", Email: "asha@example.com"},
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"asha@example.com","password":"secret123"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result upstream.LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Token != "tok" || result.User.ID != "u1" {
		t.Errorf("unexpected body: %+v", result)
	}
}

func TestVerifyHandler_NoToken(t *testing.T) {
	e, h := newHandlerFixture(&mockProvider{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/verify", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Verify(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
