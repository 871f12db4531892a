package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/carepath/carepath/internal/domain"
	"github.com/carepath/carepath/internal/platform/auth"
	"github.com/carepath/carepath/internal/upstream"
)

type mockProvider struct {
	registerID    string
	registerErr   error
	registerCalls int
	lastRegister  upstream.RegisterRequest

	loginResult *upstream.LoginResult
	loginErr    error
	loginCalls  int
}

func (m *mockProvider) Register(ctx context.Context, req upstream.RegisterRequest) (string, error) {
	m.registerCalls++
	m.lastRegister = req
	if m.registerErr != nil {
		return "", m.registerErr
	}
	return m.registerID, nil
}

func (m *mockProvider) Login(ctx context.Context, email, password string) (*upstream.LoginResult, error) {
	m.loginCalls++
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginResult, nil
}

var testSecret = []byte("test-secret")

func newTestService(provider *mockProvider) *Service {
	return NewService(provider, testSecret, zerolog.Nop())
}

func validRegistration() upstream.RegisterRequest {
	return upstream.RegisterRequest{
		Name:      "Asha Rao",
		Email:     "asha@example.com",
		Password:  "secret123",
		Gender:    "female",
		Age:       34,
		Address:   "12 Lake Road",
		ContactNo: "9876543210",
	}
}

func TestRegister_OK(t *testing.T) {
	provider := &mockProvider{registerID: "u42"}
	svc := newTestService(provider)

	userID, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if userID != "u42" {
		t.Errorf("expected u42, got %q", userID)
	}
	if provider.lastRegister.Email != "asha@example.com" {
		t.Errorf("unexpected forwarded request: %+v", provider.lastRegister)
	}
}

func TestRegister_FieldValidation(t *testing.T) {
	provider := &mockProvider{registerID: "u42"}
	svc := newTestService(provider)

	cases := []struct {
		name   string
		mutate func(*upstream.RegisterRequest)
	}{
		{"missing name", func(r *upstream.RegisterRequest) { r.Name = " " }},
		{"missing email", func(r *upstream.RegisterRequest) { r.Email = "" }},
		{"email without at", func(r *upstream.RegisterRequest) { r.Email = "asha.example.com" }},
		{"email without dot after at", func(r *upstream.RegisterRequest) { r.Email = "asha@examplecom" }},
		{"short password", func(r *upstream.RegisterRequest) { r.Password = "abc" }},
		{"missing gender", func(r *upstream.RegisterRequest) { r.Gender = "" }},
		{"zero age", func(r *upstream.RegisterRequest) { r.Age = 0 }},
		{"implausible age", func(r *upstream.RegisterRequest) { r.Age = 130 }},
		{"missing address", func(r *upstream.RegisterRequest) { r.Address = "" }},
		{"missing contact", func(r *upstream.RegisterRequest) { r.ContactNo = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRegistration()
			tc.mutate(&req)
			if _, err := svc.Register(context.Background(), req); !domain.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if provider.registerCalls != 0 {
		t.Errorf("expected no network calls for invalid input, got %d", provider.registerCalls)
	}
}

func TestLogin_OK(t *testing.T) {
	provider := &mockProvider{loginResult: &upstream.LoginResult{
		Token: "tok",
		User:  upstream.AccountUser{ID: "u1", Name: "Asha Rao"},
	}}
	svc := newTestService(provider)

	result, err := svc.Login(context.Background(), "asha@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token != "tok" || result.User.ID != "u1" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestLogin_RequiresCredentials(t *testing.T) {
	provider := &mockProvider{}
	svc := newTestService(provider)

	if _, err := svc.Login(context.Background(), "", "secret123"); !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "asha@example.com", ""); !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if provider.loginCalls != 0 {
		t.Errorf("expected no network calls, got %d", provider.loginCalls)
	}
}

func signToken(t *testing.T, secret []byte, claims auth.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerify_ValidToken(t *testing.T) {
	svc := newTestService(&mockProvider{})

	tok := signToken(t, testSecret, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "u1",
		Name:   "Asha Rao",
		Email:  "asha@example.com",
	})

	ident, err := svc.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ident.ID != "u1" || ident.Name != "Asha Rao" {
		t.Errorf("unexpected identity: %+v", ident)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	svc := newTestService(&mockProvider{})

	tok := signToken(t, []byte("other-secret"), auth.Claims{UserID: "u1"})
	if _, err := svc.Verify(tok); !domain.IsAuthRequired(err) {
		t.Errorf("expected auth required, got %v", err)
	}
}

func TestVerify_EmptyToken(t *testing.T) {
	svc := newTestService(&mockProvider{})
	if _, err := svc.Verify(""); !domain.IsAuthRequired(err) {
		t.Errorf("expected auth required, got %v", err)
	}
}
