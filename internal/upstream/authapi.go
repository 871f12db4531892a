package upstream

import (
	"context"
	"net/http"
)

// AccountUser is the public shape of a registered user.
type AccountUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterRequest carries the fields the auth provider requires for a new
// account.
type RegisterRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
	Address   string `json:"address"`
	ContactNo string `json:"contact_no"`
}

// LoginResult is the auth provider's successful login response: a signed
// HS256 token plus the user it identifies.
type LoginResult struct {
	Token string      `json:"token"`
	User  AccountUser `json:"user"`
}

// Register creates an account. Conflict and validation failures come back
// as *APIError with the provider's status and message, which the identity
// handler passes through unchanged.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var resp struct {
		Message string `json:"message"`
		UserID  string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	req := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
