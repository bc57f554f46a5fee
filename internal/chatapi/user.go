package chatapi

import (
	"context"
	"net/url"
)

// SearchUsers finds users by name or email.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]UserSummary, error) {
	result := []UserSummary{}
	if err := c.get(ctx, "/users/search", url.Values{"q": {query}}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = []UserSummary{}
	}
	return result, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	if email == "" || password == "" {
		return nil, &ValidationError{Reason: "email and password are required"}
	}
	var result LoginResponse
	if err := c.post(ctx, "/auth/login", &LoginRequest{Email: email, Password: password}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Register creates an account and returns its first token.
func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*LoginResponse, error) {
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		return nil, &ValidationError{Reason: "full name, email and password are required"}
	}
	var result LoginResponse
	if err := c.post(ctx, "/auth/register", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
