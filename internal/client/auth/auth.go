// Package auth is the client of the identity endpoints. It holds the
// bearer token for the signed-in user and notifies subscribers on every
// auth-state transition, which is what drives the engine session
// lifecycle.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/shared"
)

// User identifies the signed-in account.
type User struct {
	ID    string `json:"userId"`
	Email string `json:"email"`
}

// Callback receives the current user on every transition; nil means
// signed out.
type Callback func(*User)

// Client talks to the /api/v1/auth endpoints and tracks the session token.
type Client struct {
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	token  string
	user   *User
	subs   map[int]Callback
	nextID int
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		subs:    make(map[int]Callback),
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/api/v1/auth/register", email, password)
}

// SignIn exchanges credentials for a session token.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	return c.authenticate(ctx, "/api/v1/auth/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) error {
	body, err := json.Marshal(credentials{Email: email, Password: password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return shared.ErrEmailAlreadyExists
	case http.StatusUnauthorized:
		return shared.ErrInvalidEmailPassword
	default:
		return fmt.Errorf("auth request failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	c.setState(tr.Token, &User{ID: tr.UserID, Email: tr.Email})
	return nil
}

// SignOut drops the token locally. Tokens are stateless, there is nothing
// to revoke server-side.
func (c *Client) SignOut() {
	c.setState("", nil)
}

// DeleteUser removes the account and all its documents, then signs out.
func (c *Client) DeleteUser(ctx context.Context) error {
	token := c.Token()
	if token == "" {
		return shared.ErrNotSignedIn
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/v1/auth/user", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return shared.ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("auth request failed: status %d", resp.StatusCode)
	}

	c.setState("", nil)
	return nil
}

// Token returns the current bearer token, "" when signed out. It satisfies
// the remote store's token source.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Current returns the signed-in user, nil when signed out.
func (c *Client) Current() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Subscribe registers cb and invokes it immediately with the current state.
// The returned function unsubscribes.
func (c *Client) Subscribe(cb Callback) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = cb
	user := c.user
	c.mu.Unlock()

	cb(user)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Client) setState(token string, user *User) {
	c.mu.Lock()
	c.token = token
	c.user = user
	cbs := make([]Callback, 0, len(c.subs))
	for _, cb := range c.subs {
		cbs = append(cbs, cb)
	}
	c.mu.Unlock()

	for _, cb := range cbs {
		cb(user)
	}
}
