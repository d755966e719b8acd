package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/shared"
)

// TokenSource supplies the current bearer token; it is re-read per request
// so a refreshed session token is picked up without rebuilding the store.
type TokenSource func() string

// HTTPStore talks to the reference server's document API over HTTP, with
// change feeds consumed as server-sent events.
type HTTPStore struct {
	baseURL string
	token   TokenSource
	client  *http.Client
}

// NewHTTPStore builds a store client for the given base URL ("http://host:port").
func NewHTTPStore(baseURL string, token TokenSource) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		token:   token,
		// no per-request timeout on the shared client: Watch holds its
		// connection open indefinitely; one-shot calls use request contexts
		client: &http.Client{},
	}
}

func (s *HTTPStore) docURL(collection, id string) string {
	return fmt.Sprintf("%s/api/v1/store/%s/%s", s.baseURL, collection, id)
}

func (s *HTTPStore) newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t := s.token(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}
	return req, nil
}

func (s *HTTPStore) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemoteWrite, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemoteWrite, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return b, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, shared.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, shared.ErrUnauthorized
	default:
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrRemoteWrite, resp.StatusCode, bytes.TrimSpace(b))
	}
}

func (s *HTTPStore) Create(ctx context.Context, collection, id string, doc any) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := s.newRequest(ctx, http.MethodPut, s.docURL(collection, id), doc)
	if err != nil {
		return err
	}
	_, err = s.do(req)
	return err
}

func (s *HTTPStore) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := s.newRequest(ctx, http.MethodPatch, s.docURL(collection, id), patch)
	if err != nil {
		return err
	}
	_, err = s.do(req)
	return err
}

func (s *HTTPStore) Delete(ctx context.Context, collection, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := s.newRequest(ctx, http.MethodDelete, s.docURL(collection, id), nil)
	if err != nil {
		return err
	}
	_, err = s.do(req)
	return err
}

func (s *HTTPStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.docURL(collection, id), nil)
	if err != nil {
		return nil, err
	}
	return s.do(req)
}

func (s *HTTPStore) IsEmpty(ctx context.Context) (bool, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.baseURL+"/api/v1/store/empty", nil)
	if err != nil {
		return false, err
	}
	b, err := s.do(req)
	if err != nil {
		return false, err
	}
	var out struct {
		Empty bool `json:"empty"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return false, fmt.Errorf("failed to decode emptiness probe: %w", err)
	}
	return out.Empty, nil
}

// Watch opens the SSE stream for one collection and pumps events to onEvent
// from a dedicated goroutine until the context is cancelled, the returned
// cancel func is called, or the stream fails (onError, no retry).
func (s *HTTPStore) Watch(ctx context.Context, collection string, onEvent func(Event), onError func(error)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := s.newRequest(ctx, http.MethodGet, s.baseURL+"/api/v1/changes/"+collection, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", shared.ErrRemoteWrite, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, shared.ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: status %d", shared.ErrRemoteWrite, resp.StatusCode)
	}

	go func() {
		defer resp.Body.Close()
		err := readEventStream(resp.Body, onEvent)
		if err != nil && ctx.Err() == nil {
			onError(fmt.Errorf("%w: %v", shared.ErrSubscriptionClosed, err))
		}
	}()

	return cancel, nil
}
