// Package docstore talks to the external document store. The core keeps
// only the returned reference; document bytes never enter the ledger.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reference is the stable handle returned by the store for an upload.
type Reference struct {
	ID          string
	URL         string
	ContentType string
	SizeBytes   int64
}

// Adapter accepts raw uploads and returns stable references.
type Adapter interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (*Reference, error)
}

// HTTPAdapter uploads via multipart POST to the configured endpoint. The
// endpoint owns timeout and retry policy for its own backends; this client
// only bounds the single request.
type HTTPAdapter struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPAdapter builds an adapter for the given upload endpoint.
func NewHTTPAdapter(endpoint, apiKey string) *HTTPAdapter {
	return &HTTPAdapter{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Type      string `json:"type"`
	SizeBytes int64  `json:"size"`
}

// Upload sends the file and decodes the returned reference.
func (a *HTTPAdapter) Upload(ctx context.Context, name, contentType string, body io.Reader) (*Reference, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, err
	}
	if err := writer.WriteField("content_type", contentType); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	res, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("document store returned status %d", res.StatusCode)
	}

	var decoded uploadResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode document store response: %w", err)
	}
	return &Reference{
		ID:          decoded.ID,
		URL:         decoded.URL,
		ContentType: decoded.Type,
		SizeBytes:   decoded.SizeBytes,
	}, nil
}

// MemoryAdapter keeps uploads in memory; used in tests and DSN-less
// development mode.
type MemoryAdapter struct {
	mu    sync.Mutex
	sizes map[string]int64
}

// NewMemoryAdapter builds an empty adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{sizes: make(map[string]int64)}
}

// Upload consumes the body and fabricates a reference.
func (a *MemoryAdapter) Upload(_ context.Context, name, contentType string, body io.Reader) (*Reference, error) {
	size, err := io.Copy(io.Discard, body)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	a.mu.Lock()
	a.sizes[id] = size
	a.mu.Unlock()
	return &Reference{
		ID:          id,
		URL:         fmt.Sprintf("memory://documents/%s/%s", id, name),
		ContentType: contentType,
		SizeBytes:   size,
	}, nil
}
