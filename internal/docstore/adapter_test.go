package docstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryAdapterUpload(t *testing.T) {
	adapter := NewMemoryAdapter()

	ref, err := adapter.Upload(context.Background(), "record.pdf", "application/pdf", strings.NewReader("file-bytes"))
	require.NoError(t, err)
	require.NotEmpty(t, ref.ID)
	require.Contains(t, ref.URL, "record.pdf")
	require.Equal(t, "application/pdf", ref.ContentType)
	require.Equal(t, int64(len("file-bytes")), ref.SizeBytes)
}

func TestHTTPAdapterUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "record.pdf", header.Filename)
		require.Equal(t, "application/pdf", r.FormValue("content_type"))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   "doc-1",
			"url":  "https://store/doc-1",
			"type": "application/pdf",
			"size": 10,
		})
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(server.URL, "test-key")
	ref, err := adapter.Upload(context.Background(), "record.pdf", "application/pdf", strings.NewReader("file-bytes"))
	require.NoError(t, err)
	require.Equal(t, "doc-1", ref.ID)
	require.Equal(t, "https://store/doc-1", ref.URL)
	require.Equal(t, int64(10), ref.SizeBytes)
}

func TestHTTPAdapterPropagatesFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(server.URL, "")
	_, err := adapter.Upload(context.Background(), "record.pdf", "application/pdf", strings.NewReader("x"))
	require.Error(t, err)
}
