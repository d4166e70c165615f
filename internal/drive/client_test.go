package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shipenrich/internal/config"
)

func writeTokenFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	tok := `{"access_token":"test-token","token_type":"Bearer"}`
	require.NoError(t, os.WriteFile(path, []byte(tok), 0o600))
	return path
}

func TestNewClient_MissingTokenFile(t *testing.T) {
	_, err := NewClient(context.Background(), config.DriveConfig{
		TokenFile: filepath.Join(t.TempDir(), "absent.json"),
	}, zap.NewNop())
	require.Error(t, err)
}

func TestUploadCSV(t *testing.T) {
	payload := []byte("SKU,,Serial\n,,263384\n")

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])

		metaPart, err := mr.NextPart()
		require.NoError(t, err)
		var meta struct {
			Name    string   `json:"name"`
			Parents []string `json:"parents"`
		}
		require.NoError(t, json.NewDecoder(metaPart).Decode(&meta))
		assert.Equal(t, "Shopify Shipment - 2.26.26.csv", meta.Name)
		assert.Equal(t, []string{"folder-123"}, meta.Parents)

		csvPart, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "text/csv", csvPart.Header.Get("Content-Type"))
		got, err := io.ReadAll(csvPart)
		require.NoError(t, err)
		assert.Equal(t, payload, got)

		fmt.Fprint(w, `{"id":"file-abc","name":"Shopify Shipment - 2.26.26.csv","webViewLink":"https://drive/view"}`)
	}))
	defer ts.Close()

	c, err := NewClient(context.Background(), config.DriveConfig{
		FolderID:  "folder-123",
		TokenFile: writeTokenFile(t),
	}, zap.NewNop())
	require.NoError(t, err)
	c.uploadURL = ts.URL

	id, err := c.UploadCSV(context.Background(), "Shopify Shipment - 2.26.26.csv", payload)
	require.NoError(t, err)
	assert.Equal(t, "file-abc", id)
}

func TestUploadCSV_UpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":"insufficient permissions"}`)
	}))
	defer ts.Close()

	c, err := NewClient(context.Background(), config.DriveConfig{
		FolderID:  "folder-123",
		TokenFile: writeTokenFile(t),
	}, zap.NewNop())
	require.NoError(t, err)
	c.uploadURL = ts.URL

	_, err = c.UploadCSV(context.Background(), "x.csv", []byte("a,b\n"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "403"))
}
