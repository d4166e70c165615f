// Package drive is the thin document-store wrapper: it uploads the finished
// tabular payload into a fixed Google Drive folder and returns the file
// handle. The store is append-only from this pipeline's point of view; a
// re-run creates a new file rather than overwriting.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"shipenrich/internal/config"
)

const defaultUploadURL = "https://www.googleapis.com/upload/drive/v3/files"

// Client uploads CSV payloads to one Drive folder.
type Client struct {
	folderID   string
	uploadURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient reads the OAuth token file and builds an authenticated client.
func NewClient(ctx context.Context, cfg config.DriveConfig, logger *zap.Logger) (*Client, error) {
	data, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&tok))
	httpClient.Timeout = 2 * time.Minute

	return &Client{
		folderID:   cfg.FolderID,
		uploadURL:  defaultUploadURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type uploadedFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink"`
}

// UploadCSV creates a new CSV file in the configured folder via a
// multipart/related upload and returns the created file ID.
func (c *Client) UploadCSV(ctx context.Context, name string, payload []byte) (string, error) {
	meta := map[string]any{
		"name":    name,
		"parents": []string{c.folderID},
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := mw.CreatePart(metaHeader)
	if err != nil {
		return "", fmt.Errorf("build metadata part: %w", err)
	}
	if _, err := part.Write(metaJSON); err != nil {
		return "", fmt.Errorf("write metadata part: %w", err)
	}

	csvHeader := textproto.MIMEHeader{}
	csvHeader.Set("Content-Type", "text/csv")
	part, err = mw.CreatePart(csvHeader)
	if err != nil {
		return "", fmt.Errorf("build media part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return "", fmt.Errorf("write media part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finish multipart body: %w", err)
	}

	url := c.uploadURL + "?uploadType=multipart&fields=id,name,webViewLink"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload to drive: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("drive upload returned HTTP %d: %s", resp.StatusCode, respBody)
	}

	var file uploadedFile
	if err := json.Unmarshal(respBody, &file); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}

	c.logger.Info("payload uploaded to drive",
		zap.String("name", file.Name),
		zap.String("id", file.ID),
		zap.String("link", file.WebViewLink))
	return file.ID, nil
}
