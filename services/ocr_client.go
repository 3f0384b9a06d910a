package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"medvault-rag/internal/config"
)

// OCRClient handles communication with the external OCR service.
type OCRClient struct {
	httpClient *http.Client
	baseURL    string
	enabled    bool
}

// OCRResponse represents the response from the OCR service.
type OCRResponse struct {
	Success        bool    `json:"success"`
	Text           string  `json:"text"`
	Pages          int     `json:"pages"`
	ProcessingTime float64 `json:"processing_time"`
	Method         string  `json:"method"`
	QualityScore   float64 `json:"quality_score"`
	WordCount      int     `json:"word_count"`
	Error          string  `json:"error,omitempty"`
}

// HealthResponse represents the OCR health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
	Version     string `json:"version"`
}

// NewOCRClient creates a new OCR client.
func NewOCRClient(cfg *config.Config) *OCRClient {
	baseURL := cfg.OCRServiceURL
	if baseURL == "" {
		baseURL = "http://localhost:8001"
	}

	timeout := time.Duration(cfg.OCRTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute // OCR can take time
	}

	return &OCRClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		enabled:    cfg.OCRServiceEnabled,
	}
}

// Enabled reports whether the OCR service is configured for use.
func (c *OCRClient) Enabled() bool { return c.enabled }

// IsHealthy checks if the OCR service is healthy.
func (c *OCRClient) IsHealthy(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("OCR service unhealthy: status %d", resp.StatusCode)
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return false, fmt.Errorf("failed to decode health response: %w", err)
	}

	return healthResp.Status == "healthy" && healthResp.ModelLoaded, nil
}

// ExtractText sends raw file bytes to the OCR service and returns the
// extracted text.
func (c *OCRClient) ExtractText(ctx context.Context, fileData []byte, filename string) (*OCRResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fileWriter, bytes.NewReader(fileData)); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}
	writer.WriteField("content_type", contentTypeFor(filename))
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr/extract", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("OCR request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var ocrResp OCRResponse
	if err := json.NewDecoder(resp.Body).Decode(&ocrResp); err != nil {
		return nil, fmt.Errorf("failed to decode OCR response: %w", err)
	}

	if !ocrResp.Success {
		return nil, fmt.Errorf("OCR processing failed: %s", ocrResp.Error)
	}

	return &ocrResp, nil
}

// contentTypeFor maps file extensions to MIME types.
func contentTypeFor(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return "application/pdf"
	}

	switch strings.ToLower(filename[idx:]) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	default:
		return "application/pdf"
	}
}
