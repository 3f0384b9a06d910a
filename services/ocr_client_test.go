package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"medvault-rag/internal/config"
)

func ocrClientFor(t *testing.T, srv *httptest.Server) *OCRClient {
	t.Helper()
	return NewOCRClient(&config.Config{
		OCRServiceURL:     srv.URL,
		OCRServiceEnabled: true,
		OCRTimeout:        5,
	})
}

func TestOCRClientHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(HealthResponse{Status: "healthy", ModelLoaded: true})
	}))
	defer srv.Close()

	healthy, err := ocrClientFor(t, srv).IsHealthy(context.Background())
	if err != nil {
		t.Fatalf("IsHealthy: %v", err)
	}
	if !healthy {
		t.Error("expected healthy")
	}
}

func TestOCRClientUnhealthyWhenModelNotLoaded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(HealthResponse{Status: "healthy", ModelLoaded: false})
	}))
	defer srv.Close()

	healthy, err := ocrClientFor(t, srv).IsHealthy(context.Background())
	if err != nil {
		t.Fatalf("IsHealthy: %v", err)
	}
	if healthy {
		t.Error("model not loaded should read as unhealthy")
	}
}

func TestOCRClientExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr/extract" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		if got := r.FormValue("content_type"); got != "application/pdf" {
			t.Errorf("content_type = %q, want application/pdf", got)
		}
		json.NewEncoder(w).Encode(OCRResponse{
			Success:   true,
			Text:      "Hemoglobin 13.5 g/dL",
			Pages:     1,
			WordCount: 3,
		})
	}))
	defer srv.Close()

	resp, err := ocrClientFor(t, srv).ExtractText(context.Background(), []byte("%PDF-1.4 fake"), "cbc.pdf")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if resp.Text != "Hemoglobin 13.5 g/dL" {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestOCRClientExtractFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OCRResponse{Success: false, Error: "unreadable scan"})
	}))
	defer srv.Close()

	if _, err := ocrClientFor(t, srv).ExtractText(context.Background(), []byte("x"), "scan.jpg"); err == nil {
		t.Error("unsuccessful OCR response should return an error")
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		"report.pdf":  "application/pdf",
		"scan.JPG":    "image/jpeg",
		"scan.jpeg":   "image/jpeg",
		"page.png":    "image/png",
		"page.tiff":   "image/tiff",
		"noextension": "application/pdf",
	}
	for name, want := range cases {
		if got := contentTypeFor(name); got != want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestOCRClientDisabled(t *testing.T) {
	c := NewOCRClient(&config.Config{OCRServiceEnabled: false})
	if c.Enabled() {
		t.Error("client should report disabled")
	}
}
