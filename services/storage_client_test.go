package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"medvault-rag/internal/config"
)

func storageClientFor(srv *httptest.Server) *StorageClient {
	return NewStorageClient(&config.Config{
		StorageURL:        srv.URL,
		StorageBucket:     "reports",
		StorageServiceKey: "test-key",
	})
}

func TestStorageClientList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/list/reports" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var body struct {
			Prefix string `json:"prefix"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Prefix != "user1/lab-reports" {
			t.Errorf("prefix = %q", body.Prefix)
		}

		json.NewEncoder(w).Encode([]StorageObject{
			{Name: "cbc_march.pdf", ID: "a1"},
			{Name: ".emptyFolderPlaceholder", ID: "a2"},
			{Name: "lipid_april.pdf", ID: "a3"},
		})
	}))
	defer srv.Close()

	paths, err := storageClientFor(srv).List(context.Background(), "user1", "lab-reports")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []string{"user1/lab-reports/cbc_march.pdf", "user1/lab-reports/lipid_april.pdf"}
	if len(paths) != len(want) {
		t.Fatalf("got %d paths, want %d: %v", len(paths), len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestStorageClientListWalksFolders(t *testing.T) {
	// A vault laid out as user/folder/file: the root listing returns only
	// folder entries, and the files are one level down.
	listings := map[string][]StorageObject{
		"user1": {
			{Name: "lab-reports", ID: ""},
			{Name: "imaging", ID: ""},
			{Name: ".emptyFolderPlaceholder", ID: "p0"},
		},
		"user1/lab-reports": {
			{Name: "cbc_march.pdf", ID: "a1"},
			{Name: "archive", ID: ""},
		},
		"user1/lab-reports/archive": {
			{Name: "cbc_2023.pdf", ID: "a2"},
		},
		"user1/imaging": {
			{Name: "chest_xray.pdf", ID: "a3"},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prefix string `json:"prefix"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		objects, ok := listings[body.Prefix]
		if !ok {
			t.Errorf("unexpected prefix %q", body.Prefix)
		}
		json.NewEncoder(w).Encode(objects)
	}))
	defer srv.Close()

	paths, err := storageClientFor(srv).List(context.Background(), "user1", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := map[string]bool{
		"user1/lab-reports/cbc_march.pdf":        true,
		"user1/lab-reports/archive/cbc_2023.pdf": true,
		"user1/imaging/chest_xray.pdf":           true,
	}
	if len(paths) != len(want) {
		t.Fatalf("got %d paths, want %d: %v", len(paths), len(want), paths)
	}
	for _, p := range paths {
		if !want[p] {
			t.Errorf("unexpected path %q", p)
		}
	}
}

func TestStorageClientListNoScope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prefix string `json:"prefix"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Prefix != "user1" {
			t.Errorf("prefix = %q, want bare user id", body.Prefix)
		}
		json.NewEncoder(w).Encode([]StorageObject{})
	}))
	defer srv.Close()

	if _, err := storageClientFor(srv).List(context.Background(), "user1", ""); err != nil {
		t.Fatalf("List: %v", err)
	}
}

func TestStorageClientDownload(t *testing.T) {
	content := []byte("%PDF-1.4 report bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/reports/user1/cbc.pdf" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write(content)
	}))
	defer srv.Close()

	got, err := storageClientFor(srv).Download(context.Background(), "user1/cbc.pdf")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("downloaded bytes do not match")
	}
}

func TestStorageClientDownloadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := storageClientFor(srv).Download(context.Background(), "user1/missing.pdf"); err == nil {
		t.Error("missing object should return an error")
	}
}

func TestStorageClientDeleteEmpty(t *testing.T) {
	// No server: an empty path list must short-circuit without a request.
	c := NewStorageClient(&config.Config{StorageURL: "http://127.0.0.1:1", StorageBucket: "reports"})
	if err := c.Delete(context.Background(), nil); err != nil {
		t.Fatalf("Delete with no paths: %v", err)
	}
}
