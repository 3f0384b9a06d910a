package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medvault-rag/internal/config"
)

// StorageClient talks to the vault object store holding the user's uploaded
// report files.
type StorageClient struct {
	baseURL    string
	bucket     string
	serviceKey string
	httpClient *http.Client
}

// StorageObject is one file listed under a user's prefix.
type StorageObject struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// NewStorageClient creates a client for the configured bucket.
func NewStorageClient(cfg *config.Config) *StorageClient {
	return &StorageClient{
		baseURL:    strings.TrimRight(cfg.StorageURL, "/"),
		bucket:     cfg.StorageBucket,
		serviceKey: cfg.StorageServiceKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// List returns the file paths currently stored under userID/scope,
// descending into subfolders. The store lists one level at a time and
// reports folders as entries without an object ID, so a vault laid out as
// userID/folder/file needs the walk or a root listing would see no files
// at all.
func (c *StorageClient) List(ctx context.Context, userID, scope string) ([]string, error) {
	root := userID
	if scope != "" {
		root = userID + "/" + scope
	}

	var paths []string
	prefixes := []string{root}
	for len(prefixes) > 0 {
		prefix := prefixes[0]
		prefixes = prefixes[1:]

		objects, err := c.listPrefix(ctx, prefix)
		if err != nil {
			return nil, err
		}

		for _, obj := range objects {
			if obj.Name == ".emptyFolderPlaceholder" {
				continue
			}
			// Folder entries have no object ID.
			if obj.ID == "" {
				prefixes = append(prefixes, prefix+"/"+obj.Name)
				continue
			}
			paths = append(paths, prefix+"/"+obj.Name)
		}
	}
	return paths, nil
}

// listPrefix fetches one level of the store's folder listing.
func (c *StorageClient) listPrefix(ctx context.Context, prefix string) ([]StorageObject, error) {
	body, err := json.Marshal(map[string]interface{}{
		"prefix": prefix,
		"limit":  1000,
		"sortBy": map[string]string{"column": "name", "order": "asc"},
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/list/%s", c.baseURL, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage list failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("storage list failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var objects []StorageObject
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, fmt.Errorf("failed to decode storage listing: %w", err)
	}
	return objects, nil
}

// Download fetches the raw bytes of one stored file.
func (c *StorageClient) Download(ctx context.Context, path string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storage download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("storage download failed with status %d: %s", resp.StatusCode, string(raw))
	}

	return io.ReadAll(resp.Body)
}

// Delete removes stored files. Idempotent; missing paths are ignored by the
// store.
func (c *StorageClient) Delete(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	body, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s", c.baseURL, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage delete failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("storage delete failed with status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
