// Package storage uploads cover images to a Supabase storage bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	storage "github.com/supabase-community/storage-go"
)

// Object is an uploaded file.
type Object struct {
	Path string
	URL  string
}

// Client wraps a storage-go client bound to one bucket and folder.
type Client struct {
	client  *storage.Client
	bucket  string
	folder  string
	baseURL string
	now     func() time.Time
}

// NewClient creates a client for supabaseURL authenticated with the service
// role key.
func NewClient(supabaseURL, serviceRoleKey, bucket, folder string) *Client {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	return &Client{
		client:  storage.NewClient(baseURL+"/storage/v1", serviceRoleKey, nil),
		bucket:  bucket,
		folder:  strings.Trim(folder, "/"),
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Upload stores data under <folder>/<unixnano>-<filename> and returns its
// public URL.
func (c *Client) Upload(ctx context.Context, filename string, data []byte, contentType string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("refusing to upload empty file %q", filename)
	}

	storagePath := path.Join(c.folder, fmt.Sprintf("%d-%s", c.now().UnixNano(), filename))
	upsert := true
	_, err := c.client.UploadFile(c.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return &Object{Path: storagePath, URL: c.PublicURL(storagePath)}, nil
}

// Remove deletes a previously uploaded object.
func (c *Client) Remove(ctx context.Context, storagePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.client.RemoveFile(c.bucket, []string{storagePath}); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// PublicURL returns the public URL of storagePath.
func (c *Client) PublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, storagePath)
}
