package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"relay/internal/config"
)

// GCSStore uploads to one bucket. The client is created on first use so a
// daemon can start before credentials are reachable.
type GCSStore struct {
	bucket  string
	prefix  string
	options []option.ClientOption

	mu     sync.Mutex
	client *storage.Client
}

// NewGCS builds a store from cfg. Without a credentials file the client
// falls back to application default credentials.
func NewGCS(cfg config.GCS, extra ...option.ClientOption) (*GCSStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs: bucket required")
	}
	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read gcs credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(data))
	}
	opts = append(opts, extra...)
	return &GCSStore{bucket: cfg.Bucket, prefix: cfg.Prefix, options: opts}, nil
}

// Prefix returns the configured object prefix.
func (g *GCSStore) Prefix() string { return g.prefix }

func (g *GCSStore) storageClient(ctx context.Context) (*storage.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := storage.NewClient(ctx, g.options...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	g.client = client
	return client, nil
}

// Put streams localPath to the bucket under name.
func (g *GCSStore) Put(ctx context.Context, name, localPath string) (Object, error) {
	client, err := g.storageClient(ctx)
	if err != nil {
		return Object{}, err
	}
	file, err := os.Open(localPath)
	if err != nil {
		return Object{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	wc := client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType(localPath)
	written, err := io.Copy(wc, file)
	if err != nil {
		_ = wc.Close()
		return Object{}, fmt.Errorf("copy to gs://%s/%s: %w", g.bucket, name, err)
	}
	if err := wc.Close(); err != nil {
		return Object{}, fmt.Errorf("finalize gs://%s/%s: %w", g.bucket, name, err)
	}
	return Object{Key: name, URL: fmt.Sprintf("gs://%s/%s", g.bucket, name), Size: written}, nil
}

// Close releases the underlying client, if one was created.
func (g *GCSStore) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}
