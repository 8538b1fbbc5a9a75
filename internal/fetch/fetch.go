// Package fetch opens ingestion inputs from the local filesystem or from
// Google Cloud Storage (gs://bucket/object).
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/JonMunkholm/officesearch/internal/source"
	"google.golang.org/api/option"
)

const gcsScheme = "gs://"

// Opener resolves locations to readers. The storage client is created on
// first use so deployments reading only local files need no credentials.
type Opener struct {
	credentialsFile string

	mu  sync.Mutex
	gcs *storage.Client
}

// New creates an Opener. An empty credentialsFile uses application
// default credentials.
func New(credentialsFile string) *Opener {
	return &Opener{credentialsFile: credentialsFile}
}

// Open returns the raw bytes at location.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, errors.New("empty location")
	}
	if !strings.HasPrefix(location, gcsScheme) {
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", location, err)
		}
		return f, nil
	}
	bucket, object, ok := ParseGCS(location)
	if !ok {
		return nil, fmt.Errorf("invalid storage location %q: want gs://bucket/object", location)
	}

	client, err := o.client(ctx)
	if err != nil {
		return nil, err
	}
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", location, err)
	}
	return r, nil
}

// OpenSource opens location as a named source, picking the format from
// its extension.
func (o *Opener) OpenSource(ctx context.Context, name, location string) (source.Reader, error) {
	rc, err := o.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	r, err := source.Open(name, source.FormatFor(location), rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", location, err)
	}
	return r, nil
}

// Close releases the storage client if one was created.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcs == nil {
		return nil
	}
	err := o.gcs.Close()
	o.gcs = nil
	return err
}

func (o *Opener) client(ctx context.Context) (*storage.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcs != nil {
		return o.gcs, nil
	}

	var opts []option.ClientOption
	if o.credentialsFile != "" {
		if _, err := os.Stat(o.credentialsFile); err != nil {
			return nil, fmt.Errorf("credentials file %s: %w", o.credentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(o.credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	o.gcs = client
	return client, nil
}

// ParseGCS splits gs://bucket/object. ok is false for anything else,
// including a URL with no object.
func ParseGCS(location string) (bucket, object string, ok bool) {
	if !strings.HasPrefix(location, gcsScheme) {
		return "", "", false
	}
	bucket, object, found := strings.Cut(strings.TrimPrefix(location, gcsScheme), "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}
