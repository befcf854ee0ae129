package domain

import (
	"context"
	"io"
)

// DocumentArchive stores verified document payloads in object storage, keyed
// by content hash. Archival is best-effort and never gates the pipeline.
type DocumentArchive interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
