package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/verifychain/verifychain/internal/domain"
)

// documentPrefix namespaces archived documents inside the bucket.
const documentPrefix = "documents/"

// uploadPartSize is the multipart chunk size. Bond certificates are small,
// so uploads normally complete in a single part.
const uploadPartSize int64 = 5 * 1024 * 1024

// Archive implements domain.DocumentArchive over an S3-compatible bucket.
// Keys are content hashes, so re-archiving the same document is an
// idempotent overwrite of identical bytes.
type Archive struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewArchive creates an Archive backed by the given client.
func NewArchive(c *Client) *Archive {
	return &Archive{
		client: c.S3(),
		uploader: manager.NewUploader(c.S3(), func(u *manager.Uploader) {
			u.PartSize = uploadPartSize
		}),
		bucket: c.Bucket(),
	}
}

func documentKey(contentHash string) string {
	return documentPrefix + contentHash
}

// Put archives a document payload under its content hash.
func (a *Archive) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(documentKey(key)),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: archive document %s: %w", key, err)
	}
	return nil
}

// Get retrieves an archived document payload by content hash. The caller
// owns closing the returned reader. A missing document resolves to
// domain.ErrNotFound.
func (a *Archive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(documentKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3blob: document %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3blob: fetch document %s: %w", key, err)
	}
	return out.Body, nil
}

// Compile-time interface check.
var _ domain.DocumentArchive = (*Archive)(nil)
