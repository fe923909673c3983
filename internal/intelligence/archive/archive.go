// Package archive keeps the raw facts gathered for each lead in object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cold_solutions_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const contentType = "application/json"

// objectStore is the subset of *minio.Client the archive uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, object string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// Archive writes raw enrichment payloads to one bucket.
type Archive struct {
	client objectStore
	bucket string
}

// New connects to MinIO. It fails when MinIO is not configured.
func New(cfg config.MinIOConfig) (*Archive, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &Archive{client: client, bucket: cfg.GetMinioBucketEnrichmentRaw()}, nil
}

// Bucket returns the target bucket name.
func (a *Archive) Bucket() string {
	return a.bucket
}

// EnsureBucket creates the bucket if it doesn't exist.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	return nil
}

// ObjectKey is where the payload of one lead in one run is stored.
func ObjectKey(runID, leadID string) string {
	return fmt.Sprintf("runs/%s/%s.json", runID, leadID)
}

// Store uploads payload and returns its object key.
func (a *Archive) Store(ctx context.Context, runID, leadID string, payload []byte) (string, error) {
	key := ObjectKey(runID, leadID)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// Load reads back an archived payload.
func (a *Archive) Load(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}
