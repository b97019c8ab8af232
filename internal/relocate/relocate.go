package relocate

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/samops/filerelay/internal/transform"
)

// StorageError wraps a failed storage operation with the object it concerned
// and the underlying cause.
type StorageError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ObjectCopier is the slice of the storage client the executor needs. The
// minio client satisfies it; tests inject fakes.
type ObjectCopier interface {
	CopyObject(ctx context.Context, dst minio.CopyDestOptions, src minio.CopySrcOptions) (minio.UploadInfo, error)
}

// Config holds the storage endpoint settings for the executor.
type Config struct {
	Endpoint          string
	AccessKey         string
	SecretKey         string
	Region            string
	UseSSL            bool
	DestinationBucket string
}

// Executor performs the copy from a source object to its canonical
// destination. Repeat invocations with identical arguments overwrite the same
// destination object, which is what makes redelivery-driven reprocessing
// safe. The source object is never deleted.
type Executor struct {
	store      ObjectCopier
	destBucket string
}

// New builds an executor backed by a real S3-compatible client.
func New(cfg Config) (*Executor, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return NewExecutor(client, cfg.DestinationBucket), nil
}

// NewExecutor builds an executor over any ObjectCopier.
func NewExecutor(store ObjectCopier, destBucket string) *Executor {
	return &Executor{store: store, destBucket: destBucket}
}

// DestinationBucket reports where relocated objects land.
func (e *Executor) DestinationBucket() string { return e.destBucket }

// Relocate copies the source object to the destination bucket at the location's
// physical key. All failures surface as *StorageError with their cause.
func (e *Executor) Relocate(ctx context.Context, sourceBucket, sourceKey string, loc transform.TargetLocation) error {
	dst := minio.CopyDestOptions{
		Bucket: e.destBucket,
		Object: loc.Key(),
	}
	src := minio.CopySrcOptions{
		Bucket: sourceBucket,
		Object: sourceKey,
	}
	if _, err := e.store.CopyObject(ctx, dst, src); err != nil {
		return &StorageError{Op: "copy", Bucket: sourceBucket, Key: sourceKey, Err: err}
	}
	return nil
}
