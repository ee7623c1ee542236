package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

// BucketService reads uploaded videos back out of Cloud Storage.
type BucketService interface {
	DownloadFile(ctx context.Context, gcsURI string) (io.ReadCloser, error)
	DownloadToFile(ctx context.Context, gcsURI, path string) (int64, error)
	Close() error
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	timeout       time.Duration
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	opts := ClientOptionsFromEnv()
	opts = append(opts, option.WithScopes(storage.ScopeReadOnly))
	stClient, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &bucketService{
		log:           log.With("service", "BucketService"),
		storageClient: stClient,
		timeout:       5 * time.Minute,
	}, nil
}

func (bs *bucketService) Close() error {
	if bs == nil || bs.storageClient == nil {
		return nil
	}
	return bs.storageClient.Close()
}

// The reader's context must outlive this call, so cancel is attached to Close.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (bs *bucketService) DownloadFile(ctx context.Context, gcsURI string) (io.ReadCloser, error) {
	bucket, key, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, &moderation.ClientInputError{Msg: err.Error()}
	}
	ctx2, cancel := context.WithTimeout(ctx, bs.timeout)
	r, err := bs.storageClient.Bucket(bucket).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, &moderation.ClientInputError{Msg: fmt.Sprintf("video not found: %s", gcsURI)}
		}
		return nil, ProviderError(moderation.DetectorText, fmt.Errorf("failed to open GCS reader: %w", err))
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

// DownloadToFile copies the object to path and returns the bytes written.
func (bs *bucketService) DownloadToFile(ctx context.Context, gcsURI, path string) (int64, error) {
	rc, err := bs.DownloadFile(ctx, gcsURI)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, copyErr := io.Copy(f, rc)
	closeErr := f.Close()
	if copyErr != nil {
		return n, ProviderError(moderation.DetectorText, fmt.Errorf("download %s: %w", gcsURI, copyErr))
	}
	if closeErr != nil {
		return n, fmt.Errorf("close %s: %w", path, closeErr)
	}
	bs.log.Debug("Video downloaded", "uri", gcsURI, "bytes", n)
	return n, nil
}
