package storagesvc

import (
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

// B2Storage stores files in a Backblaze B2 bucket.
type B2Storage struct {
	client *b2.Client
	bucket *b2.Bucket
}

var _ core.FileStorage = (*B2Storage)(nil)

func NewB2Storage(ctx context.Context, keyID, appKey, bucketName string) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, errors.Wrap(err, "getting b2 bucket")
	}
	return &B2Storage{client: client, bucket: bucket}, nil
}

func (s *B2Storage) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	obj := s.bucket.Object(key)
	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return obj.URL(), nil
}

func (s *B2Storage) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.bucket.Object(key).Delete(ctx), "deleting object")
}

func (s *B2Storage) URL(key string) string {
	return s.bucket.Object(key).URL()
}
