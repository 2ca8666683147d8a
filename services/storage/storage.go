package storagesvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

// New returns the FileStorage selected by conf.Storage.Backend.
func New(ctx context.Context, conf *core.Config) (core.FileStorage, error) {
	sc := conf.Storage
	switch sc.Backend {
	case "b2":
		return NewB2Storage(ctx, sc.B2KeyID, sc.B2AppKey, sc.B2Bucket)
	case "memory":
		return NewMemoryStorage(), nil
	case "", "local":
		return NewLocalStorage(sc.LocalDir)
	default:
		return nil, errors.Errorf("unknown storage backend %q", sc.Backend)
	}
}
