package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/service/attachment"
	"github.com/nutrisha-ai/nutrisha/pkg/service/storage"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Storage selects where uploaded attachments are read from
type Storage struct {
	backend     string
	bucket      string
	container   string
	maxBlobSize int
}

func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       "Attachment storage backend (none, memory or gcs)",
			Category:    "Storage",
			Value:       "gcs",
			Sources:     cli.EnvVars("NUTRISHA_STORAGE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "storage-bucket",
			Usage:       "Default bucket for attachment locators without a bucket",
			Category:    "Storage",
			Sources:     cli.EnvVars("NUTRISHA_STORAGE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "storage-container",
			Usage:       "Container (object prefix) holding user uploads",
			Category:    "Storage",
			Value:       attachment.DefaultContainer,
			Sources:     cli.EnvVars("NUTRISHA_STORAGE_CONTAINER"),
			Destination: &x.container,
		},
		&cli.IntFlag{
			Name:        "storage-max-blob-size",
			Usage:       "Largest attachment in bytes that is sent to the model",
			Category:    "Storage",
			Value:       attachment.DefaultMaxBlobSize,
			Sources:     cli.EnvVars("NUTRISHA_STORAGE_MAX_BLOB_SIZE"),
			Destination: &x.maxBlobSize,
		},
	}
}

// Configure returns the attachment resolver and a closer for the underlying
// client. The resolver is nil when storage is disabled.
func (x *Storage) Configure(ctx context.Context) (*attachment.Resolver, func(), error) {
	var (
		blobs  interfaces.BlobStore
		closer = func() {}
	)

	switch x.backend {
	case "none", "":
		logging.Default().Info("Attachment storage disabled")
		return nil, closer, nil

	case "memory":
		logging.Default().Info("Using in-memory attachment storage (development mode)")
		blobs = storage.NewMemory(x.bucket)

	case "gcs":
		if x.bucket == "" {
			return nil, closer, goerr.Wrap(ErrMissingValue, "storage-bucket is required when using gcs backend",
				goerr.V(FlagKey, "storage-bucket"))
		}
		gcs, err := storage.NewGCS(ctx, x.bucket, nil)
		if err != nil {
			return nil, closer, goerr.Wrap(err, "failed to initialize GCS storage")
		}
		closer = func() {
			if err := gcs.Close(); err != nil {
				logging.Default().Error("failed to close GCS client", "error", err.Error())
			}
		}
		blobs = gcs
		logging.Default().Info("Using GCS attachment storage", "bucket", x.bucket, "container", x.container)

	default:
		return nil, closer, goerr.Wrap(ErrInvalidBackend, "invalid storage backend", goerr.V(BackendKey, x.backend))
	}

	resolver := attachment.New(blobs,
		attachment.WithContainer(x.container),
		attachment.WithMaxBlobSize(int64(x.maxBlobSize)),
	)
	return resolver, closer, nil
}
