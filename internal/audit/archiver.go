package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leadrouting_backend/platform/config"
	"leadrouting_backend/platform/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const archivePageSize = 1000

// archiveStore is the subset of the repository the archiver needs.
type archiveStore interface {
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Event, error)
	DeleteThrough(ctx context.Context, maxID int64, cutoff time.Time) (int64, error)
}

// Archiver moves audit events past the retention window into object
// storage as JSON-lines objects, then prunes them from the hot table.
// Events are deleted only after the object write succeeded, so a failed
// archive run never loses trail entries.
type Archiver struct {
	store  archiveStore
	client *minio.Client
	bucket string
	keep   time.Duration
	log    *logger.Logger
}

// NewArchiver creates an archiver against MinIO-compatible object storage.
func NewArchiver(store *Repository, cfg config.AuditArchiveConfig, log *logger.Logger) (*Archiver, error) {
	if !cfg.IsAuditArchiveEnabled() {
		return nil, fmt.Errorf("audit archive is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	return &Archiver{
		store:  store,
		client: client,
		bucket: cfg.GetAuditArchiveBucket(),
		keep:   cfg.GetAuditRetention(),
		log:    log,
	}, nil
}

// EnsureBucketExists creates the archive bucket if it doesn't exist.
func (a *Archiver) EnsureBucketExists(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// Run archives and prunes expired events in pages until none remain.
// Returns the number of archived events.
func (a *Archiver) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-a.keep)
	archived := 0

	for {
		events, err := a.store.ListBefore(ctx, cutoff, archivePageSize)
		if err != nil {
			return archived, err
		}
		if len(events) == 0 {
			return archived, nil
		}

		if err := a.writeObject(ctx, events); err != nil {
			return archived, err
		}

		maxID := events[len(events)-1].ID
		if _, err := a.store.DeleteThrough(ctx, maxID, cutoff); err != nil {
			return archived, err
		}

		archived += len(events)
		a.log.Info("audit events archived", "count", len(events), "through_id", maxID)
	}
}

func (a *Archiver) writeObject(ctx context.Context, events []Event) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, event := range events {
		if err := encoder.Encode(event); err != nil {
			return err
		}
	}

	key := fmt.Sprintf("audit/%s/events-%d-%d.jsonl",
		events[0].CreatedAt.UTC().Format("2006-01"), events[0].ID, events[len(events)-1].ID)

	_, err := a.client.PutObject(ctx, a.bucket, key, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	if err != nil {
		return fmt.Errorf("failed to store archive object %s: %w", key, err)
	}
	return nil
}
