package events

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/notification"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/storage"
)

const objectCreatedEvent = "s3:ObjectCreated:*"

// ContentEvent reports that a content snapshot was published to the bucket.
type ContentEvent struct {
	Content   domain.ContentRef
	ObjectKey string
	EventName string
}

type ContentEventSource interface {
	Run(ctx context.Context, handler func(context.Context, ContentEvent) error) error
}

type MinioContentEventSource struct {
	client *minio.Client
	bucket string
}

func NewMinioContentEventSource(client *minio.Client, bucket string) *MinioContentEventSource {
	return &MinioContentEventSource{client: client, bucket: bucket}
}

// Run blocks until ctx is done or the handler fails. Keys outside the
// content layout are skipped.
func (s *MinioContentEventSource) Run(ctx context.Context, handler func(context.Context, ContentEvent) error) error {
	notificationCh := s.client.ListenBucketNotification(ctx, s.bucket, storage.ContentPrefix, "", []string{objectCreatedEvent})
	return drain(ctx, notificationCh, handler)
}

func drain(ctx context.Context, notificationCh <-chan notification.Info, handler func(context.Context, ContentEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-notificationCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream closed")
			}
			if info.Err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream error: %w", info.Err)
			}
			for _, record := range info.Records {
				event, ok := contentEventFrom(record)
				if !ok {
					continue
				}
				if err := handler(ctx, event); err != nil {
					return err
				}
			}
		}
	}
}

func contentEventFrom(record notification.Event) (ContentEvent, bool) {
	objectKey, err := decodeObjectKey(record.S3.Object.Key)
	if err != nil {
		return ContentEvent{}, false
	}
	ref, ok := storage.ParseContentKey(objectKey)
	if !ok {
		return ContentEvent{}, false
	}
	return ContentEvent{Content: ref, ObjectKey: objectKey, EventName: record.EventName}, true
}

func decodeObjectKey(encoded string) (string, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", err
	}
	decoded = strings.TrimSpace(decoded)
	if decoded == "" {
		return "", fmt.Errorf("object key is empty")
	}
	return decoded, nil
}
