package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"content-review-orchestrator/internal/domain"
	"content-review-orchestrator/internal/review"
)

const (
	ContentPrefix   = "content/"
	contentExt      = ".html"
	titleMetaKey    = "Title"
	maxContentBytes = 8 << 20
)

var _ review.ContentProvider = (*MinioContentStore)(nil)

// MinioContentStore serves content snapshots stored as
// content/<type>/<id>.html objects. The title travels as user metadata.
type MinioContentStore struct {
	client *minio.Client
	bucket string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func NewMinioClient(cfg MinioConfig) (*minio.Client, error) {
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
}

func NewMinioContentStore(ctx context.Context, cfg MinioConfig) (*MinioContentStore, error) {
	client, err := NewMinioClient(cfg)
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinioContentStore{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinioContentStore) Client() *minio.Client {
	return m.client
}

func (m *MinioContentStore) Bucket() string {
	return m.bucket
}

func ContentKey(ref domain.ContentRef) string {
	return path.Join("content", ref.Type, ref.ID+contentExt)
}

// ParseContentKey is the inverse of ContentKey.
func ParseContentKey(key string) (domain.ContentRef, bool) {
	rest, ok := strings.CutPrefix(key, ContentPrefix)
	if !ok {
		return domain.ContentRef{}, false
	}
	contentType, file, ok := strings.Cut(rest, "/")
	if !ok || contentType == "" || strings.Contains(file, "/") {
		return domain.ContentRef{}, false
	}
	id, ok := strings.CutSuffix(file, contentExt)
	if !ok || id == "" {
		return domain.ContentRef{}, false
	}
	return domain.ContentRef{ID: id, Type: contentType}, true
}

func (m *MinioContentStore) PutContent(ctx context.Context, detail domain.ContentDetail) (string, error) {
	key := ContentKey(detail.Ref)
	body := []byte(detail.Body)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  "text/html; charset=utf-8",
		UserMetadata: map[string]string{titleMetaKey: detail.Title},
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

func (m *MinioContentStore) ContentDetail(ctx context.Context, ref domain.ContentRef) (domain.ContentDetail, error) {
	key := ContentKey(ref)
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return domain.ContentDetail{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return domain.ContentDetail{}, &domain.NotFoundError{Kind: "content", ID: ref.String()}
		}
		return domain.ContentDetail{}, fmt.Errorf("stat %s: %w", key, err)
	}
	if info.Size > maxContentBytes {
		return domain.ContentDetail{}, fmt.Errorf("content %s is %d bytes, limit is %d", ref, info.Size, maxContentBytes)
	}

	data := new(bytes.Buffer)
	if _, err := data.ReadFrom(obj); err != nil {
		return domain.ContentDetail{}, fmt.Errorf("read object: %w", err)
	}
	return domain.ContentDetail{
		Ref:   ref,
		Title: info.UserMetadata[titleMetaKey],
		Body:  data.String(),
	}, nil
}
