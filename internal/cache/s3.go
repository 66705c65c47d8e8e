package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/report-board/internal/models"
)

// S3Options - параметры хранилища снимков в MinIO/S3.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// S3Snapshots хранит снимки объектами <prefix><view>.json в бакете.
type S3Snapshots struct {
	client *mclient.Client
	bucket string
	prefix string
}

// NewS3Snapshots создаёт клиент MinIO и проверяет наличие бакета.
// Схема в endpoint определяет Secure и отбрасывается.
func NewS3Snapshots(ctx context.Context, opts S3Options) (*S3Snapshots, error) {
	const op = "cache.s3.NewS3Snapshots"

	endpoint := opts.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, opts.Bucket)
	}

	return &S3Snapshots{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// ObjectKey возвращает ключ объекта снимка.
func (s *S3Snapshots) ObjectKey(view models.ViewID) string {
	return s.prefix + string(view) + ".json"
}

// Save заменяет объект снимка. PutObject публикует объект целиком.
func (s *S3Snapshots) Save(ctx context.Context, view models.ViewID, doc []byte) error {
	const op = "cache.s3.Save"

	_, err := s.client.PutObject(ctx, s.bucket, s.ObjectKey(view),
		bytes.NewReader(doc), int64(len(doc)),
		mclient.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Load читает объект снимка; отсутствие объекта - не ошибка.
func (s *S3Snapshots) Load(ctx context.Context, view models.ViewID) ([]byte, bool, error) {
	const op = "cache.s3.Load"

	obj, err := s.client.GetObject(ctx, s.bucket, s.ObjectKey(view), mclient.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	defer obj.Close()

	// GetObject ленивый: ошибка отсутствия объекта приходит при чтении.
	doc, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return doc, true, nil
}

func isNoSuchKey(err error) bool {
	errResp := mclient.ToErrorResponse(err)
	return errResp.Code == "NoSuchKey" || errResp.StatusCode == http.StatusNotFound
}

var _ SnapshotSink = (*S3Snapshots)(nil)
