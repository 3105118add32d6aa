package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/abduss/artifactdrive/internal/apperr"
)

// Object is an opened blob. Body must be closed by the caller.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// Gateway stores and fetches blobs in a single bucket, addressed by storage key.
type Gateway struct {
	client client
	bucket string
	logger *zap.Logger
}

// NewGateway constructs a gateway bound to bucket.
func NewGateway(c client, bucket string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		client: c,
		bucket: bucket,
		logger: logger.With(zap.String("component", "objectstore"), zap.String("bucket", bucket)),
	}
}

// Put uploads size bytes from r under key. A negative size streams until EOF.
func (g *Gateway) Put(ctx context.Context, r io.Reader, size int64, key, contentType string) error {
	if r == nil {
		g.logger.Error("invalid stream provided for upload", zap.String("key", key))
		return apperr.Internal(nil, "Invalid file stream")
	}
	if size == 0 {
		g.logger.Error("empty stream provided for upload", zap.String("key", key))
		return apperr.Internal(nil, "File is empty")
	}
	if err := ctx.Err(); err != nil {
		return apperr.Internal(err, "Upload cancelled")
	}

	info, err := g.client.PutObject(ctx, g.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		g.logger.Error("upload object", zap.String("key", key), zap.String("code", errorCode(err)), zap.Error(err))
		return apperr.Internal(err, "Failed to upload file")
	}

	g.logger.Info("uploaded object", zap.String("key", key), zap.Int64("size", info.Size))
	return nil
}

// Get opens the blob stored under key.
func (g *Gateway) Get(ctx context.Context, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, apperr.Internal(err, "Download cancelled")
	}

	info, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			g.logger.Warn("object not found", zap.String("key", key))
			return Object{}, apperr.NotFound("File not found")
		}
		g.logger.Error("stat object", zap.String("key", key), zap.String("code", errorCode(err)), zap.Error(err))
		return Object{}, apperr.Internal(err, "Failed to download file")
	}
	if info.Size == 0 {
		g.logger.Warn("empty object in store", zap.String("key", key))
		return Object{}, apperr.Internal(nil, "File is empty")
	}

	body, err := g.client.GetObject(ctx, g.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return Object{}, apperr.NotFound("File not found")
		}
		g.logger.Error("get object", zap.String("key", key), zap.Error(err))
		return Object{}, apperr.Internal(err, "Failed to download file")
	}

	g.logger.Debug("opened object", zap.String("key", key), zap.Int64("size", info.Size))
	return Object{Body: body, Size: info.Size, ContentType: info.ContentType}, nil
}

// Delete removes the blob under key.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	if err := g.client.RemoveObject(ctx, g.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		g.logger.Error("delete object", zap.String("key", key), zap.String("code", errorCode(err)), zap.Error(err))
		return apperr.Internal(err, "Failed to delete file")
	}
	g.logger.Info("deleted object", zap.String("key", key))
	return nil
}

// Exists reports whether a blob is stored under key.
func (g *Gateway) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := g.client.StatObject(ctx, g.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		g.logger.Error("check object existence", zap.String("key", key), zap.Error(err))
		return false, apperr.Internal(err, "Failed to check file existence")
	}
	return true, nil
}

// PresignGet returns a time-limited download URL that saves the blob as filename.
func (g *Gateway) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	params := make(url.Values)
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, ttl, params)
	if err != nil {
		g.logger.Error("presign object", zap.String("key", key), zap.Error(err))
		return "", apperr.Internal(err, "Failed to create download link")
	}
	return u.String(), nil
}

// Ping verifies the bucket is reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	ok, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", g.bucket)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

func errorCode(err error) string {
	return minio.ToErrorResponse(err).Code
}
