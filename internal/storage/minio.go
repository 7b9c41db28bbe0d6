package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/your-org/deckwatch/internal/config"
)

// FrameStore keeps the JPEG frames the ingestor captures, one object per
// analysed frame under frames/<stream>/<frame>.jpg. Table updates
// reference frames by key and the API proxies the bytes back out for
// display; the store itself never interprets image content.
type FrameStore struct {
	client *minio.Client
	bucket string
}

func NewFrameStore(cfg config.MinIOConfig) (*FrameStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &FrameStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// FrameKey is the object key for one captured frame.
func FrameKey(streamID, frameID uuid.UUID) string {
	return fmt.Sprintf("frames/%s/%s.jpg", streamID, frameID)
}

func framePrefix(streamID uuid.UUID) string {
	return fmt.Sprintf("frames/%s/", streamID)
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *FrameStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// PutFrame stores one captured JPEG and returns its object key.
func (s *FrameStore) PutFrame(ctx context.Context, streamID, frameID uuid.UUID, jpegData []byte) (string, error) {
	key := FrameKey(streamID, frameID)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(jpegData), int64(len(jpegData)),
		minio.PutObjectOptions{ContentType: "image/jpeg"})
	if err != nil {
		return "", fmt.Errorf("store frame %s: %w", key, err)
	}
	return key, nil
}

// GetFrame returns the JPEG bytes stored under a frame key.
func (s *FrameStore) GetFrame(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get frame %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read frame %s: %w", key, err)
	}
	return data, nil
}

type frameObject struct {
	Key          string
	LastModified time.Time
}

// staleFrameKeys picks the frames to delete so that at most keep of the
// newest remain. Ordering goes by upload time: frame names are random
// UUIDs, so key order says nothing about age.
func staleFrameKeys(objs []frameObject, keep int) []string {
	if keep < 0 {
		keep = 0
	}
	if len(objs) <= keep {
		return nil
	}

	sorted := make([]frameObject, len(objs))
	copy(sorted, objs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LastModified.Before(sorted[j].LastModified)
	})

	stale := make([]string, 0, len(sorted)-keep)
	for _, obj := range sorted[:len(sorted)-keep] {
		stale = append(stale, obj.Key)
	}
	return stale
}

// TrimFrames deletes a stream's oldest frames beyond the keep count and
// reports how many were removed. Frames referenced by recent table
// updates survive as long as keep covers the update retention window.
func (s *FrameStore) TrimFrames(ctx context.Context, streamID uuid.UUID, keep int) (int, error) {
	prefix := framePrefix(streamID)

	var objs []frameObject
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("list frames %s: %w", prefix, obj.Err)
		}
		objs = append(objs, frameObject{Key: obj.Key, LastModified: obj.LastModified})
	}

	stale := staleFrameKeys(objs, keep)
	if len(stale) == 0 {
		return 0, nil
	}

	if err := s.removeKeys(ctx, stale); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// DeleteStreamFrames removes every stored frame for a stream, e.g. when
// the stream itself is deleted.
func (s *FrameStore) DeleteStreamFrames(ctx context.Context, streamID uuid.UUID) (int, error) {
	return s.TrimFrames(ctx, streamID, 0)
}

func (s *FrameStore) removeKeys(ctx context.Context, keys []string) error {
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	for result := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			return fmt.Errorf("delete frame %s: %w", result.ObjectName, result.Err)
		}
	}
	return nil
}

// Ping checks MinIO connectivity.
func (s *FrameStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
