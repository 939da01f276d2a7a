package recordings

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore reads recorded footage from object storage. The recorder
// writes segments under "{cameraID}/{startUnix}_{endUnix}.mp4"; this
// store only lists and reads them.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(cfg config.RecordingsConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// FindSegments lists the camera's prefix and returns segments whose
// recorded interval overlaps [start, end), ordered by start time. Keys
// that do not follow the recorder's naming scheme are skipped.
func (s *MinIOStore) FindSegments(ctx context.Context, cameraID domain.CameraID, start, end time.Time) ([]domain.RecordingSegment, error) {
	prefix := string(cameraID) + "/"

	var segments []domain.RecordingSegment
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list recordings %s: %w", prefix, obj.Err)
		}

		segStart, segEnd, ok := parseSegmentKey(obj.Key)
		if !ok {
			continue
		}
		if !segEnd.After(start) || !segStart.Before(end) {
			continue
		}

		segments = append(segments, domain.RecordingSegment{
			CameraID: cameraID,
			Key:      obj.Key,
			Start:    segStart,
			End:      segEnd,
			Size:     obj.Size,
		})
	}

	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Start.Before(segments[j].Start)
	})
	return segments, nil
}

// OpenSegment streams one segment's bytes.
func (s *MinIOStore) OpenSegment(ctx context.Context, seg domain.RecordingSegment) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, seg.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get recording %s: %w", seg.Key, err)
	}
	return obj, nil
}

// Ping checks object storage connectivity.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// parseSegmentKey extracts the recorded interval from a key shaped like
// "{cameraID}/{startUnix}_{endUnix}.mp4".
func parseSegmentKey(key string) (start, end time.Time, ok bool) {
	name := strings.TrimSuffix(path.Base(key), ".mp4")
	if name == path.Base(key) {
		return time.Time{}, time.Time{}, false
	}

	parts := strings.SplitN(name, "_", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, false
	}

	startUnix, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	endUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	if endUnix <= startUnix {
		return time.Time{}, time.Time{}, false
	}

	return time.Unix(startUnix, 0).UTC(), time.Unix(endUnix, 0).UTC(), true
}

var _ ports.RecordingStore = (*MinIOStore)(nil)
