package postgres

import (
	"context"
	"errors"
	"fmt"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCameraRepository reads camera records from the dashboard
// database. This core never writes; the CRUD API owns the table.
type PostgresCameraRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCameraRepository(ctx context.Context, dsn string, maxConns int) (*PostgresCameraRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse metadata dsn: %w", err)
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to metadata database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping metadata database: %w", err)
	}

	return &PostgresCameraRepository{pool: pool}, nil
}

const cameraColumns = `id, division_name, district_name, work_id,
	COALESCE(rtsp_url, ''), COALESCE(rtmp_url, ''), status, last_updated`

func (r *PostgresCameraRepository) GetByID(ctx context.Context, id domain.CameraID) (*domain.Camera, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+cameraColumns+` FROM cameras WHERE id = $1`, string(id))

	cam, err := scanCamera(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCameraNotFound
		}
		return nil, fmt.Errorf("query camera %s: %w", id, err)
	}
	return cam, nil
}

func (r *PostgresCameraRepository) List(ctx context.Context) ([]*domain.Camera, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cameraColumns+` FROM cameras ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer rows.Close()

	var cameras []*domain.Camera
	for rows.Next() {
		cam, err := scanCamera(rows)
		if err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		cameras = append(cameras, cam)
	}
	return cameras, rows.Err()
}

func (r *PostgresCameraRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresCameraRepository) Close() {
	r.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCamera(row rowScanner) (*domain.Camera, error) {
	cam := &domain.Camera{}
	var id string
	err := row.Scan(&id, &cam.DivisionName, &cam.DistrictName, &cam.WorkID,
		&cam.RtspURL, &cam.RtmpURL, &cam.Status, &cam.LastUpdated)
	if err != nil {
		return nil, err
	}
	cam.ID = domain.CameraID(id)
	return cam, nil
}

var _ ports.CameraRepository = (*PostgresCameraRepository)(nil)
