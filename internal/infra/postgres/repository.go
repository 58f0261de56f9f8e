package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// EnsureSchema creates the jobs table if it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS capture_jobs (
			id             UUID PRIMARY KEY,
			user_id        TEXT NOT NULL,
			video_key      TEXT NOT NULL,
			stills_key     TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL,
			capture_count  INT NOT NULL DEFAULT 0,
			file_size      BIGINT NOT NULL DEFAULT 0,
			video_duration DOUBLE PRECISION NOT NULL DEFAULT 0,
			quirks_used    BOOLEAN NOT NULL DEFAULT FALSE,
			attempt        INT NOT NULL DEFAULT 0,
			max_attempts   INT NOT NULL DEFAULT 0,
			error_message  TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL,
			completed_at   TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO capture_jobs (
			id, user_id, video_key, stills_key, status, capture_count,
			file_size, video_duration, quirks_used, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, job.StillsKey, string(job.Status),
		job.CaptureCount, job.FileSize, job.VideoDuration, job.QuirksUsed,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE capture_jobs SET
			status=$2, stills_key=$3, capture_count=$4, video_duration=$5,
			quirks_used=$6, attempt=$7, error_message=$8, updated_at=$9,
			completed_at=$10
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.StillsKey, job.CaptureCount,
		job.VideoDuration, job.QuirksUsed, job.Attempt, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, user_id, video_key, stills_key, status, capture_count,
			file_size, video_duration, quirks_used, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		FROM capture_jobs WHERE id=$1`

	job := &entity.Job{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoKey, &job.StillsKey, &status,
		&job.CaptureCount, &job.FileSize, &job.VideoDuration, &job.QuirksUsed,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}
