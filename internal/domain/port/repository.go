package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
}
