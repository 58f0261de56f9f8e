package port

import (
	"context"

	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
)

// Identifier probes a media file without decoding frames and reports what it
// found. Fields the decoder could not determine stay at their zero value;
// only a file the decoder cannot open at all is an error.
type Identifier interface {
	Identify(ctx context.Context, path string) (*entity.MediaRecord, error)
}
