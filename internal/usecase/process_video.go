package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
	"github.com/likevi9528/vcs-capture-service/internal/domain/port"
	"github.com/likevi9528/vcs-capture-service/internal/infra/metrics"
	"github.com/likevi9528/vcs-capture-service/internal/infra/tempfiles"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessVideoUseCase runs the full capture pipeline for one inbound message:
// download, identify with both probes, reconcile, schedule, capture, bundle,
// upload, publish. Files are processed one at a time; within a file every
// capture runs strictly in sequence.
type ProcessVideoUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	primary   port.Identifier
	secondary port.Identifier
	capturer  port.Capturer
	zipper    port.Zipper
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	cfg       ProcessVideoConfig
}

type ProcessVideoConfig struct {
	TempDir    string
	MaxRetries int

	// Default schedule policy, overridable per message. Interval > 0 wins
	// over Count.
	Interval       float64
	Count          int
	HighlightCount int
	EndOffset      string

	EvasionEnabled   bool
	BlankLowPercent  float64
	BlankHighPercent float64

	InconsistencyThreshold float64
	QuirksMaxRewindSecs    float64
	QuirksProbeStepSecs    float64

	// ActivePrimary is true when the capture adapter shares a decoder with
	// the primary identifier.
	ActivePrimary bool
}

func NewProcessVideoUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	primary port.Identifier,
	secondary port.Identifier,
	capturer port.Capturer,
	zipper port.Zipper,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		repo:      repo,
		storage:   storage,
		primary:   primary,
		secondary: secondary,
		capturer:  capturer,
		zipper:    zipper,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
	}
}

func (uc *ProcessVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.CaptureRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.capturePipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *ProcessVideoUseCase) capturePipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.CaptureRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from MinIO
	dlStart := time.Now()
	ctxDl, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input.vid")
	if err := uc.storage.DownloadVideo(ctxDl, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Identify with both probes and reconcile into the canonical record
	idStart := time.Now()
	ctxID, spanID := tracer.Start(ctx, "identify")
	record, quirks, err := uc.identify(ctxID, videoPath, log)
	spanID.End()
	if err != nil {
		log.Error("identification failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "identify: "+err.Error(), log)
	}
	metrics.JobProcessingDuration.WithLabelValues("identify").Observe(time.Since(idStart).Seconds())

	// Schedule capture timestamps
	timestamps, highlights, err := uc.schedule(record.Duration, msg, log)
	if err != nil {
		log.Error("scheduling failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "schedule: "+err.Error(), log)
	}

	// Capture every still, strictly in sequence
	capStart := time.Now()
	ctxCap, spanCap := tracer.Start(ctx, "capture_stills")
	stills, err := uc.captureAll(ctxCap, videoPath, workDir, record.Duration, timestamps, highlights, log)
	spanCap.End()
	if err != nil {
		log.Error("capture failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "capture: "+err.Error(), log)
	}
	metrics.JobProcessingDuration.WithLabelValues("capture").Observe(time.Since(capStart).Seconds())

	// Bundle the stills
	zipStart := time.Now()
	ctxZip, spanZip := tracer.Start(ctx, "create_zip")
	zipPath := filepath.Join(workDir, "stills.zip")
	if err := uc.zipper.CreateZip(ctxZip, stills, zipPath); err != nil {
		spanZip.End()
		log.Error("zip creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_zip: "+err.Error(), log)
	}
	spanZip.End()
	metrics.JobProcessingDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	// Upload to MinIO
	upStart := time.Now()
	ctxUp, spanUp := tracer.Start(ctx, "upload_stills")
	stillsKey := fmt.Sprintf("%s/stills_%s.zip", msg.UserID, job.ID.String())
	zipFile, err := os.Open(zipPath)
	if err != nil {
		spanUp.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "open_zip: "+err.Error(), log)
	}
	zipStat, _ := zipFile.Stat()
	if err := uc.storage.UploadStills(ctxUp, stillsKey, zipFile, zipStat.Size()); err != nil {
		zipFile.Close()
		spanUp.End()
		log.Error("stills upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_stills: "+err.Error(), log)
	}
	zipFile.Close()
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	job.MarkCompleted(stillsKey, len(stills), record.Duration, quirks.Enabled)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("capture_count", len(stills)),
		zap.Float64("duration_secs", record.Duration),
		zap.Bool("quirks", quirks.Enabled),
		zap.String("stills_key", stillsKey),
	)

	return nil
}

// identify runs both probes and reconciles their records. The secondary
// identifier is optional; its outright failure downgrades to a warning.
func (uc *ProcessVideoUseCase) identify(ctx context.Context, videoPath string, log *zap.Logger) (*entity.MediaRecord, *entity.QuirksState, error) {
	primaryRec, err := uc.primary.Identify(ctx, videoPath)
	if err != nil {
		log.Warn("primary identifier failed", zap.Error(err))
		primaryRec = nil
	}

	var secondaryRec *entity.MediaRecord
	if uc.secondary != nil {
		secondaryRec, err = uc.secondary.Identify(ctx, videoPath)
		if err != nil {
			log.Warn("secondary identifier failed", zap.Error(err))
			secondaryRec = nil
		}
	}

	quirks := entity.NewQuirksState(uc.cfg.QuirksMaxRewindSecs, uc.cfg.QuirksProbeStepSecs)

	measurer := NewLengthMeasurer(uc.capturer, log)
	reconciler := NewReconciler(uc.capturer, measurer, ReconcilerConfig{
		InconsistencyThreshold: uc.cfg.InconsistencyThreshold,
		ActivePrimary:          uc.cfg.ActivePrimary,
	}, log)

	record, decisions, err := reconciler.Reconcile(ctx, videoPath, primaryRec, secondaryRec, quirks)
	if err != nil {
		return nil, nil, err
	}
	if quirks.Enabled {
		metrics.QuirksEnabledTotal.Inc()
	}
	for _, d := range decisions {
		log.Info("reconcile decision", zap.String("decision", string(d)))
	}

	return record, quirks, nil
}

// schedule builds the standard timestamp set plus the optional highlight set.
// The two sets stay separate; highlight positions that coincide with standard
// ones are served from the capture cache, not re-decoded. Message fields
// override the worker defaults.
func (uc *ProcessVideoUseCase) schedule(duration float64, msg entity.CaptureRequestMessage, log *zap.Logger) ([]float64, []float64, error) {
	scheduler := NewScheduler(log)

	offsetSpec := uc.cfg.EndOffset
	explicit := false
	if msg.EndOffset != "" {
		offsetSpec = msg.EndOffset
		explicit = true
	}
	offset, err := ParseEndOffset(offsetSpec, explicit)
	if err != nil {
		return nil, nil, err
	}

	req := ScheduleRequest{
		Duration:             duration,
		From:                 msg.From,
		To:                   msg.To,
		EndOffset:            offset,
		Interval:             uc.cfg.Interval,
		Count:                uc.cfg.Count,
		Manual:               msg.ManualTimestamps,
		MillisecondPrecision: uc.capturer.MillisecondPrecision(),
	}
	switch {
	case msg.Interval > 0:
		req.Interval, req.Count = msg.Interval, 0
	case msg.Count > 0:
		req.Interval, req.Count = 0, msg.Count
	}

	timestamps, err := scheduler.Build(req)
	if err != nil {
		return nil, nil, err
	}

	var highlights []float64
	if uc.cfg.HighlightCount > 0 {
		hlReq := req
		hlReq.Interval = 0
		hlReq.Count = uc.cfg.HighlightCount
		hlReq.Manual = nil
		highlights, err = scheduler.Build(hlReq)
		if err != nil {
			log.Warn("highlight schedule failed, skipping", zap.Error(err))
			highlights = nil
		}
	}

	log.Info("capture schedule built",
		zap.Int("timestamps", len(timestamps)),
		zap.Int("highlights", len(highlights)),
	)
	return timestamps, highlights, nil
}

// captureAll drives one capture engine over the standard schedule and then
// the highlight schedule, naming each still by the timestamp actually used.
// Highlight positions shared with the standard set come out of the engine's
// cache without a second decode.
func (uc *ProcessVideoUseCase) captureAll(
	ctx context.Context,
	videoPath, workDir string,
	duration float64,
	timestamps, highlights []float64,
	log *zap.Logger,
) ([]string, error) {
	scratch, err := tempfiles.NewRegistry(filepath.Join(workDir, "scratch"))
	if err != nil {
		return nil, err
	}
	defer scratch.Drain()

	stillsDir := filepath.Join(workDir, "stills")
	if err := os.MkdirAll(stillsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create stills dir: %w", err)
	}

	engine := NewCaptureEngine(uc.capturer, scratch, duration, CaptureEngineConfig{
		BlankLowPercent:  uc.cfg.BlankLowPercent,
		BlankHighPercent: uc.cfg.BlankHighPercent,
	}, log)

	capture := func(ts float64, prefix string) (string, error) {
		artifact, effective, err := engine.CaptureAt(ctx, videoPath, ts, uc.cfg.EvasionEnabled)
		if err != nil {
			return "", fmt.Errorf("capture at %.3fs: %w", ts, err)
		}

		// The display label derives from the effective timestamp, not the
		// requested one.
		name := fmt.Sprintf("%s%010.3f.png", prefix, effective)
		dest := filepath.Join(stillsDir, name)
		if err := os.Rename(artifact, dest); err != nil {
			return "", fmt.Errorf("move still: %w", err)
		}
		return dest, nil
	}

	// Two requests can evade to the same effective position; the second
	// overwrite is harmless but must not produce a duplicate zip entry.
	var stills []string
	seen := make(map[string]bool)
	add := func(ts float64, prefix string) error {
		dest, err := capture(ts, prefix)
		if err != nil {
			return err
		}
		if !seen[dest] {
			seen[dest] = true
			stills = append(stills, dest)
		}
		return nil
	}

	for _, ts := range timestamps {
		if err := add(ts, "still_"); err != nil {
			return nil, err
		}
	}
	for _, ts := range highlights {
		if err := add(ts, "highlight_"); err != nil {
			return nil, err
		}
	}
	return stills, nil
}

func (uc *ProcessVideoUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.CaptureRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessVideoUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.CaptureRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *ProcessVideoUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.CaptureStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		VideoKey:     job.VideoKey,
		StillsKey:    job.StillsKey,
		CaptureCount: job.CaptureCount,
		Duration:     job.VideoDuration,
		QuirksUsed:   job.QuirksUsed,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
