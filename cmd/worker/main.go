package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
	"github.com/likevi9528/vcs-capture-service/internal/domain/port"
	"github.com/likevi9528/vcs-capture-service/internal/infra/config"
	"github.com/likevi9528/vcs-capture-service/internal/infra/email"
	"github.com/likevi9528/vcs-capture-service/internal/infra/ffmpeg"
	"github.com/likevi9528/vcs-capture-service/internal/infra/metrics"
	miniostorage "github.com/likevi9528/vcs-capture-service/internal/infra/minio"
	"github.com/likevi9528/vcs-capture-service/internal/infra/mplayer"
	"github.com/likevi9528/vcs-capture-service/internal/infra/postgres"
	"github.com/likevi9528/vcs-capture-service/internal/infra/rabbitmq"
	"github.com/likevi9528/vcs-capture-service/internal/infra/tracing"
	"github.com/likevi9528/vcs-capture-service/internal/usecase"
	"github.com/likevi9528/vcs-capture-service/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting vcs-capture-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()
	fatalOnErr(postgres.EnsureSchema(ctx, pool), "ensure schema")

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:     cfg.MinIOEndpoint,
		AccessKey:    cfg.MinIOAccessKey,
		SecretKey:    cfg.MinIOSecretKey,
		UseSSL:       cfg.MinIOUseSSL,
		UploadBucket: cfg.MinIOUploadBucket,
		StillsBucket: cfg.MinIOStillsBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Decoder adapters. The capture adapter is selected once into a typed
	// value; nothing downstream ever dispatches on its name.
	decoderTimeout := time.Duration(cfg.DecoderTimeoutSecs) * time.Second
	primary := ffmpeg.NewIdentifier(decoderTimeout, log)

	var secondary port.Identifier
	if cfg.SecondaryIdentify {
		secondary = mplayer.NewIdentifier(decoderTimeout, log)
	}

	capturer, activePrimary, err := selectCapturer(cfg.CaptureAdapter, decoderTimeout, log)
	fatalOnErr(err, "select capture adapter")

	repo := postgres.NewJobRepository(pool)
	zipper := ffmpeg.NewZipCreator()
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	// Use case
	uc := usecase.NewProcessVideoUseCase(
		repo, storage, primary, secondary, capturer, zipper,
		statusPub, dlqPub, notifier,
		log,
		usecase.ProcessVideoConfig{
			TempDir:                cfg.TempDir,
			MaxRetries:             cfg.MaxRetries,
			Interval:               cfg.CaptureInterval,
			Count:                  cfg.CaptureCount,
			HighlightCount:         cfg.HighlightCount,
			EndOffset:              cfg.EndOffset,
			EvasionEnabled:         cfg.EvasionEnabled,
			BlankLowPercent:        cfg.BlankLowPercent,
			BlankHighPercent:       cfg.BlankHighPercent,
			InconsistencyThreshold: cfg.InconsistencyThreshold,
			QuirksMaxRewindSecs:    cfg.QuirksMaxRewindSecs,
			QuirksProbeStepSecs:    cfg.QuirksProbeStepSecs,
			ActivePrimary:          activePrimary,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQCaptureQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("vcs-capture-service started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("vcs-capture-service stopped")
}

// selectCapturer resolves the configured capture adapter name once at
// startup. The second return is true when the adapter shares a decoder with
// the primary identifier.
func selectCapturer(name string, timeout time.Duration, log *zap.Logger) (port.Capturer, bool, error) {
	switch name {
	case "ffmpeg":
		return ffmpeg.NewCapturer(timeout, log), true, nil
	case "mplayer":
		return mplayer.NewCapturer(timeout, log), false, nil
	default:
		return nil, false, fmt.Errorf("%w: %q", entity.ErrAdapterUnavailable, name)
	}
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
