package main

import (
	"context"
	"net/http"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/fpingest/internal/ingestion"
	"github.com/your-org/fpingest/pkg/config"
	"github.com/your-org/fpingest/pkg/kafka"
	"github.com/your-org/fpingest/pkg/storage/objectstore"
)

// ingestFlags override the matching INGEST_* settings when given.
type ingestFlags struct {
	dumpPath    string
	endpoint    string
	codeVersion string
}

func (f *ingestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dumpPath, "file", "f", "", "path to the JSON dump (default $INGEST_DUMP_PATH)")
	cmd.Flags().StringVarP(&f.endpoint, "endpoint", "e", "", "ingest endpoint URL (default $INGEST_ENDPOINT)")
	cmd.Flags().StringVar(&f.codeVersion, "code-version", "", "fingerprint code version sent with every record (default $INGEST_CODE_VERSION)")
}

func (f *ingestFlags) apply(cmd *cobra.Command, cfg *config.IngestConfig) {
	if cmd.Flags().Changed("file") {
		cfg.DumpPath = f.dumpPath
	}
	if cmd.Flags().Changed("endpoint") {
		cfg.Endpoint = f.endpoint
	}
	if cmd.Flags().Changed("code-version") {
		cfg.CodeVersion = f.codeVersion
	}
}

func runIngest(ctx context.Context, a *app) error {
	service, err := newIngestionService(a.cfg, a.logger)
	if err != nil {
		a.logger.Error("init ingestion", zap.Error(err))
		return err
	}
	defer func() {
		if err := service.Close(context.Background()); err != nil {
			a.logger.Error("service shutdown failed", zap.Error(err))
		}
	}()

	summary, err := service.Run(ctx)
	fields := []zap.Field{
		zap.Int("total", summary.Total),
		zap.Int("submitted", summary.Submitted),
		zap.Duration("elapsed", summary.Elapsed),
	}
	if err != nil {
		a.logger.Error("ingestion failed", append(fields, zap.Error(err))...)
		return err
	}
	if summary.Archived != "" {
		fields = append(fields, zap.String("archived", summary.Archived))
	}
	a.logger.Info("ingestion finished", fields...)
	return nil
}

func newIngestionService(cfg *config.Config, logr *zap.Logger) (*ingestion.Service, error) {
	store, err := objectstore.New(objectstore.Config{
		Provider:  cfg.Storage.Provider,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	params := ingestion.Params{
		DumpPath:      cfg.Ingest.DumpPath,
		CodeVersion:   cfg.Ingest.CodeVersion,
		Submitter:     ingestion.NewSubmitter(&http.Client{Timeout: cfg.Ingest.RequestTimeout}, cfg.Ingest.Endpoint),
		Store:         store,
		ArchivePrefix: cfg.Storage.Prefix,
		Logger:        logr,
	}
	if cfg.Kafka.Enabled() {
		params.Publisher = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.SubmissionTopic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  cfg.Kafka.Retries,
		})
	}

	return ingestion.NewService(params), nil
}
