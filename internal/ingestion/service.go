package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/fpingest/pkg/storage/objectstore"
)

const tracerName = "github.com/your-org/fpingest/internal/ingestion"

// Publisher receives an event for every accepted record.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value []byte, headers map[string]string) error
	Close(ctx context.Context) error
}

// Service replays an echoprint dump against an ingest endpoint.
type Service struct {
	dumpPath      string
	codeVersion   string
	submitter     *Submitter
	publisher     Publisher
	store         objectstore.Client
	archivePrefix string
	logger        *zap.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

type Params struct {
	DumpPath    string
	CodeVersion string
	Submitter   *Submitter

	// Publisher and Store are optional.
	Publisher     Publisher
	Store         objectstore.Client
	ArchivePrefix string

	Logger *zap.Logger
	Tracer trace.Tracer
}

// Summary describes how far a run got. Submitted counts records the
// endpoint accepted; Published counts events sent for them, which can lag
// by one when a publish fails.
type Summary struct {
	Total     int
	Submitted int
	Published int
	Archived  string
	Elapsed   time.Duration
}

// NewService constructs an ingestion Service.
func NewService(p Params) *Service {
	s := &Service{
		dumpPath:      p.DumpPath,
		codeVersion:   p.CodeVersion,
		submitter:     p.Submitter,
		publisher:     p.Publisher,
		store:         p.Store,
		archivePrefix: p.ArchivePrefix,
		logger:        p.Logger,
		tracer:        p.Tracer,
		now:           time.Now,
	}
	if s.codeVersion == "" {
		s.codeVersion = DefaultCodeVersion
	}
	if s.submitter == nil {
		s.submitter = NewSubmitter(nil, DefaultEndpoint)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Run loads the dump and submits every entry in order. It stops at the
// first failure; the returned Summary still counts what was sent.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	ctx, span := s.tracer.Start(ctx, "ingestion.Run", trace.WithAttributes(
		attribute.String("dump.path", s.dumpPath),
		attribute.String("ingest.endpoint", s.submitter.Endpoint()),
	))
	defer span.End()

	start := s.now()
	summary, err := s.run(ctx)
	summary.Elapsed = s.now().Sub(start)

	span.SetAttributes(
		attribute.Int("records.total", summary.Total),
		attribute.Int("records.submitted", summary.Submitted),
		attribute.Int("records.published", summary.Published),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return summary, err
}

func (s *Service) run(ctx context.Context) (Summary, error) {
	var summary Summary

	entries, err := LoadDump(s.dumpPath)
	if err != nil {
		return summary, err
	}
	summary.Total = len(entries)

	s.logger.Info("ingestion started",
		zap.String("dump", s.dumpPath),
		zap.String("endpoint", s.submitter.Endpoint()),
		zap.Int("records", summary.Total),
	)

	for i, raw := range entries {
		if err := ctx.Err(); err != nil {
			return summary, &RecordError{Index: i, Err: err}
		}

		rec, err := ExtractRecord(raw, s.codeVersion)
		if err != nil {
			return summary, &RecordError{Index: i, Err: err}
		}

		status, err := s.submit(ctx, i, rec)
		if err != nil {
			return summary, &RecordError{Index: i, Err: err}
		}
		summary.Submitted++

		if s.publisher == nil {
			continue
		}
		if err := s.publish(ctx, i, rec, status); err != nil {
			return summary, &RecordError{Index: i, Err: err}
		}
		summary.Published++
	}

	if objectstore.Enabled(s.store) {
		key, err := s.archive(ctx, summary.Total)
		if err != nil {
			return summary, fmt.Errorf("archive dump: %w", err)
		}
		summary.Archived = key
	}

	return summary, nil
}

func (s *Service) submit(ctx context.Context, index int, rec Record) (int, error) {
	ctx, span := s.tracer.Start(ctx, "ingestion.Submit", trace.WithAttributes(
		attribute.Int("record.index", index),
		attribute.String("record.artist", rec.Artist),
		attribute.String("record.track", rec.Track),
	))
	defer span.End()

	status, err := s.submitter.Submit(ctx, rec)
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return status, err
	}

	s.logger.Debug("record submitted",
		zap.Int("index", index),
		zap.Int("code_bytes", len(rec.Code)),
		zap.String("artist", rec.Artist),
		zap.String("track", rec.Track),
		zap.Int("status", status),
	)
	return status, nil
}

func (s *Service) publish(ctx context.Context, index int, rec Record, status int) error {
	ctx, span := s.tracer.Start(ctx, "ingestion.Publish", trace.WithAttributes(
		attribute.Int("record.index", index),
	))
	defer span.End()

	event := SubmissionEvent{
		ID:          uuid.NewString(),
		Index:       index,
		Code:        rec.Code,
		Version:     rec.Version,
		Length:      rec.Length.String(),
		Artist:      rec.Artist,
		Track:       rec.Track,
		Endpoint:    s.submitter.Endpoint(),
		StatusCode:  status,
		SubmittedAt: s.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal submission event: %w", err)
	}

	headers := map[string]string{
		"event_id":     event.ID,
		"event_type":   submissionEventType,
		"code_version": rec.Version,
	}
	if err := s.publisher.Publish(ctx, []byte(event.ID), payload, headers); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish submission event: %w", err)
	}
	return nil
}

// archive copies the dump into the object store under
// <prefix>/YYYY/MM/DD/<file name>.
func (s *Service) archive(ctx context.Context, records int) (string, error) {
	f, err := os.Open(s.dumpPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	key := path.Join(s.archivePrefix, s.now().UTC().Format("2006/01/02"), filepath.Base(s.dumpPath))
	metadata := map[string]string{
		"records":      strconv.Itoa(records),
		"code_version": s.codeVersion,
	}
	if err := s.store.Put(ctx, key, f, info.Size(), metadata); err != nil {
		return "", err
	}

	s.logger.Info("dump archived", zap.String("key", key), zap.Int64("size_bytes", info.Size()))
	return key, nil
}

// Close releases the HTTP client and any configured sinks.
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	if s.submitter != nil {
		s.submitter.Close()
	}
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close(ctx))
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
