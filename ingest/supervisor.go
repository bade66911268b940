package ingest

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("recon-ingest")

// jobStore is the slice of upload-job persistence the supervisor needs.
// Swappable so supervisor tests run without MySQL.
type jobStore interface {
	Create(ctx context.Context, job *models.UploadJob) error
	MarkProcessing(ctx context.Context, id int) error
	MarkTerminal(ctx context.Context, id int, status models.UploadStatus, message string, processedSummary []byte) (bool, error)
	FailStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormJobStore struct{}

func (gormJobStore) Create(ctx context.Context, job *models.UploadJob) error {
	return models.CreateUploadJob(ctx, job)
}

func (gormJobStore) MarkProcessing(ctx context.Context, id int) error {
	return models.MarkUploadProcessing(ctx, id)
}

func (gormJobStore) MarkTerminal(ctx context.Context, id int, status models.UploadStatus, message string, processedSummary []byte) (bool, error) {
	return models.MarkUploadTerminal(ctx, id, status, message, processedSummary)
}

func (gormJobStore) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return models.FailStaleUploads(ctx, cutoff)
}

// Supervisor owns upload jobs: it persists them, dispatches one worker
// goroutine per file, and is the single consumer of worker terminal reports.
// Callers never block on ingestion completion.
type Supervisor struct {
	logger  *logrus.Logger
	loader  *Loader
	store   jobStore
	results chan workerResult
	quit    chan struct{}

	watchdogEvery time.Duration
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		logger:        config.GetLogger(),
		loader:        NewLoader(),
		store:         gormJobStore{},
		results:       make(chan workerResult, 64),
		quit:          make(chan struct{}),
		watchdogEvery: time.Minute,
	}
}

// Submit validates the submission, persists one job per file, and dispatches
// workers fire-and-forget. The returned ids are the caller's only handle; the
// jobs finish in the background in no guaranteed order.
func (s *Supervisor) Submit(ctx context.Context, files []SubmittedFile, sourceType string) ([]int, error) {
	st, err := models.ParseSourceType(sourceType)
	if err != nil {
		return nil, ErrInvalidType
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	ids := make([]int, 0, len(files))
	for _, file := range files {
		job := &models.UploadJob{
			Filename:   file.Filename,
			Filepath:   file.Path,
			Filesize:   file.Size,
			SourceType: st,
		}
		if err := s.store.Create(ctx, job); err != nil {
			return nil, err
		}
		ids = append(ids, job.ID)

		go s.runWorker(jobPayload{
			UploadId:      job.ID,
			Filename:      file.Filename,
			FilePath:      file.Path,
			SourceType:    st,
			CorrelationId: correlationId,
		})
	}
	return ids, nil
}

// Run consumes worker terminal reports and drives the watchdog. Start it once
// from main; it exits when ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.watchdogEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Unblock in-flight workers still trying to report; their jobs
			// are recovered by the watchdog on the next start.
			close(s.quit)
			return
		case result := <-s.results:
			s.applyTerminal(result)
		case <-ticker.C:
			cutoff := time.Now().Add(-config.UploadWatchdogTimeout())
			if n, err := s.store.FailStale(context.Background(), cutoff); err != nil {
				config.LogError(s.logger, "supervisor.go", "Run", "FailStale", nil, err)
			} else if n > 0 {
				s.logger.WithFields(logrus.Fields{
					"jobs": n,
				}).Warn("[upload.watchdog] failed stale processing jobs")
			}
		}
	}
}

// applyTerminal persists exactly one terminal transition per job; a duplicate
// report (e.g. watchdog already failed the job) matches nothing and is only
// logged.
func (s *Supervisor) applyTerminal(result workerResult) {
	ctx := context.Background()

	var summaryJSON []byte
	rowsInserted := 0
	if result.Summary != nil {
		summaryJSON, _ = json.Marshal(result.Summary)
		rowsInserted = result.Summary.RowsInserted
	}

	applied, err := s.store.MarkTerminal(ctx, result.UploadId, result.Status, result.Message, summaryJSON)
	if err != nil {
		config.LogError(s.logger, "supervisor.go", "applyTerminal", "MarkTerminal", result.UploadId, err)
		return
	}
	if !applied {
		s.logger.WithFields(logrus.Fields{
			"upload_id": result.UploadId,
			"status":    result.Status,
		}).Warn("[upload.terminal] dropped duplicate terminal transition")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"upload_id":      result.UploadId,
		"source_type":    result.SourceType,
		"status":         result.Status,
		"rows_inserted":  rowsInserted,
		"correlation_id": result.CorrelationId,
	}).Info("[upload.terminal]")

	config.PublishUploadStatus(ctx, config.UploadStatusMessage{
		UploadId:      result.UploadId,
		SourceType:    string(result.SourceType),
		Status:        string(result.Status),
		Message:       result.Message,
		RowsInserted:  rowsInserted,
		FinishedAt:    time.Now().UTC(),
		CorrelationId: result.CorrelationId,
	})
}
