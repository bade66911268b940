package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
)

// runWorker processes one upload job to completion and reports exactly one
// terminal result on the supervisor's results channel. A panic anywhere in
// the load is converted into a failed result rather than taking the process
// down with it.
func (s *Supervisor) runWorker(payload jobPayload) {
	result := workerResult{
		UploadId:      payload.UploadId,
		SourceType:    payload.SourceType,
		CorrelationId: payload.CorrelationId,
	}

	defer func() {
		if r := recover(); r != nil {
			config.LogError(s.logger, "worker.go", "runWorker", "panic", payload, fmt.Errorf("%v", r))
			s.logger.Error(string(debug.Stack()))
			result.Status = models.UploadStatusFailed
			result.Message = fmt.Sprintf("worker panicked: %v", r)
			result.Summary = nil
		}
		// Never block on a stopped supervisor; the watchdog fails the job on
		// the next start instead.
		select {
		case s.results <- result:
		case <-s.quit:
		}
	}()

	ctx := utils.SetCorrelationIdInContext(context.Background(), payload.CorrelationId)

	if err := s.store.MarkProcessing(ctx, payload.UploadId); err != nil {
		result.Status = models.UploadStatusFailed
		result.Message = fmt.Sprintf("cannot mark processing: %v", err)
		return
	}

	fileBytes, err := os.ReadFile(payload.FilePath)
	if err != nil {
		result.Status = models.UploadStatusFailed
		result.Message = fmt.Sprintf("cannot read uploaded file: %v", err)
		return
	}

	loadCtx, span := tracer.Start(ctx, "ingest.load")
	summary, err := s.loader.Load(loadCtx, payload.SourceType, fileBytes)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
	if err != nil {
		result.Status = models.UploadStatusFailed
		result.Message = err.Error()

		// A partial load leaves its committed batches in place; surface the
		// count on the job so operators know what survived.
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Summary = &ProcessedSummary{RowsInserted: loadErr.RowsCommitted}
		}
		return
	}

	if config.ArchiveUploadsToGCS() {
		objectName := fmt.Sprintf("uploads/%s/%s", payload.SourceType, filepath.Base(payload.FilePath))
		if err := utils.ArchiveFileToGCS(ctx, objectName, payload.FilePath); err != nil {
			config.LogError(s.logger, "worker.go", "runWorker", "ArchiveFileToGCS", payload.UploadId, err)
		}
	}

	result.Status = models.UploadStatusCompleted
	result.Message = fmt.Sprintf("inserted %d rows", summary.RowsInserted)
	result.Summary = summary
}
