package ingest

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/recon_backend/models"
)

var (
	// ErrInvalidType rejects a submission before any job is persisted or any
	// worker dispatched.
	ErrInvalidType = errors.New("invalid source type")

	// ErrNoFiles rejects an empty submission.
	ErrNoFiles = errors.New("no files submitted")

	// ErrEmptySheet means the first worksheet decoded but had no rows at all.
	ErrEmptySheet = errors.New("first sheet has no rows")

	// ErrUnknownTarget means the source type has no registered staging table.
	ErrUnknownTarget = errors.New("no destination table registered for source type")
)

// ParseError wraps a spreadsheet that could not be decoded. Unrecoverable;
// the upload is marked failed.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot decode spreadsheet: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LoadError reports a partial ingestion: batches 1..N-1 stayed committed, the
// failing batch and everything after it were abandoned.
type LoadError struct {
	RowsCommitted int
	Err           error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load aborted after %d rows committed: %v", e.RowsCommitted, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ProcessedSummary is what a completed load reports back onto the upload job.
type ProcessedSummary struct {
	RowsInserted    int      `json:"rows_inserted"`
	UnmappedColumns []string `json:"unmapped_columns,omitempty"`
}

// SubmittedFile is an already-saved upload handed to the supervisor.
type SubmittedFile struct {
	Filename string
	Path     string
	Size     int64
}

type jobPayload struct {
	UploadId      int
	Filename      string
	FilePath      string
	SourceType    models.SourceType
	CorrelationId string
}

// workerResult is the exactly-one terminal message a worker reports back to
// the supervisor for its job.
type workerResult struct {
	UploadId      int
	SourceType    models.SourceType
	Status        models.UploadStatus
	Message       string
	Summary       *ProcessedSummary
	CorrelationId string
}
