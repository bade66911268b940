package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RawInsertBatchSize bounds how many spreadsheet rows go into one bulk INSERT.
// Chosen to bound peak memory and per-statement payload size while amortizing
// round-trip overhead.
//
// Set via env:
// - RAW_INSERT_BATCH_SIZE (default 1000)
func RawInsertBatchSize() int {
	v := strings.TrimSpace(os.Getenv("RAW_INSERT_BATCH_SIZE"))
	if v == "" {
		return 1000
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 1000
	}
	return n
}

// UploadWatchdogTimeout is how long a job may sit in `processing` before the
// supervisor assumes its worker died and marks it failed.
//
// Set via env:
// - UPLOAD_WATCHDOG_TIMEOUT_MINUTES (default 30)
func UploadWatchdogTimeout() time.Duration {
	v := strings.TrimSpace(os.Getenv("UPLOAD_WATCHDOG_TIMEOUT_MINUTES"))
	if v == "" {
		return 30 * time.Minute
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(n) * time.Minute
}

// ArchiveUploadsToGCS enables copying ingested files into the GCS bucket after
// a successful load. Local disk remains the source of truth either way.
//
// Set via env:
// - ARCHIVE_UPLOADS_TO_GCS=true
func ArchiveUploadsToGCS() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ARCHIVE_UPLOADS_TO_GCS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
