package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"gorm.io/gorm"
)

// UploadJob tracks one uploaded file through ingestion. Exactly one job maps
// to one physical file and one worker execution.
type UploadJob struct {
	ID               int          `gorm:"primary_key" json:"id"`
	Filename         string       `gorm:"size:255;not null" json:"filename"`
	Filepath         string       `gorm:"size:512;not null" json:"filepath"`
	Filesize         int64        `gorm:"not null;default:0" json:"filesize"`
	SourceType       SourceType   `gorm:"size:64;not null;index" json:"source_type"`
	Status           UploadStatus `gorm:"size:32;not null;index;default:'uploaded'" json:"status"`
	Message          string       `gorm:"type:text" json:"message"`
	ProcessedSummary []byte       `gorm:"type:json;default:null" json:"processed_summary"`
	CreatedAt        time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func CreateUploadJob(ctx context.Context, job *UploadJob) error {
	db := config.GetDB()
	job.Status = UploadStatusUploaded
	return db.WithContext(ctx).Create(job).Error
}

func GetUploadJob(ctx context.Context, id int) (*UploadJob, error) {
	db := config.GetDB()
	var job UploadJob
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &job, nil
}

// MarkUploadProcessing moves a job from uploaded to processing. A job already
// past uploaded is left alone (the worker was dispatched twice somehow).
func MarkUploadProcessing(ctx context.Context, id int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&UploadJob{}).
		Where("id = ? AND status = ?", id, UploadStatusUploaded).
		Update("status", UploadStatusProcessing).Error
}

// MarkUploadTerminal applies exactly one terminal transition. The WHERE on
// non-terminal statuses is the guard: a second terminal report for the same
// job matches zero rows and is dropped.
func MarkUploadTerminal(ctx context.Context, id int, status UploadStatus, message string, processedSummary []byte) (bool, error) {
	if !status.IsTerminal() {
		return false, errors.New("status is not terminal")
	}
	db := config.GetDB()
	updates := map[string]interface{}{
		"status":  status,
		"message": message,
	}
	if processedSummary != nil {
		updates["processed_summary"] = processedSummary
	}
	result := db.WithContext(ctx).Model(&UploadJob{}).
		Where("id = ? AND status IN ?", id, []UploadStatus{UploadStatusUploaded, UploadStatusProcessing}).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FailStaleUploads is the supervisor watchdog: jobs stuck in processing past
// the cutoff are assumed to have lost their worker and are failed in bulk.
func FailStaleUploads(ctx context.Context, cutoff time.Time) (int64, error) {
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&UploadJob{}).
		Where("status = ? AND updated_at < ?", UploadStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":  UploadStatusFailed,
			"message": "processing timed out; worker presumed dead",
		})
	return result.RowsAffected, result.Error
}

type UploadJobFilter struct {
	Status     *UploadStatus
	SourceType *SourceType
}

type PaginatedUploadJobs struct {
	Uploads  []*UploadJob `json:"uploads"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

func ListUploadJobs(ctx context.Context, page int, pageSize int, filter UploadJobFilter) (*PaginatedUploadJobs, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&UploadJob{})
	if filter.Status != nil {
		dbCtx = dbCtx.Where("status = ?", *filter.Status)
	}
	if filter.SourceType != nil {
		dbCtx = dbCtx.Where("source_type = ?", *filter.SourceType)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, err
	}

	var uploads []*UploadJob
	if err := dbCtx.Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&uploads).Error; err != nil {
		return nil, err
	}

	return &PaginatedUploadJobs{
		Uploads:  uploads,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
