package main

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/ingest"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxUploadSizeBytes int64 = 50 * 1024 * 1024

var spreadsheetExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xls":  true,
}

func uploadDir() string {
	if v := strings.TrimSpace(os.Getenv("UPLOAD_DIR")); v != "" {
		return v
	}
	return os.TempDir()
}

// uploadHandler accepts one or more spreadsheets under the multipart field
// "files" plus a "source_type" form value, saves them to local disk, and hands
// them to the supervisor. It responds as soon as the jobs are persisted; the
// ingestion itself finishes in the background.
func uploadHandler(supervisor *ingest.Supervisor) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		sourceType := strings.TrimSpace(c.PostForm("source_type"))
		if sourceType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "source_type is required"})
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart request"})
			return
		}
		fileHeaders := form.File["files"]
		if len(fileHeaders) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least one file is required"})
			return
		}

		files := make([]ingest.SubmittedFile, 0, len(fileHeaders))
		for _, fh := range fileHeaders {
			if fh.Size > maxUploadSizeBytes {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 50MB limit: " + fh.Filename})
				return
			}
			ext := strings.ToLower(filepath.Ext(fh.Filename))
			if !spreadsheetExtensions[ext] {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type: " + fh.Filename})
				return
			}

			dst := filepath.Join(uploadDir(), utils.GenerateUniqueFilename()+ext)
			if err := c.SaveUploadedFile(fh, dst); err != nil {
				config.LogError(logger, "uploads.go", "uploadHandler", "SaveUploadedFile", fh.Filename, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save uploaded file"})
				return
			}
			files = append(files, ingest.SubmittedFile{
				Filename: fh.Filename,
				Path:     dst,
				Size:     fh.Size,
			})
		}

		ids, err := supervisor.Submit(c.Request.Context(), files, sourceType)
		if err != nil {
			if errors.Is(err, ingest.ErrInvalidType) || errors.Is(err, ingest.ErrNoFiles) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			config.LogError(logger, "uploads.go", "uploadHandler", "Submit", sourceType, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit upload"})
			return
		}

		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"source_type":    sourceType,
			"files":          len(files),
			"upload_ids":     ids,
			"correlation_id": cid,
		}).Info("[upload.submit]")

		c.JSON(http.StatusAccepted, gin.H{
			"upload_ids":     ids,
			"source_type":    sourceType,
			"correlation_id": cid,
		})
	}
}

type listUploadsQuery struct {
	Page       int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
	Status     string `form:"status"`
	SourceType string `form:"source_type"`
}

func listUploadsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var query listUploadsQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			bindingErrorResponse(c, err)
			return
		}

		var filter models.UploadJobFilter
		if v := strings.TrimSpace(query.Status); v != "" {
			status, err := models.ParseUploadStatus(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filter.Status = &status
		}
		if v := strings.TrimSpace(query.SourceType); v != "" {
			sourceType, err := models.ParseSourceType(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filter.SourceType = &sourceType
		}

		result, err := models.ListUploadJobs(c.Request.Context(), query.Page, query.PageSize, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func getUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
			return
		}

		job, err := models.GetUploadJob(c.Request.Context(), id)
		if err != nil {
			c.JSON(uploadLookupStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": job})
	}
}

// uploadLookupStatus maps a job lookup failure to a response code: only a
// missing row is 404, anything else is a server-side failure.
func uploadLookupStatus(err error) int {
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
