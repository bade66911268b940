package main

import (
	"errors"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const sheetDateLayout = "2006-01-02"

type sheetDataQuery struct {
	Category   string `form:"category" binding:"required"`
	StartDate  string `form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate    string `form:"end_date" binding:"required,datetime=2006-01-02"`
	StoreCodes string `form:"store_codes"`
}

func bindingErrorResponse(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": utils.ProcessValidationErrors(err),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

// sheetDataHandler serves the categorized reconciliation views.
// Query params: category (required), start_date, end_date (YYYY-MM-DD,
// required), store_codes (comma-separated, optional).
func sheetDataHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var query sheetDataQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			bindingErrorResponse(c, err)
			return
		}

		startDate, _ := time.Parse(sheetDateLayout, query.StartDate)
		endDate, _ := time.Parse(sheetDateLayout, query.EndDate)
		if endDate.Before(startDate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date is before start_date"})
			return
		}

		storeCodes := utils.UniqueSlice(utils.SplitAndTrim(query.StoreCodes))

		rows, err := models.QuerySheetData(c.Request.Context(), models.SheetCategory(query.Category), startDate, endDate, storeCodes)
		if err != nil {
			if errors.Is(err, models.ErrInvalidCategory) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data":  rows,
			"count": len(rows),
		})
	}
}

// rebuildSheetDataHandler re-derives the five category tables from the
// reconciliation summary. The rebuild runs inline; callers are internal ops
// tooling that wants the result before returning.
func rebuildSheetDataHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, span := tracer.Start(c.Request.Context(), "sheetdata.rebuild")
		defer span.End()

		started := time.Now()
		if err := models.RebuildSheetData(ctx); err != nil {
			span.RecordError(err)
			config.LogError(logger, "sheetdata.go", "rebuildSheetDataHandler", "RebuildSheetData", nil, err)
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}

		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"duration_ms":    time.Since(started).Milliseconds(),
			"correlation_id": cid,
		}).Info("[reconcile.rebuild]")

		c.JSON(http.StatusOK, gin.H{
			"status":         "rebuilt",
			"duration_ms":    time.Since(started).Milliseconds(),
			"correlation_id": cid,
		})
	}
}
