package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studytrack-api/internal/middleware"
	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/internal/service"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
	"github.com/noah-isme/studytrack-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, req service.MarkAttendanceRequest) (*service.MarkResult, error)
	Update(ctx context.Context, id int64, req service.UpdateAttendanceRequest) (*models.AttendanceRecord, error)
	Archive(ctx context.Context, id int64) (*models.AttendanceRecord, error)
	Restore(ctx context.Context, id int64) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.AttendanceRecord, error)
	List(ctx context.Context, req service.AttendanceListRequest) ([]models.AttendanceRecord, *models.Pagination, error)
	ListArchived(ctx context.Context, search string) ([]models.AttendanceRecord, error)
	ListForDate(ctx context.Context, date string) (*service.DayAttendance, error)
	Summary(ctx context.Context) (*models.AttendanceSummary, error)
	SubjectSummary(ctx context.Context, subject string) (*models.SubjectAggregate, error)
	SetAdjustment(ctx context.Context, subject string, req service.SetAdjustmentRequest) (*models.SubjectAggregate, error)
	ClearAdjustment(ctx context.Context, subject string) error
}

// AttendanceHandler exposes attendance records and their aggregates.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler builds a new handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param subject query string false "Subject"
// @Param status query string false "Status"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Param archived query bool false "Archived records instead of active ones"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var req service.AttendanceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	records, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Mark godoc
// @Summary Mark attendance for a class
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := bindJSON(c, &req, "invalid attendance payload"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Mark(c.Request.Context(), req)
	if err != nil {
		if result != nil && result.Conflict != nil && errors.Is(err, appErrors.ErrConflict) {
			response.ErrorWithMeta(c, err, map[string]interface{}{
				"existing_id":     result.Conflict.ID,
				"existing_status": result.Conflict.Status,
			})
			return
		}
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.Outcome == service.MarkOutcomeCreated {
		status = http.StatusCreated
	}
	meta := map[string]interface{}{"outcome": result.Outcome}
	if result.Conflict != nil {
		meta["existing_id"] = result.Conflict.ID
	}
	response.JSON(c, status, result.Record, nil, meta)
}

// Archived godoc
// @Summary List archived attendance records
// @Tags Attendance
// @Produce json
// @Param search query string false "Subject search"
// @Success 200 {object} response.Envelope
// @Router /attendance/archived [get]
func (h *AttendanceHandler) Archived(c *gin.Context) {
	records, err := h.service.ListArchived(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ForDate godoc
// @Summary Attendance and holiday for a date
// @Tags Attendance
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/date/{date} [get]
func (h *AttendanceHandler) ForDate(c *gin.Context) {
	day, err := h.service.ListForDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// Summary godoc
// @Summary Attendance aggregate per subject and overall
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// SubjectSummary godoc
// @Summary Attendance aggregate for one subject
// @Tags Attendance
// @Produce json
// @Param subject path string true "Subject"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary/{subject} [get]
func (h *AttendanceHandler) SubjectSummary(c *gin.Context) {
	agg, err := h.service.SubjectSummary(c.Request.Context(), c.Param("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, agg, nil)
}

// Get godoc
// @Summary Get attendance record
// @Tags Attendance
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Update godoc
// @Summary Edit status and multiplier of a record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Param payload body service.UpdateAttendanceRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [patch]
func (h *AttendanceHandler) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateAttendanceRequest
	if err := bindJSON(c, &req, "invalid attendance payload"); err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Archive godoc
// @Summary Archive an attendance record
// @Tags Attendance
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/archive [post]
func (h *AttendanceHandler) Archive(c *gin.Context) {
	h.toggleArchive(c, h.service.Archive)
}

// Restore godoc
// @Summary Restore an archived attendance record
// @Tags Attendance
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/restore [post]
func (h *AttendanceHandler) Restore(c *gin.Context) {
	h.toggleArchive(c, h.service.Restore)
}

func (h *AttendanceHandler) toggleArchive(c *gin.Context, fn func(context.Context, int64) (*models.AttendanceRecord, error)) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := fn(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Permanently delete an attendance record
// @Tags Attendance
// @Param id path int true "Record ID"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetAdjustment godoc
// @Summary Override the displayed counts of a subject
// @Tags Attendance
// @Accept json
// @Produce json
// @Param subject path string true "Subject"
// @Param payload body service.SetAdjustmentRequest true "Target counts"
// @Success 200 {object} response.Envelope
// @Router /attendance/adjustments/{subject} [put]
func (h *AttendanceHandler) SetAdjustment(c *gin.Context) {
	var req service.SetAdjustmentRequest
	if err := bindJSON(c, &req, "invalid adjustment payload"); err != nil {
		response.Error(c, err)
		return
	}
	agg, err := h.service.SetAdjustment(c.Request.Context(), c.Param("subject"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, agg, nil)
}

// ClearAdjustment godoc
// @Summary Remove the count override of a subject
// @Tags Attendance
// @Param subject path string true "Subject"
// @Success 204
// @Router /attendance/adjustments/{subject} [delete]
func (h *AttendanceHandler) ClearAdjustment(c *gin.Context) {
	if err := h.service.ClearAdjustment(c.Request.Context(), c.Param("subject")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
