package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/internal/service"
	"github.com/noah-isme/studytrack-api/pkg/response"
)

type timetableService interface {
	Get(ctx context.Context) (models.WeeklyTimetable, error)
	Save(ctx context.Context, table models.WeeklyTimetable) (models.WeeklyTimetable, error)
	Today(ctx context.Context, date string) (*models.TodayTimetable, error)
	AddEntry(ctx context.Context, day string, req service.TimetableEntryRequest) (*models.TimetableEntry, error)
	UpdateEntry(ctx context.Context, day, id string, req service.TimetableEntryRequest, cascadeRename bool) (*models.TimetableEntry, int, error)
	DeleteEntry(ctx context.Context, day, id string) error
	ClearDay(ctx context.Context, day string) error
}

// TimetableHandler exposes the weekly timetable.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(service timetableService) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// Get godoc
// @Summary Weekly timetable
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	table, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, table, nil)
}

// Save godoc
// @Summary Replace the weekly timetable
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body models.WeeklyTimetable true "Timetable"
// @Success 200 {object} response.Envelope
// @Router /timetable [put]
func (h *TimetableHandler) Save(c *gin.Context) {
	var table models.WeeklyTimetable
	if err := bindJSON(c, &table, "invalid timetable payload"); err != nil {
		response.Error(c, err)
		return
	}
	saved, err := h.service.Save(c.Request.Context(), table)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, saved, nil)
}

// Today godoc
// @Summary Classes of a day with their attendance state
// @Tags Timetable
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD), today when empty"
// @Success 200 {object} response.Envelope
// @Router /timetable/today [get]
func (h *TimetableHandler) Today(c *gin.Context) {
	today, err := h.service.Today(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, today, nil)
}

// AddEntry godoc
// @Summary Add a class slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param day path string true "Weekday"
// @Param payload body service.TimetableEntryRequest true "Slot"
// @Success 201 {object} response.Envelope
// @Router /timetable/{day}/entries [post]
func (h *TimetableHandler) AddEntry(c *gin.Context) {
	var req service.TimetableEntryRequest
	if err := bindJSON(c, &req, "invalid timetable entry"); err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.service.AddEntry(c.Request.Context(), c.Param("day"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// UpdateEntry godoc
// @Summary Edit a class slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param day path string true "Weekday"
// @Param id path string true "Entry ID"
// @Param cascade query bool false "Rename the subject in every slot"
// @Param payload body service.TimetableEntryRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Router /timetable/{day}/entries/{id} [put]
func (h *TimetableHandler) UpdateEntry(c *gin.Context) {
	var req service.TimetableEntryRequest
	if err := bindJSON(c, &req, "invalid timetable entry"); err != nil {
		response.Error(c, err)
		return
	}
	entry, renamed, err := h.service.UpdateEntry(c.Request.Context(), c.Param("day"), c.Param("id"), req, boolQuery(c, "cascade", false))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil, map[string]interface{}{"renamed_entries": renamed})
}

// DeleteEntry godoc
// @Summary Delete a class slot
// @Tags Timetable
// @Param day path string true "Weekday"
// @Param id path string true "Entry ID"
// @Success 204
// @Router /timetable/{day}/entries/{id} [delete]
func (h *TimetableHandler) DeleteEntry(c *gin.Context) {
	if err := h.service.DeleteEntry(c.Request.Context(), c.Param("day"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClearDay godoc
// @Summary Remove every slot of a day
// @Tags Timetable
// @Param day path string true "Weekday"
// @Success 204
// @Router /timetable/{day} [delete]
func (h *TimetableHandler) ClearDay(c *gin.Context) {
	if err := h.service.ClearDay(c.Request.Context(), c.Param("day")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
