package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/internal/service"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
	"github.com/noah-isme/studytrack-api/pkg/response"
)

type holidayService interface {
	List(ctx context.Context, req service.HolidayListRequest) ([]models.Holiday, error)
	Set(ctx context.Context, req service.HolidayRequest) (*models.Holiday, error)
	Delete(ctx context.Context, date string) error
}

// HolidayHandler exposes the holiday calendar.
type HolidayHandler struct {
	service holidayService
}

// NewHolidayHandler constructs the handler.
func NewHolidayHandler(service holidayService) *HolidayHandler {
	return &HolidayHandler{service: service}
}

// List godoc
// @Summary List holidays
// @Tags Holidays
// @Produce json
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /holidays [get]
func (h *HolidayHandler) List(c *gin.Context) {
	var req service.HolidayListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	holidays, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// Set godoc
// @Summary Mark a date as a holiday
// @Tags Holidays
// @Accept json
// @Produce json
// @Param payload body service.HolidayRequest true "Holiday"
// @Success 200 {object} response.Envelope
// @Router /holidays [put]
func (h *HolidayHandler) Set(c *gin.Context) {
	var req service.HolidayRequest
	if err := bindJSON(c, &req, "invalid holiday payload"); err != nil {
		response.Error(c, err)
		return
	}
	holiday, err := h.service.Set(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holiday, nil)
}

// Delete godoc
// @Summary Remove a holiday
// @Tags Holidays
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 204
// @Router /holidays/{date} [delete]
func (h *HolidayHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("date")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
