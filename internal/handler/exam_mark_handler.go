package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studytrack-api/internal/service"
	"github.com/noah-isme/studytrack-api/pkg/response"
)

type examMarkService interface {
	List(ctx context.Context, subject string) ([]service.ExamMarkView, error)
	Get(ctx context.Context, id int64) (*service.ExamMarkView, error)
	Create(ctx context.Context, req service.CreateExamMarkRequest) (*service.ExamMarkView, error)
	Update(ctx context.Context, id int64, req service.UpdateExamMarkRequest) (*service.ExamMarkView, error)
	Delete(ctx context.Context, id int64) error
}

// ExamMarkHandler exposes exam results.
type ExamMarkHandler struct {
	service examMarkService
}

// NewExamMarkHandler constructs the handler.
func NewExamMarkHandler(service examMarkService) *ExamMarkHandler {
	return &ExamMarkHandler{service: service}
}

// List godoc
// @Summary List exam marks
// @Tags ExamMarks
// @Produce json
// @Param subject query string false "Subject"
// @Success 200 {object} response.Envelope
// @Router /exam-marks [get]
func (h *ExamMarkHandler) List(c *gin.Context) {
	marks, err := h.service.List(c.Request.Context(), c.Query("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

// Get godoc
// @Summary Get an exam mark
// @Tags ExamMarks
// @Produce json
// @Param id path int true "Exam mark ID"
// @Success 200 {object} response.Envelope
// @Router /exam-marks/{id} [get]
func (h *ExamMarkHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	mark, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Create godoc
// @Summary Record an exam mark
// @Tags ExamMarks
// @Accept json
// @Produce json
// @Param payload body service.CreateExamMarkRequest true "Exam mark"
// @Success 201 {object} response.Envelope
// @Router /exam-marks [post]
func (h *ExamMarkHandler) Create(c *gin.Context) {
	var req service.CreateExamMarkRequest
	if err := bindJSON(c, &req, "invalid exam mark payload"); err != nil {
		response.Error(c, err)
		return
	}
	mark, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mark)
}

// Update godoc
// @Summary Edit an exam mark
// @Tags ExamMarks
// @Accept json
// @Produce json
// @Param id path int true "Exam mark ID"
// @Param payload body service.UpdateExamMarkRequest true "Scores"
// @Success 200 {object} response.Envelope
// @Router /exam-marks/{id} [put]
func (h *ExamMarkHandler) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateExamMarkRequest
	if err := bindJSON(c, &req, "invalid exam mark payload"); err != nil {
		response.Error(c, err)
		return
	}
	mark, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Delete godoc
// @Summary Delete an exam mark
// @Tags ExamMarks
// @Param id path int true "Exam mark ID"
// @Success 204
// @Router /exam-marks/{id} [delete]
func (h *ExamMarkHandler) Delete(c *gin.Context) {
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
