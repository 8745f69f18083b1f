package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studytrack-api/internal/service"
	"github.com/noah-isme/studytrack-api/pkg/response"
)

type subjectRegistry interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, name string) (string, error)
	Rename(ctx context.Context, req service.RenameSubjectRequest) (*service.RenameSubjectResult, error)
	Remove(ctx context.Context, name string) (int, error)
}

// AddSubjectRequest names a new subject.
type AddSubjectRequest struct {
	Name string `json:"name" binding:"required"`
}

// SubjectHandler exposes the subject registry.
type SubjectHandler struct {
	registry subjectRegistry
}

// NewSubjectHandler constructs the handler.
func NewSubjectHandler(registry subjectRegistry) *SubjectHandler {
	return &SubjectHandler{registry: registry}
}

// List godoc
// @Summary List known subjects
// @Tags Subjects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	subjects, err := h.registry.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Add godoc
// @Summary Add a subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body AddSubjectRequest true "Subject"
// @Success 201 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Add(c *gin.Context) {
	var req AddSubjectRequest
	if err := bindJSON(c, &req, "invalid subject payload"); err != nil {
		response.Error(c, err)
		return
	}
	name, err := h.registry.Add(c.Request.Context(), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"name": name})
}

// Rename godoc
// @Summary Rename a subject
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body service.RenameSubjectRequest true "Rename payload"
// @Success 200 {object} response.Envelope
// @Router /subjects/rename [post]
func (h *SubjectHandler) Rename(c *gin.Context) {
	var req service.RenameSubjectRequest
	if err := bindJSON(c, &req, "invalid rename payload"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.registry.Rename(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Remove godoc
// @Summary Remove a subject from the timetable
// @Tags Subjects
// @Produce json
// @Param name path string true "Subject"
// @Success 200 {object} response.Envelope
// @Router /subjects/{name} [delete]
func (h *SubjectHandler) Remove(c *gin.Context) {
	removed, err := h.registry.Remove(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"name": c.Param("name"), "timetable_entries": removed}, nil)
}
