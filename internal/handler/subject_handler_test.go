package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studytrack-api/internal/service"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

type subjectRegistryMock struct {
	rename service.RenameSubjectRequest
}

func (m *subjectRegistryMock) List(ctx context.Context) ([]string, error) {
	return []string{"Art", "Physics"}, nil
}

func (m *subjectRegistryMock) Add(ctx context.Context, name string) (string, error) {
	if name == "Physics" {
		return "", appErrors.Clone(appErrors.ErrConflict, "subject already exists")
	}
	return name, nil
}

func (m *subjectRegistryMock) Rename(ctx context.Context, req service.RenameSubjectRequest) (*service.RenameSubjectResult, error) {
	m.rename = req
	return &service.RenameSubjectResult{From: req.From, To: req.To, TimetableEntries: 2}, nil
}

func (m *subjectRegistryMock) Remove(ctx context.Context, name string) (int, error) {
	return 1, nil
}

func TestSubjectHandlerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &subjectRegistryMock{}
	h := NewSubjectHandler(mock)
	r := gin.New()
	r.GET("/subjects", h.List)
	r.POST("/subjects", h.Add)
	r.POST("/subjects/rename", h.Rename)
	r.DELETE("/subjects/:name", h.Remove)

	w := doJSON(r, http.MethodGet, "/subjects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Art","Physics"]`, string(decodeEnvelope(t, w).Data))

	assert.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/subjects", map[string]string{"name": "Chemistry"}).Code)
	assert.Equal(t, http.StatusConflict, doJSON(r, http.MethodPost, "/subjects", map[string]string{"name": "Physics"}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/subjects", map[string]string{}).Code)

	w = doJSON(r, http.MethodPost, "/subjects/rename", map[string]interface{}{"from": "Physics", "to": "Mechanics", "cascade": false, "rewrite_history": true})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.rename.Cascade)
	assert.False(t, *mock.rename.Cascade)
	assert.True(t, mock.rename.RewriteHistory)

	w = doJSON(r, http.MethodDelete, "/subjects/Art", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"timetable_entries":1`)
}
