package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/internal/service"
	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

type timetableServiceMock struct {
	cascade   bool
	todayDate string
	saved     models.WeeklyTimetable
}

func (m *timetableServiceMock) Get(ctx context.Context) (models.WeeklyTimetable, error) {
	return models.WeeklyTimetable{"Monday": {}}, nil
}

func (m *timetableServiceMock) Save(ctx context.Context, table models.WeeklyTimetable) (models.WeeklyTimetable, error) {
	m.saved = table
	return table, nil
}

func (m *timetableServiceMock) Today(ctx context.Context, date string) (*models.TodayTimetable, error) {
	m.todayDate = date
	return &models.TodayTimetable{Date: date, Day: "Wednesday"}, nil
}

func (m *timetableServiceMock) AddEntry(ctx context.Context, day string, req service.TimetableEntryRequest) (*models.TimetableEntry, error) {
	if day == "Sunday" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid day")
	}
	return &models.TimetableEntry{ID: "new", Subject: req.Subject, StartTime: req.StartTime, EndTime: req.EndTime}, nil
}

func (m *timetableServiceMock) UpdateEntry(ctx context.Context, day, id string, req service.TimetableEntryRequest, cascadeRename bool) (*models.TimetableEntry, int, error) {
	m.cascade = cascadeRename
	return &models.TimetableEntry{ID: id, Subject: req.Subject}, 3, nil
}

func (m *timetableServiceMock) DeleteEntry(ctx context.Context, day, id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
}

func (m *timetableServiceMock) ClearDay(ctx context.Context, day string) error { return nil }

func newTimetableRouter(mock *timetableServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTimetableHandler(mock)
	r := gin.New()
	r.GET("/timetable", h.Get)
	r.PUT("/timetable", h.Save)
	r.GET("/timetable/today", h.Today)
	r.POST("/timetable/:day/entries", h.AddEntry)
	r.PUT("/timetable/:day/entries/:id", h.UpdateEntry)
	r.DELETE("/timetable/:day/entries/:id", h.DeleteEntry)
	r.DELETE("/timetable/:day", h.ClearDay)
	return r
}

func TestTimetableHandlerRoutes(t *testing.T) {
	mock := &timetableServiceMock{}
	r := newTimetableRouter(mock)
	entry := map[string]string{"subject": "Art", "start_time": "9:00", "end_time": "10:00"}

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/timetable", nil).Code)

	w := doJSON(r, http.MethodGet, "/timetable/today?date=2024-01-10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-01-10", mock.todayDate)

	assert.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/timetable/Monday/entries", entry).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/timetable/Sunday/entries", entry).Code)

	w = doJSON(r, http.MethodPut, "/timetable/Monday/entries/Monday-0?cascade=true", entry)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mock.cascade)
	assert.Equal(t, float64(3), decodeEnvelope(t, w).Meta["renamed_entries"])

	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodDelete, "/timetable/Monday/entries/x", nil).Code)
	assert.Equal(t, http.StatusNoContent, doJSON(r, http.MethodDelete, "/timetable/Friday", nil).Code)

	w = doJSON(r, http.MethodPut, "/timetable", models.WeeklyTimetable{"Tuesday": {{Subject: "Art", StartTime: "9:00", EndTime: "10:00"}}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, mock.saved["Tuesday"], 1)
}
