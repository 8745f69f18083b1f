package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/noah-isme/studytrack-api/pkg/config"
	"github.com/noah-isme/studytrack-api/pkg/database"
	"github.com/noah-isme/studytrack-api/pkg/kv"
)

type envelope struct {
	Data json.RawMessage        `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := database.NewSQLite(config.DatabaseConfig{Path: database.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, nil))

	cfg := &config.Config{
		Env:        "test",
		APIPrefix:  "/api/v1",
		Attendance: config.AttendanceConfig{GoodStandingThreshold: 75, RecentLimit: 5},
		Cache:      config.CacheConfig{Enabled: true, TTL: time.Minute},
		Reports: config.ReportsConfig{
			Enabled:           true,
			StorageDir:        t.TempDir(),
			SignedURLSecret:   "test-secret",
			SignedURLTTL:      time.Hour,
			WorkerConcurrency: 1,
			WorkerRetries:     1,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}
	a, err := newApp(cfg, db, kv.NewMemory(), zaptest.NewLogger(t))
	require.NoError(t, err)
	a.start(ctx)
	t.Cleanup(a.stop)
	return a
}

func call(t *testing.T, a *app, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestAttendanceFlowThroughHTTP(t *testing.T) {
	a := newTestApp(t)

	mark := map[string]interface{}{"subject": "Mathematics", "date": "2024-01-10", "status": "present", "multiplier": 2}
	w, env := call(t, a, http.MethodPost, "/api/v1/attendance", mark)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	w, env = call(t, a, http.MethodPost, "/api/v1/attendance", mark)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.EqualValues(t, created.ID, env.Meta["existing_id"])

	w, _ = call(t, a, http.MethodPost, "/api/v1/attendance", map[string]interface{}{
		"subject": "Physics", "date": "2024-01-10", "status": "absent",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = call(t, a, http.MethodGet, "/api/v1/attendance/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		Subjects []struct {
			Subject string `json:"subject"`
			Present int    `json:"present"`
			Total   int    `json:"total"`
		} `json:"subjects"`
		Overall struct {
			Present int `json:"present"`
			Total   int `json:"total"`
		} `json:"overall"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 2, summary.Overall.Present)
	assert.Equal(t, 3, summary.Overall.Total)

	w, env = call(t, a, http.MethodGet, "/api/v1/timetable/today?date=2024-01-10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var today struct {
		Day     string `json:"day"`
		Entries []struct {
			Subject string `json:"subject"`
			Marked  bool   `json:"marked"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &today))
	assert.Equal(t, "Wednesday", today.Day)
	require.Len(t, today.Entries, 2)
	assert.True(t, today.Entries[0].Marked)
	assert.False(t, today.Entries[1].Marked)

	w, env = call(t, a, http.MethodGet, "/api/v1/subjects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Computer Science","Mathematics","Physics"]`, string(env.Data))
}

func TestRenameInvalidatesSummary(t *testing.T) {
	a := newTestApp(t)

	w, _ := call(t, a, http.MethodPost, "/api/v1/attendance", map[string]interface{}{
		"subject": "Mathematics", "date": "2024-01-10", "status": "present",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = call(t, a, http.MethodGet, "/api/v1/attendance/summary/Mathematics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, a, http.MethodPost, "/api/v1/subjects/rename", map[string]interface{}{
		"from": "Mathematics", "to": "Maths", "rewrite_history": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = call(t, a, http.MethodGet, "/api/v1/attendance/summary/Mathematics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = call(t, a, http.MethodGet, "/api/v1/attendance/summary/Maths", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReportExportRoundTrip(t *testing.T) {
	a := newTestApp(t)

	w, _ := call(t, a, http.MethodPost, "/api/v1/attendance", map[string]interface{}{
		"subject": "Physics", "date": "2024-01-10", "status": "present",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := call(t, a, http.MethodPost, "/api/v1/reports", map[string]string{"type": "summary", "format": "csv"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var job struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &job))

	var status struct {
		Status    string  `json:"status"`
		ResultURL *string `json:"result_url"`
	}
	require.Eventually(t, func() bool {
		_, env := call(t, a, http.MethodGet, "/api/v1/reports/"+job.ID, nil)
		if err := json.Unmarshal(env.Data, &status); err != nil {
			return false
		}
		return status.Status == "FINISHED"
	}, 5*time.Second, 20*time.Millisecond)
	require.NotNil(t, status.ResultURL)

	req := httptest.NewRequest(http.MethodGet, *status.ResultURL, nil)
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Physics")
}

func TestOperationalEndpoints(t *testing.T) {
	a := newTestApp(t)

	w, _ := call(t, a, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, a, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, a, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, a, http.MethodGet, "/api/v1/system/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, a, http.MethodGet, "/api/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
