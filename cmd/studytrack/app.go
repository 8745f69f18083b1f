package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/studytrack-api/internal/handler"
	"github.com/noah-isme/studytrack-api/internal/middleware"
	"github.com/noah-isme/studytrack-api/internal/repository"
	"github.com/noah-isme/studytrack-api/internal/service"
	"github.com/noah-isme/studytrack-api/pkg/config"
	"github.com/noah-isme/studytrack-api/pkg/jobs"
	"github.com/noah-isme/studytrack-api/pkg/kv"
	"github.com/noah-isme/studytrack-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/studytrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/studytrack-api/pkg/middleware/requestid"
	"github.com/noah-isme/studytrack-api/pkg/storage"
)

// app holds the wired HTTP engine and the background pieces main has to start and stop.
type app struct {
	engine  *gin.Engine
	reports *service.ReportService
	queue   *jobs.Queue
}

func newApp(cfg *config.Config, db *sqlx.DB, store kv.Store, logr *zap.Logger) (*app, error) {
	validate := validator.New()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	attendanceRepo := repository.NewAttendanceRepository(db)
	adjustmentRepo := repository.NewAdjustmentRepository(db)
	examMarkRepo := repository.NewExamMarkRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	timetableRepo := repository.NewTimetableRepository(store)
	cacheRepo := repository.NewCacheRepository(store, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	timetableSvc := service.NewTimetableService(timetableRepo, attendanceRepo, holidayRepo, validate, logr)
	registry := service.NewSubjectRegistry(subjectRepo, timetableSvc, service.SubjectHistory{
		Attendance:  attendanceRepo,
		ExamMarks:   examMarkRepo,
		Adjustments: adjustmentRepo,
	}, logr)
	timetableSvc.OnChange(registry.Invalidate)

	attendanceSvc := service.NewAttendanceService(
		attendanceRepo,
		adjustmentRepo,
		holidayRepo,
		registry,
		cacheSvc,
		metrics,
		service.AttendanceOptions{
			Aggregation: service.AggregationOptions{
				Threshold:   cfg.Attendance.GoodStandingThreshold,
				RecentLimit: cfg.Attendance.RecentLimit,
			},
			CacheTTL: cfg.Cache.TTL,
		},
		validate,
		logr,
	)
	examMarkSvc := service.NewExamMarkService(examMarkRepo, registry, validate, logr)
	holidaySvc := service.NewHolidayService(holidayRepo, validate, logr)
	noteSvc := service.NewNoteService(repository.NewNoteRepository(store), logr)
	todoSvc := service.NewTodoService(repository.NewTodoRepository(store), logr)
	onboardingSvc := service.NewOnboardingService(repository.NewOnboardingRepository(store), logr)

	a := &app{}
	var reportHandler *handler.ReportHandler
	if cfg.Reports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			return nil, err
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(attendanceRepo, attendanceSvc, examMarkRepo, files, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr)
		reportRepo := repository.NewReportRepository(store)
		worker := service.NewReportWorker(reportRepo, exportSvc, metrics, logr)
		a.queue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
			OnGiveUp:   worker.GiveUp,
		})
		a.reports = service.NewReportService(reportRepo, a.queue, exportSvc, metrics, validate, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
		})
		reportHandler = handler.NewReportHandler(a.reports, logr)
	}

	metricsHandler := handler.NewMetricsHandler(metrics,
		handler.ReadinessCheck{Name: "database", Check: db.PingContext},
		handler.ReadinessCheck{Name: "kv", Check: store.Ping},
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	if metrics != nil {
		r.Use(middleware.Metrics(metrics))
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	registerRoutes(api, routeHandlers{
		attendance: handler.NewAttendanceHandler(attendanceSvc),
		subjects:   handler.NewSubjectHandler(registry),
		timetable:  handler.NewTimetableHandler(timetableSvc),
		examMarks:  handler.NewExamMarkHandler(examMarkSvc),
		holidays:   handler.NewHolidayHandler(holidaySvc),
		notes:      handler.NewNoteHandler(noteSvc, todoSvc, onboardingSvc),
		reports:    reportHandler,
		metrics:    metricsHandler,
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})

	a.engine = r
	return a, nil
}

// start launches the report workers and recovers jobs queued before a restart.
func (a *app) start(ctx context.Context) {
	if a.queue == nil {
		return
	}
	a.queue.Start(ctx)
	a.reports.RecoverPendingJobs(ctx)
	a.reports.StartCleanup(ctx)
}

func (a *app) stop() {
	if a.queue != nil {
		a.queue.Stop()
	}
}

type routeHandlers struct {
	attendance *handler.AttendanceHandler
	subjects   *handler.SubjectHandler
	timetable  *handler.TimetableHandler
	examMarks  *handler.ExamMarkHandler
	holidays   *handler.HolidayHandler
	notes      *handler.NoteHandler
	reports    *handler.ReportHandler
	metrics    *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, h routeHandlers) {
	attendance := api.Group("/attendance")
	attendance.GET("", h.attendance.List)
	attendance.POST("", h.attendance.Mark)
	attendance.GET("/archived", h.attendance.Archived)
	attendance.GET("/date/:date", h.attendance.ForDate)
	attendance.GET("/summary", h.attendance.Summary)
	attendance.GET("/summary/:subject", h.attendance.SubjectSummary)
	attendance.PUT("/adjustments/:subject", h.attendance.SetAdjustment)
	attendance.DELETE("/adjustments/:subject", h.attendance.ClearAdjustment)
	attendance.GET("/:id", h.attendance.Get)
	attendance.PATCH("/:id", h.attendance.Update)
	attendance.POST("/:id/archive", h.attendance.Archive)
	attendance.POST("/:id/restore", h.attendance.Restore)
	attendance.DELETE("/:id", h.attendance.Delete)

	subjects := api.Group("/subjects")
	subjects.GET("", h.subjects.List)
	subjects.POST("", h.subjects.Add)
	subjects.POST("/rename", h.subjects.Rename)
	subjects.DELETE("/:name", h.subjects.Remove)

	timetable := api.Group("/timetable")
	timetable.GET("", h.timetable.Get)
	timetable.PUT("", h.timetable.Save)
	timetable.GET("/today", h.timetable.Today)
	timetable.POST("/:day/entries", h.timetable.AddEntry)
	timetable.PUT("/:day/entries/:id", h.timetable.UpdateEntry)
	timetable.DELETE("/:day/entries/:id", h.timetable.DeleteEntry)
	timetable.DELETE("/:day", h.timetable.ClearDay)

	exams := api.Group("/exam-marks")
	exams.GET("", h.examMarks.List)
	exams.POST("", h.examMarks.Create)
	exams.GET("/:id", h.examMarks.Get)
	exams.PUT("/:id", h.examMarks.Update)
	exams.DELETE("/:id", h.examMarks.Delete)

	api.GET("/holidays", h.holidays.List)
	api.PUT("/holidays", h.holidays.Set)
	api.DELETE("/holidays/:date", h.holidays.Delete)

	api.GET("/notes", h.notes.ListNotes)
	api.POST("/notes", h.notes.AddNote)
	api.DELETE("/notes/:id", h.notes.DeleteNote)
	api.GET("/todos", h.notes.ListTodos)
	api.POST("/todos", h.notes.AddTodo)
	api.POST("/todos/:id/toggle", h.notes.ToggleTodo)
	api.DELETE("/todos/:id", h.notes.DeleteTodo)
	api.GET("/onboarding", h.notes.Onboarding)
	api.POST("/onboarding/complete", h.notes.CompleteOnboarding)

	api.GET("/system/metrics", h.metrics.System)

	if h.reports != nil {
		api.POST("/reports", h.reports.GenerateReport)
		api.GET("/reports/:id", h.reports.ReportStatus)
		api.GET("/export/:token", h.reports.DownloadReport)
	}
}
