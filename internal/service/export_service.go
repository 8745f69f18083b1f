package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studytrack-api/internal/models"
	"github.com/noah-isme/studytrack-api/pkg/export"
	"github.com/noah-isme/studytrack-api/pkg/storage"
)

type attendanceExportSource interface {
	ListActive(ctx context.Context) ([]models.AttendanceRecord, error)
	ListArchived(ctx context.Context, search string) ([]models.AttendanceRecord, error)
}

type summarySource interface {
	Summary(ctx context.Context) (*models.AttendanceSummary, error)
}

type examMarkSource interface {
	List(ctx context.Context, subject string) ([]models.ExamMark, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	attendance attendanceExportSource
	summaries  summarySource
	exams      examMarkSource
	storage    fileStorage
	signer     *storage.SignedURLSigner
	renderer   func(format string) (export.Renderer, error)
	logger     *zap.Logger
	cfg        ExportConfig
	now        func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(attendance attendanceExportSource, summaries summarySource, exams examMarkSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		attendance: attendance,
		summaries:  summaries,
		exams:      exams,
		storage:    files,
		signer:     signer,
		renderer:   export.ForFormat,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Generate builds the dataset of job, renders it and stores the file behind a signed token.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}
	renderer, err := s.renderer(string(job.Params.Format))
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", job.Params.Format, err)
	}

	relPath, err := s.storage.Save(s.buildFilename(job, renderer.Extension()), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Debug("export generated", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob, ext string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	subject := sanitizeFilename(job.Params.Subject)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), subject, timestamp, ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	switch job.Type {
	case models.ReportTypeAttendance:
		return s.buildAttendanceDataset(ctx, job.Params)
	case models.ReportTypeSummary:
		return s.buildSummaryDataset(ctx, job.Params)
	case models.ReportTypeExamMarks:
		return s.buildExamMarkDataset(ctx, job.Params)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildAttendanceDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	records, err := s.attendance.ListActive(ctx)
	if err != nil {
		return export.Dataset{}, err
	}
	if params.IncludeArchived {
		archived, err := s.attendance.ListArchived(ctx, "")
		if err != nil {
			return export.Dataset{}, err
		}
		records = append(records, archived...)
	}

	headers := []string{"ID", "Date", "Subject", "Status", "Multiplier", "Manual", "Archived", "Notes"}
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		subject, ok := rec.ResolveSubject()
		if !ok {
			subject = models.UnknownSubject
		}
		if params.Subject != "" && subject != params.Subject {
			continue
		}
		if !withinRange(rec.Date, params.DateFrom, params.DateTo) {
			continue
		}
		notes := ""
		if rec.Notes != nil {
			notes = *rec.Notes
		}
		rows = append(rows, map[string]string{
			"ID":         fmt.Sprintf("%d", rec.ID),
			"Date":       rec.Date,
			"Subject":    subject,
			"Status":     string(rec.Status),
			"Multiplier": fmt.Sprintf("%d", rec.Weight()),
			"Manual":     yesNo(rec.IsManual),
			"Archived":   yesNo(rec.IsArchived),
			"Notes":      notes,
		})
	}
	return export.Dataset{Title: reportTitle("Attendance Records", params), Headers: headers, Rows: rows}, nil
}

func (s *ExportService) buildSummaryDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	summary, err := s.summaries.Summary(ctx)
	if err != nil {
		return export.Dataset{}, err
	}
	headers := []string{"Subject", "Present", "Total", "Attendance (%)", "Good Standing", "Adjusted"}
	rows := make([]map[string]string, 0, len(summary.Subjects)+1)
	for _, agg := range summary.Subjects {
		if params.Subject != "" && agg.Subject != params.Subject {
			continue
		}
		rows = append(rows, map[string]string{
			"Subject":        agg.Subject,
			"Present":        fmt.Sprintf("%d", agg.Present),
			"Total":          fmt.Sprintf("%d", agg.Total),
			"Attendance (%)": fmt.Sprintf("%.2f", agg.Percentage),
			"Good Standing":  yesNo(agg.GoodStanding),
			"Adjusted":       yesNo(agg.Adjusted),
		})
	}
	if params.Subject == "" {
		rows = append(rows, map[string]string{
			"Subject":        "Overall",
			"Present":        fmt.Sprintf("%d", summary.Overall.Present),
			"Total":          fmt.Sprintf("%d", summary.Overall.Total),
			"Attendance (%)": fmt.Sprintf("%.2f", summary.Overall.Percentage),
			"Good Standing":  yesNo(summary.Overall.GoodStanding),
			"Adjusted":       "",
		})
	}
	return export.Dataset{Title: reportTitle("Attendance Summary", params), Headers: headers, Rows: rows}, nil
}

func (s *ExportService) buildExamMarkDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	marks, err := s.exams.List(ctx, params.Subject)
	if err != nil {
		return export.Dataset{}, err
	}
	headers := []string{"Exam Date", "Subject", "Marks", "Total Marks", "Percentage", "Weightage", "Weighted Score", "Grade"}
	rows := make([]map[string]string, 0, len(marks))
	for _, m := range marks {
		if !withinRange(m.ExamDate, params.DateFrom, params.DateTo) {
			continue
		}
		rows = append(rows, map[string]string{
			"Exam Date":      m.ExamDate,
			"Subject":        m.Subject,
			"Marks":          fmt.Sprintf("%g", m.Marks),
			"Total Marks":    fmt.Sprintf("%g", m.TotalMarks),
			"Percentage":     fmt.Sprintf("%.2f", m.Percentage()),
			"Weightage":      fmt.Sprintf("%g", m.Weightage),
			"Weighted Score": fmt.Sprintf("%.2f", m.WeightedScore()),
			"Grade":          m.Grade(),
		})
	}
	return export.Dataset{Title: reportTitle("Exam Marks", params), Headers: headers, Rows: rows}, nil
}

func reportTitle(base string, params models.ReportJobParams) string {
	title := base
	if params.Subject != "" {
		title += " - " + params.Subject
	}
	if params.DateFrom != "" || params.DateTo != "" {
		title += fmt.Sprintf(" (%s to %s)", orDash(params.DateFrom), orDash(params.DateTo))
	}
	return title
}

// withinRange compares YYYY-MM-DD strings, which order the same as the dates they encode.
func withinRange(date, from, to string) bool {
	if from != "" && date < from {
		return false
	}
	if to != "" && date > to {
		return false
	}
	return true
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
