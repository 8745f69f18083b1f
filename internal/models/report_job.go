package models

import "time"

// ReportType enumerates the exportable datasets.
type ReportType string

const (
	ReportTypeAttendance ReportType = "attendance"
	ReportTypeSummary    ReportType = "summary"
	ReportTypeExamMarks  ReportType = "exam_marks"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatXLSX ReportFormat = "xlsx"
)

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportJob is the persisted state of an asynchronous export.
type ReportJob struct {
	ID           string          `json:"id"`
	Type         ReportType      `json:"type"`
	Params       ReportJobParams `json:"params"`
	Status       ReportStatus    `json:"status"`
	Progress     int             `json:"progress"`
	ResultURL    *string         `json:"result_url,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}

// ReportJobParams narrows the dataset being exported.
type ReportJobParams struct {
	Format          ReportFormat `json:"format"`
	Subject         string       `json:"subject,omitempty"`
	DateFrom        string       `json:"date_from,omitempty"`
	DateTo          string       `json:"date_to,omitempty"`
	IncludeArchived bool         `json:"include_archived,omitempty"`
}
