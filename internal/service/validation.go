package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/studytrack-api/internal/models"
)

// Conflict policies for quick-add when an active record already exists for the subject and date.
const (
	ConflictPolicyAsk    = "ask"
	ConflictPolicyUpdate = "update"
	ConflictPolicyAbort  = "abort"
	ConflictPolicyAppend = "append"
)

// ensureValidator returns validate (or a fresh validator) with the domain tags registered.
func ensureValidator(validate *validator.Validate) *validator.Validate {
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		return models.IsWeekday(fl.Field().String())
	})
	_ = validate.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
		_, err := models.ClockMinutes(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("report_format", func(fl validator.FieldLevel) bool {
		switch models.ReportFormat(fl.Field().String()) {
		case models.ReportFormatCSV, models.ReportFormatPDF, models.ReportFormatXLSX:
			return true
		}
		return false
	})
	_ = validate.RegisterValidation("report_type", func(fl validator.FieldLevel) bool {
		switch models.ReportType(fl.Field().String()) {
		case models.ReportTypeAttendance, models.ReportTypeSummary, models.ReportTypeExamMarks:
			return true
		}
		return false
	})
	_ = validate.RegisterValidation("conflict_policy", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case ConflictPolicyAsk, ConflictPolicyUpdate, ConflictPolicyAbort, ConflictPolicyAppend:
			return true
		}
		return false
	})
	return validate
}
