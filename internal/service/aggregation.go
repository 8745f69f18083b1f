package service

import (
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/studytrack-api/internal/models"
)

// Aggregation defaults.
const (
	DefaultGoodStandingThreshold = 75.0
	DefaultRecentLimit           = 5
)

// AggregationOptions tunes how aggregates are presented. Counting is not affected.
type AggregationOptions struct {
	Threshold   float64
	RecentLimit int
}

func (o AggregationOptions) withDefaults() AggregationOptions {
	if o.Threshold <= 0 || o.Threshold > 100 {
		o.Threshold = DefaultGoodStandingThreshold
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = DefaultRecentLimit
	}
	return o
}

type subjectBucket struct {
	present    int
	total      int
	adjustment *models.AttendanceAdjustment
	records    []models.AttendanceRecord
}

// Aggregate computes per-subject and overall attendance from active records.
//
// Every registry subject starts at zero so subjects without attendance still appear.
// Records whose subject cannot be resolved are left out and reported in Excluded.
// Adjustments are added per subject afterwards and clamped so 0 <= present <= total. The
// clamp makes the displayed pair non-additive while an adjustment is active: archiving a
// record always removes its whole contribution from the recorded counts, but the displayed
// counts cannot drop below zero. Restoring the record brings the display back unchanged.
func Aggregate(subjects []string, records []models.AttendanceRecord, adjustments []models.AttendanceAdjustment, opts AggregationOptions, logger *zap.Logger) models.AttendanceSummary {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	buckets := make(map[string]*subjectBucket, len(subjects))
	bucket := func(name string) *subjectBucket {
		b, ok := buckets[name]
		if !ok {
			b = &subjectBucket{}
			buckets[name] = b
		}
		return b
	}
	for _, name := range subjects {
		if name != "" {
			bucket(name)
		}
	}

	summary := models.AttendanceSummary{Threshold: opts.Threshold}
	for _, rec := range records {
		if rec.IsArchived {
			continue
		}
		name, ok := rec.ResolveSubject()
		if !ok {
			logger.Warn("attendance record has no resolvable subject",
				zap.Int64("record_id", rec.ID),
				zap.String("date", rec.Date),
			)
			summary.Excluded = append(summary.Excluded, rec.ID)
			continue
		}
		b := bucket(name)
		w := rec.Weight()
		b.total += w
		if rec.Status == models.AttendanceStatusPresent {
			b.present += w
		}
		b.records = append(b.records, rec)
	}

	for i := range adjustments {
		if adjustments[i].Subject == "" {
			continue
		}
		bucket(adjustments[i].Subject).adjustment = &adjustments[i]
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	summary.Subjects = make([]models.SubjectAggregate, 0, len(names))
	for _, name := range names {
		b := buckets[name]
		present, total := b.present, b.total
		if b.adjustment != nil {
			present, total = applyAdjustment(present, total, *b.adjustment)
		}
		pct := percentage(present, total)
		summary.Subjects = append(summary.Subjects, models.SubjectAggregate{
			Subject:         name,
			Present:         present,
			Total:           total,
			RecordedPresent: b.present,
			RecordedTotal:   b.total,
			Percentage:      pct,
			GoodStanding:    pct >= opts.Threshold,
			Adjusted:        b.adjustment != nil,
			RecordCount:     len(b.records),
			Recent:          mostRecent(b.records, opts.RecentLimit),
		})
		summary.Overall.Present += present
		summary.Overall.Total += total
	}
	summary.Overall.Percentage = percentage(summary.Overall.Present, summary.Overall.Total)
	summary.Overall.GoodStanding = summary.Overall.Percentage >= opts.Threshold
	return summary
}

func percentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(present) / float64(total) * 100
}

func applyAdjustment(present, total int, adj models.AttendanceAdjustment) (int, int) {
	total += adj.TotalDelta
	present += adj.PresentDelta
	if total < 0 {
		total = 0
	}
	if present < 0 {
		present = 0
	}
	if present > total {
		present = total
	}
	return present, total
}

// mostRecent orders by date then id, both descending, and keeps the first limit records.
func mostRecent(records []models.AttendanceRecord, limit int) []models.AttendanceRecord {
	sorted := make([]models.AttendanceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// adjustmentFor returns the deltas that turn the computed pair into the requested one.
func adjustmentFor(computedPresent, computedTotal, present, total int) (presentDelta, totalDelta int) {
	return present - computedPresent, total - computedTotal
}
