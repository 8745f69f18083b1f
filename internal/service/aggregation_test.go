package service

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/studytrack-api/internal/models"
)


func rec(id int64, subject, date string, status models.AttendanceStatus, multiplier int) models.AttendanceRecord {
	return models.AttendanceRecord{ID: id, Subject: subject, Date: date, Status: status, Multiplier: multiplier}
}

func TestAggregateNotesScenario(t *testing.T) {
	first := models.AttendanceRecord{ID: 1, Subject: models.UnknownSubject, Date: "2024-01-10", Status: models.AttendanceStatusPresent, Multiplier: 2, Notes: strPtr("Subject: Math")}
	summary := Aggregate(nil, []models.AttendanceRecord{first}, nil, AggregationOptions{}, nil)
	math, ok := summary.Subject("Math")
	require.True(t, ok)
	assert.Equal(t, 2, math.Present)
	assert.Equal(t, 2, math.Total)

	// A second active record on the same day is counted too.
	second := rec(2, "Math", "2024-01-10", models.AttendanceStatusAbsent, 1)
	summary = Aggregate(nil, []models.AttendanceRecord{first, second}, nil, AggregationOptions{}, nil)
	math, _ = summary.Subject("Math")
	assert.Equal(t, 2, math.Present)
	assert.Equal(t, 3, math.Total)
}

func TestAggregateContributionByStatus(t *testing.T) {
	for _, status := range []models.AttendanceStatus{
		models.AttendanceStatusPresent, models.AttendanceStatusAbsent, models.AttendanceStatusLate,
		models.AttendanceStatusCancelled, models.AttendanceStatusTest,
	} {
		summary := Aggregate(nil, []models.AttendanceRecord{rec(1, "Physics", "2024-01-10", status, 3)}, nil, AggregationOptions{}, nil)
		agg, _ := summary.Subject("Physics")
		assert.Equal(t, 3, agg.Total, status)
		if status == models.AttendanceStatusPresent {
			assert.Equal(t, 3, agg.Present, status)
		} else {
			assert.Equal(t, 0, agg.Present, status)
		}
	}
}

func TestAggregateDefaultsInvalidMultiplier(t *testing.T) {
	summary := Aggregate(nil, []models.AttendanceRecord{
		rec(1, "Physics", "2024-01-10", models.AttendanceStatusPresent, 0),
		rec(2, "Physics", "2024-01-11", models.AttendanceStatusPresent, -4),
	}, nil, AggregationOptions{}, nil)
	agg, _ := summary.Subject("Physics")
	assert.Equal(t, 2, agg.Total)
	assert.Equal(t, 2, agg.Present)
}

func TestAggregateSeedsRegistrySubjects(t *testing.T) {
	summary := Aggregate([]string{"Biology", "Art"}, nil, nil, AggregationOptions{}, nil)
	require.Len(t, summary.Subjects, 2)
	assert.Equal(t, "Art", summary.Subjects[0].Subject)
	bio, ok := summary.Subject("Biology")
	require.True(t, ok)
	assert.Equal(t, 0, bio.Present)
	assert.Equal(t, 0, bio.Total)
	assert.Equal(t, 0.0, bio.Percentage)
	assert.NotNil(t, bio.Recent)
	assert.Equal(t, 0.0, summary.Overall.Percentage)
}

func TestAggregateExcludesUnresolvableRecords(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	records := []models.AttendanceRecord{
		rec(1, "Physics", "2024-01-10", models.AttendanceStatusPresent, 1),
		{ID: 2, Subject: models.UnknownSubject, Date: "2024-01-10", Status: models.AttendanceStatusPresent, Multiplier: 1, Notes: strPtr("no separator")},
		{ID: 3, Date: "2024-01-10", Status: models.AttendanceStatusPresent, Multiplier: 1},
	}
	summary := Aggregate(nil, records, nil, AggregationOptions{}, zap.New(core))

	assert.Equal(t, []int64{2, 3}, summary.Excluded)
	assert.Equal(t, 1, summary.Overall.Total)
	assert.Equal(t, 2, logs.FilterMessage("attendance record has no resolvable subject").Len())
}

func TestAggregateSubjectColumnWinsOverNotes(t *testing.T) {
	r := models.AttendanceRecord{ID: 1, Subject: "Chemistry", Date: "2024-01-10", Status: models.AttendanceStatusPresent, Multiplier: 1, Notes: strPtr("Class: Physics")}
	summary := Aggregate(nil, []models.AttendanceRecord{r}, nil, AggregationOptions{}, nil)
	_, physics := summary.Subject("Physics")
	assert.False(t, physics)
	_, chemistry := summary.Subject("Chemistry")
	assert.True(t, chemistry)
}

func TestAggregateNotesTakeSecondSegment(t *testing.T) {
	r := models.AttendanceRecord{ID: 1, Date: "2024-01-10", Status: models.AttendanceStatusPresent, Multiplier: 1, Notes: strPtr("Class: Physics: Lab session")}
	summary := Aggregate(nil, []models.AttendanceRecord{r}, nil, AggregationOptions{}, nil)
	physics, ok := summary.Subject("Physics")
	require.True(t, ok)
	assert.Equal(t, 1, physics.Present)
	_, ok = summary.Subject("Physics: Lab session")
	assert.False(t, ok)
}

func TestAggregateRecentRecordsOrdering(t *testing.T) {
	var records []models.AttendanceRecord
	for i := 1; i <= 7; i++ {
		records = append(records, rec(int64(i), "Math", fmt.Sprintf("2024-01-%02d", 10+i%3), models.AttendanceStatusPresent, 1))
	}
	summary := Aggregate(nil, records, nil, AggregationOptions{}, nil)
	math, _ := summary.Subject("Math")
	assert.Equal(t, 7, math.RecordCount)
	require.Len(t, math.Recent, 5)

	var ids []int64
	for _, r := range math.Recent {
		ids = append(ids, r.ID)
	}
	// dates: ids 2,5 -> 12th; 1,4,7 -> 11th; 3,6 -> 10th
	assert.Equal(t, []int64{5, 2, 7, 4, 1}, ids)

	summary = Aggregate(nil, records, nil, AggregationOptions{RecentLimit: 2}, nil)
	math, _ = summary.Subject("Math")
	assert.Len(t, math.Recent, 2)
}

func TestAggregateGoodStandingThreshold(t *testing.T) {
	records := []models.AttendanceRecord{
		rec(1, "Math", "2024-01-10", models.AttendanceStatusPresent, 3),
		rec(2, "Math", "2024-01-11", models.AttendanceStatusAbsent, 1),
		rec(3, "Art", "2024-01-11", models.AttendanceStatusPresent, 2),
		rec(4, "Art", "2024-01-12", models.AttendanceStatusAbsent, 1),
	}
	summary := Aggregate(nil, records, nil, AggregationOptions{}, nil)
	math, _ := summary.Subject("Math")
	assert.Equal(t, 75.0, math.Percentage)
	assert.True(t, math.GoodStanding)
	art, _ := summary.Subject("Art")
	assert.False(t, art.GoodStanding)

	summary = Aggregate(nil, records, nil, AggregationOptions{Threshold: 60}, nil)
	art, _ = summary.Subject("Art")
	assert.True(t, art.GoodStanding)
	assert.Equal(t, 60.0, summary.Threshold)
}

func TestAggregateAdjustmentsAreClampedAndSummed(t *testing.T) {
	records := []models.AttendanceRecord{
		rec(1, "Math", "2024-01-10", models.AttendanceStatusPresent, 2),
		rec(2, "Art", "2024-01-10", models.AttendanceStatusAbsent, 1),
	}
	adjustments := []models.AttendanceAdjustment{
		{Subject: "Math", PresentDelta: 3, TotalDelta: 4},
		{Subject: "Art", PresentDelta: 5, TotalDelta: -10},
	}
	summary := Aggregate(nil, records, adjustments, AggregationOptions{}, nil)

	math, _ := summary.Subject("Math")
	assert.Equal(t, 5, math.Present)
	assert.Equal(t, 6, math.Total)
	assert.True(t, math.Adjusted)

	art, _ := summary.Subject("Art")
	assert.Equal(t, 0, art.Present)
	assert.Equal(t, 0, art.Total)

	assert.Equal(t, 5, summary.Overall.Present)
	assert.Equal(t, 6, summary.Overall.Total)
}

func TestArchiveUnderAdjustmentIsClamped(t *testing.T) {
	records := []models.AttendanceRecord{
		rec(1, "Math", "2024-01-10", models.AttendanceStatusPresent, 2),
		rec(2, "Math", "2024-01-11", models.AttendanceStatusPresent, 1),
	}
	pd, td := adjustmentFor(3, 3, 0, 1)
	adjustments := []models.AttendanceAdjustment{{Subject: "Math", PresentDelta: pd, TotalDelta: td}}

	summary := Aggregate(nil, records, adjustments, AggregationOptions{}, nil)
	math, _ := summary.Subject("Math")
	assert.Equal(t, 0, math.Present)
	assert.Equal(t, 1, math.Total)
	assert.Equal(t, 3, math.RecordedTotal)

	archived := make([]models.AttendanceRecord, len(records))
	copy(archived, records)
	archived[0].IsArchived = true
	summary = Aggregate(nil, archived, adjustments, AggregationOptions{}, nil)
	math, _ = summary.Subject("Math")
	// the recorded counts lose the full x2 contribution; the display bottoms out at zero
	assert.Equal(t, 1, math.RecordedPresent)
	assert.Equal(t, 1, math.RecordedTotal)
	assert.Equal(t, 0, math.Present)
	assert.Equal(t, 0, math.Total)
	assert.Equal(t, 0, summary.Overall.Total)

	archived[0].IsArchived = false
	summary = Aggregate(nil, archived, adjustments, AggregationOptions{}, nil)
	math, _ = summary.Subject("Math")
	assert.Equal(t, 0, math.Present)
	assert.Equal(t, 1, math.Total)
	assert.Equal(t, 3, math.RecordedTotal)
}

func TestAdjustmentForRoundTrips(t *testing.T) {
	pd, td := adjustmentFor(2, 3, 10, 12)
	present, total := applyAdjustment(2, 3, models.AttendanceAdjustment{PresentDelta: pd, TotalDelta: td})
	assert.Equal(t, 10, present)
	assert.Equal(t, 12, total)
}

func randomRecords(r *rand.Rand, n int) []models.AttendanceRecord {
	subjects := []string{"Math", "Physics", "Art", "History"}
	statuses := []models.AttendanceStatus{models.AttendanceStatusPresent, models.AttendanceStatusAbsent, models.AttendanceStatusLate, models.AttendanceStatusCancelled}
	out := make([]models.AttendanceRecord, n)
	for i := range out {
		out[i] = rec(int64(i+1), subjects[r.Intn(len(subjects))], fmt.Sprintf("2024-02-%02d", 1+r.Intn(28)), statuses[r.Intn(len(statuses))], 1+r.Intn(3))
	}
	return out
}

func TestAggregateSubjectSumsMatchOverall(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		summary := Aggregate([]string{"Biology"}, randomRecords(r, r.Intn(40)), nil, AggregationOptions{}, nil)
		var present, total int
		for _, s := range summary.Subjects {
			present += s.Present
			total += s.Total
			assert.LessOrEqual(t, s.Present, s.Total)
		}
		assert.Equal(t, summary.Overall.Present, present)
		assert.Equal(t, summary.Overall.Total, total)
	}
}

func TestArchiveRemovesAndRestoreReinstatesContribution(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	records := randomRecords(r, 25)
	before := Aggregate(nil, records, nil, AggregationOptions{}, nil)

	target := records[10]
	archived := make([]models.AttendanceRecord, len(records))
	copy(archived, records)
	archived[10].IsArchived = true
	after := Aggregate(nil, archived, nil, AggregationOptions{}, nil)

	wantPresent := 0
	if target.Status == models.AttendanceStatusPresent {
		wantPresent = target.Multiplier
	}
	b, _ := before.Subject(target.Subject)
	a, _ := after.Subject(target.Subject)
	assert.Equal(t, b.Total-target.Multiplier, a.Total)
	assert.Equal(t, b.Present-wantPresent, a.Present)
	assert.Equal(t, before.Overall.Total-target.Multiplier, after.Overall.Total)

	archived[10].IsArchived = false
	restored := Aggregate(nil, archived, nil, AggregationOptions{}, nil)
	assert.Equal(t, before.Overall, restored.Overall)
}

func TestPercentageMonotonicInPresent(t *testing.T) {
	prev := -1.0
	for present := 0; present <= 10; present++ {
		p := percentage(present, 10)
		assert.Greater(t, p, prev)
		prev = p
	}
	assert.Equal(t, 0.0, percentage(0, 0))
	assert.Equal(t, 50.0, percentage(1, 2))
}
