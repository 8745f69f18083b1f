package models

// SubjectAggregate is the attendance standing of one subject. Present and Total include any
// manual adjustment; RecordedPresent and RecordedTotal count the active records only.
type SubjectAggregate struct {
	Subject         string             `json:"subject"`
	Present         int                `json:"present"`
	Total           int                `json:"total"`
	RecordedPresent int                `json:"recorded_present"`
	RecordedTotal   int                `json:"recorded_total"`
	Percentage      float64            `json:"percentage"`
	GoodStanding    bool               `json:"good_standing"`
	Adjusted        bool               `json:"adjusted"`
	RecordCount     int                `json:"record_count"`
	Recent          []AttendanceRecord `json:"recent"`
}

// OverallAggregate sums every subject.
type OverallAggregate struct {
	Present      int     `json:"present"`
	Total        int     `json:"total"`
	Percentage   float64 `json:"percentage"`
	GoodStanding bool    `json:"good_standing"`
}

// AttendanceSummary is the full aggregate view, subjects sorted by name.
type AttendanceSummary struct {
	Subjects  []SubjectAggregate `json:"subjects"`
	Overall   OverallAggregate   `json:"overall"`
	Excluded  []int64            `json:"excluded_record_ids,omitempty"`
	Threshold float64            `json:"threshold"`
}

// Subject looks up one aggregate by name.
func (s *AttendanceSummary) Subject(name string) (SubjectAggregate, bool) {
	for _, agg := range s.Subjects {
		if agg.Subject == name {
			return agg, true
		}
	}
	return SubjectAggregate{}, false
}
