// Package export filters feedback for reports and renders them as PDF and Excel.
package export

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cgportal/feedback-backend/internal/models"
)

const (
	RangeToday       = "today"
	RangeLast7Days   = "last7days"
	RangeLast30Days  = "last30days"
	RangeLast6Months = "last6months"
	RangeCustom      = "custom"
	RangeAllTime     = "alltime"

	OptionAll         = "all"
	OptionOtherIssues = "other-issues"
	dateLayout        = "2006-01-02"
)

var ErrInvalidRange = errors.New("invalid date range")

// Filters are the report selections made on the dashboard.
type Filters struct {
	Department         string `json:"department"`
	SatisfactionOption string `json:"satisfactionOption"`
	DateRange          string `json:"dateRange"`
	StartDate          string `json:"startDate,omitempty"`
	EndDate            string `json:"endDate,omitempty"`
}

// Normalize fills blank selections with "all" / "alltime".
func (f Filters) Normalize() Filters {
	f.Department = strings.TrimSpace(f.Department)
	f.SatisfactionOption = strings.TrimSpace(f.SatisfactionOption)
	f.DateRange = strings.TrimSpace(f.DateRange)
	if f.Department == "" {
		f.Department = OptionAll
	}
	if f.SatisfactionOption == "" {
		f.SatisfactionOption = OptionAll
	}
	if f.DateRange == "" {
		f.DateRange = RangeAllTime
	}
	return f
}

// Range is an inclusive time window. A zero bound is open.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// ResolveDateRange turns a named range into bounds relative to local midnight
// of now in loc. It returns nil for alltime and unknown names.
func ResolveDateRange(name string, now time.Time, loc *time.Location, start, end string) (*Range, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	endOfToday := today.Add(24*time.Hour - time.Nanosecond)

	switch name {
	case RangeToday:
		return &Range{Start: today, End: endOfToday}, nil
	case RangeLast7Days:
		return &Range{Start: today.Add(-7 * 24 * time.Hour), End: endOfToday}, nil
	case RangeLast30Days:
		return &Range{Start: today.Add(-30 * 24 * time.Hour), End: endOfToday}, nil
	case RangeLast6Months:
		return &Range{Start: time.Date(today.Year(), today.Month()-6, today.Day(), 0, 0, 0, 0, loc), End: endOfToday}, nil
	case RangeCustom:
		return customRange(loc, start, end)
	default:
		return nil, nil
	}
}

func customRange(loc *time.Location, start, end string) (*Range, error) {
	var r Range
	if s := strings.TrimSpace(start); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: startDate must be YYYY-MM-DD", ErrInvalidRange)
		}
		r.Start = t
	}
	if e := strings.TrimSpace(end); e != "" {
		t, err := time.ParseInLocation(dateLayout, e, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: endDate must be YYYY-MM-DD", ErrInvalidRange)
		}
		r.End = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return nil, fmt.Errorf("%w: startDate is after endDate", ErrInvalidRange)
	}
	return &r, nil
}

func matchesSatisfaction(s models.Satisfaction, option string) bool {
	switch option {
	case "", OptionAll:
		return true
	case OptionOtherIssues:
		return s.IsOtherIssue()
	default:
		return string(s) == option
	}
}

// Apply narrows feedbacks by department, then satisfaction, then date.
// The input slice is not modified.
func Apply(feedbacks []models.Feedback, filters Filters, now time.Time, loc *time.Location) ([]models.Feedback, error) {
	filters = filters.Normalize()
	dates, err := ResolveDateRange(filters.DateRange, now, loc, filters.StartDate, filters.EndDate)
	if err != nil {
		return nil, err
	}

	out := make([]models.Feedback, 0, len(feedbacks))
	for _, f := range feedbacks {
		if filters.Department != OptionAll && f.Department != filters.Department {
			continue
		}
		if !matchesSatisfaction(f.Satisfaction, filters.SatisfactionOption) {
			continue
		}
		if dates != nil && !dates.Contains(f.SubmittedAt) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// Stats are the counts printed on reports and the dashboard.
type Stats struct {
	Total            int `json:"total"`
	Satisfied        int `json:"satisfied"`
	NotSatisfied     int `json:"notSatisfied"`
	MobileMissing    int `json:"mobileMissing"`
	NumberIncorrect  int `json:"numberIncorrect"`
	CallNotPicked    int `json:"callNotPicked"`
	PersonNotExist   int `json:"personNotExist"`
	Resolved         int `json:"resolved"`
	Pending          int `json:"pending"`
	SatisfactionRate int `json:"satisfactionRate"`
}

func Tabulate(feedbacks []models.Feedback) Stats {
	s := Stats{Total: len(feedbacks)}
	for _, f := range feedbacks {
		switch f.Satisfaction {
		case models.SatisfactionSatisfied:
			s.Satisfied++
		case models.SatisfactionNotSatisfied:
			s.NotSatisfied++
		case models.SatisfactionMobileMissing:
			s.MobileMissing++
		case models.SatisfactionNumberIncorrect:
			s.NumberIncorrect++
		case models.SatisfactionCallNotPicked:
			s.CallNotPicked++
		case models.SatisfactionPersonNotExist:
			s.PersonNotExist++
		}
		switch f.Status {
		case models.StatusResolved:
			s.Resolved++
		case models.StatusPending:
			s.Pending++
		}
	}
	if s.Total > 0 {
		s.SatisfactionRate = int(math.Round(float64(s.Satisfied) / float64(s.Total) * 100))
	}
	return s
}
