package export

import (
	"time"

	"github.com/cgportal/feedback-backend/internal/models"
)

const DefaultTitle = "Feedback Report"

// Report is a filtered feedback set ready to render.
type Report struct {
	Title       string
	Filters     Filters
	Feedbacks   []models.Feedback
	Stats       Stats
	GeneratedAt time.Time
	Location    *time.Location
}

// NewReport filters feedbacks and tabulates the result.
func NewReport(title string, feedbacks []models.Feedback, filters Filters, now time.Time, loc *time.Location) (*Report, error) {
	if loc == nil {
		loc = time.Local
	}
	filtered, err := Apply(feedbacks, filters, now, loc)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = DefaultTitle
	}
	return &Report{
		Title:       title,
		Filters:     filters.Normalize(),
		Feedbacks:   filtered,
		Stats:       Tabulate(filtered),
		GeneratedAt: now.In(loc),
		Location:    loc,
	}, nil
}

func (r *Report) localDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(r.Location).Format(reportDateLayout)
}

func (r *Report) localTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(r.Location).Format(reportTimeLayout)
}
