package export

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cgportal/feedback-backend/internal/models"
)

// Dates on reports follow the en-IN locale: day/month/year, 12-hour clock.
const (
	reportDateLayout = "2/1/2006"
	reportTimeLayout = "3:04:05 pm"
)

var whitespace = regexp.MustCompile(`\s+`)

func FormatSatisfaction(s string) string {
	switch models.Satisfaction(s) {
	case models.SatisfactionSatisfied:
		return "Satisfied"
	case models.SatisfactionNotSatisfied:
		return "Not Satisfied"
	case models.SatisfactionMobileMissing:
		return "Mobile Missing"
	case models.SatisfactionNumberIncorrect:
		return "Number Incorrect"
	case models.SatisfactionCallNotPicked:
		return "Call Not Picked"
	case models.SatisfactionPersonNotExist:
		return "Person Doesn't Exist"
	}
	if s == "" {
		return "N/A"
	}
	return s
}

// FormatDateRange capitalises the first letter and breaks before later capitals.
func FormatDateRange(r string) string {
	if r == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(r)
	var b strings.Builder
	b.WriteRune(unicode.ToUpper(first))
	for _, c := range r[size:] {
		if unicode.IsUpper(c) {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func departmentLabel(d string) string {
	if d == "" || d == OptionAll {
		return "All Departments"
	}
	return d
}

func satisfactionLabel(option string) string {
	if option == "" || option == OptionAll {
		return "All Options"
	}
	if option == OptionOtherIssues {
		return "Other Issues"
	}
	return FormatSatisfaction(option)
}

func generatedLabel(t time.Time) string {
	return t.Format(reportDateLayout) + " at " + t.Format(reportTimeLayout)
}

// FileName builds feedback_report[_Dept]_<range>[_<option>]_<YYYY-MM-DD>.<ext>.
func FileName(filters Filters, ext string, now time.Time) string {
	filters = filters.Normalize()

	var b strings.Builder
	b.WriteString("feedback_report")
	if filters.Department != OptionAll {
		b.WriteString("_" + whitespace.ReplaceAllString(filters.Department, "_"))
	}
	b.WriteString("_" + filters.DateRange)
	if filters.SatisfactionOption != OptionAll {
		b.WriteString("_" + filters.SatisfactionOption)
	}
	b.WriteString("_" + now.UTC().Format(dateLayout))
	b.WriteString("." + strings.TrimPrefix(ext, "."))
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
