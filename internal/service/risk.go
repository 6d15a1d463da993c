package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
)

// CategorySignal is one per-category percentage feeding the classifier.
type CategorySignal struct {
	Label      string
	Percentage *float64
}

// RiskInput carries the independent signals for one enrollment.
type RiskInput struct {
	Grade          *float64
	AttendanceRate float64
	Categories     []CategorySignal
	MissingWork    int
	Trend          models.Trend
}

// ClassifyRisk applies the rules in fixed precedence and max-merges the
// resulting level; a later rule can raise the level but never lower it. The
// reason list keeps rule order so the UI can explain the classification.
func ClassifyRisk(in RiskInput) (models.RiskLevel, []string) {
	level := models.RiskLow
	reasons := []string{}

	if in.Grade != nil {
		switch {
		case *in.Grade < 70:
			level = level.Max(models.RiskHigh)
			reasons = append(reasons, "Grade below 70%")
		case *in.Grade < 75:
			level = level.Max(models.RiskMedium)
			reasons = append(reasons, "Grade below passing (75%)")
		}
	}

	switch {
	case in.AttendanceRate < 80:
		level = level.Max(models.RiskHigh)
		reasons = append(reasons, "Attendance below 80%")
	case in.AttendanceRate < 90:
		level = level.Max(models.RiskMedium)
		reasons = append(reasons, "Attendance needs improvement")
	}

	for _, category := range in.Categories {
		if category.Percentage != nil && *category.Percentage < 70 {
			level = level.Max(models.RiskMedium)
			reasons = append(reasons, fmt.Sprintf("%s score is low (%g%%)", ucfirst(category.Label), *category.Percentage))
		}
	}

	if in.MissingWork > 0 {
		level = level.Max(models.RiskMedium)
		reasons = append(reasons, fmt.Sprintf("%d missing assignment(s)", in.MissingWork))
	}

	if in.Trend == models.TrendDeclining {
		level = level.Max(models.RiskMedium)
		reasons = append(reasons, "Grade trend is declining")
	}

	return level, reasons
}

// ExpectedGrade projects the current grade five points along the trend,
// clamped to [0,100].
func ExpectedGrade(current *float64, trend models.Trend) *float64 {
	if current == nil {
		return nil
	}
	expected := *current
	switch trend {
	case models.TrendDeclining:
		expected = math.Max(0, expected-5)
	case models.TrendImproving:
		expected = math.Min(100, expected+5)
	}
	expected = math.Round(expected*10) / 10
	return &expected
}

// QuarterRemarks maps a quarter percentage onto the report-card scale.
func QuarterRemarks(grade *float64) string {
	if grade == nil {
		return "N/A"
	}
	switch {
	case *grade >= 90:
		return "Excellent"
	case *grade >= 85:
		return "Very Good"
	case *grade >= 80:
		return "Good"
	case *grade >= 75:
		return "Satisfactory"
	default:
		return "Needs Improvement"
	}
}

// Priority buckets for the teacher dashboard.
const (
	BucketCritical  = "critical"
	BucketWarning   = "warning"
	BucketWatchList = "watch_list"
	BucketNone      = ""
)

// PriorityBucket classifies a student row for the dashboard overview:
// critical below 70, warning below 75, watch-list when a passing grade under
// 80 is trending down.
func PriorityBucket(grade *float64, trend models.Trend) string {
	if grade == nil {
		return BucketNone
	}
	switch {
	case *grade < 70:
		return BucketCritical
	case *grade < 75:
		return BucketWarning
	case *grade < 80 && trend == models.TrendDeclining:
		return BucketWatchList
	default:
		return BucketNone
	}
}

// Suggestions derives the ordered advisory list for a student: exactly one
// grade-tier message, an attendance message below 85%, and a review reminder
// when past work scored under 70%.
func Suggestions(grade *float64, attendanceRate float64, lowScoringCount int) []dto.Suggestion {
	suggestions := []dto.Suggestion{gradeSuggestion(grade)}

	if attendanceRate < 85 {
		suggestions = append(suggestions, dto.Suggestion{
			Type:    "warning",
			Icon:    "calendar",
			Title:   "Improve Attendance",
			Message: fmt.Sprintf("Your attendance rate is %g%%. Regular attendance is crucial for success. Try to attend every class.", attendanceRate),
		})
	}

	if lowScoringCount > 0 {
		suggestions = append(suggestions, dto.Suggestion{
			Type:    "info",
			Icon:    "book",
			Title:   "Review Past Work",
			Message: fmt.Sprintf("You have %d assignment(s) below 70%%. Review these topics to strengthen your understanding.", lowScoringCount),
		})
	}

	return suggestions
}

func gradeSuggestion(grade *float64) dto.Suggestion {
	if grade == nil {
		return dto.Suggestion{
			Type:    "info",
			Icon:    "info",
			Title:   "No Grades Yet",
			Message: "Your grades will appear here once your teacher starts recording them. Stay attentive in class!",
		}
	}
	switch {
	case *grade >= 90:
		return dto.Suggestion{
			Type:    "success",
			Icon:    "star",
			Title:   "Excellent Performance!",
			Message: "You're doing amazing! Keep up the great work. Consider helping classmates who might be struggling.",
		}
	case *grade >= 85:
		return dto.Suggestion{
			Type:    "success",
			Icon:    "thumbs-up",
			Title:   "Great Job!",
			Message: "You're performing very well. To reach excellent, try reviewing your notes for 15 minutes after each class.",
		}
	case *grade >= 80:
		return dto.Suggestion{
			Type:    "info",
			Icon:    "lightbulb",
			Title:   "Good Progress",
			Message: "You're on the right track! Focus on understanding concepts deeply rather than just memorizing.",
		}
	case *grade >= 75:
		return dto.Suggestion{
			Type:    "warning",
			Icon:    "alert",
			Title:   "Room for Improvement",
			Message: "You're passing but have room to grow. Consider forming a study group or visiting during office hours.",
		}
	default:
		return dto.Suggestion{
			Type:    "danger",
			Icon:    "alert-triangle",
			Title:   "Needs Attention",
			Message: "Your grade is below passing. Please talk to your teacher as soon as possible for support and guidance.",
		}
	}
}

func ucfirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
