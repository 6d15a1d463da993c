package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-aris-api/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestClassifyRiskHealthyStudent(t *testing.T) {
	level, reasons := ClassifyRisk(RiskInput{
		Grade:          floatPtr(92),
		AttendanceRate: 98,
		Trend:          models.TrendStable,
	})
	assert.Equal(t, models.RiskLow, level)
	assert.Empty(t, reasons)
}

func TestClassifyRiskNoGradesIsNotRisky(t *testing.T) {
	level, reasons := ClassifyRisk(RiskInput{
		Grade:          nil,
		AttendanceRate: 100,
	})
	assert.Equal(t, models.RiskLow, level)
	assert.Empty(t, reasons)
}

func TestClassifyRiskFailingGrade(t *testing.T) {
	level, reasons := ClassifyRisk(RiskInput{
		Grade:          floatPtr(65),
		AttendanceRate: 95,
	})
	assert.Equal(t, models.RiskHigh, level)
	assert.Equal(t, []string{"Grade below 70%"}, reasons)
}

func TestClassifyRiskBelowPassing(t *testing.T) {
	level, reasons := ClassifyRisk(RiskInput{
		Grade:          floatPtr(72),
		AttendanceRate: 95,
	})
	assert.Equal(t, models.RiskMedium, level)
	assert.Equal(t, []string{"Grade below passing (75%)"}, reasons)
}

func TestClassifyRiskAttendanceTiers(t *testing.T) {
	level, reasons := ClassifyRisk(RiskInput{Grade: floatPtr(90), AttendanceRate: 85})
	assert.Equal(t, models.RiskMedium, level)
	assert.Equal(t, []string{"Attendance needs improvement"}, reasons)

	level, reasons = ClassifyRisk(RiskInput{Grade: floatPtr(90), AttendanceRate: 70})
	assert.Equal(t, models.RiskHigh, level)
	assert.Equal(t, []string{"Attendance below 80%"}, reasons)
}

func TestClassifyRiskLaterRulesNeverLowerLevel(t *testing.T) {
	// A failing grade raises to high; the medium-tier rules that follow must
	// keep it there while still contributing their reasons.
	level, reasons := ClassifyRisk(RiskInput{
		Grade:          floatPtr(60),
		AttendanceRate: 85,
		Categories: []CategorySignal{
			{Label: "written works", Percentage: floatPtr(55)},
		},
		MissingWork: 2,
		Trend:       models.TrendDeclining,
	})
	assert.Equal(t, models.RiskHigh, level)
	require.Len(t, reasons, 5)
	assert.Equal(t, "Grade below 70%", reasons[0])
	assert.Equal(t, "Attendance needs improvement", reasons[1])
	assert.Equal(t, "Written works score is low (55%)", reasons[2])
	assert.Equal(t, "2 missing assignment(s)", reasons[3])
	assert.Equal(t, "Grade trend is declining", reasons[4])
}

func TestClassifyRiskCategorySignalsIgnoreNil(t *testing.T) {
	level, reasons := ClassifyRisk(RiskInput{
		Grade:          floatPtr(90),
		AttendanceRate: 95,
		Categories: []CategorySignal{
			{Label: "quarterly exam", Percentage: nil},
		},
	})
	assert.Equal(t, models.RiskLow, level)
	assert.Empty(t, reasons)
}

func TestExpectedGrade(t *testing.T) {
	assert.Nil(t, ExpectedGrade(nil, models.TrendDeclining))

	down := ExpectedGrade(floatPtr(72), models.TrendDeclining)
	require.NotNil(t, down)
	assert.Equal(t, 67.0, *down)

	up := ExpectedGrade(floatPtr(98), models.TrendImproving)
	require.NotNil(t, up)
	assert.Equal(t, 100.0, *up)

	floor := ExpectedGrade(floatPtr(3), models.TrendDeclining)
	require.NotNil(t, floor)
	assert.Equal(t, 0.0, *floor)

	flat := ExpectedGrade(floatPtr(81.5), models.TrendStable)
	require.NotNil(t, flat)
	assert.Equal(t, 81.5, *flat)
}

func TestQuarterRemarks(t *testing.T) {
	assert.Equal(t, "N/A", QuarterRemarks(nil))
	assert.Equal(t, "Excellent", QuarterRemarks(floatPtr(90)))
	assert.Equal(t, "Very Good", QuarterRemarks(floatPtr(85)))
	assert.Equal(t, "Good", QuarterRemarks(floatPtr(80)))
	assert.Equal(t, "Satisfactory", QuarterRemarks(floatPtr(75)))
	assert.Equal(t, "Needs Improvement", QuarterRemarks(floatPtr(74.9)))
}

func TestPriorityBucket(t *testing.T) {
	assert.Equal(t, BucketNone, PriorityBucket(nil, models.TrendDeclining))
	assert.Equal(t, BucketCritical, PriorityBucket(floatPtr(69), models.TrendStable))
	assert.Equal(t, BucketWarning, PriorityBucket(floatPtr(74), models.TrendStable))
	assert.Equal(t, BucketWatchList, PriorityBucket(floatPtr(78), models.TrendDeclining))
	assert.Equal(t, BucketNone, PriorityBucket(floatPtr(78), models.TrendStable))
	assert.Equal(t, BucketNone, PriorityBucket(floatPtr(85), models.TrendDeclining))
}

func TestSuggestionsAlwaysLeadsWithGradeTier(t *testing.T) {
	suggestions := Suggestions(nil, 100, 0)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "No Grades Yet", suggestions[0].Title)

	suggestions = Suggestions(floatPtr(92), 100, 0)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Excellent Performance!", suggestions[0].Title)
}

func TestSuggestionsAppendAttendanceAndReview(t *testing.T) {
	suggestions := Suggestions(floatPtr(72), 80, 3)
	require.Len(t, suggestions, 3)
	assert.Equal(t, "Needs Attention", suggestions[0].Title)
	assert.Equal(t, "Improve Attendance", suggestions[1].Title)
	assert.Equal(t, "Review Past Work", suggestions[2].Title)
	assert.Contains(t, suggestions[2].Message, "3 assignment(s) below 70%")
}

func TestRiskLevelMax(t *testing.T) {
	assert.Equal(t, models.RiskHigh, models.RiskLow.Max(models.RiskHigh))
	assert.Equal(t, models.RiskHigh, models.RiskHigh.Max(models.RiskMedium))
	assert.Equal(t, models.RiskMedium, models.RiskLow.Max(models.RiskMedium))
}
