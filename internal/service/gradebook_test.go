package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-aris-api/internal/models"
)

func grade(score, total float64, quarter int, category string, createdAt time.Time) models.Grade {
	return models.Grade{
		Score:      score,
		TotalScore: total,
		Quarter:    quarter,
		CategoryID: category,
		CreatedAt:  createdAt,
	}
}

func TestPercentage(t *testing.T) {
	p := Percentage(45, 60)
	require.NotNil(t, p)
	assert.Equal(t, 75.0, *p)

	assert.Nil(t, Percentage(10, 0))
	assert.Nil(t, Percentage(0, -5))

	zero := Percentage(0, 50)
	require.NotNil(t, zero)
	assert.Equal(t, 0.0, *zero)
}

func TestOverallPercentageEmptyIsNil(t *testing.T) {
	assert.Nil(t, OverallPercentage(nil))
	assert.Nil(t, OverallPercentage([]models.Grade{}))
}

func TestOverallPercentageAggregatesBeforeRounding(t *testing.T) {
	now := time.Now()
	grades := []models.Grade{
		grade(20, 30, 1, "written_works", now),
		grade(25, 30, 1, "written_works", now),
	}
	p := OverallPercentage(grades)
	require.NotNil(t, p)
	// 45/60, not the average of the per-item percentages.
	assert.Equal(t, 75.0, *p)
}

func TestQuarterPercentage(t *testing.T) {
	now := time.Now()
	grades := []models.Grade{
		grade(40, 50, 1, "written_works", now),
		grade(10, 50, 2, "written_works", now),
	}
	first := QuarterPercentage(grades, 1)
	require.NotNil(t, first)
	assert.Equal(t, 80.0, *first)

	assert.Nil(t, QuarterPercentage(grades, 3))
}

func TestGroupByCategory(t *testing.T) {
	now := time.Now()
	grades := []models.Grade{
		grade(9, 10, 1, "written_works", now),
		grade(6, 10, 1, "written_works", now),
		grade(30, 40, 1, "performance_task", now),
	}
	groups := GroupByCategory(grades)
	require.Len(t, groups, 2)

	ww := groups["written_works"]
	assert.Equal(t, 2, ww.Count)
	require.NotNil(t, ww.Percentage)
	assert.Equal(t, 75.0, *ww.Percentage)

	pt := groups["performance_task"]
	require.NotNil(t, pt.Percentage)
	assert.Equal(t, 75.0, *pt.Percentage)
}

func TestMissingWorkCount(t *testing.T) {
	now := time.Now()
	grades := []models.Grade{
		grade(0, 10, 1, "written_works", now),
		grade(5, 10, 1, "written_works", now),
		grade(0, 20, 1, "performance_task", now),
	}
	assert.Equal(t, 2, MissingWorkCount(grades))
}

func TestTrendOfRequiresHistory(t *testing.T) {
	now := time.Now()
	var grades []models.Grade
	for i := 0; i < 5; i++ {
		grades = append(grades, grade(9, 10, 1, "written_works", now.Add(time.Duration(i)*time.Hour)))
	}
	// Five grades fill the recent window but leave the older one empty.
	assert.Equal(t, models.TrendStable, TrendOf(grades))
}

func TestTrendOfDeclining(t *testing.T) {
	now := time.Now()
	var grades []models.Grade
	for i := 0; i < 5; i++ {
		grades = append(grades, grade(9, 10, 1, "written_works", now.Add(time.Duration(i)*time.Hour)))
	}
	for i := 5; i < 10; i++ {
		grades = append(grades, grade(6, 10, 1, "written_works", now.Add(time.Duration(i)*time.Hour)))
	}
	// Recent five at 60% against older five at 90%.
	assert.Equal(t, models.TrendDeclining, TrendOf(grades))
}

func TestTrendOfImproving(t *testing.T) {
	now := time.Now()
	var grades []models.Grade
	for i := 0; i < 5; i++ {
		grades = append(grades, grade(6, 10, 1, "written_works", now.Add(time.Duration(i)*time.Hour)))
	}
	for i := 5; i < 10; i++ {
		grades = append(grades, grade(9, 10, 1, "written_works", now.Add(time.Duration(i)*time.Hour)))
	}
	assert.Equal(t, models.TrendImproving, TrendOf(grades))
}

func TestTrendOfSmallSwingIsStable(t *testing.T) {
	now := time.Now()
	var grades []models.Grade
	for i := 0; i < 5; i++ {
		grades = append(grades, grade(80, 100, 1, "written_works", now.Add(time.Duration(i)*time.Hour)))
	}
	for i := 5; i < 10; i++ {
		grades = append(grades, grade(84, 100, 1, "written_works", now.Add(time.Duration(i)*time.Hour)))
	}
	// A four point swing stays inside the threshold.
	assert.Equal(t, models.TrendStable, TrendOf(grades))
}

func TestAttendanceRateNoRecordsDefaultsToFull(t *testing.T) {
	assert.Equal(t, 100.0, AttendanceRate(0, 0, 0, 0))
}

func TestAttendanceRateLateCountsHalf(t *testing.T) {
	// (6 present + 1 excused + 0.5 late) / 10 days = 75%.
	assert.Equal(t, 75.0, AttendanceRate(6, 1, 1, 10))
}

func TestSummarizeAttendance(t *testing.T) {
	records := []models.AttendanceRecord{
		{Status: models.AttendanceStatusPresent},
		{Status: models.AttendanceStatusPresent},
		{Status: models.AttendanceStatusLate},
		{Status: models.AttendanceStatusExcused},
		{Status: models.AttendanceStatusAbsent},
	}
	s := SummarizeAttendance(records)
	assert.Equal(t, 5, s.TotalDays)
	assert.Equal(t, 2, s.PresentDays)
	assert.Equal(t, 1, s.LateDays)
	assert.Equal(t, 1, s.ExcusedDays)
	assert.Equal(t, 1, s.AbsentDays)
	// (2 + 1 + 0.5) / 5 = 70%.
	assert.Equal(t, 70.0, s.Rate)
}

func TestNormalizeGradeCategoriesDefaults(t *testing.T) {
	categories := NormalizeGradeCategories(nil)
	require.Len(t, categories, 3)
	assert.Equal(t, "written_works", categories[0].ID)
	assert.Equal(t, "performance_task", categories[1].ID)
	assert.Equal(t, "quarterly_exam", categories[2].ID)
	assert.InDelta(t, 1.0, categories[0].Weight+categories[1].Weight+categories[2].Weight, 0.0001)
}

func TestNormalizeGradeCategoriesFillsGaps(t *testing.T) {
	categories := NormalizeGradeCategories([]models.GradeCategory{
		{
			Label:  "Lab Reports",
			Weight: 40,
			Tasks: []models.AssignmentTemplate{
				{Label: "Lab 1"},
			},
		},
	})
	require.Len(t, categories, 1)
	c := categories[0]
	assert.Equal(t, "lab_reports", c.ID)
	assert.Equal(t, 0.4, c.Weight)
	require.Len(t, c.Tasks, 1)
	assert.NotEmpty(t, c.Tasks[0].ID)
	assert.Equal(t, 100.0, c.Tasks[0].Total)
	assert.Equal(t, "lab_reports", c.Tasks[0].CategoryID)
}

func TestNormalizeGradeCategoriesIdempotent(t *testing.T) {
	first := NormalizeGradeCategories([]models.GradeCategory{
		{
			Label:  "Lab Reports",
			Weight: 40,
			Tasks: []models.AssignmentTemplate{
				{Label: "Lab 1", Total: 50},
			},
		},
	})
	second := NormalizeGradeCategories(first)
	assert.Equal(t, first, second)
}

func TestFlattenAssignments(t *testing.T) {
	structure := BuildGradeStructure([]models.GradeCategory{
		{
			ID:     "written_works",
			Label:  "Written Works",
			Weight: 0.3,
			Tasks: []models.AssignmentTemplate{
				{ID: "quiz_1", Label: "Quiz 1", Total: 20},
				{ID: "quiz_2", Label: "Quiz 2", Total: 20},
			},
		},
	})
	require.Len(t, structure.Assignments, 2)
	assert.Equal(t, "quiz_1", structure.Assignments[0].ID)
	assert.Equal(t, "Written Works", structure.Assignments[0].CategoryLabel)
	assert.Equal(t, 0.3, structure.Assignments[0].CategoryWeight)
}

func TestSnakeCase(t *testing.T) {
	assert.Equal(t, "written_works", snakeCase("Written Works"))
	assert.Equal(t, "lab_1", snakeCase("  Lab #1! "))
	assert.Equal(t, "quarterly_exam", snakeCase("Quarterly-Exam"))
}
