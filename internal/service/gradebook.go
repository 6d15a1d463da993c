package service

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-aris-api/internal/dto"
	"github.com/noah-isme/sma-aris-api/internal/models"
)

// Pure aggregation over raw grade and attendance records. Every function here
// is side-effect free so views can recompute on each request.

// Percentage returns round(100 × score/total), or nil when total is not
// positive. "No grades yet" must stay distinguishable from an actual 0%.
func Percentage(score, total float64) *float64 {
	if total <= 0 {
		return nil
	}
	v := math.Round(score / total * 100)
	return &v
}

// Percentage1 is Percentage rounded to one decimal, used on risk cards.
func Percentage1(score, total float64) *float64 {
	if total <= 0 {
		return nil
	}
	v := math.Round(score/total*1000) / 10
	return &v
}

// OverallPercentage aggregates a full grade set into a percentage.
func OverallPercentage(grades []models.Grade) *float64 {
	var score, total float64
	for _, g := range grades {
		score += g.Score
		total += g.TotalScore
	}
	return Percentage(score, total)
}

// QuarterPercentage restricts the aggregate to one quarter.
func QuarterPercentage(grades []models.Grade, quarter int) *float64 {
	var score, total float64
	for _, g := range grades {
		if g.Quarter != quarter {
			continue
		}
		score += g.Score
		total += g.TotalScore
	}
	return Percentage(score, total)
}

// GroupByCategory aggregates sums and percentages per category id.
func GroupByCategory(grades []models.Grade) map[string]dto.GroupBreakdown {
	result := make(map[string]dto.GroupBreakdown)
	for _, g := range grades {
		b := result[g.CategoryID]
		b.Score += g.Score
		b.Total += g.TotalScore
		b.Count++
		result[g.CategoryID] = b
	}
	for id, b := range result {
		b.Percentage = Percentage1(b.Score, b.Total)
		result[id] = b
	}
	return result
}

// GroupByQuarter aggregates sums and percentages per quarter.
func GroupByQuarter(grades []models.Grade) map[int]dto.GroupBreakdown {
	result := make(map[int]dto.GroupBreakdown)
	for _, g := range grades {
		b := result[g.Quarter]
		b.Score += g.Score
		b.Total += g.TotalScore
		b.Count++
		result[g.Quarter] = b
	}
	for q, b := range result {
		b.Percentage = Percentage1(b.Score, b.Total)
		result[q] = b
	}
	return result
}

// MissingWorkCount counts zero-score grades. A legitimately zero-scored
// assignment is indistinguishable from unsubmitted work in this model.
func MissingWorkCount(grades []models.Grade) int {
	count := 0
	for _, g := range grades {
		if g.Score == 0 {
			count++
		}
	}
	return count
}

const trendWindow = 5
const trendThreshold = 5.0

// TrendOf compares the most recent five grades against the five before them,
// ordered by creation time. A swing larger than five points in either
// direction marks the trend; anything else, including too little history,
// reads as stable.
func TrendOf(grades []models.Grade) models.Trend {
	sorted := make([]models.Grade, len(grades))
	copy(sorted, grades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	recent := windowPercentage(sorted, 0, trendWindow)
	older := windowPercentage(sorted, trendWindow, trendWindow)
	if recent == nil || older == nil {
		return models.TrendStable
	}

	diff := *recent - *older
	switch {
	case diff > trendThreshold:
		return models.TrendImproving
	case diff < -trendThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func windowPercentage(sorted []models.Grade, offset, size int) *float64 {
	if offset >= len(sorted) {
		return nil
	}
	end := offset + size
	if end > len(sorted) {
		end = len(sorted)
	}
	var score, total float64
	for _, g := range sorted[offset:end] {
		score += g.Score
		total += g.TotalScore
	}
	if total <= 0 {
		return nil
	}
	v := score / total * 100
	return &v
}

// AttendanceRate applies the canonical formula
// round(100 × (present + excused + 0.5×late) / total), defaulting to 100 for
// students with no recorded days.
func AttendanceRate(present, late, excused, total int) float64 {
	if total <= 0 {
		return 100
	}
	credit := float64(present) + float64(excused) + 0.5*float64(late)
	return math.Round(credit / float64(total) * 100)
}

// SummarizeAttendance folds attendance records into per-status counts and the
// canonical rate.
func SummarizeAttendance(records []models.AttendanceRecord) models.AttendanceSummary {
	s := models.AttendanceSummary{TotalDays: len(records)}
	for _, r := range records {
		switch r.Status {
		case models.AttendanceStatusPresent:
			s.PresentDays++
		case models.AttendanceStatusAbsent:
			s.AbsentDays++
		case models.AttendanceStatusLate:
			s.LateDays++
		case models.AttendanceStatusExcused:
			s.ExcusedDays++
		}
	}
	s.Rate = AttendanceRate(s.PresentDays, s.LateDays, s.ExcusedDays, s.TotalDays)
	return s
}

// DefaultGradeCategories is the standard Written Works / Performance Task /
// Quarterly Exam split.
func DefaultGradeCategories() []models.GradeCategory {
	return []models.GradeCategory{
		{ID: "written_works", Label: "Written Works", Weight: 0.30, Tasks: []models.AssignmentTemplate{}},
		{ID: "performance_task", Label: "Performance Task", Weight: 0.40, Tasks: []models.AssignmentTemplate{}},
		{ID: "quarterly_exam", Label: "Quarterly Exam", Weight: 0.30, Tasks: []models.AssignmentTemplate{}},
	}
}

// NormalizeGradeCategories fills in missing ids, labels and totals, coerces
// weights to 0-1 fractions rounded to four decimals and guarantees every task
// carries its owning category id. Normalization is idempotent.
func NormalizeGradeCategories(categories []models.GradeCategory) []models.GradeCategory {
	if len(categories) == 0 {
		categories = DefaultGradeCategories()
	}

	normalized := make([]models.GradeCategory, 0, len(categories))
	for i, category := range categories {
		label := strings.TrimSpace(category.Label)
		if label == "" {
			label = "Category " + strconv.Itoa(i+1)
		}
		id := category.ID
		if id == "" {
			id = snakeCase(label)
		}

		tasks := make([]models.AssignmentTemplate, 0, len(category.Tasks))
		for j, task := range category.Tasks {
			taskLabel := strings.TrimSpace(task.Label)
			if taskLabel == "" {
				taskLabel = "Task " + strconv.Itoa(j+1)
			}
			taskID := task.ID
			if taskID == "" {
				taskID = snakeCase(taskLabel) + "_" + id + "_" + uuid.NewString()[:6]
			}
			total := task.Total
			if total <= 0 {
				total = 100
			}
			categoryID := task.CategoryID
			if categoryID == "" {
				categoryID = id
			}
			tasks = append(tasks, models.AssignmentTemplate{
				ID:         taskID,
				Label:      taskLabel,
				Total:      total,
				CategoryID: categoryID,
			})
		}

		normalized = append(normalized, models.GradeCategory{
			ID:     id,
			Label:  label,
			Weight: normalizeWeight(category.Weight),
			Tasks:  tasks,
		})
	}
	return normalized
}

// FlattenAssignments projects the normalized categories into an assignment
// list carrying category back-references.
func FlattenAssignments(categories []models.GradeCategory) []models.FlatAssignment {
	flat := make([]models.FlatAssignment, 0)
	for _, category := range categories {
		for _, task := range category.Tasks {
			categoryID := task.CategoryID
			if categoryID == "" {
				categoryID = category.ID
			}
			flat = append(flat, models.FlatAssignment{
				ID:             task.ID,
				Label:          task.Label,
				Total:          task.Total,
				CategoryID:     categoryID,
				CategoryLabel:  category.Label,
				CategoryWeight: category.Weight,
			})
		}
	}
	return flat
}

// BuildGradeStructure normalizes and flattens in one step.
func BuildGradeStructure(categories []models.GradeCategory) models.GradeStructure {
	normalized := NormalizeGradeCategories(categories)
	return models.GradeStructure{
		Categories:  normalized,
		Assignments: FlattenAssignments(normalized),
	}
}

// normalizeWeight coerces percentage-form weights (> 1) into fractions and
// rounds to four decimals.
func normalizeWeight(weight float64) float64 {
	if weight <= 0 {
		return 0
	}
	if weight > 1 {
		weight = weight / 100
	}
	return math.Round(weight*10000) / 10000
}

func snakeCase(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

