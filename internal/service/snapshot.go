package service

import (
	"github.com/noah-isme/sma-aris-api/internal/models"
)

// ComputeSnapshot derives the advisory enrollment snapshot from the raw grade
// and attendance records. Views never read these fields as authoritative; they
// exist so roster lists avoid recomputing every row.
func ComputeSnapshot(grades []models.Grade, records []models.AttendanceRecord) models.EnrollmentSnapshot {
	overall := OverallPercentage(grades)
	attendance := SummarizeAttendance(records)

	signals := make([]CategorySignal, 0)
	for categoryID, group := range GroupByCategory(grades) {
		signals = append(signals, CategorySignal{Label: categoryID, Percentage: group.Percentage})
	}

	level, _ := ClassifyRisk(RiskInput{
		Grade:          overall,
		AttendanceRate: attendance.Rate,
		Categories:     signals,
		MissingWork:    MissingWorkCount(grades),
		Trend:          TrendOf(grades),
	})

	return models.EnrollmentSnapshot{
		RiskStatus:     level,
		CurrentGrade:   overall,
		AttendanceRate: attendance.Rate,
	}
}
