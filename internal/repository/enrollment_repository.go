package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-aris-api/internal/models"
)

const enrollmentDetailColumns = `e.id, e.student_id, e.subject_id, e.risk_status, e.current_grade, e.current_attendance_rate,
        e.created_at, e.updated_at,
        st.full_name AS student_name,
        s.name AS subject_name, s.section, s.teacher_id,
        t.full_name AS teacher_name`

// EnrollmentRepository handles enrollment persistence.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create inserts an enrollment. The unique index on (student_id, subject_id)
// surfaces duplicates as a constraint violation.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_id, subject_id, risk_status, current_grade, current_attendance_rate, created_at, updated_at)
        VALUES (:id, :student_id, :subject_id, :risk_status, :current_grade, :current_attendance_rate, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment with student/subject context.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := `SELECT ` + enrollmentDetailColumns + `
        FROM enrollments e
        JOIN users st ON st.id = e.student_id
        JOIN subjects s ON s.id = e.subject_id
        JOIN users t ON t.id = s.teacher_id
        WHERE e.id = $1`
	var enrollment models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListBySubject returns the roster of a subject ordered by student name.
func (r *EnrollmentRepository) ListBySubject(ctx context.Context, subjectID string) ([]models.EnrollmentDetail, error) {
	query := `SELECT ` + enrollmentDetailColumns + `
        FROM enrollments e
        JOIN users st ON st.id = e.student_id
        JOIN subjects s ON s.id = e.subject_id
        JOIN users t ON t.id = s.teacher_id
        WHERE e.subject_id = $1
        ORDER BY st.full_name`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, subjectID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns a student's enrollments across subjects.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := `SELECT ` + enrollmentDetailColumns + `
        FROM enrollments e
        JOIN users st ON st.id = e.student_id
        JOIN subjects s ON s.id = e.subject_id
        JOIN users t ON t.id = s.teacher_id
        WHERE e.student_id = $1
        ORDER BY s.name`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// ListByTeacher returns every enrollment across the teacher's subjects.
func (r *EnrollmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.EnrollmentDetail, error) {
	query := `SELECT ` + enrollmentDetailColumns + `
        FROM enrollments e
        JOIN users st ON st.id = e.student_id
        JOIN subjects s ON s.id = e.subject_id
        JOIN users t ON t.id = s.teacher_id
        WHERE s.teacher_id = $1
        ORDER BY s.name, st.full_name`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateSnapshot writes back the advisory risk/grade/attendance fields.
func (r *EnrollmentRepository) UpdateSnapshot(ctx context.Context, enrollmentID string, snapshot models.EnrollmentSnapshot) error {
	const query = `UPDATE enrollments
        SET risk_status = $2, current_grade = $3, current_attendance_rate = $4, updated_at = $5
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, enrollmentID, snapshot.RiskStatus, snapshot.CurrentGrade, snapshot.AttendanceRate, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment snapshot: %w", err)
	}
	return nil
}

// Delete removes an enrollment and its dependent records via cascade.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}
