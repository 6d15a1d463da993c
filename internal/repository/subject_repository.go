package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-aris-api/internal/models"
)

// SubjectRepository handles subject persistence.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// Create inserts a subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, teacher_id, name, section, grade_level, strand, track, room_number, school_year, color, grade_categories, created_at, updated_at)
        VALUES (:id, :teacher_id, :name, :section, :grade_level, :strand, :track, :room_number, :school_year, :color, :grade_categories, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update persists mutable subject fields.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, section = :section, grade_level = :grade_level,
        strand = :strand, track = :track, room_number = :room_number, school_year = :school_year,
        color = :color, grade_categories = :grade_categories, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, teacher_id, name, section, grade_level, strand, track, room_number, school_year, color, grade_categories, created_at, updated_at
        FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListByTeacher returns the teacher's subjects with enrollment counts.
func (r *SubjectRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.SubjectDetail, error) {
	const query = `SELECT s.id, s.teacher_id, s.name, s.section, s.grade_level, s.strand, s.track, s.room_number,
            s.school_year, s.color, s.grade_categories, s.created_at, s.updated_at,
            u.full_name AS teacher_name,
            COUNT(e.id) AS enrollment_count
        FROM subjects s
        JOIN users u ON u.id = s.teacher_id
        LEFT JOIN enrollments e ON e.subject_id = s.id
        WHERE s.teacher_id = $1
        GROUP BY s.id, u.full_name
        ORDER BY s.name`
	var subjects []models.SubjectDetail
	if err := r.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}
