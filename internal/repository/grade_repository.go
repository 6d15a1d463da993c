package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-aris-api/internal/models"
)

// GradeRepository handles grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert inserts a grade, or updates the score fields when the
// (enrollment_id, assignment_key, quarter) row already exists.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, enrollment_id, assignment_key, assignment_name, category_id, score, total_score, quarter, created_at, updated_at)
        VALUES (:id, :enrollment_id, :assignment_key, :assignment_name, :category_id, :score, :total_score, :quarter, :created_at, :updated_at)
        ON CONFLICT (enrollment_id, assignment_key, quarter) DO UPDATE SET
            assignment_name = EXCLUDED.assignment_name,
            category_id = EXCLUDED.category_id,
            score = EXCLUDED.score,
            total_score = EXCLUDED.total_score,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// BulkUpsert applies a batch of grade upserts in a single transaction.
func (r *GradeRepository) BulkUpsert(ctx context.Context, grades []*models.Grade) error {
	if len(grades) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk upsert: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO grades (id, enrollment_id, assignment_key, assignment_name, category_id, score, total_score, quarter, created_at, updated_at)
        VALUES (:id, :enrollment_id, :assignment_key, :assignment_name, :category_id, :score, :total_score, :quarter, :created_at, :updated_at)
        ON CONFLICT (enrollment_id, assignment_key, quarter) DO UPDATE SET
            assignment_name = EXCLUDED.assignment_name,
            category_id = EXCLUDED.category_id,
            score = EXCLUDED.score,
            total_score = EXCLUDED.total_score,
            updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for _, grade := range grades {
		if grade.ID == "" {
			grade.ID = uuid.NewString()
		}
		grade.CreatedAt = now
		grade.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, grade); err != nil {
			return fmt.Errorf("bulk upsert grade %s: %w", grade.AssignmentKey, err)
		}
	}
	return tx.Commit()
}

// ListByEnrollment returns grades for an enrollment, optionally filtered by
// category and quarter, newest first.
func (r *GradeRepository) ListByEnrollment(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	query := `SELECT id, enrollment_id, assignment_key, assignment_name, category_id, score, total_score, quarter, created_at, updated_at
        FROM grades WHERE enrollment_id = $1`
	args := []interface{}{filter.EnrollmentID}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(" AND category_id = $%d", len(args))
	}
	if filter.Quarter > 0 {
		args = append(args, filter.Quarter)
		query += fmt.Sprintf(" AND quarter = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// FetchByEnrollments returns all grades for a set of enrollments keyed by
// enrollment id. Used by roster-wide dashboard and report builds.
func (r *GradeRepository) FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Grade, error) {
	result := make(map[string][]models.Grade, len(enrollmentIDs))
	if len(enrollmentIDs) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT id, enrollment_id, assignment_key, assignment_name, category_id, score, total_score, quarter, created_at, updated_at
        FROM grades WHERE enrollment_id IN (?) ORDER BY created_at DESC`, enrollmentIDs)
	if err != nil {
		return nil, fmt.Errorf("build grade fetch: %w", err)
	}
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("fetch grades: %w", err)
	}
	for _, grade := range grades {
		result[grade.EnrollmentID] = append(result[grade.EnrollmentID], grade)
	}
	return result, nil
}

// Delete removes a grade row.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM grades WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}
