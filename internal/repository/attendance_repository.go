package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-aris-api/internal/models"
)

// AttendanceRepository handles attendance persistence.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// BulkUpsert writes a day's sheet in one transaction so a failing row never
// leaves earlier rows committed.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []*models.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk upsert: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO attendance_records (id, enrollment_id, date, status, created_at, updated_at)
        VALUES (:id, :enrollment_id, :date, :status, :created_at, :updated_at)
        ON CONFLICT (enrollment_id, date) DO UPDATE SET
            status = EXCLUDED.status,
            updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for _, record := range records {
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		record.CreatedAt = now
		record.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
			return fmt.Errorf("bulk upsert attendance %s: %w", record.EnrollmentID, err)
		}
	}
	return tx.Commit()
}

// ListByEnrollment returns attendance records for an enrollment, newest first.
func (r *AttendanceRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AttendanceRecord, error) {
	const query = `SELECT id, enrollment_id, date, status, created_at, updated_at
        FROM attendance_records WHERE enrollment_id = $1 ORDER BY date DESC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// FetchByEnrollments returns attendance records for a set of enrollments keyed
// by enrollment id.
func (r *AttendanceRepository) FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.AttendanceRecord, error) {
	result := make(map[string][]models.AttendanceRecord, len(enrollmentIDs))
	if len(enrollmentIDs) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT id, enrollment_id, date, status, created_at, updated_at
        FROM attendance_records WHERE enrollment_id IN (?) ORDER BY date DESC`, enrollmentIDs)
	if err != nil {
		return nil, fmt.Errorf("build attendance fetch: %w", err)
	}
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("fetch attendance: %w", err)
	}
	for _, record := range records {
		result[record.EnrollmentID] = append(result[record.EnrollmentID], record)
	}
	return result, nil
}
