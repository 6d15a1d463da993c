package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-aris-api/internal/models"
)

// InterventionRepository handles intervention and task persistence.
type InterventionRepository struct {
	db *sqlx.DB
}

// NewInterventionRepository creates a new intervention repository.
func NewInterventionRepository(db *sqlx.DB) *InterventionRepository {
	return &InterventionRepository{db: db}
}

// Create inserts an intervention and its initial tasks in one transaction.
// The partial unique index on (enrollment_id) WHERE status = 'ACTIVE' rejects
// a second active intervention per enrollment.
func (r *InterventionRepository) Create(ctx context.Context, intervention *models.Intervention) error {
	if intervention.ID == "" {
		intervention.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	intervention.CreatedAt = now
	intervention.UpdatedAt = now
	if intervention.Status == "" {
		intervention.Status = models.InterventionStatusActive
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create intervention: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO interventions (id, enrollment_id, type, status, notes, created_at, updated_at)
        VALUES (:id, :enrollment_id, :type, :status, :notes, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, intervention); err != nil {
		return fmt.Errorf("create intervention: %w", err)
	}

	const taskQuery = `INSERT INTO intervention_tasks (id, intervention_id, description, is_completed, created_at, updated_at)
        VALUES (:id, :intervention_id, :description, :is_completed, :created_at, :updated_at)`
	for i := range intervention.Tasks {
		task := &intervention.Tasks[i]
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		task.InterventionID = intervention.ID
		task.CreatedAt = now
		task.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, taskQuery, task); err != nil {
			return fmt.Errorf("create intervention task: %w", err)
		}
	}
	return tx.Commit()
}

// FindByID returns an intervention with its tasks.
func (r *InterventionRepository) FindByID(ctx context.Context, id string) (*models.Intervention, error) {
	const query = `SELECT id, enrollment_id, type, status, notes, created_at, updated_at
        FROM interventions WHERE id = $1`
	var intervention models.Intervention
	if err := r.db.GetContext(ctx, &intervention, query, id); err != nil {
		return nil, err
	}
	tasks, err := r.listTasks(ctx, id)
	if err != nil {
		return nil, err
	}
	intervention.Tasks = tasks
	return &intervention, nil
}

// FindActiveByEnrollment returns the enrollment's active intervention with
// tasks, or sql.ErrNoRows when none is active.
func (r *InterventionRepository) FindActiveByEnrollment(ctx context.Context, enrollmentID string) (*models.Intervention, error) {
	const query = `SELECT id, enrollment_id, type, status, notes, created_at, updated_at
        FROM interventions WHERE enrollment_id = $1 AND status = 'ACTIVE'`
	var intervention models.Intervention
	if err := r.db.GetContext(ctx, &intervention, query, enrollmentID); err != nil {
		return nil, err
	}
	tasks, err := r.listTasks(ctx, intervention.ID)
	if err != nil {
		return nil, err
	}
	intervention.Tasks = tasks
	return &intervention, nil
}

// ListByEnrollment returns the full intervention history for an enrollment,
// newest first, with tasks attached.
func (r *InterventionRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Intervention, error) {
	const query = `SELECT id, enrollment_id, type, status, notes, created_at, updated_at
        FROM interventions WHERE enrollment_id = $1 ORDER BY created_at DESC`
	var interventions []models.Intervention
	if err := r.db.SelectContext(ctx, &interventions, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list interventions: %w", err)
	}
	if err := r.attachTasks(ctx, interventions); err != nil {
		return nil, err
	}
	return interventions, nil
}

// FetchByEnrollments returns interventions for a set of enrollments keyed by
// enrollment id, newest first, with tasks attached.
func (r *InterventionRepository) FetchByEnrollments(ctx context.Context, enrollmentIDs []string) (map[string][]models.Intervention, error) {
	result := make(map[string][]models.Intervention, len(enrollmentIDs))
	if len(enrollmentIDs) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT id, enrollment_id, type, status, notes, created_at, updated_at
        FROM interventions WHERE enrollment_id IN (?) ORDER BY created_at DESC`, enrollmentIDs)
	if err != nil {
		return nil, fmt.Errorf("build intervention fetch: %w", err)
	}
	var interventions []models.Intervention
	if err := r.db.SelectContext(ctx, &interventions, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("fetch interventions: %w", err)
	}
	if err := r.attachTasks(ctx, interventions); err != nil {
		return nil, err
	}
	for _, intervention := range interventions {
		result[intervention.EnrollmentID] = append(result[intervention.EnrollmentID], intervention)
	}
	return result, nil
}

// AddTask appends a task to an intervention.
func (r *InterventionRepository) AddTask(ctx context.Context, task *models.InterventionTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	const query = `INSERT INTO intervention_tasks (id, intervention_id, description, is_completed, created_at, updated_at)
        VALUES (:id, :intervention_id, :description, :is_completed, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("add intervention task: %w", err)
	}
	return nil
}

// FindTaskDetail resolves a task together with its owning student and the
// intervention status.
func (r *InterventionRepository) FindTaskDetail(ctx context.Context, taskID string) (*models.InterventionTaskDetail, error) {
	const query = `SELECT t.id, t.intervention_id, t.description, t.is_completed, t.created_at, t.updated_at,
            i.enrollment_id, i.status, e.student_id
        FROM intervention_tasks t
        JOIN interventions i ON i.id = t.intervention_id
        JOIN enrollments e ON e.id = i.enrollment_id
        WHERE t.id = $1`
	var detail models.InterventionTaskDetail
	if err := r.db.GetContext(ctx, &detail, query, taskID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CompleteTask marks a task done and flips the intervention to COMPLETED when
// it was the last open task. The intervention row is locked for the duration
// so concurrent completions of sibling tasks serialize.
func (r *InterventionRepository) CompleteTask(ctx context.Context, interventionID, taskID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin complete task: %w", err)
	}
	defer tx.Rollback()

	var status models.InterventionStatus
	if err := tx.GetContext(ctx, &status,
		`SELECT status FROM interventions WHERE id = $1 FOR UPDATE`, interventionID); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE intervention_tasks SET is_completed = true, updated_at = $2 WHERE id = $1`,
		taskID, now); err != nil {
		return false, fmt.Errorf("complete task: %w", err)
	}

	var total, remaining int
	if err := tx.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM intervention_tasks WHERE intervention_id = $1`, interventionID); err != nil {
		return false, fmt.Errorf("count tasks: %w", err)
	}
	if err := tx.GetContext(ctx, &remaining,
		`SELECT COUNT(*) FROM intervention_tasks WHERE intervention_id = $1 AND is_completed = false`, interventionID); err != nil {
		return false, fmt.Errorf("count open tasks: %w", err)
	}

	completed := total > 0 && remaining == 0 && status == models.InterventionStatusActive
	if completed {
		if _, err := tx.ExecContext(ctx,
			`UPDATE interventions SET status = 'COMPLETED', updated_at = $2 WHERE id = $1`,
			interventionID, now); err != nil {
			return false, fmt.Errorf("auto-complete intervention: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return completed, nil
}

// Complete marks an intervention COMPLETED regardless of open tasks.
func (r *InterventionRepository) Complete(ctx context.Context, id string) error {
	const query = `UPDATE interventions SET status = 'COMPLETED', updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("complete intervention: %w", err)
	}
	return nil
}

func (r *InterventionRepository) listTasks(ctx context.Context, interventionID string) ([]models.InterventionTask, error) {
	const query = `SELECT id, intervention_id, description, is_completed, created_at, updated_at
        FROM intervention_tasks WHERE intervention_id = $1 ORDER BY created_at`
	var tasks []models.InterventionTask
	if err := r.db.SelectContext(ctx, &tasks, query, interventionID); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *InterventionRepository) attachTasks(ctx context.Context, interventions []models.Intervention) error {
	if len(interventions) == 0 {
		return nil
	}
	ids := make([]string, len(interventions))
	for i, intervention := range interventions {
		ids[i] = intervention.ID
	}
	query, args, err := sqlx.In(`SELECT id, intervention_id, description, is_completed, created_at, updated_at
        FROM intervention_tasks WHERE intervention_id IN (?) ORDER BY created_at`, ids)
	if err != nil {
		return fmt.Errorf("build task fetch: %w", err)
	}
	var tasks []models.InterventionTask
	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("fetch tasks: %w", err)
	}
	byIntervention := make(map[string][]models.InterventionTask, len(interventions))
	for _, task := range tasks {
		byIntervention[task.InterventionID] = append(byIntervention[task.InterventionID], task)
	}
	for i := range interventions {
		interventions[i].Tasks = byIntervention[interventions[i].ID]
	}
	return nil
}
