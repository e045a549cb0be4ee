package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/strength-log-api/internal/models"
)

// ErrNotPending is returned when a decision targets an observation whose
// status already left the approval queue.
var ErrNotPending = errors.New("observation is not pending")

const observationColumns = `id, target_id, writer_id, teacher_id, writer_role, writer_name, target_name, category, strength_id, content, status, created_at`

// ObservationRepository provides database access for strength observations.
type ObservationRepository struct {
	db *sqlx.DB
}

// NewObservationRepository creates a new instance of ObservationRepository.
func NewObservationRepository(db *sqlx.DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

// GetByID returns an observation by identifier.
func (r *ObservationRepository) GetByID(ctx context.Context, id string) (*models.Observation, error) {
	query := fmt.Sprintf(`SELECT %s FROM observations WHERE id = $1 LIMIT 1`, observationColumns)
	var obs models.Observation
	if err := r.db.GetContext(ctx, &obs, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get observation: %w", err)
	}
	return &obs, nil
}

// Create inserts a pending observation.
func (r *ObservationRepository) Create(ctx context.Context, obs *models.Observation) error {
	prepareObservation(obs)
	const query = `INSERT INTO observations (id, target_id, writer_id, teacher_id, writer_role, writer_name, target_name, category, strength_id, content, status, created_at)
VALUES (:id, :target_id, :writer_id, :teacher_id, :writer_role, :writer_name, :target_name, :category, :strength_id, :content, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, obs); err != nil {
		return fmt.Errorf("create observation: %w", err)
	}
	return nil
}

// CreateAndRecount inserts an already-approved observation and refreshes the
// target's garden level from the new approved count, in one transaction.
// Returns the recomputed level.
func (r *ObservationRepository) CreateAndRecount(ctx context.Context, obs *models.Observation) (int, error) {
	prepareObservation(obs)
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create observation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO observations (id, target_id, writer_id, teacher_id, writer_role, writer_name, target_name, category, strength_id, content, status, created_at)
VALUES (:id, :target_id, :writer_id, :teacher_id, :writer_role, :writer_name, :target_name, :category, :strength_id, :content, :status, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insert, obs); err != nil {
		return 0, fmt.Errorf("create observation: %w", err)
	}

	level, err := recountGardenLevel(ctx, tx, obs.TargetID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create observation: %w", err)
	}
	return level, nil
}

// DecideAndRecount applies an approval decision to a pending observation.
// The status flip and, on approval, the target's garden level refresh happen
// in the same transaction. Returns the updated observation and the target's
// garden level after the decision. ErrNotPending signals a decision on an
// already-decided record; sql.ErrNoRows signals a missing one.
func (r *ObservationRepository) DecideAndRecount(ctx context.Context, id string, status models.ObservationStatus) (*models.Observation, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin decision: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf(`SELECT %s FROM observations WHERE id = $1 FOR UPDATE`, observationColumns)
	var obs models.Observation
	if err := tx.GetContext(ctx, &obs, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("lock observation: %w", err)
	}
	if obs.Status != models.StatusPending {
		return nil, 0, ErrNotPending
	}

	if _, err := tx.ExecContext(ctx, `UPDATE observations SET status = $2 WHERE id = $1`, id, status); err != nil {
		return nil, 0, fmt.Errorf("update observation status: %w", err)
	}
	obs.Status = status

	var level int
	if status == models.StatusApproved {
		level, err = recountGardenLevel(ctx, tx, obs.TargetID)
		if err != nil {
			return nil, 0, err
		}
	} else {
		if err := tx.GetContext(ctx, &level, `SELECT garden_level FROM users WHERE id = $1`, obs.TargetID); err != nil {
			return nil, 0, fmt.Errorf("read garden level: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit decision: %w", err)
	}
	return &obs, level, nil
}

// List returns observations matching the filter, newest first.
func (r *ObservationRepository) List(ctx context.Context, filter models.ObservationFilter) ([]models.Observation, error) {
	conditions := []string{}
	args := []interface{}{}
	if filter.TargetID != "" {
		conditions = append(conditions, fmt.Sprintf("target_id = $%d", len(args)+1))
		args = append(args, filter.TargetID)
	}
	if filter.WriterID != "" {
		conditions = append(conditions, fmt.Sprintf("writer_id = $%d", len(args)+1))
		args = append(args, filter.WriterID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := fmt.Sprintf(`SELECT %s FROM observations%s ORDER BY created_at DESC`, observationColumns, where)
	var observations []models.Observation
	if err := r.db.SelectContext(ctx, &observations, query, args...); err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	return observations, nil
}

// CountApproved returns the number of approved observations for a student.
func (r *ObservationRepository) CountApproved(ctx context.Context, targetID string) (int, error) {
	const query = `SELECT COUNT(*) FROM observations WHERE target_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, targetID, models.StatusApproved); err != nil {
		return 0, fmt.Errorf("count approved observations: %w", err)
	}
	return count, nil
}

// StrengthSummary aggregates approved observations per strength for a
// student, most-observed first.
func (r *ObservationRepository) StrengthSummary(ctx context.Context, targetID string) ([]models.StrengthCount, error) {
	const query = `SELECT strength_id, COUNT(*) AS count FROM observations WHERE target_id = $1 AND status = $2 GROUP BY strength_id ORDER BY count DESC, strength_id ASC`
	var summary []models.StrengthCount
	if err := r.db.SelectContext(ctx, &summary, query, targetID, models.StatusApproved); err != nil {
		return nil, fmt.Errorf("summarize strengths: %w", err)
	}
	return summary, nil
}

func prepareObservation(obs *models.Observation) {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = time.Now().UTC()
	}
}

func recountGardenLevel(ctx context.Context, tx *sqlx.Tx, targetID string) (int, error) {
	var approved int
	const count = `SELECT COUNT(*) FROM observations WHERE target_id = $1 AND status = $2`
	if err := tx.GetContext(ctx, &approved, count, targetID, models.StatusApproved); err != nil {
		return 0, fmt.Errorf("count approved observations: %w", err)
	}
	level := models.CalcGardenLevel(approved)
	if _, err := tx.ExecContext(ctx, `UPDATE users SET garden_level = $2, updated_at = $3 WHERE id = $1`, targetID, level, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("update garden level: %w", err)
	}
	return level, nil
}
