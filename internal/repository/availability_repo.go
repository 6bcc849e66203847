package repository

import (
	"context"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

type AvailabilityWindowInput struct {
	Weekday   int
	StartTime string
	EndTime   string
	IsActive  bool
}

type AvailabilityRepository struct {
	db DBTX
}

func NewAvailabilityRepository(db DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ReplaceForTeacher deletes the teacher's window set and inserts the new one.
// The latest saved set fully replaces the prior set; run inside a transaction.
func (r *AvailabilityRepository) ReplaceForTeacher(ctx context.Context, teacherID int64, windows []AvailabilityWindowInput) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM availability WHERE teacher_id = $1`, teacherID); err != nil {
		return err
	}
	for _, window := range windows {
		_, err := r.db.Exec(ctx, `
			INSERT INTO availability (teacher_id, weekday, start_time, end_time, is_active)
			VALUES ($1, $2, $3, $4, $5)
		`, teacherID, window.Weekday, window.StartTime, window.EndTime, window.IsActive)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *AvailabilityRepository) ListActiveByTeacher(ctx context.Context, teacherID int64) ([]models.AvailabilityWindow, error) {
	query := `
		SELECT id, teacher_id, weekday, start_time, end_time, is_active, created_at, updated_at
		FROM availability
		WHERE teacher_id = $1 AND is_active = TRUE
		ORDER BY weekday ASC, start_time ASC, id ASC
	`
	return r.list(ctx, query, teacherID)
}

func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.AvailabilityWindow, error) {
	query := `
		SELECT id, teacher_id, weekday, start_time, end_time, is_active, created_at, updated_at
		FROM availability
		WHERE teacher_id = $1
		ORDER BY weekday ASC, start_time ASC, id ASC
	`
	return r.list(ctx, query, teacherID)
}

func (r *AvailabilityRepository) ListActiveByWeekday(ctx context.Context, teacherID int64, weekday int) ([]models.AvailabilityWindow, error) {
	query := `
		SELECT id, teacher_id, weekday, start_time, end_time, is_active, created_at, updated_at
		FROM availability
		WHERE teacher_id = $1 AND weekday = $2 AND is_active = TRUE
		ORDER BY start_time ASC, id ASC
	`
	return r.list(ctx, query, teacherID, weekday)
}

// ListWeekdays returns the distinct weekdays with at least one active window.
func (r *AvailabilityRepository) ListWeekdays(ctx context.Context, teacherID int64) ([]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT weekday
		FROM availability
		WHERE teacher_id = $1 AND is_active = TRUE
		ORDER BY weekday ASC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weekdays := make([]int, 0)
	for rows.Next() {
		var weekday int
		if err := rows.Scan(&weekday); err != nil {
			return nil, err
		}
		weekdays = append(weekdays, weekday)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return weekdays, nil
}

func (r *AvailabilityRepository) list(ctx context.Context, query string, args ...any) ([]models.AvailabilityWindow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := make([]models.AvailabilityWindow, 0)
	for rows.Next() {
		var window models.AvailabilityWindow
		if err := rows.Scan(
			&window.ID,
			&window.TeacherID,
			&window.Weekday,
			&window.StartTime,
			&window.EndTime,
			&window.IsActive,
			&window.CreatedAt,
			&window.UpdatedAt,
		); err != nil {
			return nil, err
		}
		windows = append(windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}
