package repository

import (
	"fmt"
	"strings"
	"time"

	"context"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

type CreateBookingInput struct {
	StudentID int64
	TeacherID int64
	Date      time.Time
	StartTime string
	EndTime   string
	Attendees int
	Price     float64
	Notes     *string
}

type BookingListFilter struct {
	ActorID   int64
	Role      string
	Status    string
	Timeframe string
}

const bookingColumns = `id, student_id, teacher_id, date, start_time, end_time, status,
	   attendees, price, notes, previous_date, previous_start, previous_end,
	   cancelled_by, created_at, updated_at`

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	query := `
		INSERT INTO bookings (student_id, teacher_id, date, start_time, end_time, status, attendees, price, notes)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $8)
		RETURNING ` + bookingColumns + `
	`
	return r.scanOne(r.db.QueryRow(ctx, query,
		input.StudentID,
		input.TeacherID,
		input.Date,
		input.StartTime,
		input.EndTime,
		input.Attendees,
		input.Price,
		input.Notes,
	))
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, bookingID))
}

func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`
	return r.scanOne(r.db.QueryRow(ctx, query, bookingID))
}

func (r *BookingRepository) List(ctx context.Context, filter BookingListFilter) ([]models.Booking, error) {
	actorColumn := "student_id"
	if filter.Role == "teacher" {
		actorColumn = "teacher_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "(date + end_time::time) > NOW()")
	case "past":
		whereParts = append(whereParts, "(date + end_time::time) <= NOW()")
	}

	query := fmt.Sprintf(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE %s
		ORDER BY date ASC, start_time ASC, id ASC
	`, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		booking, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ConflictingDates returns the subset of candidate dates on which the teacher
// already holds a pending or confirmed booking overlapping the slot. Two
// ranges [s1,e1) and [s2,e2) overlap iff s1 < e2 AND s2 < e1, so a session
// ending exactly when another begins is not a conflict.
func (r *BookingRepository) ConflictingDates(
	ctx context.Context,
	teacherID int64,
	dates []time.Time,
	slot models.TimeSlot,
) ([]time.Time, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT date
		FROM bookings
		WHERE teacher_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND date = ANY($2)
		  AND start_time < $4
		  AND end_time > $3
		ORDER BY date ASC
	`
	rows, err := r.db.Query(ctx, query, teacherID, dates, slot.Start, slot.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conflicts := make([]time.Time, 0)
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		conflicts = append(conflicts, date)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conflicts, nil
}

// HasSlotConflict runs the same overlap predicate for a single date,
// optionally ignoring one booking (the one being rescheduled).
func (r *BookingRepository) HasSlotConflict(
	ctx context.Context,
	teacherID int64,
	date time.Time,
	slot models.TimeSlot,
	excludedBookingID int64,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM bookings
			WHERE teacher_id = $1
			  AND id <> $5
			  AND status IN ('pending', 'confirmed')
			  AND date = $2
			  AND start_time < $4
			  AND end_time > $3
		)
	`
	var hasConflict bool
	err := r.db.QueryRow(ctx, query, teacherID, date, slot.Start, slot.End, excludedBookingID).
		Scan(&hasConflict)
	if err != nil {
		return false, err
	}
	return hasConflict, nil
}

// ListActiveBetween returns the teacher's pending and confirmed bookings in
// [from, to], used to filter reschedule candidates in one query.
func (r *BookingRepository) ListActiveBetween(
	ctx context.Context,
	teacherID int64,
	from time.Time,
	to time.Time,
) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE teacher_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND date BETWEEN $2 AND $3
		ORDER BY date ASC, start_time ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, teacherID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		booking, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	bookingID int64,
	currentStatus string,
	nextStatus string,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + bookingColumns + `
	`
	return r.scanOne(r.db.QueryRow(ctx, query, bookingID, currentStatus, nextStatus))
}

func (r *BookingRepository) Cancel(ctx context.Context, bookingID int64, cancelledBy string) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_by = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'confirmed')
		RETURNING ` + bookingColumns + `
	`
	return r.scanOne(r.db.QueryRow(ctx, query, bookingID, cancelledBy))
}

// Reschedule moves one occurrence to a new date and slot, keeping the old
// values for audit display.
func (r *BookingRepository) Reschedule(
	ctx context.Context,
	bookingID int64,
	date time.Time,
	slot models.TimeSlot,
	nextStatus string,
) (*models.Booking, error) {
	query := `
		UPDATE bookings
		SET previous_date = date,
			previous_start = start_time,
			previous_end = end_time,
			date = $2,
			start_time = $3,
			end_time = $4,
			status = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + bookingColumns + `
	`
	return r.scanOne(r.db.QueryRow(ctx, query, bookingID, date, slot.Start, slot.End, nextStatus))
}

// CompleteElapsed flips confirmed bookings to completed once graceHours have
// passed since the session end, returning the ids it touched.
func (r *BookingRepository) CompleteElapsed(ctx context.Context, graceHours int) ([]int64, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'confirmed'
		  AND (date + end_time::time) <= NOW() - ($1 * INTERVAL '1 hour')
		RETURNING id
	`
	rows, err := r.db.Query(ctx, query, graceHours)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *BookingRepository) scanOne(row interface{ Scan(dest ...any) error }) (*models.Booking, error) {
	var booking models.Booking
	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.TeacherID,
		&booking.Date,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Status,
		&booking.Attendees,
		&booking.Price,
		&booking.Notes,
		&booking.PreviousDate,
		&booking.PreviousStart,
		&booking.PreviousEnd,
		&booking.CancelledBy,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
