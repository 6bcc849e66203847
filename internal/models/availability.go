package models

import "time"

// AvailabilityWindow is one recurring weekly window during which a teacher
// accepts bookings. Weekday follows time.Weekday numbering (Sunday = 0).
// Times are zero-padded HH:MM:SS strings so they compare lexicographically.
type AvailabilityWindow struct {
	ID        int64     `json:"id"`
	TeacherID int64     `json:"teacher_id"`
	Weekday   int       `json:"weekday"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeSlot is a (start, end) pair shared by all dates of a recurring booking.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
