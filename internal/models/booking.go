package models

import "time"

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// Booking is one dated occurrence. A recurring plan is materialized into N
// independent rows at creation time; cancelling or rescheduling one occurrence
// never affects the others.
type Booking struct {
	ID            int64      `json:"id"`
	StudentID     int64      `json:"student_id"`
	TeacherID     int64      `json:"teacher_id"`
	Date          time.Time  `json:"date"`
	StartTime     string     `json:"start_time"`
	EndTime       string     `json:"end_time"`
	Status        string     `json:"status"`
	Attendees     int        `json:"attendees"`
	Price         float64    `json:"price"`
	Notes         *string    `json:"notes"`
	PreviousDate  *time.Time `json:"previous_date,omitempty"`
	PreviousStart *string    `json:"previous_start,omitempty"`
	PreviousEnd   *string    `json:"previous_end,omitempty"`
	CancelledBy   *string    `json:"cancelled_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BookingPreview is the result of expanding and pricing a recurring request
// before anything is written.
type BookingPreview struct {
	Dates         []time.Time `json:"dates"`
	ValidDates    []time.Time `json:"valid_dates"`
	ConflictDates []time.Time `json:"conflict_dates"`
	Slot          TimeSlot    `json:"slot"`
	Attendees     int         `json:"attendees"`
	PricePerDate  float64     `json:"price_per_session"`
	TotalPrice    float64     `json:"total_price"`
}

// RescheduleOption is an alternative (date, slot) pair offered for a single
// existing booking.
type RescheduleOption struct {
	Date time.Time `json:"date"`
	Slot TimeSlot  `json:"slot"`
}
