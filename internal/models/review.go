package models

import "time"

type Review struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	StudentID int64     `json:"student_id"`
	TeacherID int64     `json:"teacher_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type TeacherRating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
