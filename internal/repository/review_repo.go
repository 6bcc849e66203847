package repository

import (
	"context"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

type ReviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review. The unique constraint on booking_id is the last
// line of defense against double submission; callers translate its violation.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (booking_id, student_id, teacher_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.db.QueryRow(ctx, query,
		review.BookingID,
		review.StudentID,
		review.TeacherID,
		review.Rating,
		review.Comment,
	).Scan(&review.ID, &review.CreatedAt)
}

func (r *ReviewRepository) GetByBookingID(ctx context.Context, bookingID int64) (*models.Review, error) {
	query := `
		SELECT id, booking_id, student_id, teacher_id, rating, comment, created_at
		FROM reviews
		WHERE booking_id = $1
	`
	var review models.Review
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&review.ID,
		&review.BookingID,
		&review.StudentID,
		&review.TeacherID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) ListByTeacher(ctx context.Context, teacherID int64, limit int, offset int) ([]models.Review, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM reviews WHERE teacher_id = $1
	`, teacherID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, student_id, teacher_id, rating, comment, created_at
		FROM reviews
		WHERE teacher_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, teacherID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(
			&review.ID,
			&review.BookingID,
			&review.StudentID,
			&review.TeacherID,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *ReviewRepository) RatingForTeacher(ctx context.Context, teacherID int64) (*models.TeacherRating, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE teacher_id = $1
	`
	var rating models.TeacherRating
	if err := r.db.QueryRow(ctx, query, teacherID).Scan(&rating.Average, &rating.Count); err != nil {
		return nil, err
	}
	return &rating, nil
}
