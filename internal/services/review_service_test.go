package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

type stubReviewStore struct {
	createErr  error
	rating     *models.TeacherRating
	ratingErr  error
	lastReview *models.Review
}

func (s *stubReviewStore) Create(_ context.Context, review *models.Review) error {
	s.lastReview = review
	return s.createErr
}

func (s *stubReviewStore) GetByBookingID(_ context.Context, _ int64) (*models.Review, error) {
	return s.lastReview, nil
}

func (s *stubReviewStore) ListByTeacher(_ context.Context, _ int64, _ int, _ int) ([]models.Review, int, error) {
	return nil, 0, nil
}

func (s *stubReviewStore) RatingForTeacher(_ context.Context, _ int64) (*models.TeacherRating, error) {
	return s.rating, s.ratingErr
}

type stubBookingReader struct {
	booking *models.Booking
	err     error
}

func (s *stubBookingReader) GetByID(_ context.Context, _ int64) (*models.Booking, error) {
	return s.booking, s.err
}

type stubRatingWriter struct {
	lastUserID  int64
	lastAverage float64
	lastCount   int
}

func (s *stubRatingWriter) SetRating(_ context.Context, userID int64, average float64, count int) error {
	s.lastUserID = userID
	s.lastAverage = average
	s.lastCount = count
	return nil
}

func newReviewServiceForTest(reviews *stubReviewStore, bookings *stubBookingReader, ratings *stubRatingWriter) *ReviewService {
	return NewReviewService(reviews, bookings, ratings, zap.NewNop())
}

func TestSubmitReviewRefreshesTeacherRating(t *testing.T) {
	reviews := &stubReviewStore{rating: &models.TeacherRating{Average: 4.5, Count: 2}}
	bookings := &stubBookingReader{booking: &models.Booking{
		ID:        7,
		StudentID: 42,
		TeacherID: 9,
		Status:    models.BookingStatusCompleted,
	}}
	ratings := &stubRatingWriter{}
	service := newReviewServiceForTest(reviews, bookings, ratings)

	comment := "  great session  "
	review, err := service.SubmitReview(context.Background(), 42, 7, 5, &comment)
	if err != nil {
		t.Fatalf("SubmitReview: %v", err)
	}
	if review.TeacherID != 9 || review.Rating != 5 {
		t.Fatalf("unexpected review: %+v", review)
	}
	if review.Comment == nil || *review.Comment != "great session" {
		t.Fatalf("expected trimmed comment, got %v", review.Comment)
	}
	if ratings.lastUserID != 9 || ratings.lastAverage != 4.5 || ratings.lastCount != 2 {
		t.Fatalf("expected rating refresh for teacher 9, got %+v", ratings)
	}
}

func TestSubmitReviewRejectsOutOfRangeRating(t *testing.T) {
	service := newReviewServiceForTest(&stubReviewStore{}, &stubBookingReader{}, &stubRatingWriter{})

	for _, rating := range []int{0, 6, -1} {
		if _, err := service.SubmitReview(context.Background(), 42, 7, rating, nil); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("rating %d: expected ErrInvalidInput, got %v", rating, err)
		}
	}
}

func TestSubmitReviewRequiresCompletedBooking(t *testing.T) {
	bookings := &stubBookingReader{booking: &models.Booking{
		ID:        7,
		StudentID: 42,
		TeacherID: 9,
		Status:    models.BookingStatusConfirmed,
	}}
	service := newReviewServiceForTest(&stubReviewStore{}, bookings, &stubRatingWriter{})

	if _, err := service.SubmitReview(context.Background(), 42, 7, 4, nil); !errors.Is(err, ErrNotReviewable) {
		t.Fatalf("expected ErrNotReviewable, got %v", err)
	}
}

func TestSubmitReviewRejectsOtherStudentsBooking(t *testing.T) {
	bookings := &stubBookingReader{booking: &models.Booking{
		ID:        7,
		StudentID: 1,
		TeacherID: 9,
		Status:    models.BookingStatusCompleted,
	}}
	service := newReviewServiceForTest(&stubReviewStore{}, bookings, &stubRatingWriter{})

	if _, err := service.SubmitReview(context.Background(), 42, 7, 4, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSubmitReviewMapsDuplicateToAlreadyReviewed(t *testing.T) {
	reviews := &stubReviewStore{createErr: &pgconn.PgError{Code: "23505"}}
	bookings := &stubBookingReader{booking: &models.Booking{
		ID:        7,
		StudentID: 42,
		TeacherID: 9,
		Status:    models.BookingStatusCompleted,
	}}
	service := newReviewServiceForTest(reviews, bookings, &stubRatingWriter{})

	if _, err := service.SubmitReview(context.Background(), 42, 7, 4, nil); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}
}

func TestSubmitReviewMissingBookingIsNotReviewable(t *testing.T) {
	bookings := &stubBookingReader{err: pgx.ErrNoRows}
	service := newReviewServiceForTest(&stubReviewStore{}, bookings, &stubRatingWriter{})

	if _, err := service.SubmitReview(context.Background(), 42, 404, 4, nil); !errors.Is(err, ErrNotReviewable) {
		t.Fatalf("expected ErrNotReviewable, got %v", err)
	}
}

func TestReviewForBookingChecksParticipants(t *testing.T) {
	bookings := &stubBookingReader{booking: &models.Booking{
		ID:        7,
		StudentID: 42,
		TeacherID: 9,
		Status:    models.BookingStatusCompleted,
	}}
	service := newReviewServiceForTest(&stubReviewStore{}, bookings, &stubRatingWriter{})

	if _, err := service.ReviewForBooking(context.Background(), 99, "teacher", 7); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
	if _, err := service.ReviewForBooking(context.Background(), 9, "teacher", 7); err != nil {
		t.Fatalf("expected teacher access, got %v", err)
	}
}
