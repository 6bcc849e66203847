package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

var (
	ErrAlreadyReviewed = errors.New("booking already reviewed")
	ErrNotReviewable   = errors.New("booking not reviewable")
)

type reviewStore interface {
	Create(ctx context.Context, review *models.Review) error
	GetByBookingID(ctx context.Context, bookingID int64) (*models.Review, error)
	ListByTeacher(ctx context.Context, teacherID int64, limit int, offset int) ([]models.Review, int, error)
	RatingForTeacher(ctx context.Context, teacherID int64) (*models.TeacherRating, error)
}

type ratingWriter interface {
	SetRating(ctx context.Context, userID int64, average float64, count int) error
}

type ReviewService struct {
	reviewRepo         reviewStore
	bookingRepo        bookingReader
	teacherProfileRepo ratingWriter
	log                *zap.Logger
}

func NewReviewService(
	reviewRepo reviewStore,
	bookingRepo bookingReader,
	teacherProfileRepo ratingWriter,
	log *zap.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo:         reviewRepo,
		bookingRepo:        bookingRepo,
		teacherProfileRepo: teacherProfileRepo,
		log:                log.With(zap.String("service", "review")),
	}
}

// SubmitReview records the student's rating for a completed session. One
// review per booking; the denormalized rating on the teacher profile is
// recomputed after every accepted submission.
func (s *ReviewService) SubmitReview(
	ctx context.Context,
	studentID int64,
	bookingID int64,
	rating int,
	comment *string,
) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidInput
	}
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			if len(trimmed) > 2000 {
				return nil, ErrInvalidInput
			}
			comment = &trimmed
		}
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotReviewable
		}
		return nil, err
	}
	if booking.StudentID != studentID {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, ErrNotReviewable
	}

	review := &models.Review{
		BookingID: bookingID,
		StudentID: studentID,
		TeacherID: booking.TeacherID,
		Rating:    rating,
		Comment:   comment,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}

	if err := s.refreshTeacherRating(ctx, booking.TeacherID); err != nil {
		s.log.Warn("rating refresh failed",
			zap.Int64("teacher_id", booking.TeacherID), zap.Error(err))
	}

	return review, nil
}

func (s *ReviewService) ListTeacherReviews(
	ctx context.Context,
	teacherID int64,
	limit int,
	offset int,
) ([]models.Review, int, error) {
	if teacherID <= 0 {
		return nil, 0, ErrInvalidInput
	}
	return s.reviewRepo.ListByTeacher(ctx, teacherID, limit, offset)
}

func (s *ReviewService) ReviewForBooking(
	ctx context.Context,
	actorID int64,
	role string,
	bookingID int64,
) (*models.Review, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(role, actorID, booking) {
		return nil, ErrForbidden
	}
	return s.reviewRepo.GetByBookingID(ctx, bookingID)
}

func (s *ReviewService) refreshTeacherRating(ctx context.Context, teacherID int64) error {
	rating, err := s.reviewRepo.RatingForTeacher(ctx, teacherID)
	if err != nil {
		return err
	}
	return s.teacherProfileRepo.SetRating(ctx, teacherID, rating.Average, rating.Count)
}
