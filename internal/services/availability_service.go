package services

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/repository"
)

type AvailabilityWindowInput struct {
	Weekday   int
	StartTime string
	EndTime   string
	IsActive  bool
}

type availabilityStore interface {
	ReplaceForTeacher(ctx context.Context, teacherID int64, windows []repository.AvailabilityWindowInput) error
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.AvailabilityWindow, error)
	ListActiveByTeacher(ctx context.Context, teacherID int64) ([]models.AvailabilityWindow, error)
	ListActiveByWeekday(ctx context.Context, teacherID int64, weekday int) ([]models.AvailabilityWindow, error)
	ListWeekdays(ctx context.Context, teacherID int64) ([]int, error)
}

type AvailabilityService struct {
	db               *pgxpool.Pool
	availabilityRepo availabilityStore
}

func NewAvailabilityService(db *pgxpool.Pool, availabilityRepo availabilityStore) *AvailabilityService {
	return &AvailabilityService{
		db:               db,
		availabilityRepo: availabilityRepo,
	}
}

// ReplaceAvailability validates and saves the teacher's full weekly window
// set. There is no per-window editing; the saved set replaces whatever was
// there before, atomically.
func (s *AvailabilityService) ReplaceAvailability(
	ctx context.Context,
	teacherID int64,
	windows []AvailabilityWindowInput,
) ([]models.AvailabilityWindow, error) {
	normalized := make([]repository.AvailabilityWindowInput, 0, len(windows))
	for _, window := range windows {
		if window.Weekday < 0 || window.Weekday > 6 {
			return nil, ErrInvalidInput
		}
		start, err := NormalizeClock(window.StartTime)
		if err != nil {
			return nil, ErrInvalidInput
		}
		end, err := NormalizeClock(window.EndTime)
		if err != nil {
			return nil, ErrInvalidInput
		}
		if start >= end {
			return nil, ErrInvalidInput
		}
		normalized = append(normalized, repository.AvailabilityWindowInput{
			Weekday:   window.Weekday,
			StartTime: start,
			EndTime:   end,
			IsActive:  window.IsActive,
		})
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRepo := repository.NewAvailabilityRepository(tx)
	if err := txRepo.ReplaceForTeacher(ctx, teacherID, normalized); err != nil {
		return nil, err
	}
	saved, err := txRepo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *AvailabilityService) ListForTeacher(ctx context.Context, teacherID int64) ([]models.AvailabilityWindow, error) {
	if teacherID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.availabilityRepo.ListActiveByTeacher(ctx, teacherID)
}

// ListWeekdays returns the distinct weekdays on which the teacher has at
// least one active window, for disabling the rest in the booking flow.
func (s *AvailabilityService) ListWeekdays(ctx context.Context, teacherID int64) ([]int, error) {
	if teacherID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.availabilityRepo.ListWeekdays(ctx, teacherID)
}

func (s *AvailabilityService) WindowsForWeekday(ctx context.Context, teacherID int64, weekday int) ([]models.AvailabilityWindow, error) {
	if teacherID <= 0 || weekday < 0 || weekday > 6 {
		return nil, ErrInvalidInput
	}
	return s.availabilityRepo.ListActiveByWeekday(ctx, teacherID, weekday)
}

// CommonSlotsForWeekdays returns the slots offered identically on every
// selected weekday. A recurring multi-day booking uses a single slot shared
// by all chosen days, or none is offered.
func (s *AvailabilityService) CommonSlotsForWeekdays(
	ctx context.Context,
	teacherID int64,
	weekdays []int,
) ([]models.TimeSlot, error) {
	if teacherID <= 0 || len(weekdays) == 0 {
		return nil, ErrInvalidInput
	}
	seen := make(map[int]bool, len(weekdays))
	for _, weekday := range weekdays {
		if weekday < 0 || weekday > 6 || seen[weekday] {
			return nil, ErrInvalidInput
		}
		seen[weekday] = true
	}

	windows, err := s.availabilityRepo.ListActiveByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return CommonSlots(windows, weekdays), nil
}
