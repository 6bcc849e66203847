package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidInput           = errors.New("invalid input")
	ErrTeacherNotFound        = errors.New("teacher not found")
	ErrNoValidDates           = errors.New("no bookable dates in the selected plan")
)

// SlotConflictError reports which dates were taken between preview and
// commit. errors.Is(err, ErrConflict) matches it.
type SlotConflictError struct {
	Dates []time.Time
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("%d requested dates are no longer available", len(e.Dates))
}

func (e *SlotConflictError) Is(target error) bool {
	return target == ErrConflict
}

type teacherProfileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.TeacherProfile, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Notifier dispatches a booking event to the counterparty. Implementations
// are fire-and-forget and must never fail the booking flow.
type Notifier interface {
	Notify(bookingID int64, event string)
}

type BookingService struct {
	db                 *pgxpool.Pool
	bookingRepo        *repository.BookingRepository
	availabilityRepo   availabilityStore
	userRepo           userReader
	teacherProfileRepo teacherProfileReader
	notifier           Notifier
	log                *zap.Logger
}

func NewBookingService(
	db *pgxpool.Pool,
	bookingRepo *repository.BookingRepository,
	availabilityRepo availabilityStore,
	userRepo userReader,
	teacherProfileRepo teacherProfileReader,
	notifier Notifier,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		db:                 db,
		bookingRepo:        bookingRepo,
		availabilityRepo:   availabilityRepo,
		userRepo:           userRepo,
		teacherProfileRepo: teacherProfileRepo,
		notifier:           notifier,
		log:                log.With(zap.String("service", "booking")),
	}
}

// PlanRequest describes a recurring booking selection. It exists only for the
// duration of the flow; what gets persisted is one Booking row per valid date.
type PlanRequest struct {
	TeacherID    int64
	StartDate    time.Time
	Weekdays     []int
	DurationDays int
	Slot         models.TimeSlot
	Attendees    int
	Notes        *string
	// ExpectedDates pins a create to the dates the student accepted at
	// preview. Empty means the whole expansion is expected to be free.
	ExpectedDates []time.Time
}

// PreviewPlan expands the request into concrete dates, marks the ones that
// collide with existing bookings and prices the remainder. Nothing is
// written; the conflict check here is advisory and is re-run at commit.
func (s *BookingService) PreviewPlan(
	ctx context.Context,
	studentID int64,
	input PlanRequest,
) (*models.BookingPreview, error) {
	preview, _, err := s.buildPlan(ctx, studentID, &input)
	if err != nil {
		return nil, err
	}
	return preview, nil
}

// CreatePlan materializes the plan into one booking row per expected date.
// A date lost to another booking since the student's preview aborts the whole
// batch with the lost dates reported; nothing is silently dropped. The
// authoritative conflict re-check runs inside the same transaction as the
// inserts, under an advisory lock on the teacher, so a slot taken during the
// student's review time aborts instead of partially applying.
func (s *BookingService) CreatePlan(
	ctx context.Context,
	studentID int64,
	input PlanRequest,
) ([]models.Booking, error) {
	preview, _, err := s.buildPlan(ctx, studentID, &input)
	if err != nil {
		return nil, err
	}
	sessions, err := ReconcilePlanDates(preview, input.ExpectedDates)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNoValidDates
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", input.TeacherID); err != nil {
		return nil, err
	}

	txBookingRepo := repository.NewBookingRepository(tx)

	conflicts, err := txBookingRepo.ConflictingDates(ctx, input.TeacherID, sessions, preview.Slot)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &SlotConflictError{Dates: conflicts}
	}

	bookings := make([]models.Booking, 0, len(sessions))
	for _, day := range sessions {
		booking, err := txBookingRepo.Create(ctx, repository.CreateBookingInput{
			StudentID: studentID,
			TeacherID: input.TeacherID,
			Date:      day,
			StartTime: preview.Slot.Start,
			EndTime:   preview.Slot.End,
			Attendees: preview.Attendees,
			Price:     preview.PricePerDate,
			Notes:     input.Notes,
		})
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.log.Info("booking plan created",
		zap.Int64("student_id", studentID),
		zap.Int64("teacher_id", input.TeacherID),
		zap.Int("sessions", len(bookings)),
	)
	s.notifier.Notify(bookings[0].ID, NotificationBookingCreated)

	return bookings, nil
}

func (s *BookingService) buildPlan(
	ctx context.Context,
	studentID int64,
	input *PlanRequest,
) (*models.BookingPreview, *models.TeacherProfile, error) {
	if input.TeacherID <= 0 || input.TeacherID == studentID {
		return nil, nil, ErrInvalidInput
	}
	if !ValidPlanDuration(input.DurationDays) {
		return nil, nil, ErrInvalidInput
	}
	if len(input.Weekdays) == 0 {
		return nil, nil, ErrInvalidInput
	}
	seen := make(map[int]bool, len(input.Weekdays))
	for _, weekday := range input.Weekdays {
		if weekday < 0 || weekday > 6 || seen[weekday] {
			return nil, nil, ErrInvalidInput
		}
		seen[weekday] = true
	}
	if input.StartDate.IsZero() || DateOnly(input.StartDate).Before(DateOnly(time.Now().UTC())) {
		return nil, nil, ErrInvalidInput
	}

	start, err := NormalizeClock(input.Slot.Start)
	if err != nil {
		return nil, nil, ErrInvalidInput
	}
	end, err := NormalizeClock(input.Slot.End)
	if err != nil {
		return nil, nil, ErrInvalidInput
	}
	if start >= end {
		return nil, nil, ErrInvalidInput
	}
	input.Slot = models.TimeSlot{Start: start, End: end}

	teacher, err := s.userRepo.GetByID(ctx, input.TeacherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrTeacherNotFound
		}
		return nil, nil, err
	}
	if teacher.Role != "teacher" {
		return nil, nil, ErrInvalidInput
	}

	profile, err := s.teacherProfileRepo.GetByUserID(ctx, input.TeacherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrTeacherNotFound
		}
		return nil, nil, err
	}
	if !profile.OnboardingComplete || profile.HourlyRate == nil || *profile.HourlyRate <= 0 {
		return nil, nil, ErrInvalidInput
	}

	// The weekday selection must stay inside the teacher's declared
	// availability; anything else is rejected before expansion.
	windows, err := s.availabilityRepo.ListActiveByTeacher(ctx, input.TeacherID)
	if err != nil {
		return nil, nil, err
	}
	available := make(map[int]bool)
	for _, window := range windows {
		available[window.Weekday] = true
	}
	for _, weekday := range input.Weekdays {
		if !available[weekday] {
			return nil, nil, ErrInvalidInput
		}
	}

	slotOffered := false
	for _, slot := range CommonSlots(windows, input.Weekdays) {
		if slot == input.Slot {
			slotOffered = true
			break
		}
	}
	if !slotOffered {
		return nil, nil, ErrInvalidInput
	}

	attendees := ClampAttendees(input.Attendees, profile.MaxStudents)
	dates := ExpandPlanDates(input.StartDate, input.Weekdays, input.DurationDays)

	conflicts, err := s.bookingRepo.ConflictingDates(ctx, input.TeacherID, dates, input.Slot)
	if err != nil {
		return nil, nil, err
	}
	valid, conflicted := PartitionDates(dates, conflicts)

	price := SessionPrice(*profile.HourlyRate, profile.GroupRate, attendees)
	return &models.BookingPreview{
		Dates:         dates,
		ValidDates:    valid,
		ConflictDates: conflicted,
		Slot:          input.Slot,
		Attendees:     attendees,
		PricePerDate:  price,
		TotalPrice:    price * float64(len(valid)),
	}, profile, nil
}

func (s *BookingService) ListBookings(
	ctx context.Context,
	actorID int64,
	role string,
	filter repository.BookingListFilter,
) ([]models.Booking, error) {
	if role != "student" && role != "teacher" {
		return nil, ErrForbidden
	}
	return s.bookingRepo.List(ctx, repository.BookingListFilter{
		ActorID:   actorID,
		Role:      role,
		Status:    filter.Status,
		Timeframe: filter.Timeframe,
	})
}

func (s *BookingService) GetBooking(
	ctx context.Context,
	actorID int64,
	role string,
	bookingID int64,
) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(role, actorID, booking) {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *BookingService) UpdateStatus(
	ctx context.Context,
	actorID int64,
	role string,
	bookingID int64,
	requestedStatus string,
) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(role, actorID, booking) {
		return nil, ErrForbidden
	}

	nextStatus, err := normalizeRequestedStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	if err := validateStatusTransition(role, actorID, booking, nextStatus); err != nil {
		return nil, err
	}

	var updated *models.Booking
	if nextStatus == models.BookingStatusCancelled {
		updated, err = s.bookingRepo.Cancel(ctx, bookingID, role)
	} else {
		updated, err = s.bookingRepo.UpdateStatusIfCurrent(ctx, bookingID, booking.Status, nextStatus)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	switch nextStatus {
	case models.BookingStatusConfirmed:
		s.notifier.Notify(updated.ID, NotificationBookingConfirmed)
	case models.BookingStatusCancelled:
		s.notifier.Notify(updated.ID, NotificationBookingCancelled)
	}

	return updated, nil
}

// RescheduleOptions lists alternative (date, slot) pairs for one booking over
// the next searchDays days: the weekday must carry an active window, the slot
// must not collide with any other live booking of the teacher, and the
// booking's own current pair is never offered.
func (s *BookingService) RescheduleOptions(
	ctx context.Context,
	actorID int64,
	role string,
	bookingID int64,
	searchDays int,
) ([]models.RescheduleOption, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(role, actorID, booking) {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingStatusPending && booking.Status != models.BookingStatusConfirmed {
		return nil, ErrInvalidStateTransition
	}

	if searchDays < 1 || searchDays > 30 {
		searchDays = 14
	}

	windows, err := s.availabilityRepo.ListActiveByTeacher(ctx, booking.TeacherID)
	if err != nil {
		return nil, err
	}
	windowsByWeekday := make(map[int][]models.AvailabilityWindow)
	for _, window := range windows {
		windowsByWeekday[window.Weekday] = append(windowsByWeekday[window.Weekday], window)
	}

	from := DateOnly(time.Now().UTC())
	to := from.AddDate(0, 0, searchDays)
	held, err := s.bookingRepo.ListActiveBetween(ctx, booking.TeacherID, from, to)
	if err != nil {
		return nil, err
	}
	heldByDate := make(map[string][]models.Booking)
	for _, other := range held {
		if other.ID == booking.ID {
			continue
		}
		key := DateOnly(other.Date).Format(time.DateOnly)
		heldByDate[key] = append(heldByDate[key], other)
	}

	currentDate := DateOnly(booking.Date).Format(time.DateOnly)
	currentSlot := models.TimeSlot{Start: booking.StartTime, End: booking.EndTime}

	options := make([]models.RescheduleOption, 0)
	for i := 0; i <= searchDays; i++ {
		day := from.AddDate(0, 0, i)
		key := day.Format(time.DateOnly)
		for _, window := range windowsByWeekday[int(day.Weekday())] {
			slot := models.TimeSlot{Start: window.StartTime, End: window.EndTime}
			if key == currentDate && slot == currentSlot {
				continue
			}
			taken := false
			for _, other := range heldByDate[key] {
				if SlotsOverlap(slot, models.TimeSlot{Start: other.StartTime, End: other.EndTime}) {
					taken = true
					break
				}
			}
			if !taken {
				options = append(options, models.RescheduleOption{Date: day, Slot: slot})
			}
		}
	}
	return options, nil
}

// ConfirmReschedule moves the booking to the chosen pair. The conflict
// re-check runs under the teacher advisory lock immediately before the
// update; on conflict the booking is left untouched and the caller is asked
// to pick another slot.
func (s *BookingService) ConfirmReschedule(
	ctx context.Context,
	actorID int64,
	role string,
	bookingID int64,
	date time.Time,
	slot models.TimeSlot,
) (*models.Booking, error) {
	start, err := NormalizeClock(slot.Start)
	if err != nil {
		return nil, ErrInvalidInput
	}
	end, err := NormalizeClock(slot.End)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if start >= end {
		return nil, ErrInvalidInput
	}
	slot = models.TimeSlot{Start: start, End: end}

	day := DateOnly(date)
	if day.Before(DateOnly(time.Now().UTC())) {
		return nil, ErrInvalidInput
	}

	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canAccessBooking(role, actorID, booking) {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingStatusPending && booking.Status != models.BookingStatusConfirmed {
		return nil, ErrInvalidStateTransition
	}
	if DateOnly(booking.Date).Equal(day) && booking.StartTime == slot.Start && booking.EndTime == slot.End {
		return nil, ErrInvalidInput
	}

	// The target slot must be one the teacher actually offers on that weekday.
	windows, err := s.availabilityRepo.ListActiveByWeekday(ctx, booking.TeacherID, int(day.Weekday()))
	if err != nil {
		return nil, err
	}
	offered := false
	for _, window := range windows {
		if window.StartTime == slot.Start && window.EndTime == slot.End {
			offered = true
			break
		}
	}
	if !offered {
		return nil, ErrInvalidInput
	}

	// A student-initiated move needs the teacher's confirmation again; a
	// teacher-initiated one stays confirmed.
	nextStatus := models.BookingStatusPending
	if role == "teacher" {
		nextStatus = models.BookingStatusConfirmed
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", booking.TeacherID); err != nil {
		return nil, err
	}

	txBookingRepo := repository.NewBookingRepository(tx)
	hasConflict, err := txBookingRepo.HasSlotConflict(ctx, booking.TeacherID, day, slot, booking.ID)
	if err != nil {
		return nil, err
	}
	if hasConflict {
		return nil, ErrConflict
	}

	updated, err := txBookingRepo.Reschedule(ctx, booking.ID, day, slot, nextStatus)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Notify(updated.ID, NotificationBookingRescheduled)
	return updated, nil
}

// CompleteElapsedSessions is run on a schedule and flips confirmed bookings
// to completed once the post-session grace period has passed.
func (s *BookingService) CompleteElapsedSessions(ctx context.Context, graceHours int) (int, error) {
	ids, err := s.bookingRepo.CompleteElapsed(ctx, graceHours)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.log.Info("completed elapsed sessions", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

func canAccessBooking(role string, actorID int64, booking *models.Booking) bool {
	if role == "student" {
		return booking.StudentID == actorID
	}
	if role == "teacher" {
		return booking.TeacherID == actorID
	}
	return false
}

func normalizeRequestedStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "confirm", "confirmed":
		return models.BookingStatusConfirmed, nil
	case "complete", "completed":
		return models.BookingStatusCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.BookingStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

func validateStatusTransition(
	role string,
	actorID int64,
	booking *models.Booking,
	nextStatus string,
) error {
	switch role {
	case "student":
		if booking.StudentID != actorID || nextStatus != models.BookingStatusCancelled {
			return ErrForbidden
		}
		if booking.Status == models.BookingStatusCompleted || booking.Status == models.BookingStatusCancelled {
			return ErrInvalidStateTransition
		}
		return nil
	case "teacher":
		if booking.TeacherID != actorID {
			return ErrForbidden
		}
		switch nextStatus {
		case models.BookingStatusConfirmed:
			if booking.Status != models.BookingStatusPending {
				return ErrInvalidStateTransition
			}
		case models.BookingStatusCompleted:
			if booking.Status != models.BookingStatusConfirmed {
				return ErrInvalidStateTransition
			}
			if sessionEnd(booking).After(time.Now().UTC()) {
				return ErrInvalidStateTransition
			}
		case models.BookingStatusCancelled:
			if booking.Status == models.BookingStatusCompleted || booking.Status == models.BookingStatusCancelled {
				return ErrInvalidStateTransition
			}
		default:
			return ErrInvalidStatus
		}
		return nil
	default:
		return ErrForbidden
	}
}

func sessionEnd(booking *models.Booking) time.Time {
	end, err := time.Parse("15:04:05", booking.EndTime)
	if err != nil {
		return booking.Date
	}
	day := DateOnly(booking.Date)
	return day.Add(time.Duration(end.Hour())*time.Hour +
		time.Duration(end.Minute())*time.Minute +
		time.Duration(end.Second())*time.Second)
}
