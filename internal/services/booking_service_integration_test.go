package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

type noopNotifier struct{}

func (noopNotifier) Notify(_ int64, _ string) {}

func TestBookingServicePlanFlow(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationBookingService(pool)

	studentID := createTestStudent(t, ctx, pool)
	teacherID := createTestTeacher(t, ctx, pool, 40, []int{1, 3})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, teacherID) })

	// 2030-04-01 is a Monday.
	request := PlanRequest{
		TeacherID:    teacherID,
		StartDate:    time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC),
		Weekdays:     []int{1, 3},
		DurationDays: 14,
		Slot:         models.TimeSlot{Start: "09:00", End: "10:00"},
		Attendees:    1,
	}

	preview, err := service.PreviewPlan(ctx, studentID, request)
	if err != nil {
		t.Fatalf("PreviewPlan: %v", err)
	}
	if len(preview.ValidDates) != 5 {
		t.Fatalf("expected 5 valid dates over two weeks, got %d", len(preview.ValidDates))
	}
	if preview.PricePerDate != 40 || preview.TotalPrice != 200 {
		t.Fatalf("expected 40 per session and 200 total, got %.2f and %.2f", preview.PricePerDate, preview.TotalPrice)
	}

	bookings, err := service.CreatePlan(ctx, studentID, request)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if len(bookings) != 5 {
		t.Fatalf("expected 5 bookings, got %d", len(bookings))
	}
	for _, booking := range bookings {
		if booking.Status != models.BookingStatusPending {
			t.Fatalf("expected pending booking, got %q", booking.Status)
		}
		if booking.StartTime != "09:00:00" || booking.EndTime != "10:00:00" {
			t.Fatalf("expected normalized times, got %s-%s", booking.StartTime, booking.EndTime)
		}
	}

	confirmed, err := service.UpdateStatus(ctx, teacherID, "teacher", bookings[0].ID, "confirmed")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if confirmed.Status != models.BookingStatusConfirmed {
		t.Fatalf("expected confirmed, got %q", confirmed.Status)
	}
}

func TestBookingServiceAbortsWhenPlanDatesAreTaken(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationBookingService(pool)

	firstStudentID := createTestStudent(t, ctx, pool)
	secondStudentID := createTestStudent(t, ctx, pool)
	teacherID := createTestTeacher(t, ctx, pool, 55, []int{1, 3})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, firstStudentID, secondStudentID, teacherID) })

	slot := models.TimeSlot{Start: "09:00", End: "10:00"}
	if _, err := service.CreatePlan(ctx, firstStudentID, PlanRequest{
		TeacherID:    teacherID,
		StartDate:    time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC),
		Weekdays:     []int{1},
		DurationDays: 7,
		Slot:         slot,
		Attendees:    1,
	}); err != nil {
		t.Fatalf("first CreatePlan: %v", err)
	}

	// Mondays are taken now. A create that never previewed them must be
	// told rather than silently booked short.
	request := PlanRequest{
		TeacherID:    teacherID,
		StartDate:    time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC),
		Weekdays:     []int{1, 3},
		DurationDays: 7,
		Slot:         slot,
		Attendees:    1,
	}
	_, err := service.CreatePlan(ctx, secondStudentID, request)
	var conflict *SlotConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected SlotConflictError, got %v", err)
	}
	if len(conflict.Dates) != 2 {
		t.Fatalf("expected both Mondays reported, got %v", conflict.Dates)
	}
	assertNoBookingsForStudent(t, ctx, pool, secondStudentID)

	// Accepting only the free Wednesday from the preview goes through.
	request.ExpectedDates = []time.Time{time.Date(2030, 4, 3, 0, 0, 0, 0, time.UTC)}
	bookings, err := service.CreatePlan(ctx, secondStudentID, request)
	if err != nil {
		t.Fatalf("CreatePlan with accepted dates: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("expected 1 booking on the free weekday, got %d", len(bookings))
	}
	if got := bookings[0].Date.Weekday(); got != time.Wednesday {
		t.Fatalf("expected Wednesday booking, got %v", got)
	}
}

func TestBookingServiceRejectsDatesTakenSincePreview(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationBookingService(pool)

	firstStudentID := createTestStudent(t, ctx, pool)
	secondStudentID := createTestStudent(t, ctx, pool)
	teacherID := createTestTeacher(t, ctx, pool, 45, []int{1, 3})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, firstStudentID, secondStudentID, teacherID) })

	slot := models.TimeSlot{Start: "09:00", End: "10:00"}
	request := PlanRequest{
		TeacherID:    teacherID,
		StartDate:    time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC),
		Weekdays:     []int{1, 3},
		DurationDays: 7,
		Slot:         slot,
		Attendees:    1,
	}

	preview, err := service.PreviewPlan(ctx, secondStudentID, request)
	if err != nil {
		t.Fatalf("PreviewPlan: %v", err)
	}
	if len(preview.ConflictDates) != 0 {
		t.Fatalf("expected a clean preview, got conflicts %v", preview.ConflictDates)
	}

	// Another student books the Mondays between this student's preview
	// and create.
	if _, err := service.CreatePlan(ctx, firstStudentID, PlanRequest{
		TeacherID:    teacherID,
		StartDate:    time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC),
		Weekdays:     []int{1},
		DurationDays: 7,
		Slot:         slot,
		Attendees:    1,
	}); err != nil {
		t.Fatalf("interleaved CreatePlan: %v", err)
	}

	request.ExpectedDates = preview.ValidDates
	_, err = service.CreatePlan(ctx, secondStudentID, request)
	var conflict *SlotConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected SlotConflictError, got %v", err)
	}
	for _, day := range conflict.Dates {
		if day.Weekday() != time.Monday {
			t.Fatalf("expected only the taken Mondays reported, got %v", conflict.Dates)
		}
	}
	if len(conflict.Dates) != 2 {
		t.Fatalf("expected both Mondays reported, got %v", conflict.Dates)
	}
	assertNoBookingsForStudent(t, ctx, pool, secondStudentID)
}

func TestBookingServiceRescheduleMovesOccurrence(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationBookingService(pool)

	studentID := createTestStudent(t, ctx, pool)
	teacherID := createTestTeacher(t, ctx, pool, 60, []int{1, 3})
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, studentID, teacherID) })

	bookings, err := service.CreatePlan(ctx, studentID, PlanRequest{
		TeacherID:    teacherID,
		StartDate:    time.Date(2030, 4, 1, 0, 0, 0, 0, time.UTC),
		Weekdays:     []int{1},
		DurationDays: 7,
		Slot:         models.TimeSlot{Start: "09:00", End: "10:00"},
		Attendees:    1,
	})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	target := time.Date(2030, 4, 3, 0, 0, 0, 0, time.UTC)
	moved, err := service.ConfirmReschedule(ctx, studentID, "student", bookings[0].ID, target, models.TimeSlot{
		Start: "09:00",
		End:   "10:00",
	})
	if err != nil {
		t.Fatalf("ConfirmReschedule: %v", err)
	}
	if !moved.Date.Equal(target) {
		t.Fatalf("expected booking on %v, got %v", target, moved.Date)
	}
	if moved.Status != models.BookingStatusPending {
		t.Fatalf("expected student-initiated reschedule to need re-confirmation, got %q", moved.Status)
	}
	if moved.PreviousDate == nil || !moved.PreviousDate.Equal(bookings[0].Date) {
		t.Fatalf("expected previous date %v, got %v", bookings[0].Date, moved.PreviousDate)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationBookingService(pool *pgxpool.Pool) *BookingService {
	return NewBookingService(
		pool,
		repository.NewBookingRepository(pool),
		repository.NewAvailabilityRepository(pool),
		repository.NewUserRepository(pool),
		repository.NewTeacherProfileRepository(pool),
		noopNotifier{},
		zap.NewNop(),
	)
}

func createTestStudent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("booking-test-student-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         "student",
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(student): %v", err)
	}
	if err := repository.NewStudentProfileRepository(pool).CreateEmpty(ctx, user.ID); err != nil {
		t.Fatalf("CreateEmpty student profile: %v", err)
	}
	return user.ID
}

func createTestTeacher(t *testing.T, ctx context.Context, pool *pgxpool.Pool, hourlyRate float64, weekdays []int) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("booking-test-teacher-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         "teacher",
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(teacher): %v", err)
	}

	profileRepo := repository.NewTeacherProfileRepository(pool)
	if err := profileRepo.CreateEmpty(ctx, user.ID); err != nil {
		t.Fatalf("CreateEmpty teacher profile: %v", err)
	}
	if _, err := profileRepo.UpdateOnboarding(ctx, user.ID, repository.TeacherOnboardingInput{
		FullName:        "Test Teacher",
		Bio:             "Test Bio",
		Sports:          []string{"tennis"},
		ExperienceYears: 5,
		HourlyRate:      hourlyRate,
		MaxStudents:     4,
	}); err != nil {
		t.Fatalf("UpdateOnboarding teacher profile: %v", err)
	}

	windows := make([]repository.AvailabilityWindowInput, 0, len(weekdays))
	for _, weekday := range weekdays {
		windows = append(windows, repository.AvailabilityWindowInput{
			Weekday:   weekday,
			StartTime: "09:00:00",
			EndTime:   "10:00:00",
			IsActive:  true,
		})
	}
	if err := repository.NewAvailabilityRepository(pool).ReplaceForTeacher(ctx, user.ID, windows); err != nil {
		t.Fatalf("ReplaceForTeacher: %v", err)
	}

	return user.ID
}

func assertNoBookingsForStudent(t *testing.T, ctx context.Context, pool *pgxpool.Pool, studentID int64) {
	t.Helper()

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM bookings WHERE student_id = $1", studentID).Scan(&count); err != nil {
		t.Fatalf("count bookings: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected an aborted plan to insert nothing, found %d rows", count)
	}
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, "DELETE FROM bookings WHERE student_id = ANY($1) OR teacher_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup bookings: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
