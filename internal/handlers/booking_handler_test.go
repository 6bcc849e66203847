package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/repository"
	"github.com/stephan018/sportsync-connect-sub000/internal/services"
)

type stubBookingService struct {
	previewResult     *models.BookingPreview
	previewErr        error
	createResult      []models.Booking
	createErr         error
	listResult        []models.Booking
	listErr           error
	getResult         *models.Booking
	getErr            error
	updateResult      *models.Booking
	updateErr         error
	optionsResult     []models.RescheduleOption
	optionsErr        error
	rescheduleResult  *models.Booking
	rescheduleErr     error
	lastStudentID     int64
	lastActorID       int64
	lastRole          string
	lastBookingID     int64
	lastStatus        string
	lastPlanRequest   services.PlanRequest
	lastListFilter    repository.BookingListFilter
	lastSearchDays    int
	lastRescheduleDay time.Time
	lastSlot          models.TimeSlot
}

func (s *stubBookingService) PreviewPlan(_ context.Context, studentID int64, input services.PlanRequest) (*models.BookingPreview, error) {
	s.lastStudentID = studentID
	s.lastPlanRequest = input
	return s.previewResult, s.previewErr
}

func (s *stubBookingService) CreatePlan(_ context.Context, studentID int64, input services.PlanRequest) ([]models.Booking, error) {
	s.lastStudentID = studentID
	s.lastPlanRequest = input
	return s.createResult, s.createErr
}

func (s *stubBookingService) ListBookings(_ context.Context, actorID int64, role string, filter repository.BookingListFilter) ([]models.Booking, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastListFilter = filter
	return s.listResult, s.listErr
}

func (s *stubBookingService) GetBooking(_ context.Context, actorID int64, role string, bookingID int64) (*models.Booking, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookingID = bookingID
	return s.getResult, s.getErr
}

func (s *stubBookingService) UpdateStatus(_ context.Context, actorID int64, role string, bookingID int64, requestedStatus string) (*models.Booking, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookingID = bookingID
	s.lastStatus = requestedStatus
	return s.updateResult, s.updateErr
}

func (s *stubBookingService) RescheduleOptions(_ context.Context, actorID int64, role string, bookingID int64, searchDays int) ([]models.RescheduleOption, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookingID = bookingID
	s.lastSearchDays = searchDays
	return s.optionsResult, s.optionsErr
}

func (s *stubBookingService) ConfirmReschedule(_ context.Context, actorID int64, role string, bookingID int64, date time.Time, slot models.TimeSlot) (*models.Booking, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastBookingID = bookingID
	s.lastRescheduleDay = date
	s.lastSlot = slot
	return s.rescheduleResult, s.rescheduleErr
}

func newBookingTestApp(service *stubBookingService, role string, userID string) *fiber.App {
	handler := &BookingHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/bookings/preview", handler.PreviewPlan)
	app.Post("/api/v1/bookings", handler.CreatePlan)
	app.Get("/api/v1/bookings", handler.ListBookings)
	app.Get("/api/v1/bookings/:id", handler.GetBooking)
	app.Put("/api/v1/bookings/:id/status", handler.UpdateStatus)
	app.Get("/api/v1/bookings/:id/reschedule", handler.RescheduleOptions)
	app.Post("/api/v1/bookings/:id/reschedule", handler.Reschedule)
	return app
}

const planBody = `{
	"teacher_id": 7,
	"start_date": "2026-09-07",
	"weekdays": [1, 3],
	"duration_days": 14,
	"start_time": "09:00",
	"end_time": "10:00",
	"attendees": 1
}`

func TestPreviewPlanReturnsExpandedDates(t *testing.T) {
	service := &stubBookingService{
		previewResult: &models.BookingPreview{
			Dates:        []time.Time{time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC)},
			ValidDates:   []time.Time{time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)},
			Slot:         models.TimeSlot{Start: "09:00:00", End: "10:00:00"},
			Attendees:    1,
			PricePerDate: 45,
			TotalPrice:   45,
		},
	}
	app := newBookingTestApp(service, "student", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/preview", strings.NewReader(planBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastStudentID != 42 {
		t.Fatalf("expected student id 42, got %d", service.lastStudentID)
	}
	if service.lastPlanRequest.TeacherID != 7 || service.lastPlanRequest.DurationDays != 14 {
		t.Fatalf("unexpected plan request: %+v", service.lastPlanRequest)
	}

	var body struct {
		Preview struct {
			ValidDates []string `json:"valid_dates"`
			TotalPrice float64  `json:"total_price"`
		} `json:"preview"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Preview.ValidDates) != 1 || body.Preview.ValidDates[0] != "2026-09-07" {
		t.Fatalf("unexpected valid dates: %v", body.Preview.ValidDates)
	}
	if body.Preview.TotalPrice != 45 {
		t.Fatalf("expected total 45, got %v", body.Preview.TotalPrice)
	}
}

func TestPreviewPlanRejectsTeacherRole(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingTestApp(service, "teacher", "7")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/preview", strings.NewReader(planBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if service.lastStudentID != 0 {
		t.Fatalf("service should not be called, got student id %d", service.lastStudentID)
	}
}

func TestCreatePlanReturnsCreatedBookings(t *testing.T) {
	service := &stubBookingService{
		createResult: []models.Booking{
			{ID: 100, StudentID: 42, TeacherID: 7, Status: "pending"},
			{ID: 101, StudentID: 42, TeacherID: 7, Status: "pending"},
		},
	}
	app := newBookingTestApp(service, "student", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(planBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var body struct {
		Bookings []models.Booking `json:"bookings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(body.Bookings))
	}
}

func TestCreatePlanReportsConflictDates(t *testing.T) {
	service := &stubBookingService{
		createErr: &services.SlotConflictError{
			Dates: []time.Time{time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC)},
		},
	}
	app := newBookingTestApp(service, "student", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(planBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	var body struct {
		ConflictDates []string `json:"conflict_dates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.ConflictDates) != 1 || body.ConflictDates[0] != "2026-09-09" {
		t.Fatalf("unexpected conflict dates: %v", body.ConflictDates)
	}
}

func TestCreatePlanForwardsExpectedDates(t *testing.T) {
	service := &stubBookingService{
		createResult: []models.Booking{{ID: 100, StudentID: 42, TeacherID: 7, Status: "pending"}},
	}
	app := newBookingTestApp(service, "student", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
		"teacher_id": 7,
		"start_date": "2026-09-07",
		"weekdays": [1, 3],
		"duration_days": 14,
		"start_time": "09:00",
		"end_time": "10:00",
		"attendees": 1,
		"expected_dates": ["2026-09-07", "2026-09-09"]
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	expected := []time.Time{
		time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC),
	}
	if len(service.lastPlanRequest.ExpectedDates) != len(expected) {
		t.Fatalf("expected %d forwarded dates, got %v", len(expected), service.lastPlanRequest.ExpectedDates)
	}
	for i, day := range expected {
		if !service.lastPlanRequest.ExpectedDates[i].Equal(day) {
			t.Fatalf("expected date %v at index %d, got %v", day, i, service.lastPlanRequest.ExpectedDates[i])
		}
	}
}

func TestCreatePlanRejectsMalformedExpectedDate(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingTestApp(service, "student", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
		"teacher_id": 7,
		"start_date": "2026-09-07",
		"weekdays": [1],
		"duration_days": 7,
		"start_time": "09:00",
		"end_time": "10:00",
		"expected_dates": ["07/09/2026"]
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastStudentID != 0 {
		t.Fatalf("service should not be called, got student id %d", service.lastStudentID)
	}
}

func TestCreatePlanRejectsMalformedStartDate(t *testing.T) {
	service := &stubBookingService{}
	app := newBookingTestApp(service, "student", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
		"teacher_id": 7,
		"start_date": "07/09/2026",
		"weekdays": [1],
		"duration_days": 7,
		"start_time": "09:00",
		"end_time": "10:00"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListBookingsPassesStatusAndTimeframe(t *testing.T) {
	service := &stubBookingService{
		listResult: []models.Booking{{ID: 5, Status: "confirmed"}},
	}
	app := newBookingTestApp(service, "teacher", "9")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?status=confirmed&timeframe=upcoming", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastRole != "teacher" || service.lastActorID != 9 {
		t.Fatalf("expected teacher 9, got %q %d", service.lastRole, service.lastActorID)
	}
	if service.lastListFilter.Status != "confirmed" || service.lastListFilter.Timeframe != "upcoming" {
		t.Fatalf("unexpected filter: %+v", service.lastListFilter)
	}
}

func TestListBookingsRejectsUnknownTimeframe(t *testing.T) {
	app := newBookingTestApp(&stubBookingService{}, "student", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?timeframe=yesterday", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetBookingReturnsNotFound(t *testing.T) {
	service := &stubBookingService{getErr: pgx.ErrNoRows}
	app := newBookingTestApp(service, "student", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/999", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateStatusReturnsUnprocessableForBadTransition(t *testing.T) {
	service := &stubBookingService{updateErr: services.ErrInvalidStateTransition}
	app := newBookingTestApp(service, "teacher", "7")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/bookings/55/status", strings.NewReader(`{"status":"completed"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if service.lastStatus != "completed" {
		t.Fatalf("expected forwarded status, got %q", service.lastStatus)
	}
}

func TestRescheduleOptionsFormatsDates(t *testing.T) {
	service := &stubBookingService{
		optionsResult: []models.RescheduleOption{
			{
				Date: time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
				Slot: models.TimeSlot{Start: "09:00:00", End: "10:00:00"},
			},
		},
	}
	app := newBookingTestApp(service, "student", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/55/reschedule?days=21", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastSearchDays != 21 {
		t.Fatalf("expected 21 search days, got %d", service.lastSearchDays)
	}

	var body struct {
		Options []struct {
			Date      string `json:"date"`
			StartTime string `json:"start_time"`
		} `json:"options"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Options) != 1 || body.Options[0].Date != "2026-09-14" || body.Options[0].StartTime != "09:00:00" {
		t.Fatalf("unexpected options: %+v", body.Options)
	}
}

func TestReschedulePassesDateAndSlot(t *testing.T) {
	service := &stubBookingService{
		rescheduleResult: &models.Booking{ID: 55, Status: "pending"},
	}
	app := newBookingTestApp(service, "student", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/55/reschedule", strings.NewReader(`{
		"date": "2026-09-14",
		"start_time": "09:00",
		"end_time": "10:00"
	}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !service.lastRescheduleDay.Equal(time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", service.lastRescheduleDay)
	}
	if service.lastSlot.Start != "09:00" || service.lastSlot.End != "10:00" {
		t.Fatalf("unexpected slot: %+v", service.lastSlot)
	}
}

func TestMapBookingErrorDefaultsToInternalServerError(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return mapBookingError(c, errors.New("boom"))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestMapBookingErrorReturnsTeacherNotFound(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return mapBookingError(c, services.ErrTeacherNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
