package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/repository"
	"github.com/stephan018/sportsync-connect-sub000/internal/services"
)

type BookingHandler struct {
	service bookingApplicationService
}

type bookingApplicationService interface {
	PreviewPlan(ctx context.Context, studentID int64, input services.PlanRequest) (*models.BookingPreview, error)
	CreatePlan(ctx context.Context, studentID int64, input services.PlanRequest) ([]models.Booking, error)
	ListBookings(ctx context.Context, actorID int64, role string, filter repository.BookingListFilter) ([]models.Booking, error)
	GetBooking(ctx context.Context, actorID int64, role string, bookingID int64) (*models.Booking, error)
	UpdateStatus(ctx context.Context, actorID int64, role string, bookingID int64, requestedStatus string) (*models.Booking, error)
	RescheduleOptions(ctx context.Context, actorID int64, role string, bookingID int64, searchDays int) ([]models.RescheduleOption, error)
	ConfirmReschedule(ctx context.Context, actorID int64, role string, bookingID int64, date time.Time, slot models.TimeSlot) (*models.Booking, error)
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type planRequestBody struct {
	TeacherID     int64    `json:"teacher_id"`
	StartDate     string   `json:"start_date"`
	Weekdays      []int    `json:"weekdays"`
	DurationDays  int      `json:"duration_days"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	Attendees     int      `json:"attendees"`
	Notes         *string  `json:"notes"`
	ExpectedDates []string `json:"expected_dates"`
}

type updateBookingStatusRequest struct {
	Status string `json:"status"`
}

type rescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *BookingHandler) PreviewPlan(c *fiber.Ctx) error {
	studentID, ok := requireRole(c, "student")
	if !ok {
		return nil
	}

	input, ok := parsePlanRequest(c)
	if !ok {
		return nil
	}

	preview, err := h.service.PreviewPlan(c.Context(), studentID, *input)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"preview": previewResponse(preview)})
}

func (h *BookingHandler) CreatePlan(c *fiber.Ctx) error {
	studentID, ok := requireRole(c, "student")
	if !ok {
		return nil
	}

	input, ok := parsePlanRequest(c)
	if !ok {
		return nil
	}

	bookings, err := h.service.CreatePlan(c.Context(), studentID, *input)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"bookings": bookings})
}

func (h *BookingHandler) ListBookings(c *fiber.Ctx) error {
	actorID, role, ok := requireParticipant(c)
	if !ok {
		return nil
	}

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if timeframe != "" && timeframe != "upcoming" && timeframe != "past" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "timeframe must be upcoming or past"})
	}

	bookings, err := h.service.ListBookings(c.Context(), actorID, role, repository.BookingListFilter{
		Status:    strings.TrimSpace(c.Query("status")),
		Timeframe: timeframe,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"bookings": bookings})
}

func (h *BookingHandler) GetBooking(c *fiber.Ctx) error {
	actorID, role, ok := requireParticipant(c)
	if !ok {
		return nil
	}

	bookingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	booking, err := h.service.GetBooking(c.Context(), actorID, role, bookingID)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) UpdateStatus(c *fiber.Ctx) error {
	actorID, role, ok := requireParticipant(c)
	if !ok {
		return nil
	}

	bookingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req updateBookingStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	booking, err := h.service.UpdateStatus(c.Context(), actorID, role, bookingID, req.Status)
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func (h *BookingHandler) RescheduleOptions(c *fiber.Ctx) error {
	actorID, role, ok := requireParticipant(c)
	if !ok {
		return nil
	}

	bookingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	searchDays, _ := strconv.Atoi(c.Query("days"))

	options, err := h.service.RescheduleOptions(c.Context(), actorID, role, bookingID, searchDays)
	if err != nil {
		return mapBookingError(c, err)
	}

	response := make([]fiber.Map, 0, len(options))
	for _, option := range options {
		response = append(response, fiber.Map{
			"date":       option.Date.Format(time.DateOnly),
			"start_time": option.Slot.Start,
			"end_time":   option.Slot.End,
		})
	}
	return c.JSON(fiber.Map{"options": response})
}

func (h *BookingHandler) Reschedule(c *fiber.Ctx) error {
	actorID, role, ok := requireParticipant(c)
	if !ok {
		return nil
	}

	bookingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	var req rescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	date, err := time.Parse(time.DateOnly, strings.TrimSpace(req.Date))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be YYYY-MM-DD"})
	}

	booking, err := h.service.ConfirmReschedule(c.Context(), actorID, role, bookingID, date, models.TimeSlot{
		Start: req.StartTime,
		End:   req.EndTime,
	})
	if err != nil {
		return mapBookingError(c, err)
	}

	return c.JSON(fiber.Map{"booking": booking})
}

func parsePlanRequest(c *fiber.Ctx) (*services.PlanRequest, bool) {
	var req planRequestBody
	if err := c.BodyParser(&req); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		return nil, false
	}

	startDate, err := time.Parse(time.DateOnly, strings.TrimSpace(req.StartDate))
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start_date must be YYYY-MM-DD"})
		return nil, false
	}
	if req.Notes != nil && strings.TrimSpace(*req.Notes) == "" {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "notes must not be empty"})
		return nil, false
	}

	expectedDates := make([]time.Time, 0, len(req.ExpectedDates))
	for _, raw := range req.ExpectedDates {
		day, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
		if err != nil {
			_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expected_dates must be YYYY-MM-DD"})
			return nil, false
		}
		expectedDates = append(expectedDates, day)
	}

	return &services.PlanRequest{
		TeacherID:     req.TeacherID,
		StartDate:     startDate,
		Weekdays:      req.Weekdays,
		DurationDays:  req.DurationDays,
		Slot:          models.TimeSlot{Start: req.StartTime, End: req.EndTime},
		Attendees:     req.Attendees,
		Notes:         req.Notes,
		ExpectedDates: expectedDates,
	}, true
}

func previewResponse(preview *models.BookingPreview) fiber.Map {
	return fiber.Map{
		"dates":          formatDates(preview.Dates),
		"valid_dates":    formatDates(preview.ValidDates),
		"conflict_dates": formatDates(preview.ConflictDates),
		"start_time":     preview.Slot.Start,
		"end_time":       preview.Slot.End,
		"attendees":      preview.Attendees,
		"price_per_date": preview.PricePerDate,
		"total_price":    preview.TotalPrice,
	}
}

func formatDates(dates []time.Time) []string {
	formatted := make([]string, 0, len(dates))
	for _, day := range dates {
		formatted = append(formatted, day.Format(time.DateOnly))
	}
	return formatted
}

// requireRole writes the failure response itself; the caller just returns nil
// when ok is false.
func requireRole(c *fiber.Ctx, expected string) (int64, bool) {
	role, roleOK := c.Locals("role").(string)
	if !roleOK || role != expected {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		return 0, false
	}
	userID, err := parseAuthUserID(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		return 0, false
	}
	return userID, true
}

func requireParticipant(c *fiber.Ctx) (int64, string, bool) {
	role, roleOK := c.Locals("role").(string)
	if !roleOK || (role != "student" && role != "teacher") {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		return 0, "", false
	}
	userID, err := parseAuthUserID(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		return 0, "", false
	}
	return userID, role, true
}

func mapBookingError(c *fiber.Ctx, err error) error {
	var slotConflict *services.SlotConflictError
	if errors.As(err, &slotConflict) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":          "Some dates are no longer available",
			"conflict_dates": formatDates(slotConflict.Dates),
		})
	}

	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrNoValidDates):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Requested time conflicts with another booking"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrTeacherNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process booking request"})
	}
}
