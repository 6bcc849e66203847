package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/services"
)

type availabilityApplicationService interface {
	ReplaceAvailability(ctx context.Context, teacherID int64, windows []services.AvailabilityWindowInput) ([]models.AvailabilityWindow, error)
	ListForTeacher(ctx context.Context, teacherID int64) ([]models.AvailabilityWindow, error)
	ListWeekdays(ctx context.Context, teacherID int64) ([]int, error)
	WindowsForWeekday(ctx context.Context, teacherID int64, weekday int) ([]models.AvailabilityWindow, error)
	CommonSlotsForWeekdays(ctx context.Context, teacherID int64, weekdays []int) ([]models.TimeSlot, error)
}

type AvailabilityHandler struct {
	service availabilityApplicationService
}

func NewAvailabilityHandler(service *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

type availabilityWindowBody struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  *bool  `json:"is_active"`
}

type replaceAvailabilityRequest struct {
	Windows []availabilityWindowBody `json:"windows"`
}

// ReplaceAvailability saves the teacher's full weekly schedule in one shot.
func (h *AvailabilityHandler) ReplaceAvailability(c *fiber.Ctx) error {
	teacherID, ok := requireRole(c, "teacher")
	if !ok {
		return nil
	}

	var req replaceAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	windows := make([]services.AvailabilityWindowInput, 0, len(req.Windows))
	for _, window := range req.Windows {
		active := true
		if window.IsActive != nil {
			active = *window.IsActive
		}
		windows = append(windows, services.AvailabilityWindowInput{
			Weekday:   window.Weekday,
			StartTime: window.StartTime,
			EndTime:   window.EndTime,
			IsActive:  active,
		})
	}

	saved, err := h.service.ReplaceAvailability(c.Context(), teacherID, windows)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{"availability": saved})
}

func (h *AvailabilityHandler) GetMyAvailability(c *fiber.Ctx) error {
	teacherID, ok := requireRole(c, "teacher")
	if !ok {
		return nil
	}

	windows, err := h.service.ListForTeacher(c.Context(), teacherID)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{"availability": windows})
}

func (h *AvailabilityHandler) GetTeacherWeekdays(c *fiber.Ctx) error {
	teacherID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || teacherID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher id"})
	}

	weekdays, err := h.service.ListWeekdays(c.Context(), teacherID)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{"weekdays": weekdays})
}

func (h *AvailabilityHandler) GetTeacherWindows(c *fiber.Ctx) error {
	teacherID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || teacherID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher id"})
	}

	weekday, err := strconv.Atoi(c.Query("weekday", "-1"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "weekday must be an integer"})
	}

	if weekday < 0 {
		windows, err := h.service.ListForTeacher(c.Context(), teacherID)
		if err != nil {
			return mapAvailabilityError(c, err)
		}
		return c.JSON(fiber.Map{"availability": windows})
	}

	windows, err := h.service.WindowsForWeekday(c.Context(), teacherID, weekday)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{"availability": windows})
}

// GetCommonSlots answers "which slots work on every one of these weekdays",
// the question the recurring booking form asks before expansion.
func (h *AvailabilityHandler) GetCommonSlots(c *fiber.Ctx) error {
	teacherID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || teacherID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher id"})
	}

	raw := strings.TrimSpace(c.Query("weekdays"))
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "weekdays query parameter is required"})
	}

	parts := strings.Split(raw, ",")
	weekdays := make([]int, 0, len(parts))
	for _, part := range parts {
		weekday, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "weekdays must be a comma-separated list of integers"})
		}
		weekdays = append(weekdays, weekday)
	}

	slots, err := h.service.CommonSlotsForWeekdays(c.Context(), teacherID, weekdays)
	if err != nil {
		return mapAvailabilityError(c, err)
	}

	return c.JSON(fiber.Map{"slots": slots})
}

func mapAvailabilityError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid availability input"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process availability request"})
	}
}
