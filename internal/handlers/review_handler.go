package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/services"
)

type reviewApplicationService interface {
	SubmitReview(ctx context.Context, studentID int64, bookingID int64, rating int, comment *string) (*models.Review, error)
	ListTeacherReviews(ctx context.Context, teacherID int64, limit int, offset int) ([]models.Review, int, error)
	ReviewForBooking(ctx context.Context, actorID int64, role string, bookingID int64) (*models.Review, error)
}

type ReviewHandler struct {
	service reviewApplicationService
}

func NewReviewHandler(service *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

type submitReviewRequest struct {
	BookingID int64   `json:"booking_id"`
	Rating    int     `json:"rating"`
	Comment   *string `json:"comment"`
}

func (h *ReviewHandler) SubmitReview(c *fiber.Ctx) error {
	studentID, ok := requireRole(c, "student")
	if !ok {
		return nil
	}

	var req submitReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.BookingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	review, err := h.service.SubmitReview(c.Context(), studentID, req.BookingID, req.Rating, req.Comment)
	if err != nil {
		return mapReviewError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"review": review})
}

func (h *ReviewHandler) ListTeacherReviews(c *fiber.Ctx) error {
	teacherID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || teacherID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher id"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	reviews, total, err := h.service.ListTeacherReviews(c.Context(), teacherID, limit, (page-1)*limit)
	if err != nil {
		return mapReviewError(c, err)
	}

	return c.JSON(fiber.Map{
		"reviews":    reviews,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ReviewHandler) GetBookingReview(c *fiber.Ctx) error {
	actorID, role, ok := requireParticipant(c)
	if !ok {
		return nil
	}

	bookingID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || bookingID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid booking id"})
	}

	review, err := h.service.ReviewForBooking(c.Context(), actorID, role, bookingID)
	if err != nil {
		return mapReviewError(c, err)
	}

	return c.JSON(fiber.Map{"review": review})
}

func mapReviewError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid review input"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrAlreadyReviewed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Booking has already been reviewed"})
	case errors.Is(err, services.ErrNotReviewable):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Only completed bookings can be reviewed"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Review not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process review request"})
	}
}
