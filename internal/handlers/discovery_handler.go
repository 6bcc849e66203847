package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/services"
)

type teacherDiscoveryRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.TeacherProfile, error)
}

type studentDiscoveryRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.StudentProfile, error)
}

type availabilityPreview interface {
	ListForTeacher(ctx context.Context, teacherID int64) ([]models.AvailabilityWindow, error)
}

type teacherMatcher interface {
	MatchTeachers(ctx context.Context, studentProfile *models.StudentProfile, filter services.DiscoveryFilter) ([]models.TeacherWithScore, error)
}

type DiscoveryHandler struct {
	teacherProfileRepo  teacherDiscoveryRepository
	studentProfileRepo  studentDiscoveryRepository
	availabilityService availabilityPreview
	discoveryService    teacherMatcher
}

func NewDiscoveryHandler(
	teacherProfileRepo teacherDiscoveryRepository,
	studentProfileRepo studentDiscoveryRepository,
	availabilityService availabilityPreview,
	discoveryService teacherMatcher,
) *DiscoveryHandler {
	return &DiscoveryHandler{
		teacherProfileRepo:  teacherProfileRepo,
		studentProfileRepo:  studentProfileRepo,
		availabilityService: availabilityService,
		discoveryService:    discoveryService,
	}
}

// ListTeachers is the browse surface: sport and price filters, ranked by
// match score without a student context.
func (h *DiscoveryHandler) ListTeachers(c *fiber.Ctx) error {
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := services.DiscoveryFilter{
		Sport: strings.TrimSpace(c.Query("sport")),
		Limit: limit,
	}
	if raw := strings.TrimSpace(c.Query("max_price")); raw != "" {
		maxPrice, err := strconv.ParseFloat(raw, 64)
		if err != nil || maxPrice < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_price must be a valid non-negative number"})
		}
		filter.MaxPrice = &maxPrice
	}

	teachers, err := h.discoveryService.MatchTeachers(c.Context(), nil, filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch teachers"})
	}

	return c.JSON(fiber.Map{"teachers": buildTeacherListResponse(teachers)})
}

// GetRecommendedTeachers ranks teachers against the calling student's sports
// and budget.
func (h *DiscoveryHandler) GetRecommendedTeachers(c *fiber.Ctx) error {
	userID, ok := requireRole(c, "student")
	if !ok {
		return nil
	}

	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	studentProfile, err := h.studentProfileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch student profile"})
	}

	teachers, err := h.discoveryService.MatchTeachers(c.Context(), studentProfile, services.DiscoveryFilter{Limit: limit})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch recommended teachers"})
	}

	return c.JSON(fiber.Map{"teachers": buildTeacherListResponse(teachers)})
}

func (h *DiscoveryHandler) GetTeacherDetail(c *fiber.Ctx) error {
	teacherID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || teacherID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid teacher id"})
	}

	teacher, err := h.teacherProfileRepo.GetByUserID(c.Context(), teacherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch teacher"})
	}
	if !teacher.OnboardingComplete {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Teacher not found"})
	}

	windows, err := h.availabilityService.ListForTeacher(c.Context(), teacherID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch teacher availability"})
	}

	availability := make([]fiber.Map, 0, len(windows))
	for _, window := range windows {
		availability = append(availability, fiber.Map{
			"weekday":    window.Weekday,
			"start_time": window.StartTime,
			"end_time":   window.EndTime,
		})
	}

	return c.JSON(fiber.Map{
		"teacher":      buildTeacherResponse(*teacher, 0),
		"availability": availability,
	})
}

func buildTeacherListResponse(teachers []models.TeacherWithScore) []fiber.Map {
	response := make([]fiber.Map, 0, len(teachers))
	for _, teacher := range teachers {
		response = append(response, buildTeacherResponse(teacher.TeacherProfile, teacher.MatchScore))
	}
	return response
}

func buildTeacherResponse(teacher models.TeacherProfile, matchScore int) fiber.Map {
	response := fiber.Map{
		"id":               strconv.FormatInt(teacher.UserID, 10),
		"full_name":        stringValue(teacher.FullName),
		"avatar_url":       stringValue(teacher.AvatarURL),
		"bio":              stringValue(teacher.Bio),
		"sports":           stringSliceValue(teacher.Sports),
		"experience_years": intValueResponse(teacher.ExperienceYears),
		"hourly_rate":      floatValueResponse(teacher.HourlyRate),
		"group_rate":       floatValueResponse(teacher.GroupRate),
		"max_students":     teacher.MaxStudents,
		"gallery_urls":     stringSliceValue(teacher.GalleryURLs),
		"rating":           floatValueResponse(teacher.Rating),
		"review_count":     teacher.ReviewCount,
	}
	if matchScore > 0 {
		response["match_score"] = matchScore
	}
	return response
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func stringSliceValue(value *[]string) []string {
	if value == nil {
		return []string{}
	}
	return *value
}

func floatValueResponse(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

func intValueResponse(value *int) int {
	if value == nil {
		return 0
	}
	return *value
}
