package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/repository"
	"github.com/stephan018/sportsync-connect-sub000/internal/services"
)

const maxUploadSizeBytes = 5 * 1024 * 1024
const maxGalleryImages = 12

type galleryStore interface {
	SetGalleryURLs(ctx context.Context, userID int64, urls []string) error
	GetByUserID(ctx context.Context, userID int64) (*models.TeacherProfile, error)
}

type ProfileHandler struct {
	profileService     *services.ProfileService
	teacherProfileRepo galleryStore
	storageService     services.StorageService
}

func NewProfileHandler(
	profileService *services.ProfileService,
	teacherProfileRepo galleryStore,
	storageService services.StorageService,
) *ProfileHandler {
	return &ProfileHandler{
		profileService:     profileService,
		teacherProfileRepo: teacherProfileRepo,
		storageService:     storageService,
	}
}

type teacherOnboardingRequest struct {
	FullName        string   `json:"full_name"`
	Bio             string   `json:"bio"`
	Sports          []string `json:"sports"`
	ExperienceYears int      `json:"experience_years"`
	HourlyRate      float64  `json:"hourly_rate"`
	GroupRate       *float64 `json:"group_rate"`
	MaxStudents     int      `json:"max_students"`
}

type studentOnboardingRequest struct {
	FullName      string   `json:"full_name"`
	Sports        []string `json:"sports"`
	SkillLevel    string   `json:"skill_level"`
	MaxHourlyRate *float64 `json:"max_hourly_rate"`
}

type updateTeacherProfileRequest struct {
	FullName        *string   `json:"full_name"`
	Bio             *string   `json:"bio"`
	Sports          *[]string `json:"sports"`
	ExperienceYears *int      `json:"experience_years"`
	HourlyRate      *float64  `json:"hourly_rate"`
	GroupRate       *float64  `json:"group_rate"`
	MaxStudents     *int      `json:"max_students"`
}

type updateStudentProfileRequest struct {
	FullName      *string   `json:"full_name"`
	Sports        *[]string `json:"sports"`
	SkillLevel    *string   `json:"skill_level"`
	MaxHourlyRate *float64  `json:"max_hourly_rate"`
}

func (h *ProfileHandler) CompleteTeacherOnboarding(c *fiber.Ctx) error {
	userID, ok := requireRole(c, "teacher")
	if !ok {
		return nil
	}

	var req teacherOnboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile, err := h.profileService.CompleteTeacherOnboarding(c.Context(), userID, repository.TeacherOnboardingInput{
		FullName:        req.FullName,
		Bio:             req.Bio,
		Sports:          req.Sports,
		ExperienceYears: req.ExperienceYears,
		HourlyRate:      req.HourlyRate,
		GroupRate:       req.GroupRate,
		MaxStudents:     req.MaxStudents,
	})
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{
		"profile":             profile,
		"onboarding_complete": profile.OnboardingComplete,
	})
}

func (h *ProfileHandler) CompleteStudentOnboarding(c *fiber.Ctx) error {
	userID, ok := requireRole(c, "student")
	if !ok {
		return nil
	}

	var req studentOnboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile, err := h.profileService.CompleteStudentOnboarding(c.Context(), userID, repository.StudentOnboardingInput{
		FullName:      req.FullName,
		Sports:        req.Sports,
		SkillLevel:    req.SkillLevel,
		MaxHourlyRate: req.MaxHourlyRate,
	})
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{
		"profile":             profile,
		"onboarding_complete": profile.OnboardingComplete,
	})
}

func (h *ProfileHandler) GetTeacherProfile(c *fiber.Ctx) error {
	userID, ok := requireRole(c, "teacher")
	if !ok {
		return nil
	}

	profile, err := h.profileService.GetTeacherProfile(c.Context(), userID)
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{
		"profile":             profile,
		"onboarding_complete": profile.OnboardingComplete,
	})
}

func (h *ProfileHandler) GetStudentProfile(c *fiber.Ctx) error {
	userID, ok := requireRole(c, "student")
	if !ok {
		return nil
	}

	profile, err := h.profileService.GetStudentProfile(c.Context(), userID)
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{
		"profile":             profile,
		"onboarding_complete": profile.OnboardingComplete,
	})
}

func (h *ProfileHandler) UpdateTeacherProfile(c *fiber.Ctx) error {
	userID, ok := requireRole(c, "teacher")
	if !ok {
		return nil
	}

	var req updateTeacherProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile, err := h.profileService.UpdateTeacherProfile(c.Context(), userID, repository.UpdateTeacherProfileInput{
		FullName:        req.FullName,
		Bio:             req.Bio,
		Sports:          req.Sports,
		ExperienceYears: req.ExperienceYears,
		HourlyRate:      req.HourlyRate,
		GroupRate:       req.GroupRate,
		MaxStudents:     req.MaxStudents,
	})
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{
		"profile":             profile,
		"onboarding_complete": profile.OnboardingComplete,
	})
}

func (h *ProfileHandler) UpdateStudentProfile(c *fiber.Ctx) error {
	userID, ok := requireRole(c, "student")
	if !ok {
		return nil
	}

	var req updateStudentProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile, err := h.profileService.UpdateStudentProfile(c.Context(), userID, repository.UpdateStudentProfileInput{
		FullName:      req.FullName,
		Sports:        req.Sports,
		SkillLevel:    req.SkillLevel,
		MaxHourlyRate: req.MaxHourlyRate,
	})
	if err != nil {
		return mapProfileError(c, err)
	}

	return c.JSON(fiber.Map{
		"profile":             profile,
		"onboarding_complete": profile.OnboardingComplete,
	})
}

func (h *ProfileHandler) UploadStudentAvatar(c *fiber.Ctx) error {
	return h.uploadAvatar(c, "student")
}

func (h *ProfileHandler) UploadTeacherAvatar(c *fiber.Ctx) error {
	return h.uploadAvatar(c, "teacher")
}

func (h *ProfileHandler) uploadAvatar(c *fiber.Ctx, expectedRole string) error {
	userID, ok := requireRole(c, expectedRole)
	if !ok {
		return nil
	}
	if h.storageService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
	}

	file, ok := openImageUpload(c, "avatar")
	if !ok {
		return nil
	}
	defer file.file.Close()

	avatarURL, err := h.storageService.UploadAvatar(c.Context(), userID, file.file, file.filename)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	var profile any
	var previousURL *string
	if expectedRole == "student" {
		current, err := h.profileService.GetStudentProfile(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
		}
		previousURL = current.AvatarURL
		profile, err = h.profileService.UpdateStudentProfile(c.Context(), userID, repository.UpdateStudentProfileInput{
			AvatarURL: &avatarURL,
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
		}
	} else {
		current, err := h.profileService.GetTeacherProfile(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
		}
		previousURL = current.AvatarURL
		profile, err = h.profileService.UpdateTeacherProfile(c.Context(), userID, repository.UpdateTeacherProfileInput{
			AvatarURL: &avatarURL,
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
		}
	}

	if previousURL != nil && *previousURL != "" && *previousURL != avatarURL {
		_ = h.storageService.DeleteObject(c.Context(), *previousURL)
	}

	return c.JSON(fiber.Map{
		"avatar_url": avatarURL,
		"profile":    profile,
	})
}

// UploadGalleryImage appends one image to the teacher's gallery.
func (h *ProfileHandler) UploadGalleryImage(c *fiber.Ctx) error {
	userID, ok := requireRole(c, "teacher")
	if !ok {
		return nil
	}
	if h.storageService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
	}

	current, err := h.teacherProfileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	gallery := stringSliceValue(current.GalleryURLs)
	if len(gallery) >= maxGalleryImages {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Gallery is full"})
	}

	file, ok := openImageUpload(c, "image")
	if !ok {
		return nil
	}
	defer file.file.Close()

	imageURL, err := h.storageService.UploadGalleryImage(c.Context(), userID, file.file, file.filename)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload image"})
	}

	gallery = append(gallery, imageURL)
	if err := h.teacherProfileRepo.SetGalleryURLs(c.Context(), userID, gallery); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update gallery"})
	}

	return c.JSON(fiber.Map{"gallery_urls": gallery})
}

// DeleteGalleryImage removes one image by URL from the gallery and the
// storage bucket.
func (h *ProfileHandler) DeleteGalleryImage(c *fiber.Ctx) error {
	userID, ok := requireRole(c, "teacher")
	if !ok {
		return nil
	}
	if h.storageService == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage service is not configured"})
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}

	current, err := h.teacherProfileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	gallery := stringSliceValue(current.GalleryURLs)
	remaining := make([]string, 0, len(gallery))
	found := false
	for _, url := range gallery {
		if url == req.URL {
			found = true
			continue
		}
		remaining = append(remaining, url)
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Image not found in gallery"})
	}

	if err := h.teacherProfileRepo.SetGalleryURLs(c.Context(), userID, remaining); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update gallery"})
	}
	_ = h.storageService.DeleteObject(c.Context(), req.URL)

	return c.JSON(fiber.Map{"gallery_urls": remaining})
}

type imageUpload struct {
	file     multipart.File
	filename string
}

func openImageUpload(c *fiber.Ctx, field string) (*imageUpload, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": field + " file is required"})
		return nil, false
	}
	if fileHeader.Size <= 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": field + " file is empty"})
		return nil, false
	}
	if fileHeader.Size > maxUploadSizeBytes {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": field + " file exceeds 5MB limit"})
		return nil, false
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": field + " must be a jpg, jpeg, png, or webp file"})
		return nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to open " + field + " file"})
		return nil, false
	}

	return &imageUpload{file: file, filename: fileHeader.Filename}, true
}

func mapProfileError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid profile input"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process profile request"})
	}
}
