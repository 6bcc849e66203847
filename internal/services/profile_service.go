package services

import (
	"context"
	"strings"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
	"github.com/stephan018/sportsync-connect-sub000/internal/repository"
)

type StudentProfileUpdater interface {
	GetByUserID(ctx context.Context, userID int64) (*models.StudentProfile, error)
	UpdateOnboarding(ctx context.Context, userID int64, req repository.StudentOnboardingInput) (*models.StudentProfile, error)
	UpdatePartial(ctx context.Context, userID int64, req repository.UpdateStudentProfileInput) (*models.StudentProfile, error)
}

type TeacherProfileUpdater interface {
	GetByUserID(ctx context.Context, userID int64) (*models.TeacherProfile, error)
	UpdateOnboarding(ctx context.Context, userID int64, req repository.TeacherOnboardingInput) (*models.TeacherProfile, error)
	UpdatePartial(ctx context.Context, userID int64, req repository.UpdateTeacherProfileInput) (*models.TeacherProfile, error)
}

type ProfileService struct {
	studentProfileRepo StudentProfileUpdater
	teacherProfileRepo TeacherProfileUpdater
}

func NewProfileService(studentProfileRepo StudentProfileUpdater, teacherProfileRepo TeacherProfileUpdater) *ProfileService {
	return &ProfileService{
		studentProfileRepo: studentProfileRepo,
		teacherProfileRepo: teacherProfileRepo,
	}
}

func (s *ProfileService) GetStudentProfile(ctx context.Context, userID int64) (*models.StudentProfile, error) {
	return s.studentProfileRepo.GetByUserID(ctx, userID)
}

func (s *ProfileService) GetTeacherProfile(ctx context.Context, userID int64) (*models.TeacherProfile, error) {
	return s.teacherProfileRepo.GetByUserID(ctx, userID)
}

// CompleteTeacherOnboarding fills the profile a teacher must finish before
// appearing in discovery or accepting bookings.
func (s *ProfileService) CompleteTeacherOnboarding(
	ctx context.Context,
	userID int64,
	req repository.TeacherOnboardingInput,
) (*models.TeacherProfile, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" || len(req.Sports) == 0 {
		return nil, ErrInvalidInput
	}
	if req.HourlyRate <= 0 || req.ExperienceYears < 0 {
		return nil, ErrInvalidInput
	}
	if req.GroupRate != nil && *req.GroupRate <= 0 {
		return nil, ErrInvalidInput
	}
	if req.MaxStudents < 1 {
		req.MaxStudents = 1
	}
	return s.teacherProfileRepo.UpdateOnboarding(ctx, userID, req)
}

func (s *ProfileService) CompleteStudentOnboarding(
	ctx context.Context,
	userID int64,
	req repository.StudentOnboardingInput,
) (*models.StudentProfile, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return nil, ErrInvalidInput
	}
	if req.MaxHourlyRate != nil && *req.MaxHourlyRate <= 0 {
		return nil, ErrInvalidInput
	}
	return s.studentProfileRepo.UpdateOnboarding(ctx, userID, req)
}

func (s *ProfileService) UpdateStudentProfile(
	ctx context.Context,
	userID int64,
	req repository.UpdateStudentProfileInput,
) (*models.StudentProfile, error) {
	return s.studentProfileRepo.UpdatePartial(ctx, userID, req)
}

func (s *ProfileService) UpdateTeacherProfile(
	ctx context.Context,
	userID int64,
	req repository.UpdateTeacherProfileInput,
) (*models.TeacherProfile, error) {
	if req.HourlyRate != nil && *req.HourlyRate <= 0 {
		return nil, ErrInvalidInput
	}
	if req.GroupRate != nil && *req.GroupRate <= 0 {
		return nil, ErrInvalidInput
	}
	if req.MaxStudents != nil && *req.MaxStudents < 1 {
		return nil, ErrInvalidInput
	}
	return s.teacherProfileRepo.UpdatePartial(ctx, userID, req)
}
