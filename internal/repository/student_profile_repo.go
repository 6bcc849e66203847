package repository

import (
	"context"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

type StudentOnboardingInput struct {
	FullName      string
	Sports        []string
	SkillLevel    string
	MaxHourlyRate *float64
}

type UpdateStudentProfileInput struct {
	FullName      *string
	AvatarURL     *string
	Sports        *[]string
	SkillLevel    *string
	MaxHourlyRate *float64
}

type StudentProfileRepository struct {
	db DBTX
}

func NewStudentProfileRepository(db DBTX) *StudentProfileRepository {
	return &StudentProfileRepository{db: db}
}

func (r *StudentProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO student_profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *StudentProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.StudentProfile, error) {
	query := `
		SELECT id, user_id, full_name, avatar_url, sports, skill_level,
			   max_hourly_rate, onboarding_complete, created_at, updated_at
		FROM student_profiles
		WHERE user_id = $1
	`
	var profile models.StudentProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.Sports,
		&profile.SkillLevel,
		&profile.MaxHourlyRate,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *StudentProfileRepository) UpdateOnboarding(ctx context.Context, userID int64, req StudentOnboardingInput) (*models.StudentProfile, error) {
	query := `
		UPDATE student_profiles
		SET full_name = $1,
			sports = $2,
			skill_level = $3,
			max_hourly_rate = $4,
			onboarding_complete = TRUE,
			updated_at = NOW()
		WHERE user_id = $5
		RETURNING id, user_id, full_name, avatar_url, sports, skill_level,
				  max_hourly_rate, onboarding_complete, created_at, updated_at
	`
	var profile models.StudentProfile
	err := r.db.QueryRow(ctx, query,
		req.FullName,
		req.Sports,
		req.SkillLevel,
		req.MaxHourlyRate,
		userID,
	).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.Sports,
		&profile.SkillLevel,
		&profile.MaxHourlyRate,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *StudentProfileRepository) UpdatePartial(ctx context.Context, userID int64, req UpdateStudentProfileInput) (*models.StudentProfile, error) {
	query := `
		UPDATE student_profiles
		SET full_name = COALESCE($1, full_name),
			avatar_url = COALESCE($2, avatar_url),
			sports = COALESCE($3, sports),
			skill_level = COALESCE($4, skill_level),
			max_hourly_rate = COALESCE($5, max_hourly_rate),
			updated_at = NOW()
		WHERE user_id = $6
		RETURNING id, user_id, full_name, avatar_url, sports, skill_level,
				  max_hourly_rate, onboarding_complete, created_at, updated_at
	`
	var profile models.StudentProfile
	err := r.db.QueryRow(ctx, query,
		req.FullName,
		req.AvatarURL,
		req.Sports,
		req.SkillLevel,
		req.MaxHourlyRate,
		userID,
	).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.Sports,
		&profile.SkillLevel,
		&profile.MaxHourlyRate,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *StudentProfileRepository) SetAvatarURL(ctx context.Context, userID int64, avatarURL *string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE student_profiles
		SET avatar_url = $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, avatarURL)
	return err
}
