package repository

import (
	"context"

	"github.com/stephan018/sportsync-connect-sub000/internal/models"
)

type TeacherOnboardingInput struct {
	FullName        string
	Bio             string
	Sports          []string
	ExperienceYears int
	HourlyRate      float64
	GroupRate       *float64
	MaxStudents     int
}

type UpdateTeacherProfileInput struct {
	FullName        *string
	AvatarURL       *string
	Bio             *string
	Sports          *[]string
	ExperienceYears *int
	HourlyRate      *float64
	GroupRate       *float64
	MaxStudents     *int
}

const teacherProfileColumns = `id, user_id, full_name, avatar_url, bio, sports,
	   experience_years, hourly_rate, group_rate, max_students, gallery_urls,
	   rating, review_count, onboarding_complete, created_at, updated_at`

type TeacherProfileRepository struct {
	db DBTX
}

func NewTeacherProfileRepository(db DBTX) *TeacherProfileRepository {
	return &TeacherProfileRepository{db: db}
}

func (r *TeacherProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO teacher_profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *TeacherProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.TeacherProfile, error) {
	query := `
		SELECT ` + teacherProfileColumns + `
		FROM teacher_profiles
		WHERE user_id = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, userID))
}

func (r *TeacherProfileRepository) UpdateOnboarding(ctx context.Context, userID int64, req TeacherOnboardingInput) (*models.TeacherProfile, error) {
	query := `
		UPDATE teacher_profiles
		SET full_name = $1,
			bio = $2,
			sports = $3,
			experience_years = $4,
			hourly_rate = $5,
			group_rate = $6,
			max_students = $7,
			onboarding_complete = TRUE,
			updated_at = NOW()
		WHERE user_id = $8
		RETURNING ` + teacherProfileColumns + `
	`
	return r.scanOne(r.db.QueryRow(ctx, query,
		req.FullName,
		req.Bio,
		req.Sports,
		req.ExperienceYears,
		req.HourlyRate,
		req.GroupRate,
		req.MaxStudents,
		userID,
	))
}

func (r *TeacherProfileRepository) UpdatePartial(ctx context.Context, userID int64, req UpdateTeacherProfileInput) (*models.TeacherProfile, error) {
	query := `
		UPDATE teacher_profiles
		SET full_name = COALESCE($1, full_name),
			avatar_url = COALESCE($2, avatar_url),
			bio = COALESCE($3, bio),
			sports = COALESCE($4, sports),
			experience_years = COALESCE($5, experience_years),
			hourly_rate = COALESCE($6, hourly_rate),
			group_rate = COALESCE($7, group_rate),
			max_students = COALESCE($8, max_students),
			updated_at = NOW()
		WHERE user_id = $9
		RETURNING ` + teacherProfileColumns + `
	`
	return r.scanOne(r.db.QueryRow(ctx, query,
		req.FullName,
		req.AvatarURL,
		req.Bio,
		req.Sports,
		req.ExperienceYears,
		req.HourlyRate,
		req.GroupRate,
		req.MaxStudents,
		userID,
	))
}

func (r *TeacherProfileRepository) SetAvatarURL(ctx context.Context, userID int64, avatarURL *string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE teacher_profiles
		SET avatar_url = $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, avatarURL)
	return err
}

func (r *TeacherProfileRepository) SetGalleryURLs(ctx context.Context, userID int64, urls []string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE teacher_profiles
		SET gallery_urls = $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, urls)
	return err
}

// SetRating stores the aggregate recomputed from reviews.
func (r *TeacherProfileRepository) SetRating(ctx context.Context, userID int64, average float64, count int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE teacher_profiles
		SET rating = $2, review_count = $3, updated_at = NOW()
		WHERE user_id = $1
	`, userID, average, count)
	return err
}

func (r *TeacherProfileRepository) ListOnboarded(ctx context.Context) ([]models.TeacherProfile, error) {
	query := `
		SELECT ` + teacherProfileColumns + `
		FROM teacher_profiles
		WHERE onboarding_complete = TRUE
		ORDER BY rating DESC NULLS LAST, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.TeacherProfile, 0)
	for rows.Next() {
		var profile models.TeacherProfile
		if err := rows.Scan(
			&profile.ID,
			&profile.UserID,
			&profile.FullName,
			&profile.AvatarURL,
			&profile.Bio,
			&profile.Sports,
			&profile.ExperienceYears,
			&profile.HourlyRate,
			&profile.GroupRate,
			&profile.MaxStudents,
			&profile.GalleryURLs,
			&profile.Rating,
			&profile.ReviewCount,
			&profile.OnboardingComplete,
			&profile.CreatedAt,
			&profile.UpdatedAt,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *TeacherProfileRepository) scanOne(row interface{ Scan(dest ...any) error }) (*models.TeacherProfile, error) {
	var profile models.TeacherProfile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.Bio,
		&profile.Sports,
		&profile.ExperienceYears,
		&profile.HourlyRate,
		&profile.GroupRate,
		&profile.MaxStudents,
		&profile.GalleryURLs,
		&profile.Rating,
		&profile.ReviewCount,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
