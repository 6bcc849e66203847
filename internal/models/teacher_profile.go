package models

import "time"

type TeacherProfile struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	FullName           *string   `json:"full_name"`
	AvatarURL          *string   `json:"avatar_url"`
	Bio                *string   `json:"bio"`
	Sports             *[]string `json:"sports"`
	ExperienceYears    *int      `json:"experience_years"`
	HourlyRate         *float64  `json:"hourly_rate"`
	GroupRate          *float64  `json:"group_rate"`
	MaxStudents        int       `json:"max_students"`
	GalleryURLs        *[]string `json:"gallery_urls"`
	Rating             *float64  `json:"rating"`
	ReviewCount        int       `json:"review_count"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type TeacherWithScore struct {
	TeacherProfile
	MatchScore int `json:"match_score"`
}
