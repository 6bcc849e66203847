package models

import "time"

type StudentProfile struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	FullName           *string   `json:"full_name"`
	AvatarURL          *string   `json:"avatar_url"`
	Sports             *[]string `json:"sports"`
	SkillLevel         *string   `json:"skill_level"`
	MaxHourlyRate      *float64  `json:"max_hourly_rate"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
