package models

import "time"

type SitterProfile struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	FullName           *string   `json:"full_name"`
	AvatarURL          *string   `json:"avatar_url"`
	Bio                *string   `json:"bio"`
	City               *string   `json:"city"`
	Services           *[]string `json:"services"`
	AcceptedPets       *[]string `json:"accepted_pets"`
	HourlyRateCents    *int64    `json:"hourly_rate_cents"`
	Rating             *float64  `json:"rating"`
	ReviewCount        *int      `json:"review_count"`
	IsVerified         *bool     `json:"is_verified"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type SitterWithScore struct {
	SitterProfile
	MatchScore int `json:"match_score"`
}
