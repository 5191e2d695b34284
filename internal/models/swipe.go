package models

import "time"

type Swipe struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	SitterID  int64     `json:"sitter_id"`
	Liked     bool      `json:"liked"`
	CreatedAt time.Time `json:"created_at"`
}
