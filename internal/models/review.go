package models

import "time"

type Review struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	AuthorID  int64     `json:"author_id"`
	SubjectID int64     `json:"subject_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
