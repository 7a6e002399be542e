package model

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

type Review struct {
	ID            string    `json:"id"`
	ServiceID     string    `json:"service_id"`
	AppointmentID string    `json:"appointment_id"`
	ClientID      string    `json:"client_id"`
	ClientName    string    `json:"client_name,omitempty"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment,omitempty"`
	Published     bool      `json:"published"`
	CreatedAt     time.Time `json:"created_at"`
}

func (r *Review) Normalize() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	r.Comment = strings.TrimSpace(r.Comment)
	if len(r.Comment) > 2000 {
		return errors.New("comment must be at most 2000 characters")
	}
	return nil
}

type GalleryItem struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption,omitempty"`
	ServiceID string    `json:"service_id,omitempty"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}
