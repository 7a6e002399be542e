package model

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

type ServiceCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Service struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	PriceCents      int64     `json:"price_cents"`
	DurationMinutes int       `json:"duration_minutes"`
	CategoryID      string    `json:"category_id,omitempty"`
	Active          bool      `json:"active"`
	AverageRating   float64   `json:"average_rating"`
	ReviewCount     int       `json:"review_count"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("name is required")
	}
	if s.PriceCents < 0 {
		return errors.New("price_cents must be >= 0")
	}
	if s.DurationMinutes <= 0 || s.DurationMinutes > 8*60 {
		return errors.New("duration_minutes must be between 1 and 480")
	}
	return nil
}

// Slugify lowercases name and joins alphanumeric runs with '-'.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
