package model

import (
	"strconv"
	"strings"
	"time"
)

type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func (p Profile) Role() string {
	if p.IsAdmin {
		return "admin"
	}
	return "client"
}

// ParseAdminFlag collapses the representations the admin flag has been
// stored as (bool, "true"/"t"/"yes"/"y"/"1", numbers) into one bool.
// Unknown values are false.
func ParseAdminFlag(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case *bool:
		return x != nil && *x
	case string:
		return parseAdminString(x)
	case *string:
		return x != nil && parseAdminString(*x)
	case []byte:
		return parseAdminString(string(x))
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return false
	}
}

func parseAdminString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f != 0
	}
	return false
}
