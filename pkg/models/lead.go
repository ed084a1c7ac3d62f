package models

import (
	"strings"
	"time"
)

// Lead is the prospect a run is working. The engine reads leads for
// condition evaluation and as an action-dispatch parameter; it never
// mutates them.
type Lead struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Company     string         `json:"company"`
	Title       string         `json:"title"`
	Email       string         `json:"email"`
	LinkedinURL string         `json:"linkedin_url"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Field returns the named lead field as a string. Well-known fields resolve
// to the typed columns; anything else falls through to the open attribute
// map. Lookup is case-insensitive.
func (l *Lead) Field(name string) string {
	switch strings.ToLower(name) {
	case "first_name":
		return l.FirstName
	case "last_name":
		return l.LastName
	case "company":
		return l.Company
	case "title":
		return l.Title
	case "email":
		return l.Email
	case "linkedin_url":
		return l.LinkedinURL
	case "owner":
		return l.Owner
	}

	if v, ok := l.Attributes[name]; ok {
		if s, isString := v.(string); isString {
			return s
		}
	}

	return ""
}
