package domain

import (
	"errors"
	"regexp"
	"time"
)

// Organization is a tenant. Only ID, Slug and Active matter to authentication.
type Organization struct {
	ID        string
	Slug      string
	Name      string
	Active    bool
	CreatedAt time.Time
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidSlug reports whether s can be used as a tenant subdomain label.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Organization) Validate() error {
	if o.ID == "" {
		return errors.New("id is required")
	}
	if !ValidSlug(o.Slug) {
		return errors.New("slug must be a lowercase DNS label")
	}
	return nil
}
